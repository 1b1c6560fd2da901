package main

import (
	"fmt"

	"github.com/spf13/cobra"

	mturk "github.com/JordanDalton/mechanical-turk"
)

var signCmd = &cobra.Command{
	Use:   "sign <Operation> [key=value ...]",
	Short: "Print the signed query string without sending it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(args[1:])
		if err != nil {
			return err
		}
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Timestamp: %s\n", client.Timestamp())
		fmt.Fprintf(out, "Signature: %s\n", client.Signature(args[0]))
		fmt.Fprintf(out, "%s?%s\n", client.BaseURL(), client.Query(args[0], params).Encode())
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), mturk.GetVersion())
	},
}
