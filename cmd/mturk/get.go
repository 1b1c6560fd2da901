package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	mturk "github.com/JordanDalton/mechanical-turk"
)

var getCmd = &cobra.Command{
	Use:   "get <Operation> [key=value ...]",
	Short: "Send an operation and print the response body",
	Long: `Send a signed operation and print the raw XML response.

Repeating a key builds a list parameter:
  mturk get SearchHITs PageSize=10 ResponseGroup=Minimal ResponseGroup=HITDetail`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGet,
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the account balance (GetAccountBalance)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(cmd, "GetAccountBalance", mturk.Params{})
	},
}

func runGet(cmd *cobra.Command, args []string) error {
	params, err := parseParams(args[1:])
	if err != nil {
		return err
	}
	return send(cmd, args[0], params)
}

func send(cmd *cobra.Command, operation string, params mturk.Params) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	resp, err := client.Get(cmd.Context(), operation, params)
	if r, ok := mturk.AsRequestFailure(err); ok && r != nil {
		printFailure(cmd.ErrOrStderr(), r)
		return err
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), resp.String())
	return nil
}

func printFailure(w io.Writer, r *mturk.Response) {
	fmt.Fprintf(w, "status: %d\n", r.StatusCode)
	if r.RequestID != "" {
		fmt.Fprintf(w, "request id: %s\n", r.RequestID)
	}
	for _, apiErr := range r.Errors {
		fmt.Fprintf(w, "%s: %s\n", apiErr.Code, apiErr.Message)
	}
	if len(r.Errors) == 0 && len(r.Body) > 0 {
		fmt.Fprintln(w, r.String())
	}
}

// parseParams turns key=value arguments into Params; a key given more than
// once becomes a list in argument order.
func parseParams(args []string) (mturk.Params, error) {
	params := mturk.Params{}
	seen := map[string]int{}

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", arg)
		}
		seen[key]++
		if seen[key] == 1 {
			params.Set(key, value)
		} else {
			params.Add(key, value)
		}
	}

	return params, nil
}
