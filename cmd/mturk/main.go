// Command mturk sends signed operations to the Mechanical Turk Requester API.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mturk "github.com/JordanDalton/mechanical-turk"
	"github.com/JordanDalton/mechanical-turk/internal/config"
	"github.com/JordanDalton/mechanical-turk/internal/observability"
)

var (
	configPath string
	production bool
	endpoint   string
	logLevel   string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "mturk",
	Short: "Signed Mechanical Turk Requester API client",
	Long: `mturk signs and sends Requester API operations.

Credentials are read from MTURK_CREDENTIALS__ACCESS_KEY_ID and
MTURK_CREDENTIALS__SECRET_ACCESS_KEY, a .env file, or --config.
Requests go to the sandbox unless --production is given.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&production, "production", false, "send requests to the production endpoint")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "override the base URI")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(getCmd, balanceCmd, signCmd, versionCmd)
}

// newClient loads configuration, sets up logging and builds a client.
func newClient(cmd *cobra.Command) (*mturk.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logger.Level = logLevel
	}

	l, err := observability.SetupLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("setting up logger: %w", err)
	}
	logger = l

	opts := []mturk.Option{
		mturk.WithSandbox(cfg.Client.Sandbox && !production),
		mturk.WithTimeout(cfg.Client.Timeout),
		mturk.WithZapLogger(logger),
	}
	if endpoint != "" {
		cfg.Client.Endpoint = endpoint
	}
	if cfg.Client.Endpoint != "" {
		opts = append(opts, mturk.WithEndpoint(cfg.Client.Endpoint))
	}

	client := mturk.New(cfg.Credentials.AccessKeyID, cfg.Credentials.SecretAccessKey, opts...)
	if err := client.ValidationError(); err != nil {
		return nil, err
	}
	logger.Debug("client ready", zap.Stringer("client", client), zap.String("endpoint", client.BaseURL()))
	return client, nil
}

// exitCode maps an error from a command to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, mturk.ErrTransportFailed):
		return 2
	default:
		return 1
	}
}

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}
