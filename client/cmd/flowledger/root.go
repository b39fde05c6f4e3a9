package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flowLedger/client/config"
)

var (
	cfg       = config.Load()
	logFormat string
	deps      *app
)

var rootCmd = &cobra.Command{
	Use:          "flowledger",
	Short:        "Imports receipts, deposits and exchange rates into Flow Ledger and waits for the results",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger, err := newLogger(logFormat)
		if err != nil {
			return err
		}

		deps, err = newApp(cmd.Context(), cfg, logger)
		if err != nil {
			logger.Error("Failed to start", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "backend API base URL")
	flags.StringVar(&cfg.Token, "token", cfg.Token, "bearer token to use instead of the stored session")
	flags.StringVar(&logFormat, "log-format", "json", "log format. Valid values are 'json', 'console'")
	flags.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "delay between task status reads")
	flags.DurationVar(&cfg.PollTimeout, "poll-timeout", cfg.PollTimeout, "give up waiting for a task after this long")
	flags.IntVar(&cfg.FetchRetries, "fetch-retries", cfg.FetchRetries, "retries for transient status read errors")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
