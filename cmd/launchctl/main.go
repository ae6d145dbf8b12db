package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "launchctl",
		Short:        "Seed and lock liquidity for launched tokens",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("chains-file", "./chains.yaml", "chain profiles YAML")
	root.PersistentFlags().StringSlice("chains", nil, "enable only these chains (comma-separated keys or aliases)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	provisionCmd := &cobra.Command{
		Use:   "provision",
		Short: "Add liquidity for one token and lock the pool shares",
		RunE:  runProvision,
	}
	addPipelineFlags(provisionCmd)
	provisionCmd.Flags().Int64("token-record-id", 0, "token record to update with the outcome")
	provisionCmd.Flags().String("chain", "", "chain key or alias")
	provisionCmd.Flags().String("token", "", "new token address")
	provisionCmd.Flags().String("paired", "", "paired asset address (default: chain stable asset)")
	provisionCmd.Flags().String("amount-token", "", "token amount in human units")
	provisionCmd.Flags().String("amount-paired", "", "paired asset amount in human units")
	provisionCmd.Flags().Int("slippage-bps", 100, "slippage tolerance in basis points")
	root.AddCommand(provisionCmd)

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Run liquidity requests from a JSONL file",
		RunE:  runBatch,
	}
	addPipelineFlags(batchCmd)
	batchCmd.Flags().String("in", "", "input requests JSONL")
	batchCmd.Flags().Int("concurrency", 4, "requests in flight (same-signer requests still run one at a time)")
	root.AddCommand(batchCmd)

	chainsCmd := &cobra.Command{
		Use:   "chains",
		Short: "List configured chain profiles",
		RunE:  runChains,
	}
	root.AddCommand(chainsCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest recorded attempt for a token record",
		RunE:  runStatus,
	}
	statusCmd.Flags().String("pg-dsn", "", "Postgres DSN for token records")
	statusCmd.Flags().Int64("token-record-id", 0, "token record id")
	root.AddCommand(statusCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for token records (optional)")
	cmd.Flags().String("out", "./data/outcomes.jsonl", "outcome audit JSONL path")
	cmd.Flags().Duration("confirm-timeout", 3*time.Minute, "maximum wait for each transaction receipt")
	cmd.Flags().Duration("deadline-window", 1200*time.Second, "router deadline from submission time")
	cmd.Flags().Int("poll-attempts", 0, "pool lookup attempts (0 uses the chain profile)")
	cmd.Flags().Duration("poll-delay", 0, "delay between pool lookups (0 uses the chain profile)")
	cmd.Flags().Duration("receipt-poll", 2*time.Second, "receipt polling interval")
	cmd.Flags().Int("read-retries", 3, "retries for read-only calls")
	cmd.Flags().Duration("read-backoff", 500*time.Millisecond, "initial backoff for read-only calls")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9102)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
