package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"liquidityLock/internal/config"
	"liquidityLock/internal/storage/postgres"
)

func runStatus(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.PGDSN == "" {
		return errors.New("pg-dsn is required")
	}
	recordID, _ := cmd.Flags().GetInt64("token-record-id")
	if recordID <= 0 {
		return errors.New("token-record-id must be positive")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	outcome, ok, err := store.LatestAttempt(ctx, recordID)
	if err != nil {
		return fmt.Errorf("latest attempt: %w", err)
	}
	if !ok {
		return fmt.Errorf("no attempts for token record %d", recordID)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(outcome)
}
