package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"liquidityLock/internal/model"
	"liquidityLock/internal/storage"
)

func runBatch(cmd *cobra.Command, _ []string) error {
	in, _ := cmd.Flags().GetString("in")
	if in == "" {
		return fmt.Errorf("input path is required")
	}
	file, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	requests, err := storage.ReadRequests(file)
	file.Close()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(ctx, cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	p.logger.Info("batch start",
		zap.String("in", in),
		zap.Int("requests", len(requests)),
		zap.Int("concurrency", p.cfg.Concurrency),
	)

	var (
		mu       sync.Mutex
		enc      = json.NewEncoder(os.Stdout)
		byKind   = make(map[model.ErrorKind]int)
		failures int
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.cfg.Concurrency)
	for _, req := range requests {
		req := req
		group.Go(func() error {
			outcome := p.run(groupCtx, req)

			mu.Lock()
			defer mu.Unlock()
			byKind[outcome.ErrorKind]++
			if !outcome.Success {
				failures++
			}
			return enc.Encode(outcome)
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}

	fields := []zap.Field{
		zap.Int("requests", len(requests)),
		zap.Int("failed", failures),
	}
	for kind, n := range byKind {
		if kind == model.ErrorKindNone {
			continue
		}
		fields = append(fields, zap.Int(string(kind), n))
	}
	p.logger.Info("batch done", fields...)

	if failures > 0 {
		return fmt.Errorf("%d of %d requests failed", failures, len(requests))
	}
	return nil
}
