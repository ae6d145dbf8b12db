package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityLock/internal/config"
	"liquidityLock/internal/dex"
	"liquidityLock/internal/liquidity"
	"liquidityLock/internal/model"
	"liquidityLock/internal/registry"
	"liquidityLock/internal/storage"
	"liquidityLock/internal/storage/postgres"
)

// pipeline is the wiring shared by provision and batch.
type pipeline struct {
	cfg          config.Config
	logger       *zap.Logger
	orchestrator *liquidity.Orchestrator
	store        storage.OutcomeStore
	closers      []func()
}

func newPipeline(ctx context.Context, cmd *cobra.Command) (*pipeline, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	p := &pipeline{cfg: cfg, logger: logger}
	p.closers = append(p.closers, func() { _ = logger.Sync() })

	reg, err := loadRegistry(cfg)
	if err != nil {
		p.Close()
		return nil, err
	}
	if cfg.SignerKey == "" {
		p.Close()
		return nil, fmt.Errorf("signer key is required (LAUNCHCTL_SIGNER_KEY)")
	}

	dialer, err := dex.NewDialer(cfg.SignerKey, cfg.ReceiptPoll, logger)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.closers = append(p.closers, dialer.Close)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := liquidity.NewMetrics(promReg, "launchctl")
	if cfg.MetricsAddr != "" {
		p.serveMetrics(promReg)
	}

	stores := storage.Multi{storage.NewJsonlStorage(cfg.Out)}
	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		p.closers = append(p.closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			p.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		stores = append(stores, pg)
	}
	p.store = stores

	p.orchestrator = liquidity.NewOrchestrator(cfg.Pipeline(), reg, dialer, metrics, logger)

	logger.Info("pipeline ready",
		zap.String("signer", dialer.Address().Hex()),
		zap.Int("chains", len(reg.Profiles())),
		zap.String("out", cfg.Out),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Duration("confirm_timeout", cfg.ConfirmTimeout),
	)
	return p, nil
}

// run executes one request and persists its outcome. Persistence uses a
// context detached from cancellation so a confirmed outcome is never lost.
func (p *pipeline) run(ctx context.Context, req model.LiquidityRequest) model.LiquidityOutcome {
	outcome := p.orchestrator.Run(ctx, req)

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := p.store.PutOutcome(storeCtx, outcome); err != nil {
		p.logger.Error("persist outcome failed",
			zap.String("outcome_id", outcome.ID),
			zap.Int64("token_record_id", outcome.TokenRecordID),
			zap.Error(err),
		)
	}
	return outcome
}

func (p *pipeline) serveMetrics(reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              p.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	p.closers = append(p.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})
	p.logger.Info("metrics listening", zap.String("addr", p.cfg.MetricsAddr))
}

// Close releases resources in reverse order of acquisition.
func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
}

// loadRegistry reads the chains file and keeps only the enabled chains.
func loadRegistry(cfg config.Config) (*registry.Registry, error) {
	reg, err := registry.LoadFile(cfg.ChainsFile)
	if err != nil {
		return nil, err
	}
	if len(cfg.Chains) == 0 {
		return reg, nil
	}

	keep := make([]registry.ChainProfile, 0, len(cfg.Chains))
	seen := make(map[string]bool)
	for _, name := range cfg.Chains {
		profile, err := reg.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("enabled chains: %w", err)
		}
		if seen[profile.Key] {
			continue
		}
		seen[profile.Key] = true
		keep = append(keep, profile)
	}
	return registry.New(keep)
}
