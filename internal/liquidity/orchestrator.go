package liquidity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"liquidityLock/internal/model"
	"liquidityLock/internal/registry"
)

// Orchestrator runs the provisioning and lock pipeline for launch requests.
// Requests for different (chain, signer) pairs run concurrently; requests
// sharing a pair are serialized.
type Orchestrator struct {
	cfg      Config
	registry *registry.Registry
	dialer   Dialer
	queue    *SignerQueue
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewOrchestrator(cfg Config, reg *registry.Registry, dialer Dialer, metrics *Metrics, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:      cfg.withDefaults(),
		registry: reg,
		dialer:   dialer,
		queue:    NewSignerQueue(),
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Run executes one request and always returns an outcome.
func (o *Orchestrator) Run(ctx context.Context, req model.LiquidityRequest) model.LiquidityOutcome {
	base := model.LiquidityOutcome{
		ID:            o.newID(),
		TokenRecordID: req.TokenRecordID,
		Chain:         strings.ToLower(strings.TrimSpace(req.Chain)),
		Token:         strings.TrimSpace(req.Token),
		Paired:        strings.TrimSpace(req.Paired),
		StartedAt:     o.now().UTC(),
	}
	log := o.logger.With(
		zap.String("outcome_id", base.ID),
		zap.String("chain", base.Chain),
		zap.String("token", base.Token),
	)

	var progress Progress
	err := o.run(ctx, req, &base, &progress, log)
	outcome := Compose(base, progress, err, o.now())
	metricChain := outcome.Chain
	if outcome.ErrorKind == model.ErrorKindUnsupportedChain {
		metricChain = "unsupported"
	}
	o.metrics.outcome(metricChain, outcome.ErrorKind)

	if outcome.Success {
		log.Info("liquidity locked",
			zap.String("liquidity_tx", outcome.LiquidityTx),
			zap.String("pool", outcome.PairAddress),
			zap.String("lp_locked", outcome.LPLocked),
			zap.String("lock_tx", outcome.LockTx),
		)
	} else {
		log.Error("liquidity failed",
			zap.String("kind", string(outcome.ErrorKind)),
			zap.String("stage", outcome.Stage),
			zap.String("liquidity_tx", outcome.LiquidityTx),
			zap.String("lock_tx", outcome.LockTx),
			zap.Error(err),
		)
	}
	return outcome
}

func (o *Orchestrator) run(ctx context.Context, req model.LiquidityRequest, base *model.LiquidityOutcome, progress *Progress, log *zap.Logger) error {
	if err := req.Validate(); err != nil {
		return newError(model.ErrorKindUnknown, StageRegistry, fmt.Errorf("invalid request: %w", err))
	}

	profile, err := o.registry.Resolve(req.Chain)
	if err != nil {
		return newError(model.ErrorKindUnsupportedChain, StageRegistry, err)
	}
	base.Chain = profile.Key

	token, paired, err := resolveAssets(profile, req)
	if err != nil {
		return newError(model.ErrorKindUnknown, StageRegistry, err)
	}
	progress.Paired = paired

	chain, err := o.dialer.Chain(ctx, profile)
	if err != nil {
		return newError(model.ErrorKindUnknown, StageRegistry, fmt.Errorf("connect %s: %w", profile.Key, err))
	}
	signer := chain.Signer()

	waitStarted := time.Now()
	release, err := o.queue.Acquire(ctx, profile.Key, signer)
	if err != nil {
		return newError(model.ErrorKindUnknown, StagePrecheck, fmt.Errorf("cancelled waiting for signer %s: %w", signer.Hex(), err))
	}
	defer release()
	o.metrics.queueWait(profile.Key, waitStarted)
	o.metrics.inFlight(profile.Key, 1)
	defer o.metrics.inFlight(profile.Key, -1)

	log = log.With(zap.String("signer", signer.Hex()))
	approvals := NewApprovalManager(chain, o.cfg, log)
	approvals.metrics = o.metrics
	approvals.chainKey = profile.Key

	provisioner := NewProvisioner(chain, o.cfg, log)
	provisioner.now = o.now
	provisioner.metrics = o.metrics

	attempts, delay := profile.PollAttempts, profile.PollDelay
	if o.cfg.PollAttempts > 0 {
		attempts = o.cfg.PollAttempts
	}
	if o.cfg.PollDelay > 0 {
		delay = o.cfg.PollDelay
	}
	resolver := NewPairResolver(chain, attempts, delay, log)

	locker := NewLocker(chain, approvals, o.cfg, log)
	locker.metrics = o.metrics

	var amounts Amounts
	steps := []struct {
		stage string
		fn    func() error
	}{
		{StagePrecheck, func() error {
			var err error
			amounts, err = NewPrechecker(chain, o.cfg, log).Check(ctx, profile, token, paired, req.AmountToken, req.AmountPaired)
			return err
		}},
		{StageApproveA, func() error {
			return approvals.Ensure(ctx, StageApproveA, token, profile.Router, amounts.A)
		}},
		{StageApproveB, func() error {
			return approvals.Ensure(ctx, StageApproveB, paired, profile.Router, amounts.B)
		}},
		{StageProvision, func() error {
			receipt, err := provisioner.Provision(ctx, profile, token, paired, amounts.A, amounts.B, req.SlippageBps)
			progress.LiquidityTx = receipt.TxHash
			return err
		}},
		{StageResolve, func() error {
			pool, err := resolver.Resolve(ctx, token, paired, profile.Stable())
			if err == nil {
				progress.Pool = pool
			}
			return err
		}},
		{StageLock, func() error {
			receipt, err := locker.Lock(ctx, profile, token, progress.Pool)
			progress.LockTx = receipt.TxHash
			if err == nil {
				progress.Locked = receipt.Amount
			}
			return err
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return newError(model.ErrorKindUnknown, step.stage, fmt.Errorf("cancelled before %s: %w", step.stage, err))
		}
		started := time.Now()
		log.Debug("stage start", zap.String("stage", step.stage))
		err := step.fn()
		o.metrics.observeStage(profile.Key, step.stage, started)
		if err != nil {
			var classified *Error
			if !errors.As(err, &classified) {
				err = newError(model.ErrorKindUnknown, step.stage, err)
			}
			return err
		}
	}
	return nil
}

// resolveAssets parses the request addresses. An empty paired asset means
// the chain's paired stable asset; the zero address means the native asset.
func resolveAssets(profile registry.ChainProfile, req model.LiquidityRequest) (common.Address, common.Address, error) {
	token, err := profile.ResolveAsset(common.HexToAddress(strings.TrimSpace(req.Token)))
	if err != nil {
		return common.Address{}, common.Address{}, err
	}

	var paired common.Address
	if raw := strings.TrimSpace(req.Paired); raw != "" {
		paired, err = profile.ResolveAsset(common.HexToAddress(raw))
		if err != nil {
			return common.Address{}, common.Address{}, err
		}
	} else {
		paired = profile.StableAsset
		if paired == (common.Address{}) {
			return common.Address{}, common.Address{}, fmt.Errorf("chain %s has no paired stable asset and request names none", profile.Key)
		}
	}
	if token == paired {
		return common.Address{}, common.Address{}, fmt.Errorf("token and paired asset are the same: %s", token.Hex())
	}
	return token, paired, nil
}
