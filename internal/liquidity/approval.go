package liquidity

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityLock/internal/model"
)

// ApprovalManager makes sure a spender may move the signer's assets.
type ApprovalManager struct {
	chain          Chain
	reads          reads
	confirmTimeout time.Duration
	metrics        *Metrics
	chainKey       string
	logger         *zap.Logger
}

func NewApprovalManager(chain Chain, cfg Config, logger *zap.Logger) *ApprovalManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &ApprovalManager{
		chain:          chain,
		reads:          reads{chain: chain, retries: cfg.ReadRetries, backoff: cfg.ReadBackoff},
		confirmTimeout: cfg.ConfirmTimeout,
		logger:         logger,
	}
}

// Ensure guarantees allowance(signer, spender) >= required on asset. No
// transaction is sent when the allowance already suffices. A nonzero but
// insufficient allowance is reset to zero before the new approval.
func (m *ApprovalManager) Ensure(ctx context.Context, stage string, asset, spender common.Address, required *big.Int) error {
	return m.ensure(ctx, stage, model.ErrorKindApprovalFailed, asset, spender, required)
}

func (m *ApprovalManager) ensure(
	ctx context.Context,
	stage string,
	failKind model.ErrorKind,
	asset, spender common.Address,
	required *big.Int,
) error {
	if required == nil || required.Sign() <= 0 {
		return newError(failKind, stage, fmt.Errorf("required allowance must be positive"))
	}
	owner := m.chain.Signer()
	log := m.logger.With(
		zap.String("stage", stage),
		zap.String("asset", asset.Hex()),
		zap.String("spender", spender.Hex()),
		zap.String("required", required.String()),
	)

	current, err := m.reads.allowance(ctx, asset, owner, spender)
	if err != nil {
		return newError(failKind, stage, err)
	}
	if current.Cmp(required) >= 0 {
		log.Debug("allowance sufficient", zap.String("current", current.String()))
		return nil
	}

	if current.Sign() > 0 {
		log.Info("resetting allowance", zap.String("current", current.String()))
		if err := m.approve(ctx, stage, failKind, asset, spender, new(big.Int)); err != nil {
			return err
		}
	}
	if err := m.approve(ctx, stage, failKind, asset, spender, required); err != nil {
		return err
	}

	after, err := m.reads.allowance(ctx, asset, owner, spender)
	if err != nil {
		return newError(failKind, stage, err)
	}
	if after.Cmp(required) < 0 {
		return newError(failKind, stage,
			fmt.Errorf("allowance %s still below required %s after approval", after, required))
	}
	log.Info("allowance approved", zap.String("allowance", after.String()))
	return nil
}

func (m *ApprovalManager) approve(
	ctx context.Context,
	stage string,
	failKind model.ErrorKind,
	asset, spender common.Address,
	amount *big.Int,
) error {
	tx, err := m.chain.Approve(ctx, asset, spender, amount)
	if err != nil {
		return classifySubmit(stage, failKind, fmt.Errorf("approve %s: %w", amount, err))
	}
	m.metrics.txSubmitted(m.chainKey, "approve")
	if _, err := confirm(ctx, m.chain, tx, m.confirmTimeout); err != nil {
		return classifySubmit(stage, failKind, fmt.Errorf("approve %s: %w", amount, err))
	}
	m.logger.Debug("approval confirmed", zap.String("stage", stage), zap.String("tx", tx.Hex()), zap.String("amount", amount.String()))
	return nil
}
