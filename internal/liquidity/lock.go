package liquidity

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityLock/internal/model"
	"liquidityLock/internal/registry"
)

// LockReceipt describes a pool-share lock. When the lock did not confirm
// only TxHash, Label and Beneficiary are set.
type LockReceipt struct {
	TxHash      common.Hash
	Amount      *big.Int
	Label       string
	Beneficiary common.Address
}

// Locker moves the signer's entire pool-share balance into the lock contract.
type Locker struct {
	chain          Chain
	approvals      *ApprovalManager
	reads          reads
	confirmTimeout time.Duration
	metrics        *Metrics
	logger         *zap.Logger
}

func NewLocker(chain Chain, approvals *ApprovalManager, cfg Config, logger *zap.Logger) *Locker {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	if approvals == nil {
		approvals = NewApprovalManager(chain, cfg, logger)
	}
	return &Locker{
		chain:          chain,
		approvals:      approvals,
		reads:          reads{chain: chain, retries: cfg.ReadRetries, backoff: cfg.ReadBackoff},
		confirmTimeout: cfg.ConfirmTimeout,
		logger:         logger,
	}
}

// Lock reads the share balance once and locks exactly that amount.
func (l *Locker) Lock(ctx context.Context, profile registry.ChainProfile, token, pool common.Address) (LockReceipt, error) {
	signer := l.chain.Signer()

	shares, err := l.reads.balanceOf(ctx, pool, signer)
	if err != nil {
		return LockReceipt{}, newError(model.ErrorKindLockFailed, StageLock, err)
	}
	if shares.Sign() <= 0 {
		return LockReceipt{}, newError(model.ErrorKindLPZero, StageLock,
			fmt.Errorf("signer %s holds no shares of pool %s", signer.Hex(), pool.Hex()))
	}

	if err := l.approvals.ensure(ctx, StageLock, model.ErrorKindLockFailed, pool, profile.Locker, shares); err != nil {
		return LockReceipt{}, err
	}

	label, err := l.chain.Symbol(ctx, token)
	if err != nil || label == "" {
		l.logger.Warn("token symbol unavailable, using address", zap.String("token", token.Hex()), zap.Error(err))
		label = token.Hex()
	}

	call := CreateLockCall{
		Label:       label,
		Pool:        pool,
		Beneficiary: profile.Beneficiary(signer),
		Amount:      new(big.Int).Set(shares),
	}
	l.logger.Info("create lock",
		zap.String("chain", profile.Key),
		zap.String("locker", profile.Locker.Hex()),
		zap.String("pool", pool.Hex()),
		zap.String("beneficiary", call.Beneficiary.Hex()),
		zap.String("amount", shares.String()),
	)

	tx, err := l.chain.CreateLock(ctx, call)
	if err != nil {
		return LockReceipt{}, classifySubmit(StageLock, model.ErrorKindLockFailed, fmt.Errorf("create lock: %w", err))
	}
	l.metrics.txSubmitted(profile.Key, "create_lock")

	if _, err := confirm(ctx, l.chain, tx, l.confirmTimeout); err != nil {
		return LockReceipt{TxHash: tx, Label: label, Beneficiary: call.Beneficiary}, classifySubmit(StageLock, model.ErrorKindLockFailed, fmt.Errorf("create lock: %w", err))
	}
	return LockReceipt{
		TxHash:      tx,
		Amount:      call.Amount,
		Label:       label,
		Beneficiary: call.Beneficiary,
	}, nil
}
