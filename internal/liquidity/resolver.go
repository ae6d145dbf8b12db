package liquidity

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityLock/internal/model"
)

// PairResolver polls the factory until the new pool becomes visible.
type PairResolver struct {
	chain    Chain
	attempts int
	delay    time.Duration
	logger   *zap.Logger
}

func NewPairResolver(chain Chain, attempts int, delay time.Duration, logger *zap.Logger) *PairResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if attempts <= 0 {
		attempts = 1
	}
	return &PairResolver{chain: chain, attempts: attempts, delay: delay, logger: logger}
}

// Resolve returns the pool address for the pair. It makes at most the
// configured number of lookups; a failed lookup still spends an attempt.
// Cancellation while waiting between lookups is Unknown, not PairNotCreated.
func (r *PairResolver) Resolve(ctx context.Context, assetA, assetB common.Address, stable bool) (common.Address, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		pool, err := r.chain.GetPool(ctx, assetA, assetB, stable)
		switch {
		case err != nil:
			lastErr = err
			r.logger.Warn("pool lookup failed", zap.Int("attempt", attempt), zap.Error(err))
		case pool != (common.Address{}):
			r.logger.Info("pool resolved", zap.String("pool", pool.Hex()), zap.Int("attempt", attempt))
			return pool, nil
		default:
			r.logger.Debug("pool not visible yet", zap.Int("attempt", attempt))
		}

		if attempt == r.attempts {
			break
		}
		if err := sleep(ctx, r.delay); err != nil {
			return common.Address{}, newError(model.ErrorKindUnknown, StageResolve,
				fmt.Errorf("cancelled during %s after %d attempts: %w", StageResolve, attempt, err))
		}
	}

	err := fmt.Errorf("factory returned no pool for %s/%s after %d attempts", assetA.Hex(), assetB.Hex(), r.attempts)
	if lastErr != nil {
		err = fmt.Errorf("%v (last error: %w)", err, lastErr)
	}
	return common.Address{}, newError(model.ErrorKindPairNotCreated, StageResolve, err)
}
