package storage

import (
	"context"
	"errors"

	"liquidityLock/internal/model"
)

// OutcomeStore is a sink for pipeline outcomes.
type OutcomeStore interface {
	PutOutcome(ctx context.Context, outcome model.LiquidityOutcome) error
}

// Multi writes every outcome to each store in order. All stores are tried;
// the errors are joined.
type Multi []OutcomeStore

func (m Multi) PutOutcome(ctx context.Context, outcome model.LiquidityOutcome) error {
	var errs []error
	for _, store := range m {
		if store == nil {
			continue
		}
		if err := store.PutOutcome(ctx, outcome); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
