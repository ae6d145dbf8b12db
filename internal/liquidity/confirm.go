package liquidity

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// confirm waits for a submitted transaction. The wait ignores the caller's
// cancellation: once a transaction is out, its receipt must be recorded.
func confirm(ctx context.Context, chain Chain, tx common.Hash, timeout time.Duration) (*Receipt, error) {
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	receipt, err := chain.WaitMined(waitCtx, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s not mined within %s", ErrNotConfirmed, tx.Hex(), timeout)
		}
		return nil, fmt.Errorf("wait %s: %w", tx.Hex(), err)
	}
	if receipt == nil {
		return nil, fmt.Errorf("%w: %s has no receipt", ErrNotConfirmed, tx.Hex())
	}
	if !receipt.Success {
		return receipt, fmt.Errorf("%w: %s in block %d", ErrTxReverted, tx.Hex(), receipt.BlockNumber)
	}
	return receipt, nil
}

// reads wraps read-only Chain calls with bounded retries.
type reads struct {
	chain   Chain
	retries int
	backoff time.Duration
}

func (r reads) balanceOf(ctx context.Context, asset, owner common.Address) (*big.Int, error) {
	var out *big.Int
	err := withRetry(ctx, r.retries, r.backoff, func(ctx context.Context) error {
		var err error
		out, err = r.chain.BalanceOf(ctx, asset, owner)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", asset.Hex(), err)
	}
	return nonNil(out), nil
}

func (r reads) allowance(ctx context.Context, asset, owner, spender common.Address) (*big.Int, error) {
	var out *big.Int
	err := withRetry(ctx, r.retries, r.backoff, func(ctx context.Context) error {
		var err error
		out, err = r.chain.Allowance(ctx, asset, owner, spender)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("allowance %s -> %s: %w", asset.Hex(), spender.Hex(), err)
	}
	return nonNil(out), nil
}

func (r reads) nativeBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out *big.Int
	err := withRetry(ctx, r.retries, r.backoff, func(ctx context.Context) error {
		var err error
		out, err = r.chain.NativeBalance(ctx, owner)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("native balance: %w", err)
	}
	return nonNil(out), nil
}

func (r reads) decimals(ctx context.Context, asset common.Address) (uint8, error) {
	var out uint8
	err := withRetry(ctx, r.retries, r.backoff, func(ctx context.Context) error {
		var err error
		out, err = r.chain.Decimals(ctx, asset)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("decimals %s: %w", asset.Hex(), err)
	}
	return out, nil
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
