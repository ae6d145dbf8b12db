package liquidity

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"liquidityLock/internal/model"
	"liquidityLock/internal/registry"
)

// Amounts are the desired amounts in native integer units.
type Amounts struct {
	A *big.Int
	B *big.Int
}

// Prechecker verifies the signer can fund the pool before anything is sent.
type Prechecker struct {
	chain  Chain
	reads  reads
	logger *zap.Logger
}

func NewPrechecker(chain Chain, cfg Config, logger *zap.Logger) *Prechecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Prechecker{
		chain:  chain,
		reads:  reads{chain: chain, retries: cfg.ReadRetries, backoff: cfg.ReadBackoff},
		logger: logger,
	}
}

// Check converts both amounts to native units and compares them against the
// signer's balances. It only reads.
func (p *Prechecker) Check(
	ctx context.Context,
	profile registry.ChainProfile,
	assetA, assetB common.Address,
	amountA, amountB decimal.Decimal,
) (Amounts, error) {
	signer := p.chain.Signer()

	if profile.MinNativeBalance != nil && profile.MinNativeBalance.Sign() > 0 {
		native, err := p.reads.nativeBalance(ctx, signer)
		if err != nil {
			return Amounts{}, newError(model.ErrorKindUnknown, StagePrecheck, err)
		}
		if native.Cmp(profile.MinNativeBalance) < 0 {
			return Amounts{}, newError(model.ErrorKindGasError, StagePrecheck,
				fmt.Errorf("%w: native balance %s below minimum %s", ErrInsufficientGas, native, profile.MinNativeBalance))
		}
	}

	nativeA, err := p.toNative(ctx, assetA, amountA)
	if err != nil {
		return Amounts{}, newError(model.ErrorKindUnknown, StagePrecheck, err)
	}
	nativeB, err := p.toNative(ctx, assetB, amountB)
	if err != nil {
		return Amounts{}, newError(model.ErrorKindUnknown, StagePrecheck, err)
	}

	checks := []struct {
		asset common.Address
		need  *big.Int
		kind  model.ErrorKind
	}{
		{assetA, nativeA, model.ErrorKindInsufficientBalanceA},
		{assetB, nativeB, model.ErrorKindInsufficientBalanceB},
	}
	for _, c := range checks {
		balance, err := p.reads.balanceOf(ctx, c.asset, signer)
		if err != nil {
			return Amounts{}, newError(model.ErrorKindUnknown, StagePrecheck, err)
		}
		if balance.Cmp(c.need) < 0 {
			return Amounts{}, newError(c.kind, StagePrecheck,
				fmt.Errorf("asset %s: balance %s < required %s", c.asset.Hex(), balance, c.need))
		}
	}

	p.logger.Debug("balances sufficient",
		zap.String("chain", profile.Key),
		zap.String("amount_a", nativeA.String()),
		zap.String("amount_b", nativeB.String()),
	)
	return Amounts{A: nativeA, B: nativeB}, nil
}

// toNative assumes DefaultDecimals only once the retried decimals() read
// has still failed.
func (p *Prechecker) toNative(ctx context.Context, asset common.Address, amount decimal.Decimal) (*big.Int, error) {
	decimals, err := p.reads.decimals(ctx, asset)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("asset %s: %w", asset.Hex(), ctxErr)
		}
		p.logger.Warn("decimals unavailable, assuming default",
			zap.String("asset", asset.Hex()),
			zap.Uint8("decimals", DefaultDecimals),
			zap.Error(err),
		)
		decimals = DefaultDecimals
	}
	out, err := ToNative(amount, decimals)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", asset.Hex(), err)
	}
	return out, nil
}
