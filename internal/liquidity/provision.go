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

// LiquidityReceipt is a confirmed add-liquidity transaction.
type LiquidityReceipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	MinA        *big.Int
	MinB        *big.Int
}

// Provisioner submits the router add-liquidity call.
type Provisioner struct {
	chain          Chain
	confirmTimeout time.Duration
	deadlineWindow time.Duration
	now            func() time.Time
	metrics        *Metrics
	logger         *zap.Logger
}

func NewProvisioner(chain Chain, cfg Config, logger *zap.Logger) *Provisioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Provisioner{
		chain:          chain,
		confirmTimeout: cfg.ConfirmTimeout,
		deadlineWindow: cfg.DeadlineWindow,
		now:            time.Now,
		logger:         logger,
	}
}

// Provision adds amountA/amountB with slippage-bounded minimums and waits for
// the receipt. Shares are minted to the signer.
func (p *Provisioner) Provision(
	ctx context.Context,
	profile registry.ChainProfile,
	assetA, assetB common.Address,
	amountA, amountB *big.Int,
	slippageBps int,
) (LiquidityReceipt, error) {
	if slippageBps < 0 || slippageBps > model.MaxSlippageBps {
		return LiquidityReceipt{}, newError(model.ErrorKindUnknown, StageProvision,
			fmt.Errorf("slippage %d bps out of range", slippageBps))
	}

	call := AddLiquidityCall{
		TokenA:   assetA,
		TokenB:   assetB,
		Stable:   profile.Stable(),
		AmountA:  amountA,
		AmountB:  amountB,
		MinA:     MinAfterSlippage(amountA, slippageBps),
		MinB:     MinAfterSlippage(amountB, slippageBps),
		To:       p.chain.Signer(),
		Deadline: big.NewInt(p.now().Add(p.deadlineWindow).Unix()),
	}

	p.logger.Info("add liquidity",
		zap.String("chain", profile.Key),
		zap.String("router", profile.Router.Hex()),
		zap.Bool("stable", call.Stable),
		zap.String("amount_a", amountA.String()),
		zap.String("amount_b", amountB.String()),
		zap.String("min_a", call.MinA.String()),
		zap.String("min_b", call.MinB.String()),
		zap.Int64("deadline", call.Deadline.Int64()),
	)

	tx, err := p.chain.AddLiquidity(ctx, call)
	if err != nil {
		return LiquidityReceipt{}, classifySubmit(StageProvision, model.ErrorKindContractRevert, fmt.Errorf("add liquidity: %w", err))
	}
	p.metrics.txSubmitted(profile.Key, "add_liquidity")

	receipt, err := confirm(ctx, p.chain, tx, p.confirmTimeout)
	if err != nil {
		return LiquidityReceipt{TxHash: tx, MinA: call.MinA, MinB: call.MinB}, classifySubmit(StageProvision, model.ErrorKindContractRevert, fmt.Errorf("add liquidity: %w", err))
	}

	p.logger.Info("liquidity confirmed",
		zap.String("chain", profile.Key),
		zap.String("tx", tx.Hex()),
		zap.Uint64("block", receipt.BlockNumber),
	)
	return LiquidityReceipt{
		TxHash:      tx,
		BlockNumber: receipt.BlockNumber,
		MinA:        call.MinA,
		MinB:        call.MinB,
	}, nil
}
