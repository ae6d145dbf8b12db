package liquidity

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"liquidityLock/internal/registry"
)

// Chain is the capability surface the pipeline needs from one network,
// bound to one reserve signer. Submission methods return as soon as the
// transaction is accepted by the node; WaitMined blocks for its receipt.
type Chain interface {
	Signer() common.Address

	NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error)
	BalanceOf(ctx context.Context, asset, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, asset, owner, spender common.Address) (*big.Int, error)
	Decimals(ctx context.Context, asset common.Address) (uint8, error)
	Symbol(ctx context.Context, asset common.Address) (string, error)
	GetPool(ctx context.Context, tokenA, tokenB common.Address, stable bool) (common.Address, error)

	Approve(ctx context.Context, asset, spender common.Address, amount *big.Int) (common.Hash, error)
	AddLiquidity(ctx context.Context, call AddLiquidityCall) (common.Hash, error)
	CreateLock(ctx context.Context, call CreateLockCall) (common.Hash, error)
	WaitMined(ctx context.Context, tx common.Hash) (*Receipt, error)
}

// Dialer hands out the Chain bound to a profile. Implementations construct
// one client per chain and reuse it.
type Dialer interface {
	Chain(ctx context.Context, profile registry.ChainProfile) (Chain, error)
}

// AddLiquidityCall carries the router arguments. Stable is only encoded for
// routers that take the pool kind flag.
type AddLiquidityCall struct {
	TokenA   common.Address
	TokenB   common.Address
	Stable   bool
	AmountA  *big.Int
	AmountB  *big.Int
	MinA     *big.Int
	MinB     *big.Int
	To       common.Address
	Deadline *big.Int
}

// CreateLockCall carries the lock contract arguments.
type CreateLockCall struct {
	Label       string
	Pool        common.Address
	Beneficiary common.Address
	Amount      *big.Int
}

// Receipt is the subset of a mined receipt the pipeline inspects.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Success     bool
}
