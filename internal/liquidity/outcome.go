package liquidity

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"liquidityLock/internal/model"
)

// Progress records what a run achieved before it stopped. Transaction
// hashes are set once submitted, even if the receipt never arrived; Locked
// is set only for a confirmed lock.
type Progress struct {
	Paired      common.Address
	LiquidityTx common.Hash
	Pool        common.Address
	Locked      *big.Int
	LockTx      common.Hash
}

// Compose turns a run's progress and terminal error into one outcome.
// Partial progress is kept on failure so that confirmed on-chain state is
// never orphaned.
func Compose(base model.LiquidityOutcome, p Progress, err error, finishedAt time.Time) model.LiquidityOutcome {
	out := base
	out.FinishedAt = finishedAt.UTC()
	if p.Paired != (common.Address{}) {
		out.Paired = p.Paired.Hex()
	}
	if p.LiquidityTx != (common.Hash{}) {
		out.LiquidityTx = p.LiquidityTx.Hex()
	}
	if p.Pool != (common.Address{}) {
		out.PairAddress = p.Pool.Hex()
	}
	if p.LockTx != (common.Hash{}) {
		out.LockTx = p.LockTx.Hex()
		if p.Locked != nil {
			out.LPLocked = p.Locked.String()
		}
	}

	if err == nil {
		out.Success = true
		out.ErrorKind = model.ErrorKindNone
		out.Message = ""
		out.Debug = ""
		return out
	}

	kind := KindOf(err)
	out.Success = false
	out.ErrorKind = kind
	out.Stage = StageOf(err)
	out.Message = UserMessage(kind)
	out.Debug = err.Error()
	return out
}
