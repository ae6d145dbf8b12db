package liquidity

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// DefaultDecimals is assumed for assets that omit the optional decimals().
const DefaultDecimals uint8 = 18

// ToNative converts a human amount into the asset's integer units. Amounts
// with more fractional digits than the asset supports are rejected.
func ToNative(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive, got %s", amount)
	}
	shifted := amount.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("amount %s exceeds %d decimal places", amount, decimals)
	}
	return shifted.BigInt(), nil
}

// MinAfterSlippage returns floor(amount * (10000 - bps) / 10000).
func MinAfterSlippage(amount *big.Int, slippageBps int) *big.Int {
	keep := big.NewInt(int64(10000 - slippageBps))
	out := new(big.Int).Mul(amount, keep)
	return out.Quo(out, big.NewInt(10000))
}
