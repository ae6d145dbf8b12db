package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// MaxSlippageBps is 100% expressed in basis points.
const MaxSlippageBps = 10000

// LiquidityRequest asks for a pool to be seeded with Token and Paired and
// for the resulting pool shares to be locked. Amounts are human units.
type LiquidityRequest struct {
	TokenRecordID int64           `json:"tokenRecordId,omitempty"`
	Chain         string          `json:"chain"`
	Token         string          `json:"token"`
	Paired        string          `json:"paired,omitempty"`
	AmountToken   decimal.Decimal `json:"amountToken"`
	AmountPaired  decimal.Decimal `json:"amountPaired"`
	SlippageBps   int             `json:"slippageBps"`
}

// Validate checks what can be checked without chain access.
func (r LiquidityRequest) Validate() error {
	if strings.TrimSpace(r.Chain) == "" {
		return fmt.Errorf("chain is required")
	}
	if !common.IsHexAddress(strings.TrimSpace(r.Token)) {
		return fmt.Errorf("invalid token address: %q", r.Token)
	}
	if paired := strings.TrimSpace(r.Paired); paired != "" && !common.IsHexAddress(paired) {
		return fmt.Errorf("invalid paired address: %q", r.Paired)
	}
	if !r.AmountToken.IsPositive() {
		return fmt.Errorf("token amount must be positive, got %s", r.AmountToken)
	}
	if !r.AmountPaired.IsPositive() {
		return fmt.Errorf("paired amount must be positive, got %s", r.AmountPaired)
	}
	if r.SlippageBps < 0 || r.SlippageBps > MaxSlippageBps {
		return fmt.Errorf("slippage must be within [0,%d] bps, got %d", MaxSlippageBps, r.SlippageBps)
	}
	return nil
}
