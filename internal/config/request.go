package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"liquidityLock/internal/model"
)

// LoadRequest builds a single LiquidityRequest from the provision flags.
// Amounts are parsed as exact decimals.
func LoadRequest(cfgFile string, flags *pflag.FlagSet) (model.LiquidityRequest, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return model.LiquidityRequest{}, err
	}

	amountToken, err := parseAmount(v.GetString("amount-token"), "amount-token")
	if err != nil {
		return model.LiquidityRequest{}, err
	}
	amountPaired, err := parseAmount(v.GetString("amount-paired"), "amount-paired")
	if err != nil {
		return model.LiquidityRequest{}, err
	}

	req := model.LiquidityRequest{
		TokenRecordID: v.GetInt64("token-record-id"),
		Chain:         v.GetString("chain"),
		Token:         v.GetString("token"),
		Paired:        v.GetString("paired"),
		AmountToken:   amountToken,
		AmountPaired:  amountPaired,
		SlippageBps:   v.GetInt("slippage-bps"),
	}
	if err := req.Validate(); err != nil {
		return model.LiquidityRequest{}, err
	}
	return req, nil
}

func parseAmount(raw, key string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("%s is required", key)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
