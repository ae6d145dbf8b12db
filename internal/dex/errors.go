package dex

import (
	"errors"
	"fmt"
	"strings"

	"liquidityLock/internal/liquidity"
)

// classifyRPCError attaches a pipeline sentinel to node and signer errors.
// Node errors only carry text, so this is the one place that inspects it.
func classifyRPCError(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		liquidity.ErrSignatureRejected,
		liquidity.ErrInsufficientGas,
		liquidity.ErrTxReverted,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"),
		strings.Contains(msg, "gas required exceeds allowance"),
		strings.Contains(msg, "intrinsic gas too low"):
		return fmt.Errorf("%w: %w", liquidity.ErrInsufficientGas, err)
	case strings.Contains(msg, "user rejected"),
		strings.Contains(msg, "user denied"):
		return fmt.Errorf("%w: %w", liquidity.ErrSignatureRejected, err)
	case strings.Contains(msg, "execution reverted"):
		return fmt.Errorf("%w: %w", liquidity.ErrTxReverted, err)
	default:
		return err
	}
}
