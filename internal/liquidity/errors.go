package liquidity

import (
	"errors"
	"fmt"

	"liquidityLock/internal/model"
)

// Boundary errors reported by Chain implementations. They are attached at
// the point the network call fails so the pipeline never inspects text.
var (
	ErrTxReverted        = errors.New("transaction reverted")
	ErrNotConfirmed      = errors.New("transaction not confirmed")
	ErrInsufficientGas   = errors.New("insufficient native funds for gas")
	ErrSignatureRejected = errors.New("signer rejected transaction")
)

// Pipeline stages, in execution order.
const (
	StageRegistry  = "registry"
	StagePrecheck  = "precheck"
	StageApproveA  = "approve_a"
	StageApproveB  = "approve_b"
	StageProvision = "provision"
	StageResolve   = "resolve_pool"
	StageLock      = "lock"
)

// Error is a classified pipeline failure.
type Error struct {
	Kind  model.ErrorKind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind model.ErrorKind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// classifySubmit maps a transaction failure into a kind. Signer and gas
// problems are reported as-is; anything else falls back to the stage kind.
func classifySubmit(stage string, fallback model.ErrorKind, err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	switch {
	case errors.Is(err, ErrSignatureRejected):
		return newError(model.ErrorKindWalletRejected, stage, err)
	case errors.Is(err, ErrInsufficientGas):
		return newError(model.ErrorKindGasError, stage, err)
	default:
		return newError(fallback, stage, err)
	}
}

// KindOf extracts the kind from an error, Unknown if unclassified.
func KindOf(err error) model.ErrorKind {
	if err == nil {
		return model.ErrorKindNone
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return model.ErrorKindUnknown
}

// StageOf extracts the stage from an error, empty if unclassified.
func StageOf(err error) string {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Stage
	}
	return ""
}

var userMessages = map[model.ErrorKind]string{
	model.ErrorKindUnsupportedChain:     "This chain is not supported for liquidity provisioning.",
	model.ErrorKindInsufficientBalanceA: "Reserve wallet does not hold enough of the new token.",
	model.ErrorKindInsufficientBalanceB: "Reserve wallet does not hold enough of the paired asset.",
	model.ErrorKindApprovalFailed:       "Router approval could not be confirmed. Check the asset contract.",
	model.ErrorKindWalletRejected:       "The reserve signer declined the transaction. Re-request signing and retry.",
	model.ErrorKindGasError:             "Backend wallet has insufficient gas. Fund the reserve signer and retry.",
	model.ErrorKindContractRevert:       "Liquidity transaction reverted. Check token balance, approval or router compatibility.",
	model.ErrorKindPairNotCreated:       "Liquidity was added but the pool is not visible on the factory. Check the router and factory pairing.",
	model.ErrorKindLPZero:               "Liquidity was added but no pool shares reached the reserve wallet. Check the router configuration.",
	model.ErrorKindLockFailed:           "Pool shares could not be locked. Check the lock contract configuration.",
	model.ErrorKindUnknown:              "Liquidity provisioning failed.",
}

// UserMessage returns the short end-user message for a kind.
func UserMessage(kind model.ErrorKind) string {
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return userMessages[model.ErrorKindUnknown]
}
