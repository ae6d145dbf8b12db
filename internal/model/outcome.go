package model

import "time"

// ErrorKind is the closed set of liquidity failure classes.
type ErrorKind string

const (
	ErrorKindNone                 ErrorKind = ""
	ErrorKindUnsupportedChain     ErrorKind = "UnsupportedChain"
	ErrorKindInsufficientBalanceA ErrorKind = "InsufficientBalanceA"
	ErrorKindInsufficientBalanceB ErrorKind = "InsufficientBalanceB"
	ErrorKindApprovalFailed       ErrorKind = "ApprovalFailed"
	ErrorKindWalletRejected       ErrorKind = "WalletRejected"
	ErrorKindGasError             ErrorKind = "GasError"
	ErrorKindContractRevert       ErrorKind = "ContractRevert"
	ErrorKindPairNotCreated       ErrorKind = "PairNotCreated"
	ErrorKindLPZero               ErrorKind = "LPZero"
	ErrorKindLockFailed           ErrorKind = "LockFailed"
	ErrorKindUnknown              ErrorKind = "Unknown"
)

// Retryable reports whether the caller may retry after fixing the signer
// (funding it or re-requesting a signature).
func (k ErrorKind) Retryable() bool {
	return k == ErrorKindWalletRejected || k == ErrorKindGasError
}

// Terminal reports whether the failure points at a configuration mismatch
// that a bare retry will not fix.
func (k ErrorKind) Terminal() bool {
	switch k {
	case ErrorKindContractRevert, ErrorKindPairNotCreated, ErrorKindLPZero, ErrorKindLockFailed:
		return true
	default:
		return false
	}
}

// Token record statuses written alongside an outcome.
const (
	StatusCompleted       = "COMPLETED"
	StatusLiquidityFailed = "LIQUIDITY_FAILED"
)

// LiquidityOutcome is the single record produced per LiquidityRequest.
// It is never mutated after persistence; a retry produces a new record.
type LiquidityOutcome struct {
	ID            string    `json:"id"`
	TokenRecordID int64     `json:"tokenRecordId,omitempty"`
	Chain         string    `json:"chain"`
	Token         string    `json:"token"`
	Paired        string    `json:"paired"`
	Success       bool      `json:"success"`
	LiquidityTx   string    `json:"liquidityTx,omitempty"`
	PairAddress   string    `json:"pairAddress,omitempty"`
	LPLocked      string    `json:"lpLocked,omitempty"`
	LockTx        string    `json:"lockTx,omitempty"`
	ErrorKind     ErrorKind `json:"errorKind,omitempty"`
	Message       string    `json:"message,omitempty"`
	Stage         string    `json:"stage,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`

	// Debug is operator-only detail and never leaves the process in API payloads.
	Debug string `json:"-"`
}

// Status maps the outcome to the token record status.
func (o LiquidityOutcome) Status() string {
	if o.Success {
		return StatusCompleted
	}
	return StatusLiquidityFailed
}
