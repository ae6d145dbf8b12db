package registry

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PoolKind selects the pricing curve of the pool being seeded.
type PoolKind string

const (
	PoolKindVolatile PoolKind = "VOLATILE"
	PoolKindStable   PoolKind = "STABLE"
)

// Factory lookup entry points.
const (
	LookupGetPair = "getPair"
	LookupGetPool = "getPool"
)

// ChainProfile holds connection and contract parameters for one network.
type ChainProfile struct {
	Key     string
	Name    string
	Aliases []string
	ChainID int64
	RPCURL  string

	Router          common.Address
	Factory         common.Address
	Locker          common.Address
	StableAsset     common.Address
	WrappedNative   common.Address
	LockBeneficiary common.Address

	PoolKind PoolKind
	// StableFlag is set for routers and factories whose entry points take a
	// trailing stable bool (Solidly forks).
	StableFlag    bool
	FactoryLookup string

	PollAttempts     int
	PollDelay        time.Duration
	GasLimit         uint64
	MinNativeBalance *big.Int
	RPCRateLimit     float64
	RPCBurst         int
}

// Stable reports whether the pool kind flag must be true.
func (p ChainProfile) Stable() bool {
	return p.PoolKind == PoolKindStable
}

// Beneficiary returns the configured lock beneficiary or the fallback signer.
func (p ChainProfile) Beneficiary(signer common.Address) common.Address {
	if p.LockBeneficiary != (common.Address{}) {
		return p.LockBeneficiary
	}
	return signer
}

// ResolveAsset maps the zero address (native asset) to the wrapped-native token.
func (p ChainProfile) ResolveAsset(asset common.Address) (common.Address, error) {
	if asset != (common.Address{}) {
		return asset, nil
	}
	if p.WrappedNative == (common.Address{}) {
		return common.Address{}, fmt.Errorf("chain %s has no wrapped native asset configured", p.Key)
	}
	return p.WrappedNative, nil
}

// Validate checks that every contract the pipeline touches is configured.
func (p ChainProfile) Validate() error {
	if p.Key == "" {
		return fmt.Errorf("profile key is required")
	}
	if p.RPCURL == "" {
		return fmt.Errorf("chain %s: rpc url is required", p.Key)
	}
	required := map[string]common.Address{
		"router":  p.Router,
		"factory": p.Factory,
		"locker":  p.Locker,
	}
	for name, addr := range required {
		if addr == (common.Address{}) {
			return fmt.Errorf("chain %s: %s address is required", p.Key, name)
		}
	}
	switch p.PoolKind {
	case PoolKindVolatile:
	case PoolKindStable:
		if !p.StableFlag {
			return fmt.Errorf("chain %s: stable pools need a router with a stable flag", p.Key)
		}
	default:
		return fmt.Errorf("chain %s: unsupported pool kind %q", p.Key, p.PoolKind)
	}
	switch p.FactoryLookup {
	case LookupGetPair, LookupGetPool:
	default:
		return fmt.Errorf("chain %s: unsupported factory lookup %q", p.Key, p.FactoryLookup)
	}
	if p.FactoryLookup == LookupGetPool && !p.StableFlag {
		return fmt.Errorf("chain %s: getPool lookup requires the stable flag", p.Key)
	}
	if p.PollAttempts <= 0 {
		return fmt.Errorf("chain %s: poll attempts must be positive", p.Key)
	}
	if p.PollDelay < 0 {
		return fmt.Errorf("chain %s: poll delay must not be negative", p.Key)
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
