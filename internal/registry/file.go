package registry

import (
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const (
	defaultPollAttempts = 10
	defaultPollDelay    = 2 * time.Second
)

// FileConfig is the on-disk chains file.
type FileConfig struct {
	Chains []FileChain `yaml:"chains"`
}

// FileChain is one chain entry in the chains file. Values may reference
// environment variables as ${NAME}.
type FileChain struct {
	Key              string        `yaml:"key"`
	Name             string        `yaml:"name"`
	Aliases          []string      `yaml:"aliases"`
	ChainID          int64         `yaml:"chainId"`
	RPCURL           string        `yaml:"rpc"`
	Router           string        `yaml:"router"`
	Factory          string        `yaml:"factory"`
	Locker           string        `yaml:"locker"`
	StableAsset      string        `yaml:"stableAsset"`
	WrappedNative    string        `yaml:"wrappedNative"`
	LockBeneficiary  string        `yaml:"lockBeneficiary"`
	PoolKind         string        `yaml:"poolKind"`
	StableFlag       bool          `yaml:"stableFlag"`
	FactoryLookup    string        `yaml:"factoryLookup"`
	PollAttempts     int           `yaml:"pollAttempts"`
	PollDelay        time.Duration `yaml:"pollDelay"`
	GasLimit         uint64        `yaml:"gasLimit"`
	MinNativeBalance string        `yaml:"minNativeBalance"`
	RPCRateLimit     float64       `yaml:"rpcRateLimit"`
	RPCBurst         int           `yaml:"rpcBurst"`
}

// LoadFile reads a chains file and builds a registry from it.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return nil, fmt.Errorf("chains file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chains file: %w", err)
	}
	profiles, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return New(profiles)
}

// Parse decodes chains file content into profiles with defaults applied.
func Parse(data []byte) ([]ChainProfile, error) {
	var parsed FileConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &parsed); err != nil {
		return nil, fmt.Errorf("parse chains file: %w", err)
	}
	profiles := make([]ChainProfile, 0, len(parsed.Chains))
	for i, entry := range parsed.Chains {
		profile, err := entry.profile()
		if err != nil {
			return nil, fmt.Errorf("chain #%d (%s): %w", i, entry.Key, err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

func (c FileChain) profile() (ChainProfile, error) {
	p := ChainProfile{
		Key:           normalizeKey(c.Key),
		Name:          c.Name,
		Aliases:       c.Aliases,
		ChainID:       c.ChainID,
		RPCURL:        strings.TrimSpace(c.RPCURL),
		PoolKind:      PoolKind(strings.ToUpper(strings.TrimSpace(c.PoolKind))),
		StableFlag:    c.StableFlag,
		FactoryLookup: strings.TrimSpace(c.FactoryLookup),
		PollAttempts:  c.PollAttempts,
		PollDelay:     c.PollDelay,
		GasLimit:      c.GasLimit,
		RPCRateLimit:  c.RPCRateLimit,
		RPCBurst:      c.RPCBurst,
	}
	if p.Name == "" {
		p.Name = p.Key
	}
	if p.PoolKind == "" {
		p.PoolKind = PoolKindVolatile
	}
	if p.FactoryLookup == "" {
		p.FactoryLookup = LookupGetPair
	}
	if p.PollAttempts == 0 {
		p.PollAttempts = defaultPollAttempts
	}
	if p.PollDelay == 0 {
		p.PollDelay = defaultPollDelay
	}

	fields := []struct {
		name     string
		raw      string
		dst      *common.Address
		required bool
	}{
		{"router", c.Router, &p.Router, true},
		{"factory", c.Factory, &p.Factory, true},
		{"locker", c.Locker, &p.Locker, true},
		{"stableAsset", c.StableAsset, &p.StableAsset, false},
		{"wrappedNative", c.WrappedNative, &p.WrappedNative, false},
		{"lockBeneficiary", c.LockBeneficiary, &p.LockBeneficiary, false},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(f.raw)
		if raw == "" {
			if f.required {
				return ChainProfile{}, fmt.Errorf("%s address is required", f.name)
			}
			continue
		}
		if !common.IsHexAddress(raw) {
			return ChainProfile{}, fmt.Errorf("invalid %s address: %s", f.name, raw)
		}
		*f.dst = common.HexToAddress(raw)
	}

	if raw := strings.TrimSpace(c.MinNativeBalance); raw != "" {
		val, ok := new(big.Int).SetString(raw, 10)
		if !ok || val.Sign() < 0 {
			return ChainProfile{}, fmt.Errorf("invalid minNativeBalance: %s", raw)
		}
		p.MinNativeBalance = val
	}
	return p, nil
}
