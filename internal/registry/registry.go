package registry

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnsupportedChain is returned for chain keys with no profile.
var ErrUnsupportedChain = errors.New("unsupported chain")

// builtinAliases mirrors the chain names accepted by the launch flow.
var builtinAliases = map[string][]string{
	"ethereum": {"eth", "sepolia"},
	"polygon":  {"matic"},
	"sonic":    {},
	"base":     {},
}

// Registry resolves chain keys and aliases to immutable profiles.
type Registry struct {
	profiles map[string]ChainProfile
	aliases  map[string]string
}

// New builds a registry from validated profiles. Built-in aliases are added
// for well-known keys in addition to any aliases on the profile.
func New(profiles []ChainProfile) (*Registry, error) {
	r := &Registry{
		profiles: make(map[string]ChainProfile, len(profiles)),
		aliases:  make(map[string]string),
	}
	for _, profile := range profiles {
		profile.Key = normalizeKey(profile.Key)
		if err := profile.Validate(); err != nil {
			return nil, err
		}
		if _, ok := r.aliases[profile.Key]; ok {
			return nil, fmt.Errorf("duplicate chain key %q", profile.Key)
		}
		r.profiles[profile.Key] = profile
		r.aliases[profile.Key] = profile.Key
	}

	for key, profile := range r.profiles {
		names := append(append([]string{}, builtinAliases[key]...), profile.Aliases...)
		for _, alias := range names {
			alias = normalizeKey(alias)
			if alias == "" {
				continue
			}
			if existing, ok := r.aliases[alias]; ok && existing != key {
				return nil, fmt.Errorf("alias %q maps to both %s and %s", alias, existing, key)
			}
			r.aliases[alias] = key
		}
	}
	return r, nil
}

// Resolve looks up a profile by key or alias, case-insensitively.
func (r *Registry) Resolve(chainKey string) (ChainProfile, error) {
	if r == nil {
		return ChainProfile{}, fmt.Errorf("%w: %q", ErrUnsupportedChain, chainKey)
	}
	key, ok := r.aliases[normalizeKey(chainKey)]
	if !ok {
		return ChainProfile{}, fmt.Errorf("%w: %q", ErrUnsupportedChain, chainKey)
	}
	return r.profiles[key], nil
}

// Profiles returns all profiles sorted by key.
func (r *Registry) Profiles() []ChainProfile {
	out := make([]ChainProfile, 0, len(r.profiles))
	for _, profile := range r.profiles {
		out = append(out, profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Aliases returns every name accepted for key, including the key itself.
func (r *Registry) Aliases(key string) []string {
	key = normalizeKey(key)
	out := make([]string, 0, 4)
	for alias, target := range r.aliases {
		if target == key {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}
