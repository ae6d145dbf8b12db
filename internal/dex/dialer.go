package dex

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"liquidityLock/internal/chain"
	"liquidityLock/internal/liquidity"
	"liquidityLock/internal/registry"
)

var _ liquidity.Dialer = (*Dialer)(nil)

// Dialer connects one Backend per chain profile, all signed by the same
// reserve key.
type Dialer struct {
	key         *ecdsa.PrivateKey
	receiptPoll time.Duration
	logger      *zap.Logger

	dial func(ctx context.Context, profile registry.ChainProfile) (nodeClient, error)

	mu       sync.Mutex
	backends map[string]*Backend
	clients  []nodeClient
}

type nodeClient interface {
	chain.Backend
	Close()
}

func dialNode(ctx context.Context, profile registry.ChainProfile) (nodeClient, error) {
	client, err := chain.NewClient(ctx, profile.RPCURL, profile.RPCRateLimit, profile.RPCBurst)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewDialer parses a hex private key, with or without the 0x prefix.
func NewDialer(privateKeyHex string, receiptPoll time.Duration, logger *zap.Logger) (*Dialer, error) {
	key, err := ParsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dialer{
		key:         key,
		receiptPoll: receiptPoll,
		logger:      logger,
		dial:        dialNode,
		backends:    make(map[string]*Backend),
	}, nil
}

// ParsePrivateKey decodes a secp256k1 key from hex.
func ParsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	h := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if h == "" {
		return nil, errors.New("signer key is empty")
	}
	key, err := crypto.HexToECDSA(h)
	if err != nil {
		return nil, fmt.Errorf("parse signer key: %w", err)
	}
	return key, nil
}

// Address returns the signer address.
func (d *Dialer) Address() common.Address {
	return crypto.PubkeyToAddress(d.key.PublicKey)
}

// Chain returns the cached Backend for profile, dialing on first use. The
// node's chain ID must match the profile when one is configured. Dialing
// happens outside the lock; if two callers race, the first stored Backend
// wins and the other connection is closed.
func (d *Dialer) Chain(ctx context.Context, profile registry.ChainProfile) (liquidity.Chain, error) {
	d.mu.Lock()
	backend, ok := d.backends[profile.Key]
	d.mu.Unlock()
	if ok {
		return backend, nil
	}

	backend, client, err := d.connect(ctx, profile)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.backends[profile.Key]; ok {
		client.Close()
		return existing, nil
	}
	d.backends[profile.Key] = backend
	d.clients = append(d.clients, client)
	return backend, nil
}

func (d *Dialer) connect(ctx context.Context, profile registry.ChainProfile) (*Backend, nodeClient, error) {
	client, err := d.dial(ctx, profile)
	if err != nil {
		return nil, nil, err
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("chain id of %s: %w", profile.Key, err)
	}
	if profile.ChainID != 0 && chainID.Int64() != profile.ChainID {
		client.Close()
		return nil, nil, fmt.Errorf("chain %s: node reports chain id %s, want %d", profile.Key, chainID, profile.ChainID)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(d.key, chainID)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("transactor for %s: %w", profile.Key, err)
	}
	backend, err := NewBackend(client, profile, auth, d.receiptPoll, d.logger)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	d.logger.Info("chain connected",
		zap.String("chain", profile.Key),
		zap.String("chain_id", chainID.String()),
		zap.String("signer", auth.From.Hex()),
	)
	return backend, client, nil
}

// Close closes every dialed client.
func (d *Dialer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, client := range d.clients {
		client.Close()
	}
	d.clients = nil
	d.backends = make(map[string]*Backend)
}
