package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"liquidityLock/internal/chain"
	"liquidityLock/internal/liquidity"
	"liquidityLock/internal/registry"
)

const defaultReceiptPoll = 2 * time.Second

var _ liquidity.Chain = (*Backend)(nil)

// Backend binds the token, router, factory and lock contracts of one chain
// profile to a node and a signer.
type Backend struct {
	client      chain.Backend
	profile     registry.ChainProfile
	auth        *bind.TransactOpts
	tokens      *TokenMetaCache
	receiptPoll time.Duration
	logger      *zap.Logger
}

// NewBackend validates the inputs and returns a Backend. auth supplies the
// sender and signer; its Context, Nonce and GasLimit are set per call.
func NewBackend(client chain.Backend, profile registry.ChainProfile, auth *bind.TransactOpts, receiptPoll time.Duration, logger *zap.Logger) (*Backend, error) {
	if client == nil {
		return nil, errors.New("chain backend is nil")
	}
	if auth == nil || auth.Signer == nil {
		return nil, errors.New("transact opts with a signer are required")
	}
	if receiptPoll <= 0 {
		receiptPoll = defaultReceiptPoll
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		client:      client,
		profile:     profile,
		auth:        auth,
		tokens:      NewTokenMetaCache(),
		receiptPoll: receiptPoll,
		logger:      logger.With(zap.String("chain", profile.Key)),
	}, nil
}

func (b *Backend) Signer() common.Address {
	return b.auth.From
}

func (b *Backend) NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	balance, err := b.client.BalanceAt(ctx, owner, nil)
	if err != nil {
		return nil, fmt.Errorf("balance of %s: %w", owner.Hex(), err)
	}
	return balance, nil
}

func (b *Backend) BalanceOf(ctx context.Context, asset, owner common.Address) (*big.Int, error) {
	values, err := b.call(ctx, erc20ABIString, asset, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

func (b *Backend) Allowance(ctx context.Context, asset, owner, spender common.Address) (*big.Int, error) {
	values, err := b.call(ctx, erc20ABIString, asset, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Decimals is cached per asset once read successfully.
func (b *Backend) Decimals(ctx context.Context, asset common.Address) (uint8, error) {
	if meta, ok := b.tokens.Get(asset); ok && meta.HasDecimals {
		return meta.Decimals, nil
	}
	values, err := b.call(ctx, erc20ABIString, asset, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return 0, fmt.Errorf("decimals of %s: %w", asset.Hex(), err)
	}
	b.tokens.Update(asset, func(m *TokenMeta) {
		m.Decimals = decimals
		m.HasDecimals = true
	})
	return decimals, nil
}

// Symbol tries the string form first, then bytes32.
func (b *Backend) Symbol(ctx context.Context, asset common.Address) (string, error) {
	if meta, ok := b.tokens.Get(asset); ok && meta.Symbol != "" {
		return meta.Symbol, nil
	}

	var symbol string
	if values, err := b.call(ctx, erc20ABIString, asset, "symbol"); err == nil {
		symbol, _ = values[0].(string)
	} else if values, err := b.call(ctx, erc20ABIBytes32, asset, "symbol"); err == nil {
		symbol, _ = bytes32ToString(values[0])
	} else {
		return "", err
	}
	if symbol == "" {
		return "", fmt.Errorf("symbol of %s is empty", asset.Hex())
	}
	b.tokens.Update(asset, func(m *TokenMeta) { m.Symbol = symbol })
	return symbol, nil
}

func (b *Backend) GetPool(ctx context.Context, tokenA, tokenB common.Address, stable bool) (common.Address, error) {
	parsed, method, err := FactoryABI(b.profile.FactoryLookup, b.profile.StableFlag)
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}
	args := []interface{}{tokenA, tokenB}
	if b.profile.FactoryLookup == registry.LookupGetPool || b.profile.StableFlag {
		args = append(args, stable)
	}

	var out []interface{}
	contract := bind.NewBoundContract(b.profile.Factory, parsed, b.client, b.client, b.client)
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return common.Address{}, fmt.Errorf("factory %s: %w", method, err)
	}
	if len(out) == 0 {
		return common.Address{}, fmt.Errorf("factory %s: empty result", method)
	}
	return asAddress(out[0])
}

func (b *Backend) Approve(ctx context.Context, asset, spender common.Address, amount *big.Int) (common.Hash, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return common.Hash{}, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return b.transact(ctx, asset, parsed, "approve", spender, amount)
}

func (b *Backend) AddLiquidity(ctx context.Context, call liquidity.AddLiquidityCall) (common.Hash, error) {
	parsed, err := RouterABI(b.profile.StableFlag)
	if err != nil {
		return common.Hash{}, fmt.Errorf("parse router abi: %w", err)
	}
	args := []interface{}{call.TokenA, call.TokenB}
	if b.profile.StableFlag {
		args = append(args, call.Stable)
	}
	args = append(args, call.AmountA, call.AmountB, call.MinA, call.MinB, call.To, call.Deadline)
	return b.transact(ctx, b.profile.Router, parsed, "addLiquidity", args...)
}

func (b *Backend) CreateLock(ctx context.Context, call liquidity.CreateLockCall) (common.Hash, error) {
	parsed, err := LockerABI()
	if err != nil {
		return common.Hash{}, fmt.Errorf("parse locker abi: %w", err)
	}
	return b.transact(ctx, b.profile.Locker, parsed, "createLock", call.Label, call.Pool, call.Beneficiary, call.Amount)
}

// WaitMined polls for the receipt until it exists or ctx is done.
func (b *Backend) WaitMined(ctx context.Context, tx common.Hash) (*liquidity.Receipt, error) {
	ticker := time.NewTicker(b.receiptPoll)
	defer ticker.Stop()

	for {
		receipt, err := b.client.TransactionReceipt(ctx, tx)
		switch {
		case err == nil && receipt != nil:
			out := &liquidity.Receipt{
				TxHash:  tx,
				GasUsed: receipt.GasUsed,
				Success: receipt.Status == types.ReceiptStatusSuccessful,
			}
			if receipt.BlockNumber != nil {
				out.BlockNumber = receipt.BlockNumber.Uint64()
			}
			return out, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			b.logger.Debug("receipt lookup failed", zap.String("tx", tx.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *Backend) call(ctx context.Context, lazy *lazyABI, contract common.Address, method string, args ...interface{}) ([]interface{}, error) {
	parsed, err := lazy.get()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	var out []interface{}
	bound := bind.NewBoundContract(contract, parsed, b.client, b.client, b.client)
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, contract.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("call %s on %s: empty result", method, contract.Hex())
	}
	return out, nil
}

// transact submits one transaction. It is never retried.
func (b *Backend) transact(ctx context.Context, contract common.Address, parsed abi.ABI, method string, args ...interface{}) (common.Hash, error) {
	bound := bind.NewBoundContract(contract, parsed, b.client, b.client, b.client)
	tx, err := bound.Transact(b.txOpts(ctx), method, args...)
	if err != nil {
		return common.Hash{}, classifyRPCError(fmt.Errorf("%s on %s: %w", method, contract.Hex(), err))
	}
	b.logger.Info("transaction sent",
		zap.String("method", method),
		zap.String("to", contract.Hex()),
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("nonce", tx.Nonce()),
		zap.Uint64("gas", tx.Gas()),
	)
	return tx.Hash(), nil
}

func (b *Backend) txOpts(ctx context.Context) *bind.TransactOpts {
	opts := *b.auth
	opts.Context = ctx
	opts.GasLimit = b.profile.GasLimit

	sign := b.auth.Signer
	opts.Signer = func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
		signed, err := sign(from, tx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", liquidity.ErrSignatureRejected, err)
		}
		return signed, nil
	}
	return &opts
}
