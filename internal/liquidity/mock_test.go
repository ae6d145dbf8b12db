package liquidity

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"liquidityLock/internal/registry"
)

var (
	signerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenAddr   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	stableAddr  = common.HexToAddress("0x2000000000000000000000000000000000000002")
	poolAddr    = common.HexToAddress("0x3000000000000000000000000000000000000003")
	routerAddr  = common.HexToAddress("0x4000000000000000000000000000000000000004")
	factoryAddr = common.HexToAddress("0x5000000000000000000000000000000000000005")
	lockerAddr  = common.HexToAddress("0x6000000000000000000000000000000000000006")
)

type approveCall struct {
	Asset   common.Address
	Spender common.Address
	Amount  *big.Int
}

type allowanceKey struct {
	asset, owner, spender common.Address
}

// mockChain is an in-memory Chain. Approvals take effect on submission,
// receipts are successful unless told otherwise.
type mockChain struct {
	mu sync.Mutex

	signer     common.Address
	native     *big.Int
	balances   map[common.Address]*big.Int
	allowances map[allowanceKey]*big.Int
	decimals   map[common.Address]uint8
	// decimalsFailures makes the next n Decimals reads of an asset fail.
	decimalsFailures map[common.Address]int
	decimalsCalls    map[common.Address]int
	symbols          map[common.Address]string

	pool          common.Address
	poolVisibleAt int
	getPoolCalls  int
	lpMinted      *big.Int

	approveErr      error
	addErr          error
	lockErr         error
	ignoreApprovals bool
	revert          map[string]bool
	hang            map[string]bool
	mineDelay       time.Duration

	approvals   []approveCall
	adds        []AddLiquidityCall
	locks       []CreateLockCall
	submissions []string
	txMethod    map[common.Hash]string
	nonce       uint64
}

func newMockChain() *mockChain {
	return &mockChain{
		signer:           signerAddr,
		native:           big.NewInt(1e18),
		balances:         make(map[common.Address]*big.Int),
		allowances:       make(map[allowanceKey]*big.Int),
		decimals:         map[common.Address]uint8{tokenAddr: 18, stableAddr: 18},
		decimalsFailures: make(map[common.Address]int),
		decimalsCalls:    make(map[common.Address]int),
		symbols:          map[common.Address]string{tokenAddr: "TKN"},
		pool:             poolAddr,
		revert:           make(map[string]bool),
		hang:             make(map[string]bool),
		txMethod:         make(map[common.Hash]string),
	}
}

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func (m *mockChain) setBalance(asset common.Address, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[asset] = amount
}

func (m *mockChain) setAllowance(asset, spender common.Address, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances[allowanceKey{asset, m.signer, spender}] = amount
}

func (m *mockChain) stateChangingCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.approvals) + len(m.adds) + len(m.locks)
}

func (m *mockChain) Signer() common.Address { return m.signer }

func (m *mockChain) NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.native), nil
}

func (m *mockChain) BalanceOf(ctx context.Context, asset, owner common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner != m.signer {
		return new(big.Int), nil
	}
	if bal, ok := m.balances[asset]; ok {
		return new(big.Int).Set(bal), nil
	}
	return new(big.Int), nil
}

func (m *mockChain) Allowance(ctx context.Context, asset, owner, spender common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.allowances[allowanceKey{asset, owner, spender}]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (m *mockChain) Decimals(ctx context.Context, asset common.Address) (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decimalsCalls[asset]++
	if m.decimalsFailures[asset] > 0 {
		m.decimalsFailures[asset]--
		return 0, errors.New("dial tcp: i/o timeout")
	}
	if d, ok := m.decimals[asset]; ok {
		return d, nil
	}
	return 0, errors.New("execution reverted: decimals not implemented")
}

func (m *mockChain) Symbol(ctx context.Context, asset common.Address) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.symbols[asset]; ok {
		return s, nil
	}
	return "", errors.New("no symbol")
}

func (m *mockChain) GetPool(ctx context.Context, tokenA, tokenB common.Address, stable bool) (common.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getPoolCalls++
	if m.poolVisibleAt > 0 && m.getPoolCalls >= m.poolVisibleAt {
		return m.pool, nil
	}
	return common.Address{}, nil
}

func (m *mockChain) nextHash(method, subject string) common.Hash {
	m.nonce++
	h := common.BigToHash(new(big.Int).SetUint64(m.nonce))
	m.txMethod[h] = method
	m.submissions = append(m.submissions, method+":"+subject)
	return h
}

// submitted returns the hash of the first transaction sent for method.
func (m *mockChain) submitted(method string) common.Hash {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, got := range m.txMethod {
		if got == method {
			return h
		}
	}
	return common.Hash{}
}

func (m *mockChain) Approve(ctx context.Context, asset, spender common.Address, amount *big.Int) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.approveErr != nil {
		return common.Hash{}, m.approveErr
	}
	m.approvals = append(m.approvals, approveCall{Asset: asset, Spender: spender, Amount: new(big.Int).Set(amount)})
	if !m.ignoreApprovals {
		m.allowances[allowanceKey{asset, m.signer, spender}] = new(big.Int).Set(amount)
	}
	return m.nextHash("approve", asset.Hex()), nil
}

func (m *mockChain) AddLiquidity(ctx context.Context, call AddLiquidityCall) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return common.Hash{}, m.addErr
	}
	m.adds = append(m.adds, call)
	if m.lpMinted != nil {
		m.balances[m.pool] = new(big.Int).Set(m.lpMinted)
	}
	return m.nextHash("add_liquidity", call.TokenA.Hex()), nil
}

func (m *mockChain) CreateLock(ctx context.Context, call CreateLockCall) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lockErr != nil {
		return common.Hash{}, m.lockErr
	}
	m.locks = append(m.locks, call)
	return m.nextHash("create_lock", call.Label), nil
}

func (m *mockChain) WaitMined(ctx context.Context, tx common.Hash) (*Receipt, error) {
	m.mu.Lock()
	method, ok := m.txMethod[tx]
	hang := m.hang[method]
	reverted := m.revert[method]
	delay := m.mineDelay
	m.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("unknown tx %s", tx.Hex())
	}
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return &Receipt{TxHash: tx, BlockNumber: 100, GasUsed: 21000, Success: !reverted}, nil
}

type mockDialer struct {
	mu    sync.Mutex
	chain Chain
	err   error
	calls int
}

func (d *mockDialer) Chain(ctx context.Context, profile registry.ChainProfile) (Chain, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.chain, nil
}

func testProfile() registry.ChainProfile {
	return registry.ChainProfile{
		Key:           "base",
		ChainID:       8453,
		RPCURL:        "http://localhost:8545",
		Router:        routerAddr,
		Factory:       factoryAddr,
		Locker:        lockerAddr,
		StableAsset:   stableAddr,
		PoolKind:      registry.PoolKindVolatile,
		StableFlag:    true,
		FactoryLookup: registry.LookupGetPool,
		PollAttempts:  10,
		PollDelay:     time.Millisecond,
	}
}

func testConfig() Config {
	return Config{
		ConfirmTimeout: time.Second,
		ReadRetries:    0,
		ReadBackoff:    time.Millisecond,
	}
}
