package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"liquidityLock/internal/liquidity"
	"liquidityLock/internal/registry"
)

var (
	testToken   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testStable  = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testPool    = common.HexToAddress("0x3000000000000000000000000000000000000003")
	testRouter  = common.HexToAddress("0x4000000000000000000000000000000000000004")
	testFactory = common.HexToAddress("0x5000000000000000000000000000000000000005")
	testLocker  = common.HexToAddress("0x6000000000000000000000000000000000000006")
)

// mockBackend implements chain.Backend for testing. Calls are answered by
// method selector from responses.
type mockBackend struct {
	mu        sync.Mutex
	responses map[[4]byte][]byte
	callErr   error
	sendErr   error
	sent      []*types.Transaction
	receipts  map[common.Hash]*types.Receipt
	notFound  int
	lookups   int
	balance   *big.Int
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		responses: make(map[[4]byte][]byte),
		receipts:  make(map[common.Hash]*types.Receipt),
		balance:   big.NewInt(0),
	}
}

func (m *mockBackend) respond(t *testing.T, parsed abi.ABI, method string, values ...interface{}) {
	t.Helper()
	out, err := parsed.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	var id [4]byte
	copy(id[:], parsed.Methods[method].ID)
	m.responses[id] = out
}

func (m *mockBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x1}, nil
}

func (m *mockBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callErr != nil {
		return nil, m.callErr
	}
	var id [4]byte
	copy(id[:], call.Data)
	out, ok := m.responses[id]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (m *mockBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(100), BaseFee: big.NewInt(1_000_000_000)}, nil
}

func (m *mockBackend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x1}, nil
}

func (m *mockBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.sent)), nil
}

func (m *mockBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (m *mockBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (m *mockBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (m *mockBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, tx)
	return nil
}

func (m *mockBackend) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (m *mockBackend) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("not supported")
}

func (m *mockBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.lookups <= m.notFound {
		return nil, ethereum.NotFound
	}
	if r, ok := m.receipts[txHash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (m *mockBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return new(big.Int).Set(m.balance), nil
}

func (m *mockBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(8453), nil
}

func testAuth(t *testing.T) *bind.TransactOpts {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(8453))
	require.NoError(t, err)
	return auth
}

func v2Profile() registry.ChainProfile {
	return registry.ChainProfile{
		Key:           "polygon",
		Router:        testRouter,
		Factory:       testFactory,
		Locker:        testLocker,
		PoolKind:      registry.PoolKindVolatile,
		FactoryLookup: registry.LookupGetPair,
		GasLimit:      3_000_000,
	}
}

func solidlyProfile() registry.ChainProfile {
	p := v2Profile()
	p.Key = "sonic"
	p.StableFlag = true
	p.FactoryLookup = registry.LookupGetPool
	return p
}

func newTestBackend(t *testing.T, mock *mockBackend, profile registry.ChainProfile) *Backend {
	t.Helper()
	b, err := NewBackend(mock, profile, testAuth(t), time.Millisecond, nil)
	require.NoError(t, err)
	return b
}

func decodeCall(t *testing.T, parsed abi.ABI, method string, data []byte) []interface{} {
	t.Helper()
	require.Equal(t, parsed.Methods[method].ID, data[:4])
	args, err := parsed.Methods[method].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	return args
}

func TestBackendReads(t *testing.T) {
	mock := newMockBackend()
	erc20, err := ERC20ABI()
	require.NoError(t, err)
	mock.respond(t, erc20, "balanceOf", big.NewInt(1234))
	mock.respond(t, erc20, "allowance", big.NewInt(55))
	mock.respond(t, erc20, "decimals", uint8(6))
	mock.respond(t, erc20, "symbol", "TKN")
	mock.balance = big.NewInt(7)

	b := newTestBackend(t, mock, v2Profile())
	ctx := context.Background()

	bal, err := b.BalanceOf(ctx, testToken, b.Signer())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1234), bal)

	allowance, err := b.Allowance(ctx, testToken, b.Signer(), testRouter)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(55), allowance)

	decimals, err := b.Decimals(ctx, testToken)
	require.NoError(t, err)
	require.Equal(t, uint8(6), decimals)

	symbol, err := b.Symbol(ctx, testToken)
	require.NoError(t, err)
	require.Equal(t, "TKN", symbol)

	native, err := b.NativeBalance(ctx, b.Signer())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(7), native)
}

func TestBackendDecimalsCached(t *testing.T) {
	mock := newMockBackend()
	erc20, err := ERC20ABI()
	require.NoError(t, err)
	mock.respond(t, erc20, "decimals", uint8(18))
	b := newTestBackend(t, mock, v2Profile())

	_, err = b.Decimals(context.Background(), testToken)
	require.NoError(t, err)
	mock.callErr = errors.New("node down")
	decimals, err := b.Decimals(context.Background(), testToken)
	require.NoError(t, err)
	require.Equal(t, uint8(18), decimals)
}

func TestBackendSymbolBytes32Fallback(t *testing.T) {
	mock := newMockBackend()
	parsed, err := erc20ABIBytes32.get()
	require.NoError(t, err)
	var raw [32]byte
	copy(raw[:], "MKR")
	out, err := parsed.Methods["symbol"].Outputs.Pack(raw)
	require.NoError(t, err)
	var id [4]byte
	copy(id[:], parsed.Methods["symbol"].ID)
	// Same selector as the string form; the string decode fails first.
	mock.responses[id] = out

	b := newTestBackend(t, mock, v2Profile())
	symbol, err := b.Symbol(context.Background(), testToken)
	require.NoError(t, err)
	require.Equal(t, "MKR", symbol)
}

func TestBackendGetPoolLookups(t *testing.T) {
	cases := []struct {
		name    string
		profile registry.ChainProfile
		lazy    *lazyABI
		method  string
	}{
		{"v2 getPair", v2Profile(), factoryPairABI, "getPair"},
		{"solidly getPool", solidlyProfile(), factoryPoolABI, "getPool"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := tc.lazy.get()
			require.NoError(t, err)
			mock := newMockBackend()
			mock.respond(t, parsed, tc.method, testPool)

			pool, err := newTestBackend(t, mock, tc.profile).GetPool(context.Background(), testToken, testStable, false)
			require.NoError(t, err)
			require.Equal(t, testPool, pool)
		})
	}
}

func TestBackendAddLiquidityV2(t *testing.T) {
	mock := newMockBackend()
	b := newTestBackend(t, mock, v2Profile())

	call := liquidity.AddLiquidityCall{
		TokenA:   testToken,
		TokenB:   testStable,
		Stable:   true,
		AmountA:  big.NewInt(1000),
		AmountB:  big.NewInt(2000),
		MinA:     big.NewInt(990),
		MinB:     big.NewInt(1980),
		To:       b.Signer(),
		Deadline: big.NewInt(1_700_001_200),
	}
	hash, err := b.AddLiquidity(context.Background(), call)
	require.NoError(t, err)
	require.Len(t, mock.sent, 1)

	tx := mock.sent[0]
	require.Equal(t, hash, tx.Hash())
	require.Equal(t, testRouter, *tx.To())
	require.Equal(t, uint64(3_000_000), tx.Gas())

	parsed, err := RouterABI(false)
	require.NoError(t, err)
	args := decodeCall(t, parsed, "addLiquidity", tx.Data())
	require.Len(t, args, 8)
	require.Equal(t, testToken, args[0])
	require.Equal(t, big.NewInt(990), args[4])
	require.Equal(t, big.NewInt(1_700_001_200), args[7])
}

func TestBackendAddLiquiditySolidly(t *testing.T) {
	mock := newMockBackend()
	b := newTestBackend(t, mock, solidlyProfile())

	_, err := b.AddLiquidity(context.Background(), liquidity.AddLiquidityCall{
		TokenA: testToken, TokenB: testStable, Stable: true,
		AmountA: big.NewInt(1), AmountB: big.NewInt(1), MinA: big.NewInt(1), MinB: big.NewInt(1),
		To: b.Signer(), Deadline: big.NewInt(1),
	})
	require.NoError(t, err)

	parsed, err := RouterABI(true)
	require.NoError(t, err)
	args := decodeCall(t, parsed, "addLiquidity", mock.sent[0].Data())
	require.Len(t, args, 9)
	require.Equal(t, true, args[2])
}

func TestBackendApproveAndLock(t *testing.T) {
	mock := newMockBackend()
	b := newTestBackend(t, mock, v2Profile())
	ctx := context.Background()

	_, err := b.Approve(ctx, testPool, testLocker, big.NewInt(950))
	require.NoError(t, err)
	_, err = b.CreateLock(ctx, liquidity.CreateLockCall{Label: "TKN", Pool: testPool, Beneficiary: b.Signer(), Amount: big.NewInt(950)})
	require.NoError(t, err)
	require.Len(t, mock.sent, 2)
	require.Equal(t, uint64(0), mock.sent[0].Nonce())
	require.Equal(t, uint64(1), mock.sent[1].Nonce())

	erc20, err := ERC20ABI()
	require.NoError(t, err)
	approveArgs := decodeCall(t, erc20, "approve", mock.sent[0].Data())
	require.Equal(t, testLocker, approveArgs[0])
	require.Equal(t, big.NewInt(950), approveArgs[1])

	locker, err := LockerABI()
	require.NoError(t, err)
	lockArgs := decodeCall(t, locker, "createLock", mock.sent[1].Data())
	require.Equal(t, "TKN", lockArgs[0])
	require.Equal(t, testPool, lockArgs[1])
	require.Equal(t, b.Signer(), lockArgs[2])
	require.Equal(t, big.NewInt(950), lockArgs[3])
}

func TestBackendSubmitErrors(t *testing.T) {
	mock := newMockBackend()
	mock.sendErr = errors.New("insufficient funds for gas * price + value")
	b := newTestBackend(t, mock, v2Profile())

	_, err := b.Approve(context.Background(), testToken, testRouter, big.NewInt(1))
	require.ErrorIs(t, err, liquidity.ErrInsufficientGas)

	auth := testAuth(t)
	auth.Signer = func(common.Address, *types.Transaction) (*types.Transaction, error) {
		return nil, errors.New("hsm unavailable")
	}
	rejecting, err := NewBackend(newMockBackend(), v2Profile(), auth, time.Millisecond, nil)
	require.NoError(t, err)
	_, err = rejecting.Approve(context.Background(), testToken, testRouter, big.NewInt(1))
	require.ErrorIs(t, err, liquidity.ErrSignatureRejected)
}

func TestBackendWaitMined(t *testing.T) {
	mock := newMockBackend()
	hash := common.HexToHash("0xabc")
	mock.notFound = 2
	mock.receipts[hash] = &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(42), GasUsed: 21000}
	b := newTestBackend(t, mock, v2Profile())

	receipt, err := b.WaitMined(context.Background(), hash)
	require.NoError(t, err)
	require.False(t, receipt.Success)
	require.Equal(t, uint64(42), receipt.BlockNumber)
	require.Equal(t, 3, mock.lookups)
}

func TestBackendWaitMinedTimeout(t *testing.T) {
	b := newTestBackend(t, newMockBackend(), v2Profile())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := b.WaitMined(ctx, common.HexToHash("0x1"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClassifyRPCError(t *testing.T) {
	cases := []struct {
		msg  string
		want error
	}{
		{"insufficient funds for gas * price + value", liquidity.ErrInsufficientGas},
		{"execution reverted: TRANSFER_FROM_FAILED", liquidity.ErrTxReverted},
		{"User rejected the request", liquidity.ErrSignatureRejected},
	}
	for _, tc := range cases {
		err := classifyRPCError(fmt.Errorf("send: %w", errors.New(tc.msg)))
		require.ErrorIs(t, err, tc.want, tc.msg)
	}

	plain := errors.New("connection refused")
	require.Equal(t, plain, classifyRPCError(plain))
	require.NoError(t, classifyRPCError(nil))
}
