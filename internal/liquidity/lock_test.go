package liquidity

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"liquidityLock/internal/model"
)

func TestLockLocksExactBalance(t *testing.T) {
	chain := newMockChain()
	shares := big.NewInt(950)
	chain.setBalance(poolAddr, shares)

	l := NewLocker(chain, nil, testConfig(), nil)
	receipt, err := l.Lock(context.Background(), testProfile(), tokenAddr, poolAddr)
	require.NoError(t, err)

	require.Equal(t, shares, receipt.Amount)
	require.Len(t, chain.locks, 1)
	lock := chain.locks[0]
	require.Equal(t, shares, lock.Amount)
	require.Equal(t, poolAddr, lock.Pool)
	require.Equal(t, "TKN", lock.Label)
	require.Equal(t, signerAddr, lock.Beneficiary)

	require.Len(t, chain.approvals, 1)
	require.Equal(t, lockerAddr, chain.approvals[0].Spender)
	require.Equal(t, shares, chain.approvals[0].Amount)
}

func TestLockUsesConfiguredBeneficiary(t *testing.T) {
	chain := newMockChain()
	chain.setBalance(poolAddr, big.NewInt(1))
	profile := testProfile()
	profile.LockBeneficiary = stableAddr

	receipt, err := NewLocker(chain, nil, testConfig(), nil).Lock(context.Background(), profile, tokenAddr, poolAddr)
	require.NoError(t, err)
	require.Equal(t, stableAddr, receipt.Beneficiary)
}

func TestLockLabelFallsBackToAddress(t *testing.T) {
	chain := newMockChain()
	chain.setBalance(poolAddr, big.NewInt(1))
	delete(chain.symbols, tokenAddr)

	receipt, err := NewLocker(chain, nil, testConfig(), nil).Lock(context.Background(), testProfile(), tokenAddr, poolAddr)
	require.NoError(t, err)
	require.Equal(t, tokenAddr.Hex(), receipt.Label)
}

func TestLockZeroSharesSendsNothing(t *testing.T) {
	chain := newMockChain()

	_, err := NewLocker(chain, nil, testConfig(), nil).Lock(context.Background(), testProfile(), tokenAddr, poolAddr)
	require.Equal(t, model.ErrorKindLPZero, KindOf(err))
	require.Equal(t, 0, chain.stateChangingCalls())
}

func TestLockApprovalFailureIsLockFailed(t *testing.T) {
	chain := newMockChain()
	chain.setBalance(poolAddr, big.NewInt(10))
	chain.ignoreApprovals = true

	_, err := NewLocker(chain, nil, testConfig(), nil).Lock(context.Background(), testProfile(), tokenAddr, poolAddr)
	require.Equal(t, model.ErrorKindLockFailed, KindOf(err))
	require.Empty(t, chain.locks)
}

func TestLockRevertIsLockFailed(t *testing.T) {
	chain := newMockChain()
	chain.setBalance(poolAddr, big.NewInt(10))
	chain.revert["create_lock"] = true

	_, err := NewLocker(chain, nil, testConfig(), nil).Lock(context.Background(), testProfile(), tokenAddr, poolAddr)
	require.Equal(t, model.ErrorKindLockFailed, KindOf(err))
	require.ErrorIs(t, err, ErrTxReverted)
}
