package liquidity

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"liquidityLock/internal/model"
)

func TestEnsureSufficientAllowanceSendsNothing(t *testing.T) {
	chain := newMockChain()
	chain.setAllowance(tokenAddr, routerAddr, units(2000))

	m := NewApprovalManager(chain, testConfig(), nil)
	err := m.Ensure(context.Background(), StageApproveA, tokenAddr, routerAddr, units(1000))

	require.NoError(t, err)
	require.Equal(t, 0, chain.stateChangingCalls())
}

func TestEnsureIsIdempotent(t *testing.T) {
	chain := newMockChain()
	m := NewApprovalManager(chain, testConfig(), nil)
	ctx := context.Background()

	require.NoError(t, m.Ensure(ctx, StageApproveA, tokenAddr, routerAddr, units(1000)))
	require.Len(t, chain.approvals, 1)

	require.NoError(t, m.Ensure(ctx, StageApproveA, tokenAddr, routerAddr, units(1000)))
	require.Len(t, chain.approvals, 1, "second ensure must not submit")
}

func TestEnsureZeroAllowanceApprovesOnce(t *testing.T) {
	chain := newMockChain()
	m := NewApprovalManager(chain, testConfig(), nil)

	require.NoError(t, m.Ensure(context.Background(), StageApproveB, stableAddr, routerAddr, units(1000)))
	require.Len(t, chain.approvals, 1)
	require.Equal(t, units(1000), chain.approvals[0].Amount)
	require.Equal(t, stableAddr, chain.approvals[0].Asset)
	require.Equal(t, routerAddr, chain.approvals[0].Spender)
}

func TestEnsureResetsBeforeRaising(t *testing.T) {
	chain := newMockChain()
	chain.setAllowance(tokenAddr, routerAddr, big.NewInt(5))
	m := NewApprovalManager(chain, testConfig(), nil)

	require.NoError(t, m.Ensure(context.Background(), StageApproveA, tokenAddr, routerAddr, units(1000)))
	require.Len(t, chain.approvals, 2)
	require.Equal(t, 0, chain.approvals[0].Amount.Sign(), "first approval must reset to zero")
	require.Equal(t, units(1000), chain.approvals[1].Amount)
}

func TestEnsureStillInsufficientFails(t *testing.T) {
	chain := newMockChain()
	chain.ignoreApprovals = true
	m := NewApprovalManager(chain, testConfig(), nil)

	err := m.Ensure(context.Background(), StageApproveA, tokenAddr, routerAddr, units(1000))
	require.Error(t, err)
	require.Equal(t, model.ErrorKindApprovalFailed, KindOf(err))
	require.Equal(t, StageApproveA, StageOf(err))
}

func TestEnsureClassifiesSubmitFailures(t *testing.T) {
	cases := []struct {
		name   string
		submit error
		revert bool
		want   model.ErrorKind
	}{
		{name: "signer rejected", submit: fmt.Errorf("sign: %w", ErrSignatureRejected), want: model.ErrorKindWalletRejected},
		{name: "no gas", submit: fmt.Errorf("send: %w", ErrInsufficientGas), want: model.ErrorKindGasError},
		{name: "reverted", revert: true, want: model.ErrorKindApprovalFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chain := newMockChain()
			chain.approveErr = tc.submit
			chain.revert["approve"] = tc.revert
			m := NewApprovalManager(chain, testConfig(), nil)

			err := m.Ensure(context.Background(), StageApproveA, tokenAddr, routerAddr, units(1))
			require.Equal(t, tc.want, KindOf(err))
		})
	}
}
