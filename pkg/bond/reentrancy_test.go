package bond

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/credence-labs/credence-core/pkg/contracts"
)

// A token transfer hook that re-enters the engine must be rejected by
// the execution lock; the outer operation completes normally.
func TestReentrantWithdrawIsRejected(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.fund("alice", 5_000_000)
	ctx := context.Background()

	_, err := f.engine.CreateBond(ctx, "alice", "alice", 5_000_000, year)
	require.NoError(t, err)

	var reentrantErr error
	calls := 0
	f.tok.TransferHook = func(from, to string, amount int64) {
		if from != "custody" {
			return
		}
		calls++
		if calls > 1 {
			return
		}
		_, reentrantErr = f.engine.WithdrawBond(ctx, "alice")
	}

	residual, err := f.engine.WithdrawBond(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(5_000_000), residual)

	require.ErrorIs(t, reentrantErr, contracts.ErrReentrantCall)
	require.Equal(t, contracts.KindReentrancy, contracts.KindOf(reentrantErr))
	require.Equal(t, 1, calls)

	// Exactly one payout left custody.
	alice, _ := f.tok.BalanceOf(ctx, "alice")
	require.Equal(t, int64(5_000_000), alice)
	custody, _ := f.tok.BalanceOf(ctx, "custody")
	require.Equal(t, int64(0), custody)
}

func TestReentrantSlashDuringWithdrawIsRejected(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.fund("alice", 5_000_000)
	ctx := context.Background()

	_, err := f.engine.CreateBond(ctx, "alice", "alice", 5_000_000, year)
	require.NoError(t, err)

	var reentrantErr error
	f.tok.TransferHook = func(from, to string, amount int64) {
		if from != "custody" || reentrantErr != nil {
			return
		}
		_, reentrantErr = f.engine.ApplySlash(ctx, "alice", 1_000_000, 1, "governance")
	}

	_, err = f.engine.Withdraw(ctx, "alice", 2_000_000)
	require.NoError(t, err)
	require.ErrorIs(t, reentrantErr, contracts.ErrReentrantCall)

	b, err := f.engine.Bond("alice")
	require.NoError(t, err)
	require.Equal(t, int64(0), b.SlashedAmount)
	require.Equal(t, int64(3_000_000), b.BondedAmount)
}

func TestLockReleasedAfterFailure(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.fund("alice", 5_000_000)
	ctx := context.Background()

	_, err := f.engine.CreateBond(ctx, "alice", "alice", 5_000_000, year)
	require.NoError(t, err)

	_, err = f.engine.Withdraw(ctx, "alice", 9_000_000)
	require.ErrorIs(t, err, contracts.ErrInsufficientBalance)
	require.False(t, f.engine.Locked())

	// The failed call must not leave the lock held.
	_, err = f.engine.Withdraw(ctx, "alice", 1_000_000)
	require.NoError(t, err)
}
