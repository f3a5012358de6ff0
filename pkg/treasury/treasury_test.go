package treasury

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/credence-labs/credence-core/pkg/contracts"
	"github.com/credence-labs/credence-core/pkg/token"
)

func TestSplitFeeExact(t *testing.T) {
	fee, net, err := SplitFee(1000, 250)
	require.NoError(t, err)
	require.Equal(t, int64(25), fee)
	require.Equal(t, int64(975), net)
}

func TestSplitFeeRoundsDown(t *testing.T) {
	// 7 * 1 / 10000 = 0.0007 -> 0
	fee, net, err := SplitFee(7, 1)
	require.NoError(t, err)
	require.Equal(t, int64(0), fee)
	require.Equal(t, int64(7), net)
}

func TestSplitFeeRejectsBadBps(t *testing.T) {
	_, _, err := SplitFee(1000, 10_001)
	require.ErrorIs(t, err, contracts.ErrInvalidFeeBps)
}

func TestSplitFeeRejectsNonPositiveAmount(t *testing.T) {
	_, _, err := SplitFee(0, 100)
	require.ErrorIs(t, err, contracts.ErrInvalidAmount)
}

func TestEarlyExitPenaltyFullRemaining(t *testing.T) {
	// Full lock-up remaining: the nominal bps penalty applies.
	p, err := EarlyExitPenalty(10_000, 100, 100, 500)
	require.NoError(t, err)
	require.Equal(t, int64(500), p)
}

func TestEarlyExitPenaltyScalesLinearly(t *testing.T) {
	// Half the lock-up remaining: half the nominal penalty.
	p, err := EarlyExitPenalty(10_000, 50, 100, 500)
	require.NoError(t, err)
	require.Equal(t, int64(250), p)
}

func TestEarlyExitPenaltyRoundsDown(t *testing.T) {
	// 999 * 500 * 1 / (3 * 10000) = 16.65 -> 16
	p, err := EarlyExitPenalty(999, 1, 3, 500)
	require.NoError(t, err)
	require.Equal(t, int64(16), p)
}

func TestEarlyExitPenaltyZeroAtEnd(t *testing.T) {
	p, err := EarlyExitPenalty(10_000, 0, 100, 500)
	require.NoError(t, err)
	require.Equal(t, int64(0), p)
}

func TestEarlyExitPenaltyRejectsBadWindow(t *testing.T) {
	_, err := EarlyExitPenalty(10_000, 101, 100, 500)
	require.ErrorIs(t, err, contracts.ErrInvalidDuration)
	_, err = EarlyExitPenalty(10_000, 10, 0, 500)
	require.ErrorIs(t, err, contracts.ErrInvalidDuration)
}

func TestAdapterForward(t *testing.T) {
	tok := token.NewInMemory()
	tok.Mint("custody", 1000)
	a := NewAdapter("treasury", tok)

	require.NoError(t, a.Forward(context.Background(), "custody", 250))

	bal, _ := tok.BalanceOf(context.Background(), "treasury")
	require.Equal(t, int64(250), bal)
}

func TestAdapterForwardZeroIsNoop(t *testing.T) {
	tok := token.NewInMemory()
	a := NewAdapter("treasury", tok)
	require.NoError(t, a.Forward(context.Background(), "custody", 0))
}
