package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransferMovesBalance(t *testing.T) {
	tok := NewInMemory()
	tok.Mint("alice", 1000)

	require.NoError(t, tok.Transfer(context.Background(), "alice", "bob", 400))

	a, _ := tok.BalanceOf(context.Background(), "alice")
	b, _ := tok.BalanceOf(context.Background(), "bob")
	require.Equal(t, int64(600), a)
	require.Equal(t, int64(400), b)
}

func TestTransferFailsAtomically(t *testing.T) {
	tok := NewInMemory()
	tok.Mint("alice", 100)

	err := tok.Transfer(context.Background(), "alice", "bob", 500)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	a, _ := tok.BalanceOf(context.Background(), "alice")
	b, _ := tok.BalanceOf(context.Background(), "bob")
	require.Equal(t, int64(100), a)
	require.Equal(t, int64(0), b)
}

func TestTransferFromRequiresAllowance(t *testing.T) {
	tok := NewInMemory()
	tok.Mint("alice", 1000)

	err := tok.TransferFrom(context.Background(), "custody", "alice", "custody", 300)
	require.ErrorIs(t, err, ErrInsufficientAllowance)

	tok.Approve("alice", "custody", 300)
	require.NoError(t, tok.TransferFrom(context.Background(), "custody", "alice", "custody", 300))

	err = tok.TransferFrom(context.Background(), "custody", "alice", "custody", 1)
	require.ErrorIs(t, err, ErrInsufficientAllowance)
}

func TestTransferHookFires(t *testing.T) {
	tok := NewInMemory()
	tok.Mint("alice", 100)

	var gotFrom, gotTo string
	var gotAmount int64
	tok.TransferHook = func(from, to string, amount int64) {
		gotFrom, gotTo, gotAmount = from, to, amount
	}

	require.NoError(t, tok.Transfer(context.Background(), "alice", "bob", 42))
	require.Equal(t, "alice", gotFrom)
	require.Equal(t, "bob", gotTo)
	require.Equal(t, int64(42), gotAmount)
}

func TestRejectsNonPositiveAmounts(t *testing.T) {
	tok := NewInMemory()
	tok.Mint("alice", 100)
	require.ErrorIs(t, tok.Transfer(context.Background(), "alice", "bob", 0), ErrNegativeTransfer)
	require.ErrorIs(t, tok.Transfer(context.Background(), "alice", "bob", -5), ErrNegativeTransfer)
}
