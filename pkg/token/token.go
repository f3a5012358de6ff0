// Package token defines the external fungible-token collaborator
// consumed by the custody engines. The engines treat any transfer
// failure as terminal for the whole call; the collaborator must fail
// atomically on insufficient balance or allowance.
package token

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrNegativeTransfer      = errors.New("token: transfer amount must be positive")
)

// Token is the transfer surface of the external token contract.
type Token interface {
	Transfer(ctx context.Context, from, to string, amount int64) error
	TransferFrom(ctx context.Context, spender, from, to string, amount int64) error
	BalanceOf(ctx context.Context, addr string) (int64, error)
}

// InMemory is a faithful in-process stand-in for the token collaborator.
// Transfers are atomic: either the full amount moves or nothing does.
// A TransferHook, when set, runs after each successful transfer and can
// call back into the engines, which is how re-entrancy is exercised in
// tests.
type InMemory struct {
	mu         sync.Mutex
	balances   map[string]int64
	allowances map[string]map[string]int64 // owner -> spender -> amount

	// TransferHook runs outside the balance lock after a successful
	// transfer. Used to simulate external-call callbacks.
	TransferHook func(from, to string, amount int64)
}

// NewInMemory returns an empty in-memory token.
func NewInMemory() *InMemory {
	return &InMemory{
		balances:   make(map[string]int64),
		allowances: make(map[string]map[string]int64),
	}
}

// Mint credits an address. Test setup only.
func (t *InMemory) Mint(addr string, amount int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[addr] += amount
}

// Approve lets spender move up to amount from owner's balance.
func (t *InMemory) Approve(owner, spender string, amount int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[string]int64)
	}
	t.allowances[owner][spender] = amount
}

func (t *InMemory) Transfer(ctx context.Context, from, to string, amount int64) error {
	_ = ctx
	if amount <= 0 {
		return ErrNegativeTransfer
	}

	t.mu.Lock()
	if t.balances[from] < amount {
		t.mu.Unlock()
		return ErrInsufficientBalance
	}
	t.balances[from] -= amount
	t.balances[to] += amount
	hook := t.TransferHook
	t.mu.Unlock()

	if hook != nil {
		hook(from, to, amount)
	}
	return nil
}

func (t *InMemory) TransferFrom(ctx context.Context, spender, from, to string, amount int64) error {
	_ = ctx
	if amount <= 0 {
		return ErrNegativeTransfer
	}

	t.mu.Lock()
	allowance := int64(0)
	if t.allowances[from] != nil {
		allowance = t.allowances[from][spender]
	}
	if allowance < amount {
		t.mu.Unlock()
		return ErrInsufficientAllowance
	}
	if t.balances[from] < amount {
		t.mu.Unlock()
		return ErrInsufficientBalance
	}
	t.allowances[from][spender] = allowance - amount
	t.balances[from] -= amount
	t.balances[to] += amount
	hook := t.TransferHook
	t.mu.Unlock()

	if hook != nil {
		hook(from, to, amount)
	}
	return nil
}

func (t *InMemory) BalanceOf(ctx context.Context, addr string) (int64, error) {
	_ = ctx
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[addr], nil
}
