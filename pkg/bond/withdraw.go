package bond

import (
	"context"
	"time"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/contracts"
	"github.com/credence-labs/credence-core/pkg/safemath"
	"github.com/credence-labs/credence-core/pkg/treasury"
)

// Withdraw returns part of the caller's residual (bonded minus slashed)
// after the lock-up has ended. Rolling bonds use the notice-period path
// instead.
func (e *Engine) Withdraw(ctx context.Context, caller string, amount int64) (*contracts.Bond, error) {
	if err := e.lock.TryAcquire(); err != nil {
		return nil, err
	}
	defer e.lock.Release()

	if err := safemath.RequirePositive(amount); err != nil {
		return nil, err
	}

	e.mu.Lock()
	b, err := e.activeBond(caller)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	available, err := safemath.Sub(b.BondedAmount, b.SlashedAmount)
	if err != nil || available < 0 {
		e.mu.Unlock()
		return nil, contracts.ErrSlashExceedsBond
	}
	if amount > available {
		e.mu.Unlock()
		return nil, contracts.ErrInsufficientBalance
	}
	oldAmount := b.BondedAmount
	newAmount, err := safemath.Sub(oldAmount, amount)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if b.SlashedAmount > newAmount {
		e.mu.Unlock()
		return nil, contracts.ErrSlashExceedsBond
	}
	e.mu.Unlock()

	if err := e.tok.Transfer(ctx, e.cfg.CustodyAccount, caller, amount); err != nil {
		return nil, err
	}

	e.mu.Lock()
	b.BondedAmount = newAmount
	copied := *b
	e.mu.Unlock()

	e.emitTierChange(ctx, caller, oldAmount, newAmount)
	return &copied, nil
}

// WithdrawBond returns the caller's full residual and closes the bond.
// A second call fails: the bond is no longer active.
func (e *Engine) WithdrawBond(ctx context.Context, caller string) (int64, error) {
	if err := e.lock.TryAcquire(); err != nil {
		return 0, err
	}
	defer e.lock.Release()

	e.mu.Lock()
	b, err := e.activeBond(caller)
	if err != nil {
		e.mu.Unlock()
		return 0, err
	}
	if err := e.requireOwner(ctx, caller, b); err != nil {
		e.mu.Unlock()
		return 0, err
	}
	residual, err := safemath.Sub(b.BondedAmount, b.SlashedAmount)
	if err != nil || residual < 0 {
		e.mu.Unlock()
		return 0, contracts.ErrSlashExceedsBond
	}
	if residual == 0 {
		e.mu.Unlock()
		return 0, contracts.ErrInsufficientBalance
	}
	e.mu.Unlock()

	if err := e.tok.Transfer(ctx, e.cfg.CustodyAccount, caller, residual); err != nil {
		return 0, err
	}

	e.mu.Lock()
	b.BondedAmount = 0
	b.SlashedAmount = 0
	b.Active = false
	e.mu.Unlock()

	_ = e.reg.BondClosed(ctx, caller)
	return residual, nil
}

// WithdrawEarly withdraws before the lock-up ends, paying a penalty
// that scales with the remaining time. The penalty goes to the
// treasury; the net goes to the caller.
func (e *Engine) WithdrawEarly(ctx context.Context, caller string, amount int64) (*contracts.Bond, error) {
	if err := e.lock.TryAcquire(); err != nil {
		return nil, err
	}
	defer e.lock.Release()

	if err := safemath.RequirePositive(amount); err != nil {
		return nil, err
	}

	e.mu.Lock()
	b, err := e.activeBond(caller)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	available, err := safemath.Sub(b.BondedAmount, b.SlashedAmount)
	if err != nil || available < 0 {
		e.mu.Unlock()
		return nil, contracts.ErrSlashExceedsBond
	}
	if amount > available {
		e.mu.Unlock()
		return nil, contracts.ErrInsufficientBalance
	}

	now := e.clock()
	end := b.End()
	if !now.Before(end) {
		e.mu.Unlock()
		return nil, contracts.ErrLockupElapsed
	}
	remaining := int64(end.Sub(now) / time.Second)
	duration := int64(b.BondDuration / time.Second)
	oldAmount := b.BondedAmount
	e.mu.Unlock()

	penalty, err := treasury.EarlyExitPenalty(amount, remaining, duration, e.cfg.EarlyExitPenaltyBps)
	if err != nil {
		return nil, err
	}
	net := amount - penalty

	if net > 0 {
		if err := e.tok.Transfer(ctx, e.cfg.CustodyAccount, caller, net); err != nil {
			return nil, err
		}
	}
	if err := e.treas.Forward(ctx, e.cfg.CustodyAccount, penalty); err != nil {
		return nil, err
	}

	e.mu.Lock()
	newAmount, err := safemath.Sub(b.BondedAmount, amount)
	if err != nil || b.SlashedAmount > newAmount {
		e.mu.Unlock()
		return nil, contracts.ErrSlashExceedsBond
	}
	b.BondedAmount = newAmount
	copied := *b
	e.mu.Unlock()

	_ = e.logger.Record(ctx, audit.ClassLifecycle, contracts.EventEarlyExitPenalty, caller, caller, map[string]interface{}{
		"amount":   amount,
		"penalty":  penalty,
		"treasury": e.treas.Address(),
	})
	e.emitTierChange(ctx, caller, oldAmount, newAmount)
	return &copied, nil
}

// RequestWithdrawal stamps the notice-period clock on a rolling bond.
// Only one request may be outstanding.
func (e *Engine) RequestWithdrawal(ctx context.Context, caller string) (*contracts.Bond, error) {
	if err := e.lock.TryAcquire(); err != nil {
		return nil, err
	}
	defer e.lock.Release()

	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.activeBond(caller)
	if err != nil {
		return nil, err
	}
	if !b.IsRolling {
		return nil, contracts.ErrNotRollingBond
	}
	if !b.WithdrawalRequestedAt.IsZero() {
		return nil, contracts.ErrWithdrawalAlreadyRequested
	}

	b.WithdrawalRequestedAt = e.clock()
	copied := *b

	_ = e.logger.Record(ctx, audit.ClassLifecycle, contracts.EventWithdrawalRequested, caller, caller, map[string]interface{}{
		"requested_at": b.WithdrawalRequestedAt,
	})
	return &copied, nil
}

// ExecuteRollingWithdrawal completes a requested rolling withdrawal
// once the notice period has elapsed, returning the full residual and
// closing the bond.
func (e *Engine) ExecuteRollingWithdrawal(ctx context.Context, caller string) (int64, error) {
	if err := e.lock.TryAcquire(); err != nil {
		return 0, err
	}
	defer e.lock.Release()

	e.mu.Lock()
	b, err := e.activeBond(caller)
	if err != nil {
		e.mu.Unlock()
		return 0, err
	}
	if !b.IsRolling {
		e.mu.Unlock()
		return 0, contracts.ErrNotRollingBond
	}
	if b.WithdrawalRequestedAt.IsZero() {
		e.mu.Unlock()
		return 0, contracts.ErrWithdrawalNotRequested
	}
	if e.clock().Before(b.WithdrawalRequestedAt.Add(b.NoticePeriod)) {
		e.mu.Unlock()
		return 0, contracts.ErrNoticePeriodNotElapsed
	}
	residual, err := safemath.Sub(b.BondedAmount, b.SlashedAmount)
	if err != nil || residual < 0 {
		e.mu.Unlock()
		return 0, contracts.ErrSlashExceedsBond
	}
	if residual == 0 {
		e.mu.Unlock()
		return 0, contracts.ErrInsufficientBalance
	}
	e.mu.Unlock()

	if err := e.tok.Transfer(ctx, e.cfg.CustodyAccount, caller, residual); err != nil {
		return 0, err
	}

	e.mu.Lock()
	b.BondedAmount = 0
	b.SlashedAmount = 0
	b.Active = false
	e.mu.Unlock()

	_ = e.reg.BondClosed(ctx, caller)
	return residual, nil
}
