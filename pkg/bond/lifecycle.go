package bond

import (
	"context"
	"time"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/contracts"
	"github.com/credence-labs/credence-core/pkg/safemath"
	"github.com/credence-labs/credence-core/pkg/treasury"
)

// CreateBond locks collateral for the identity as a fixed-term bond.
// The caller must authenticate as the identity; principal plus the
// creation fee moves from the identity's token balance into custody.
func (e *Engine) CreateBond(ctx context.Context, caller, identity string, amount int64, duration time.Duration) (*contracts.Bond, error) {
	return e.createBond(ctx, caller, identity, amount, duration, false, 0)
}

// CreateRollingBond creates a bond that renews each period and is
// withdrawn through the request-then-wait notice path.
func (e *Engine) CreateRollingBond(ctx context.Context, caller, identity string, amount int64, duration, noticePeriod time.Duration) (*contracts.Bond, error) {
	return e.createBond(ctx, caller, identity, amount, duration, true, noticePeriod)
}

func (e *Engine) createBond(ctx context.Context, caller, identity string, amount int64, duration time.Duration, rolling bool, noticePeriod time.Duration) (*contracts.Bond, error) {
	if err := e.lock.TryAcquire(); err != nil {
		return nil, err
	}
	defer e.lock.Release()

	if err := safemath.RequireRange(amount, e.cfg.MinBondAmount, e.cfg.MaxBondAmount); err != nil {
		return nil, err
	}
	if duration <= 0 || duration > e.cfg.MaxBondDuration {
		return nil, contracts.ErrInvalidDuration
	}
	if rolling && noticePeriod <= 0 {
		return nil, contracts.ErrInvalidDuration
	}
	if caller != identity {
		_ = e.logger.Denial(ctx, caller, "identity", contracts.ErrNotAuthorized)
		return nil, contracts.ErrNotAuthorized
	}

	now := e.clock()
	if _, err := safemath.BondEnd(now, duration); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if existing, ok := e.bonds[identity]; ok && existing.Active {
		e.mu.Unlock()
		return nil, contracts.ErrBondAlreadyExists
	}
	e.mu.Unlock()

	fee, _, err := treasury.SplitFee(amount, e.cfg.CreationFeeBps)
	if err != nil {
		return nil, err
	}
	debit, err := safemath.Add(amount, fee)
	if err != nil {
		return nil, err
	}

	// External interaction: principal plus fee into custody, fee onward
	// to the treasury. Any failure is terminal and nothing was mutated.
	if err := e.tok.TransferFrom(ctx, e.cfg.CustodyAccount, identity, e.cfg.CustodyAccount, debit); err != nil {
		return nil, err
	}
	if fee > 0 {
		if err := e.treas.Forward(ctx, e.cfg.CustodyAccount, fee); err != nil {
			return nil, err
		}
	}

	b := &contracts.Bond{
		Identity:     identity,
		BondedAmount: amount,
		BondStart:    now,
		BondDuration: duration,
		Active:       true,
		IsRolling:    rolling,
		NoticePeriod: noticePeriod,
	}

	e.mu.Lock()
	e.bonds[identity] = b
	e.mu.Unlock()

	// The engine does not depend on the registry's response.
	_ = e.reg.BondCreated(ctx, identity, amount)

	_ = e.logger.Record(ctx, audit.ClassLifecycle, contracts.EventBondCreated, identity, identity, map[string]interface{}{
		"amount":   amount,
		"duration": duration.String(),
		"rolling":  rolling,
		"fee":      fee,
		"tier":     string(TierFor(amount)),
	})

	copied := *b
	return &copied, nil
}

// TopUp adds principal to the caller's active bond with checked
// arithmetic; the result must stay within the configured bounds.
func (e *Engine) TopUp(ctx context.Context, caller string, amount int64) (*contracts.Bond, error) {
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
	oldAmount := b.BondedAmount
	newAmount, err := safemath.Add(oldAmount, amount)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if newAmount > e.cfg.MaxBondAmount {
		e.mu.Unlock()
		return nil, contracts.ErrAmountAboveMaximum
	}
	e.mu.Unlock()

	if err := e.tok.TransferFrom(ctx, e.cfg.CustodyAccount, caller, e.cfg.CustodyAccount, amount); err != nil {
		return nil, err
	}

	e.mu.Lock()
	b.BondedAmount = newAmount
	copied := *b
	e.mu.Unlock()

	e.emitTierChange(ctx, caller, oldAmount, newAmount)
	return &copied, nil
}

// ExtendDuration lengthens the caller's lock-up with checked
// arithmetic; the resulting end timestamp must stay representable.
func (e *Engine) ExtendDuration(ctx context.Context, caller string, extra time.Duration) (*contracts.Bond, error) {
	if err := e.lock.TryAcquire(); err != nil {
		return nil, err
	}
	defer e.lock.Release()

	if extra <= 0 {
		return nil, contracts.ErrInvalidDuration
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.activeBond(caller)
	if err != nil {
		return nil, err
	}

	newDuration, err := safemath.AddDuration(b.BondDuration, extra)
	if err != nil {
		return nil, err
	}
	if newDuration > e.cfg.MaxBondDuration {
		return nil, contracts.ErrInvalidDuration
	}
	if _, err := safemath.BondEnd(b.BondStart, newDuration); err != nil {
		return nil, err
	}

	b.BondDuration = newDuration
	copied := *b
	return &copied, nil
}

// RenewIfRolling restarts the period of a rolling bond whose term has
// elapsed. Non-rolling bonds and unexpired periods are returned as-is.
func (e *Engine) RenewIfRolling(ctx context.Context, caller string) (*contracts.Bond, error) {
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

	copied := *b
	if !b.IsRolling {
		return &copied, nil
	}
	now := e.clock()
	if now.Before(b.End()) {
		return &copied, nil
	}

	b.BondStart = now
	b.WithdrawalRequestedAt = time.Time{}
	copied = *b

	_ = e.logger.Record(ctx, audit.ClassLifecycle, contracts.EventBondRenewed, caller, caller, map[string]interface{}{
		"bond_start": b.BondStart,
		"duration":   b.BondDuration.String(),
	})
	return &copied, nil
}
