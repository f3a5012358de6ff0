package bond

import (
	"context"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/contracts"
	"github.com/credence-labs/credence-core/pkg/safemath"
)

// DepositFees moves protocol fees from the payer into the custody fee
// pool. The pool is held in custody until the admin collects it.
func (e *Engine) DepositFees(ctx context.Context, payer string, amount int64) error {
	if err := e.lock.TryAcquire(); err != nil {
		return err
	}
	defer e.lock.Release()

	if err := safemath.RequirePositive(amount); err != nil {
		return err
	}

	e.mu.Lock()
	newPool, err := safemath.Add(e.feePool, amount)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	if err := e.tok.TransferFrom(ctx, e.cfg.CustodyAccount, payer, e.cfg.CustodyAccount, amount); err != nil {
		return err
	}

	e.mu.Lock()
	e.feePool = newPool
	e.mu.Unlock()
	return nil
}

// CollectFees pays the accumulated fee pool out to the treasury.
// Admin only.
func (e *Engine) CollectFees(ctx context.Context, caller string) (int64, error) {
	if err := e.lock.TryAcquire(); err != nil {
		return 0, err
	}
	defer e.lock.Release()

	if caller != e.cfg.Admin {
		_ = e.logger.Denial(ctx, caller, "admin", contracts.ErrNotAdmin)
		return 0, contracts.ErrNotAdmin
	}

	e.mu.Lock()
	fees := e.feePool
	e.mu.Unlock()

	if fees == 0 {
		return 0, nil
	}
	if err := e.treas.Forward(ctx, e.cfg.CustodyAccount, fees); err != nil {
		return 0, err
	}

	e.mu.Lock()
	e.feePool = 0
	e.mu.Unlock()

	_ = e.logger.Record(ctx, audit.ClassLifecycle, contracts.EventFeesCollected, caller, "", map[string]interface{}{
		"amount": fees,
	})
	return fees, nil
}

// EmergencyDebit removes gross collateral from an identity's bond on
// behalf of the emergency module. Authorization (admin + governance
// co-sign) is the emergency module's responsibility; the ledger only
// enforces the accounting invariants. The caller must already hold the
// custody execution lock (see Guard); the debit itself does not
// re-acquire it.
func (e *Engine) EmergencyDebit(ctx context.Context, identity string, amount int64) error {
	_ = ctx
	if err := safemath.RequirePositive(amount); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.activeBond(identity)
	if err != nil {
		return err
	}
	available, err := safemath.Sub(b.BondedAmount, b.SlashedAmount)
	if err != nil || available < 0 {
		return contracts.ErrSlashExceedsBond
	}
	if amount > available {
		return contracts.ErrInsufficientAvailable
	}
	newAmount, err := safemath.Sub(b.BondedAmount, amount)
	if err != nil {
		return err
	}
	if b.SlashedAmount > newAmount {
		return contracts.ErrSlashExceedsBond
	}
	b.BondedAmount = newAmount
	if b.BondedAmount == 0 && b.SlashedAmount == 0 {
		b.Active = false
	}
	return nil
}

// EmergencyCredit reverses an EmergencyDebit made earlier in the same
// call when a subsequent transfer fails, so the failed call leaves the
// bond exactly as solvent as custody. The caller still holds the
// custody execution lock.
func (e *Engine) EmergencyCredit(ctx context.Context, identity string, amount int64) error {
	_ = ctx
	if err := safemath.RequirePositive(amount); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.bonds[identity]
	if !ok {
		return contracts.ErrBondNotFound
	}
	newAmount, err := safemath.Add(b.BondedAmount, amount)
	if err != nil {
		return err
	}
	b.BondedAmount = newAmount
	if b.BondedAmount > 0 {
		b.Active = true
	}
	return nil
}

// Available returns the identity's withdrawable residual.
func (e *Engine) Available(identity string) (int64, error) {
	b, err := e.Bond(identity)
	if err != nil {
		return 0, err
	}
	return safemath.Sub(b.BondedAmount, b.SlashedAmount)
}
