package emergency

import (
	"context"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/contracts"
	"github.com/credence-labs/credence-core/pkg/treasury"
)

// Withdraw drains amount from identity's bond through the crisis
// channel. Validation runs in a fixed order: admin, governance,
// enabled flag, amount, available balance. The whole call holds the
// custody execution lock, so a token callback cannot re-enter the
// ledger while funds are moving; the bond is debited before any
// transfer and credited back for whatever portion a failed transfer
// did not pay out. The record is written only after every transfer
// has succeeded.
func (m *Module) Withdraw(ctx context.Context, admin, governance, identity string, amount int64, reason string) (*contracts.EmergencyRecord, error) {
	if err := m.lock.TryAcquire(); err != nil {
		return nil, err
	}
	defer m.lock.Release()

	m.mu.Lock()
	cfg := m.cfg
	m.mu.Unlock()

	if admin != m.admin {
		_ = m.logger.Denial(ctx, admin, "admin", contracts.ErrNotAdmin)
		return nil, contracts.ErrNotAdmin
	}
	if governance != cfg.Governance {
		_ = m.logger.Denial(ctx, governance, "governance", contracts.ErrNotGovernance)
		return nil, contracts.ErrNotGovernance
	}
	if !cfg.Enabled {
		return nil, contracts.ErrEmergencyDisabled
	}
	if amount <= 0 {
		return nil, contracts.ErrInvalidAmount
	}
	available, err := m.ledger.Available(identity)
	if err != nil {
		return nil, err
	}
	if amount > available {
		return nil, contracts.ErrInsufficientAvailable
	}

	fee, net, err := treasury.SplitFee(amount, cfg.FeeBps)
	if err != nil {
		return nil, err
	}

	// Effects before interactions: the availability check above makes
	// the debit infallible while the lock is held.
	if err := m.ledger.EmergencyDebit(ctx, identity, amount); err != nil {
		return nil, err
	}

	if net > 0 {
		if err := m.tok.Transfer(ctx, m.custody, identity, net); err != nil {
			_ = m.ledger.EmergencyCredit(ctx, identity, amount)
			return nil, err
		}
	}
	if fee > 0 {
		if err := m.tok.Transfer(ctx, m.custody, cfg.Treasury, fee); err != nil {
			// The net portion already left custody; restore only the
			// unpaid remainder so bond and custody stay in step.
			_ = m.ledger.EmergencyCredit(ctx, identity, fee)
			return nil, err
		}
	}

	m.mu.Lock()
	m.counter++
	record := contracts.EmergencyRecord{
		ID:                 m.counter,
		Identity:           identity,
		GrossAmount:        amount,
		FeeAmount:          fee,
		NetAmount:          net,
		Treasury:           cfg.Treasury,
		ApprovedAdmin:      admin,
		ApprovedGovernance: governance,
		Reason:             reason,
		Timestamp:          m.clock(),
	}
	m.records = append(m.records, record)
	m.mu.Unlock()

	if _, err := m.trail.Append("emergency_withdrawal", admin, record); err != nil {
		return nil, err
	}

	_ = m.logger.Record(ctx, audit.ClassEmergency, contracts.EventEmergencyWithdrawal, admin, identity, map[string]interface{}{
		"record_id": record.ID,
		"identity":  identity,
		"gross":     record.GrossAmount,
		"fee":       record.FeeAmount,
		"net":       record.NetAmount,
		"reason":    reason,
		"timestamp": record.Timestamp,
	})

	copied := record
	return &copied, nil
}
