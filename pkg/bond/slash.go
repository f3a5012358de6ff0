package bond

import (
	"context"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/contracts"
	"github.com/credence-labs/credence-core/pkg/safemath"
)

// ApplySlash forfeits part of an identity's bond following an approved
// proposal. It performs no authorization of its own: gating a slash
// behind quorum is the governance engine's responsibility, and this
// executor trusts its caller.
//
// The new slashed total must not exceed the bonded amount; the forfeit
// is recorded in the append-only slash history before the call returns.
func (e *Engine) ApplySlash(ctx context.Context, identity string, amount int64, proposalID uint64, executor string) (*contracts.Bond, error) {
	if err := e.lock.TryAcquire(); err != nil {
		return nil, err
	}
	defer e.lock.Release()

	if err := safemath.RequirePositive(amount); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.activeBond(identity)
	if err != nil {
		return nil, err
	}

	newSlashed, err := safemath.Add(b.SlashedAmount, amount)
	if err != nil {
		return nil, err
	}
	if newSlashed > b.BondedAmount {
		return nil, contracts.ErrSlashExceedsBond
	}

	entry := contracts.SlashEntry{
		Identity:   identity,
		Amount:     amount,
		ProposalID: proposalID,
		Executor:   executor,
		Timestamp:  e.clock(),
	}
	if _, err := e.history.Append("slash", executor, entry); err != nil {
		return nil, err
	}

	b.SlashedAmount = newSlashed
	copied := *b

	_ = e.logger.Record(ctx, audit.ClassGovernance, contracts.EventBondSlashed, executor, identity, map[string]interface{}{
		"proposal_id": proposalID,
		"amount":      amount,
		"slashed":     newSlashed,
	})
	return &copied, nil
}
