package governance

import (
	"context"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/contracts"
)

// ProposeSlash opens a proposal to forfeit amount from identity's bond.
// The proposer's own ballot is cast as an approval immediately, so a
// single-governor configuration reaches quorum on proposal.
func (e *Engine) ProposeSlash(ctx context.Context, proposer, identity string, amount int64, reason string, evidenceIDs []uint64) (*contracts.SlashProposal, error) {
	if amount <= 0 {
		return nil, contracts.ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	weight, err := e.requireGovernorLocked(ctx, proposer)
	if err != nil {
		return nil, err
	}

	e.counter++
	p := &contracts.SlashProposal{
		ID:          e.counter,
		Identity:    identity,
		Amount:      amount,
		Reason:      reason,
		Proposer:    proposer,
		Status:      contracts.ProposalPending,
		EvidenceIDs: append([]uint64(nil), evidenceIDs...),
		CreatedAt:   e.clock(),
	}
	e.proposals[p.ID] = p

	e.tallyLocked(p, proposer, weight, true)

	_ = e.logger.Record(ctx, audit.ClassGovernance, contracts.EventProposalCreated, proposer, identity, map[string]interface{}{
		"id":       p.ID,
		"proposer": proposer,
		"amount":   amount,
		"evidence": p.EvidenceIDs,
	})

	copied := *p
	copied.EvidenceIDs = append([]uint64(nil), p.EvidenceIDs...)
	return &copied, nil
}

// Vote casts a write-once ballot. An approval that reaches quorum moves
// the proposal to Approved; a rejection that makes quorum unreachable
// moves it to Rejected.
func (e *Engine) Vote(ctx context.Context, proposalID uint64, voter string, approve bool) (*contracts.SlashProposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	weight, err := e.requireGovernorLocked(ctx, voter)
	if err != nil {
		return nil, err
	}
	p, ok := e.proposals[proposalID]
	if !ok {
		return nil, contracts.ErrProposalNotFound
	}
	if p.Status != contracts.ProposalPending {
		return nil, contracts.ErrProposalNotPending
	}
	if _, voted := e.votes[voteKey{proposalID, voter}]; voted {
		return nil, contracts.ErrAlreadyVoted
	}

	e.tallyLocked(p, voter, weight, approve)

	_ = e.logger.Record(ctx, audit.ClassGovernance, contracts.EventProposalVoted, voter, p.Identity, map[string]interface{}{
		"id":      proposalID,
		"voter":   voter,
		"approve": approve,
	})

	copied := *p
	return &copied, nil
}

// tallyLocked records the ballot for voter and, through delegation
// lookup, for every delegator routed to voter who has not voted on this
// proposal themselves. Status transitions are evaluated afterwards.
func (e *Engine) tallyLocked(p *contracts.SlashProposal, voter string, weight int64, approve bool) {
	now := e.clock()
	cast := func(principal string, w int64) {
		e.votes[voteKey{p.ID, principal}] = &contracts.Vote{
			ProposalID: p.ID,
			Voter:      principal,
			Approve:    approve,
			Weight:     w,
			CastAt:     now,
		}
		if approve {
			p.ApprovalWeight += w
		} else {
			p.RejectWeight += w
		}
	}

	cast(voter, weight)
	for delegator, delegate := range e.delegates {
		if delegate != voter {
			continue
		}
		if _, voted := e.votes[voteKey{p.ID, delegator}]; voted {
			continue
		}
		cast(delegator, e.governors[delegator])
	}

	if p.Status != contracts.ProposalPending {
		return
	}
	if e.quorumReachedLocked(p.ApprovalWeight) {
		p.Status = contracts.ProposalApproved
	} else if e.quorumUnreachableLocked(p.RejectWeight) {
		p.Status = contracts.ProposalRejected
	}
}

// ExecuteSlashProposal applies an approved proposal through the
// slashing executor and marks it Executed. Quorum is re-evaluated here
// for proposals still Pending, so weight changes since the last vote
// are taken into account.
func (e *Engine) ExecuteSlashProposal(ctx context.Context, executor string, proposalID uint64) (*contracts.Bond, error) {
	e.mu.Lock()
	if len(e.governors) < e.cfg.MinGovernors {
		e.mu.Unlock()
		return nil, contracts.ErrGovernanceUninitialized
	}
	p, ok := e.proposals[proposalID]
	if !ok {
		e.mu.Unlock()
		return nil, contracts.ErrProposalNotFound
	}
	if p.Status.Terminal() || e.executing[proposalID] {
		e.mu.Unlock()
		return nil, contracts.ErrAlreadyExecuted
	}
	if p.Status == contracts.ProposalPending && e.quorumReachedLocked(p.ApprovalWeight) {
		p.Status = contracts.ProposalApproved
	}
	if p.Status != contracts.ProposalApproved {
		e.mu.Unlock()
		return nil, contracts.ErrProposalNotApproved
	}
	e.executing[proposalID] = true
	identity, amount := p.Identity, p.Amount
	e.mu.Unlock()

	b, err := e.slasher.ApplySlash(ctx, identity, amount, proposalID, executor)

	e.mu.Lock()
	delete(e.executing, proposalID)
	if err != nil {
		// The proposal stays Approved so execution can be retried.
		e.mu.Unlock()
		return nil, err
	}
	p.Status = contracts.ProposalExecuted
	e.mu.Unlock()

	_ = e.logger.Record(ctx, audit.ClassGovernance, contracts.EventProposalExecuted, executor, identity, map[string]interface{}{
		"id": proposalID,
	})
	return b, nil
}

// RejectProposal is the admin veto of a pending proposal.
func (e *Engine) RejectProposal(ctx context.Context, caller string, proposalID uint64) (*contracts.SlashProposal, error) {
	if err := e.requireAdmin(ctx, caller); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.proposals[proposalID]
	if !ok {
		return nil, contracts.ErrProposalNotFound
	}
	if p.Status != contracts.ProposalPending {
		return nil, contracts.ErrProposalNotPending
	}
	p.Status = contracts.ProposalRejected

	copied := *p
	return &copied, nil
}

// Dispute freezes a pending or approved proposal until the admin
// resolves it. Only governors may dispute.
func (e *Engine) Dispute(ctx context.Context, disputer string, proposalID uint64, reason string) (*contracts.SlashProposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireGovernorLocked(ctx, disputer); err != nil {
		return nil, err
	}
	p, ok := e.proposals[proposalID]
	if !ok {
		return nil, contracts.ErrProposalNotFound
	}
	if p.Status != contracts.ProposalPending && p.Status != contracts.ProposalApproved {
		return nil, contracts.ErrProposalNotPending
	}
	if e.executing[proposalID] {
		return nil, contracts.ErrAlreadyExecuted
	}
	p.Status = contracts.ProposalDisputed
	p.DisputeReason = reason

	_ = e.logger.Record(ctx, audit.ClassGovernance, contracts.EventProposalDisputed, disputer, p.Identity, map[string]interface{}{
		"id":       proposalID,
		"disputer": disputer,
		"reason":   reason,
	})

	copied := *p
	return &copied, nil
}

// ResolveDispute closes a dispute. Approving the resolution restores
// Approved when the standing tally already meets quorum, Pending
// otherwise; rejecting it makes the proposal terminal.
func (e *Engine) ResolveDispute(ctx context.Context, caller string, proposalID uint64, approved bool) (*contracts.SlashProposal, error) {
	if err := e.requireAdmin(ctx, caller); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.proposals[proposalID]
	if !ok {
		return nil, contracts.ErrProposalNotFound
	}
	if p.Status != contracts.ProposalDisputed {
		return nil, contracts.ErrProposalNotDisputed
	}

	if !approved {
		p.Status = contracts.ProposalRejected
	} else if e.quorumReachedLocked(p.ApprovalWeight) {
		p.Status = contracts.ProposalApproved
	} else {
		p.Status = contracts.ProposalPending
	}
	p.DisputeReason = ""

	copied := *p
	return &copied, nil
}
