// Package governance implements the proposal/vote/execute state machine
// that gates slashing behind multi-party approval. Proposals move from
// Pending to Approved or Rejected on votes, and from Approved to
// Executed when an executor applies the slash; Disputed is an interlock
// that freezes a proposal until the admin resolves it.
package governance

import (
	"context"
	"sync"
	"time"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/contracts"
)

// Slasher applies an approved forfeit to a bond. The custody engine's
// executor satisfies this.
type Slasher interface {
	ApplySlash(ctx context.Context, identity string, amount int64, proposalID uint64, executor string) (*contracts.Bond, error)
}

// Config parameterizes the governance engine.
type Config struct {
	// Admin may veto pending proposals and resolve disputes.
	Admin string
	// QuorumBps is the approval-weight threshold, in basis points of
	// the total governor weight.
	QuorumBps uint32
	// MinGovernors is the smallest governor set that counts as
	// initialized. Below it every proposal operation fails closed.
	MinGovernors int
}

type voteKey struct {
	proposalID uint64
	voter      string
}

// Engine owns SlashProposal and Vote records exclusively.
type Engine struct {
	mu        sync.Mutex
	cfg       Config
	governors map[string]int64
	delegates map[string]string
	proposals map[uint64]*contracts.SlashProposal
	votes     map[voteKey]*contracts.Vote
	counter   uint64

	// executing marks proposals whose slash is in flight, so the
	// Approved to Executed transition fires exactly once even when
	// executors race while mu is released around the slasher call.
	executing map[uint64]bool

	slasher Slasher
	logger  audit.Logger
	clock   func() time.Time
}

// NewEngine wires the governance engine to the slashing executor.
func NewEngine(cfg Config, slasher Slasher, logger audit.Logger) *Engine {
	if cfg.QuorumBps == 0 {
		cfg.QuorumBps = 6000
	}
	if cfg.MinGovernors == 0 {
		cfg.MinGovernors = 1
	}
	if logger == nil {
		logger = audit.Nop()
	}
	return &Engine{
		cfg:       cfg,
		governors: make(map[string]int64),
		delegates: make(map[string]string),
		proposals: make(map[uint64]*contracts.SlashProposal),
		votes:     make(map[voteKey]*contracts.Vote),
		executing: make(map[uint64]bool),
		slasher:   slasher,
		logger:    logger,
		clock:     time.Now,
	}
}

// WithClock overrides the time source. For tests.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// AddGovernor grants voting rights with the given weight. Admin only.
// Re-adding an existing governor updates the weight.
func (e *Engine) AddGovernor(ctx context.Context, caller, addr string, weight int64) error {
	if err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if weight <= 0 {
		return contracts.ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.governors[addr] = weight
	return nil
}

// RemoveGovernor revokes voting rights. Admin only. Votes already cast
// keep the weight they were cast with.
func (e *Engine) RemoveGovernor(ctx context.Context, caller, addr string) error {
	if err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.governors[addr]; !ok {
		return contracts.ErrNotGovernor
	}
	delete(e.governors, addr)
	delete(e.delegates, addr)
	return nil
}

// Delegate routes the delegator's ballot through another governor. The
// delegate's future votes carry the delegator's weight; a delegator who
// already voted on a proposal is not recounted there. Delegating to the
// empty string revokes the delegation.
func (e *Engine) Delegate(ctx context.Context, delegator, delegate string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.governors[delegator]; !ok {
		_ = e.logger.Denial(ctx, delegator, "governor", contracts.ErrNotGovernor)
		return contracts.ErrNotGovernor
	}
	if delegate == "" {
		delete(e.delegates, delegator)
		return nil
	}
	if _, ok := e.governors[delegate]; !ok {
		return contracts.ErrNotGovernor
	}
	e.delegates[delegator] = delegate
	return nil
}

// Governors returns the current governor set.
func (e *Engine) Governors() []contracts.Governor {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]contracts.Governor, 0, len(e.governors))
	for addr, weight := range e.governors {
		out = append(out, contracts.Governor{Address: addr, Weight: weight})
	}
	return out
}

// IsGovernor reports whether addr holds voting rights.
func (e *Engine) IsGovernor(addr string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.governors[addr]
	return ok
}

// TotalWeight is the sum of all governor weights.
func (e *Engine) TotalWeight() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalWeightLocked()
}

// Proposal returns a copy of the proposal with the given id.
func (e *Engine) Proposal(id uint64) (*contracts.SlashProposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.proposals[id]
	if !ok {
		return nil, contracts.ErrProposalNotFound
	}
	copied := *p
	copied.EvidenceIDs = append([]uint64(nil), p.EvidenceIDs...)
	return &copied, nil
}

// VoteOf returns the recorded ballot of voter on a proposal, if any.
func (e *Engine) VoteOf(proposalID uint64, voter string) (*contracts.Vote, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.votes[voteKey{proposalID, voter}]
	if !ok {
		return nil, false
	}
	copied := *v
	return &copied, true
}

func (e *Engine) requireAdmin(ctx context.Context, caller string) error {
	if caller != e.cfg.Admin {
		_ = e.logger.Denial(ctx, caller, "admin", contracts.ErrNotAdmin)
		return contracts.ErrNotAdmin
	}
	return nil
}

// requireGovernorLocked also enforces the fail-closed minimum set size.
func (e *Engine) requireGovernorLocked(ctx context.Context, caller string) (int64, error) {
	if len(e.governors) < e.cfg.MinGovernors {
		return 0, contracts.ErrGovernanceUninitialized
	}
	weight, ok := e.governors[caller]
	if !ok {
		_ = e.logger.Denial(ctx, caller, "governor", contracts.ErrNotGovernor)
		return 0, contracts.ErrNotGovernor
	}
	return weight, nil
}

func (e *Engine) totalWeightLocked() int64 {
	var total int64
	for _, w := range e.governors {
		total += w
	}
	return total
}

// quorumReachedLocked evaluates approvals_weight/total >= quorum_bps/10000
// without division, so small weights are not truncated away.
func (e *Engine) quorumReachedLocked(approvalWeight int64) bool {
	total := e.totalWeightLocked()
	if total <= 0 {
		return false
	}
	return approvalWeight*10_000 >= total*int64(e.cfg.QuorumBps)
}

// quorumUnreachableLocked reports whether the standing rejections leave
// too little weight for the quorum ever to be met.
func (e *Engine) quorumUnreachableLocked(rejectWeight int64) bool {
	total := e.totalWeightLocked()
	if total <= 0 {
		return true
	}
	return (total-rejectWeight)*10_000 < total*int64(e.cfg.QuorumBps)
}
