package contracts

import "time"

// ProposalStatus is the lifecycle state of a slash proposal.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "PENDING"
	ProposalApproved ProposalStatus = "APPROVED"
	ProposalRejected ProposalStatus = "REJECTED"
	ProposalExecuted ProposalStatus = "EXECUTED"
	ProposalDisputed ProposalStatus = "DISPUTED"
)

// Terminal reports whether no further transitions are possible.
func (s ProposalStatus) Terminal() bool {
	return s == ProposalRejected || s == ProposalExecuted
}

// SlashProposal is a governance request to forfeit part of a bond.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type SlashProposal struct {
	ID             uint64         `json:"id"`
	Identity       string         `json:"identity"`
	Amount         int64          `json:"amount"`
	Reason         string         `json:"reason"`
	Proposer       string         `json:"proposer"`
	Status         ProposalStatus `json:"status"`
	ApprovalWeight int64          `json:"approval_weight"`
	RejectWeight   int64          `json:"reject_weight"`
	EvidenceIDs    []uint64       `json:"evidence_ids,omitempty"`
	DisputeReason  string         `json:"dispute_reason,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Vote records one governor's write-once ballot on a proposal.
type Vote struct {
	ProposalID uint64    `json:"proposal_id"`
	Voter      string    `json:"voter"`
	Approve    bool      `json:"approve"`
	Weight     int64     `json:"weight"`
	CastAt     time.Time `json:"cast_at"`
}

// Governor is a principal entitled to vote on slash proposals.
type Governor struct {
	Address string `json:"address"`
	Weight  int64  `json:"weight"`
}
