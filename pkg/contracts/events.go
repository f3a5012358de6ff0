package contracts

// Event names emitted by the custody and governance engines. Payload
// shapes are documented next to each constant; emission goes through the
// audit logger so every event lands in the same JSON stream.
const (
	EventBondCreated         = "bond_created"          // identity, amount, duration
	EventBondRenewed         = "bond_renewed"          // identity, bond_start, duration
	EventBondSlashed         = "bond_slashed"          // identity, proposal_id, amount
	EventTierChanged         = "tier_changed"          // identity, old_tier, new_tier
	EventWithdrawalRequested = "withdrawal_requested"  // identity, requested_at
	EventEarlyExitPenalty    = "early_exit_penalty"    // identity, amount, penalty, treasury
	EventProposalCreated     = "proposal_created"      // id, proposer, amount
	EventProposalVoted       = "proposal_voted"        // id, voter, approve
	EventProposalExecuted    = "proposal_executed"     // id
	EventProposalDisputed    = "proposal_disputed"     // id, disputer, reason
	EventEmergencyMode       = "emergency_mode"        // enabled, admin, governance, timestamp
	EventEmergencyWithdrawal = "emergency_withdrawal"  // record_id, identity, gross, fee, net, reason, timestamp
	EventAccessDenied        = "access_denied"         // caller, role, reason
	EventFeesCollected       = "fees_collected"        // admin, amount
	EventEvidenceSubmitted   = "evidence_submitted"    // id, proposal_id, hash, submitted_by
)
