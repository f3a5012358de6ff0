package contracts

import "time"

// BondTier buckets a bond by its bonded amount. Crossing a tier boundary
// emits a tier_changed event.
type BondTier string

const (
	TierBronze   BondTier = "BRONZE"
	TierSilver   BondTier = "SILVER"
	TierGold     BondTier = "GOLD"
	TierPlatinum BondTier = "PLATINUM"
)

// Bond is the collateral record custodied for a single identity.
// At most one active bond exists per identity.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type Bond struct {
	Identity              string        `json:"identity"`
	BondedAmount          int64         `json:"bonded_amount"`
	SlashedAmount         int64         `json:"slashed_amount"`
	BondStart             time.Time     `json:"bond_start"`
	BondDuration          time.Duration `json:"bond_duration"`
	Active                bool          `json:"active"`
	IsRolling             bool          `json:"is_rolling"`
	WithdrawalRequestedAt time.Time     `json:"withdrawal_requested_at,omitzero"`
	NoticePeriod          time.Duration `json:"notice_period,omitempty"`
}

// Available returns the withdrawable residual (bonded minus slashed).
func (b *Bond) Available() int64 {
	return b.BondedAmount - b.SlashedAmount
}

// End returns the lock-up end timestamp.
func (b *Bond) End() time.Time {
	return b.BondStart.Add(b.BondDuration)
}

// SlashEntry is one append-only slash-history record.
type SlashEntry struct {
	Identity   string    `json:"identity"`
	Amount     int64     `json:"amount"`
	ProposalID uint64    `json:"proposal_id"`
	Executor   string    `json:"executor"`
	Timestamp  time.Time `json:"timestamp"`
}
