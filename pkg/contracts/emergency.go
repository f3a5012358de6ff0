package contracts

import "time"

// EmergencyConfig is the singleton configuration of the emergency
// withdrawal channel. Mutable by the admin only.
type EmergencyConfig struct {
	Governance string `json:"governance"`
	Treasury   string `json:"treasury"`
	FeeBps     uint32 `json:"emergency_fee_bps"`
	Enabled    bool   `json:"enabled"`
}

// EmergencyRecord is the immutable audit record of one emergency
// withdrawal. No update or delete operation exists.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type EmergencyRecord struct {
	ID                 uint64    `json:"id"`
	Identity           string    `json:"identity"`
	GrossAmount        int64     `json:"gross_amount"`
	FeeAmount          int64     `json:"fee_amount"`
	NetAmount          int64     `json:"net_amount"`
	Treasury           string    `json:"treasury"`
	ApprovedAdmin      string    `json:"approved_admin"`
	ApprovedGovernance string    `json:"approved_governance"`
	Reason             string    `json:"reason"`
	Timestamp          time.Time `json:"timestamp"`
}
