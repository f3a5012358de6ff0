package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile is a deployment-specific parameter set: bond limits, quorum
// thresholds and fee rates vary per network, the engine code does not.
type Profile struct {
	Name       string           `yaml:"name" json:"name"`
	Bond       BondConfig       `yaml:"bond" json:"bond"`
	Governance GovernanceConfig `yaml:"governance" json:"governance"`
	Emergency  EmergencyConfig  `yaml:"emergency" json:"emergency"`
}

// BondConfig bounds bond amounts, durations and lifecycle fees.
type BondConfig struct {
	MinAmount           int64  `yaml:"min_amount" json:"min_amount"`
	MaxAmount           int64  `yaml:"max_amount" json:"max_amount"`
	MaxDurationHours    int64  `yaml:"max_duration_hours" json:"max_duration_hours"`
	CreationFeeBps      uint32 `yaml:"creation_fee_bps" json:"creation_fee_bps"`
	EarlyExitPenaltyBps uint32 `yaml:"early_exit_penalty_bps" json:"early_exit_penalty_bps"`
	CustodyAccount      string `yaml:"custody_account" json:"custody_account"`
}

// MaxDuration returns the duration bound as a time.Duration.
func (c BondConfig) MaxDuration() time.Duration {
	return time.Duration(c.MaxDurationHours) * time.Hour
}

// GovernanceConfig holds the quorum rule per deployment.
type GovernanceConfig struct {
	QuorumBps    uint32 `yaml:"quorum_bps" json:"quorum_bps"`
	MinGovernors int    `yaml:"min_governors" json:"min_governors"`
}

// EmergencyConfig parameterizes the crisis channel.
type EmergencyConfig struct {
	Governance string `yaml:"governance" json:"governance"`
	Treasury   string `yaml:"treasury" json:"treasury"`
	FeeBps     uint32 `yaml:"fee_bps" json:"fee_bps"`
	Enabled    bool   `yaml:"enabled" json:"enabled"`
}

// LoadProfile loads a deployment profile YAML by name. It searches the
// profiles directory for profile_<name>.yaml, then applies environment
// overrides for the bond limits.
func LoadProfile(profilesDir, name string) (*Profile, error) {
	name = strings.ToLower(name)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", name))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", name, err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", name, err)
	}

	if profile.Name == "" {
		profile.Name = name
	}
	profile.Bond.MinAmount = envInt64("BOND_MIN_AMOUNT", profile.Bond.MinAmount)
	profile.Bond.MaxAmount = envInt64("BOND_MAX_AMOUNT", profile.Bond.MaxAmount)

	return &profile, nil
}
