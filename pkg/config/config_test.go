package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "INFO", cfg.LogLevel)
	require.NotEmpty(t, cfg.DatabaseURL)
	require.Equal(t, "default", cfg.Profile)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PROFILE", "testnet")

	cfg := Load()
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, "testnet", cfg.Profile)
}

func writeProfile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, "profile_"+name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "testnet", `
name: testnet
bond:
  min_amount: 1000000
  max_amount: 100000000000000
  max_duration_hours: 87600
  creation_fee_bps: 100
  early_exit_penalty_bps: 500
  custody_account: custody
governance:
  quorum_bps: 6000
  min_governors: 3
emergency:
  governance: gov-addr
  treasury: treasury-addr
  fee_bps: 250
  enabled: true
`)

	p, err := LoadProfile(dir, "testnet")
	require.NoError(t, err)
	require.Equal(t, "testnet", p.Name)
	require.Equal(t, int64(1_000_000), p.Bond.MinAmount)
	require.Equal(t, 87600*time.Hour, p.Bond.MaxDuration())
	require.Equal(t, uint32(6000), p.Governance.QuorumBps)
	require.Equal(t, 3, p.Governance.MinGovernors)
	require.True(t, p.Emergency.Enabled)
	require.Equal(t, uint32(250), p.Emergency.FeeBps)
}

func TestLoadProfileEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "testnet", `
bond:
  min_amount: 1000000
`)
	t.Setenv("BOND_MIN_AMOUNT", "5000000")

	p, err := LoadProfile(dir, "testnet")
	require.NoError(t, err)
	require.Equal(t, int64(5_000_000), p.Bond.MinAmount)
}

func TestLoadProfileMissing(t *testing.T) {
	_, err := LoadProfile(t.TempDir(), "nosuch")
	require.Error(t, err)
}
