package emergency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/bond"
	"github.com/credence-labs/credence-core/pkg/contracts"
	"github.com/credence-labs/credence-core/pkg/registry"
	"github.com/credence-labs/credence-core/pkg/token"
	"github.com/credence-labs/credence-core/pkg/treasury"
)

type fixture struct {
	module *Module
	bonds  *bond.Engine
	tok    *token.InMemory
	now    time.Time
}

func newFixture(t *testing.T, cfg contracts.EmergencyConfig) *fixture {
	t.Helper()
	tok := token.NewInMemory()
	tok.Mint("alice", 1000)
	tok.Approve("alice", "custody", 1000)

	bondCfg := bond.DefaultConfig()
	bondCfg.MinBondAmount = 1
	bondCfg.Admin = "admin"

	f := &fixture{tok: tok, now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	f.bonds = bond.NewEngine(bondCfg, tok, treasury.NewAdapter("treasury", tok), registry.Nop{}, audit.Nop()).
		WithClock(func() time.Time { return f.now })
	f.module = NewModule("admin", "custody", f.bonds, tok, audit.Nop()).
		WithClock(func() time.Time { return f.now })

	ctx := context.Background()
	require.NoError(t, f.module.SetEmergencyConfig(ctx, "admin", cfg))
	_, err := f.bonds.CreateBond(ctx, "alice", "alice", 1000, 365*24*time.Hour)
	require.NoError(t, err)
	return f
}

func enabledConfig(feeBps uint32) contracts.EmergencyConfig {
	return contracts.EmergencyConfig{
		Governance: "governance",
		Treasury:   "treasury",
		FeeBps:     feeBps,
		Enabled:    true,
	}
}

func TestSetEmergencyConfig(t *testing.T) {
	f := newFixture(t, enabledConfig(250))
	ctx := context.Background()

	require.ErrorIs(t, f.module.SetEmergencyConfig(ctx, "mallory", enabledConfig(250)), contracts.ErrNotAdmin)

	bad := enabledConfig(10_001)
	require.ErrorIs(t, f.module.SetEmergencyConfig(ctx, "admin", bad), contracts.ErrInvalidFeeBps)

	require.Equal(t, uint32(250), f.module.Config().FeeBps)
}

func TestSetEmergencyModeRequiresBothPrincipals(t *testing.T) {
	f := newFixture(t, enabledConfig(250))
	ctx := context.Background()

	require.ErrorIs(t, f.module.SetEmergencyMode(ctx, "mallory", "governance", false), contracts.ErrNotAdmin)
	require.ErrorIs(t, f.module.SetEmergencyMode(ctx, "admin", "mallory", false), contracts.ErrNotGovernance)
	require.True(t, f.module.Config().Enabled)

	require.NoError(t, f.module.SetEmergencyMode(ctx, "admin", "governance", false))
	require.False(t, f.module.Config().Enabled)
}

func TestSetEmergencyModeUnconfigured(t *testing.T) {
	module := NewModule("admin", "custody", nil, token.NewInMemory(), audit.Nop())
	err := module.SetEmergencyMode(context.Background(), "admin", "governance", true)
	require.ErrorIs(t, err, contracts.ErrEmergencyUnconfigured)
}

// fee = 1000 * 250 / 10000 = 25, net = 975, exactly.
func TestWithdrawFeeMath(t *testing.T) {
	f := newFixture(t, enabledConfig(250))
	ctx := context.Background()

	record, err := f.module.Withdraw(ctx, "admin", "governance", "alice", 1000, "compromise")
	require.NoError(t, err)
	require.Equal(t, uint64(1), record.ID)
	require.Equal(t, int64(1000), record.GrossAmount)
	require.Equal(t, int64(25), record.FeeAmount)
	require.Equal(t, int64(975), record.NetAmount)
	require.Equal(t, "compromise", record.Reason)

	alice, _ := f.tok.BalanceOf(ctx, "alice")
	require.Equal(t, int64(975), alice)
	treasuryBal, _ := f.tok.BalanceOf(ctx, "treasury")
	require.Equal(t, int64(25), treasuryBal)
	custody, _ := f.tok.BalanceOf(ctx, "custody")
	require.Equal(t, int64(0), custody)

	b, err := f.bonds.Bond("alice")
	require.NoError(t, err)
	require.Equal(t, int64(0), b.BondedAmount)
	require.False(t, b.Active)
}

// fee = 7 * 1 / 10000 rounds down to zero.
func TestWithdrawFeeRoundsDown(t *testing.T) {
	f := newFixture(t, enabledConfig(1))
	ctx := context.Background()

	record, err := f.module.Withdraw(ctx, "admin", "governance", "alice", 7, "dust")
	require.NoError(t, err)
	require.Equal(t, int64(0), record.FeeAmount)
	require.Equal(t, int64(7), record.NetAmount)
}

func TestWithdrawValidationOrder(t *testing.T) {
	f := newFixture(t, enabledConfig(250))
	ctx := context.Background()

	// Wrong admin wins over every later failure.
	_, err := f.module.Withdraw(ctx, "mallory", "mallory", "alice", -1, "")
	require.ErrorIs(t, err, contracts.ErrNotAdmin)

	// Wrong governance wins over disabled mode and bad amounts.
	_, err = f.module.Withdraw(ctx, "admin", "mallory", "alice", -1, "")
	require.ErrorIs(t, err, contracts.ErrNotGovernance)

	require.NoError(t, f.module.SetEmergencyMode(ctx, "admin", "governance", false))
	_, err = f.module.Withdraw(ctx, "admin", "governance", "alice", -1, "")
	require.ErrorIs(t, err, contracts.ErrEmergencyDisabled)

	require.NoError(t, f.module.SetEmergencyMode(ctx, "admin", "governance", true))
	_, err = f.module.Withdraw(ctx, "admin", "governance", "alice", 0, "")
	require.ErrorIs(t, err, contracts.ErrInvalidAmount)

	_, err = f.module.Withdraw(ctx, "admin", "governance", "alice", 1001, "")
	require.ErrorIs(t, err, contracts.ErrInsufficientAvailable)
}

// A mismatched governance principal is an authorization failure and
// leaves balances and the bond untouched.
func TestWithdrawMismatchedGovernanceNoStateChange(t *testing.T) {
	f := newFixture(t, enabledConfig(250))
	ctx := context.Background()

	_, err := f.module.Withdraw(ctx, "admin", "mallory", "alice", 500, "grab")
	require.ErrorIs(t, err, contracts.ErrNotGovernance)
	require.Equal(t, contracts.KindAuthorization, contracts.KindOf(err))

	custody, _ := f.tok.BalanceOf(ctx, "custody")
	require.Equal(t, int64(1000), custody)
	b, err := f.bonds.Bond("alice")
	require.NoError(t, err)
	require.Equal(t, int64(1000), b.BondedAmount)
	require.Empty(t, f.module.Records())
}

func TestWithdrawRespectsSlashedResidual(t *testing.T) {
	f := newFixture(t, enabledConfig(0))
	ctx := context.Background()

	_, err := f.bonds.ApplySlash(ctx, "alice", 400, 1, "governance")
	require.NoError(t, err)

	_, err = f.module.Withdraw(ctx, "admin", "governance", "alice", 700, "")
	require.ErrorIs(t, err, contracts.ErrInsufficientAvailable)

	record, err := f.module.Withdraw(ctx, "admin", "governance", "alice", 600, "")
	require.NoError(t, err)
	require.Equal(t, int64(600), record.NetAmount)
}

// A token transfer callback that re-enters the bond engine while an
// emergency withdrawal is moving funds must be rejected: the module
// holds the shared custody execution lock across the whole call.
func TestWithdrawRejectsReentrantSlash(t *testing.T) {
	f := newFixture(t, enabledConfig(250))
	ctx := context.Background()

	var hookErr error
	f.tok.TransferHook = func(from, to string, amount int64) {
		if from != "custody" || to != "alice" {
			return
		}
		_, hookErr = f.bonds.ApplySlash(ctx, "alice", 100, 7, "governance")
	}

	record, err := f.module.Withdraw(ctx, "admin", "governance", "alice", 1000, "compromise")
	require.NoError(t, err)
	require.ErrorIs(t, hookErr, contracts.ErrReentrantCall)
	require.Equal(t, int64(975), record.NetAmount)

	b, err := f.bonds.Bond("alice")
	require.NoError(t, err)
	require.Equal(t, int64(0), b.SlashedAmount)
	require.Equal(t, int64(0), b.BondedAmount)

	alice, _ := f.tok.BalanceOf(ctx, "alice")
	treasuryBal, _ := f.tok.BalanceOf(ctx, "treasury")
	custody, _ := f.tok.BalanceOf(ctx, "custody")
	require.Equal(t, int64(1000), alice+treasuryBal+custody)
}

// When the payout transfer itself fails, the debit is reversed and
// the bond stays in step with custody: nothing slashed, nothing
// recorded, the full amount still bonded.
func TestWithdrawTransferFailureRestoresBond(t *testing.T) {
	f := newFixture(t, enabledConfig(0))
	ctx := context.Background()

	// Empty custody out from under the module so the payout fails
	// after the five validation checks pass.
	require.NoError(t, f.tok.Transfer(ctx, "custody", "vault", 1000))

	_, err := f.module.Withdraw(ctx, "admin", "governance", "alice", 1000, "")
	require.ErrorIs(t, err, token.ErrInsufficientBalance)

	b, err := f.bonds.Bond("alice")
	require.NoError(t, err)
	require.Equal(t, int64(1000), b.BondedAmount)
	require.True(t, b.Active)
	require.Empty(t, f.module.Records())
}

func TestRecordsAreMonotonicAndChained(t *testing.T) {
	f := newFixture(t, enabledConfig(0))
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		record, err := f.module.Withdraw(ctx, "admin", "governance", "alice", 100, "drain")
		require.NoError(t, err)
		require.Equal(t, uint64(i), record.ID)
	}

	records := f.module.Records()
	require.Len(t, records, 3)
	ok, _ := f.module.Trail().Verify()
	require.True(t, ok)
	require.Equal(t, 3, f.module.Trail().Length())

	got, err := f.module.Record(2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), got.ID)

	_, err = f.module.Record(99)
	require.ErrorIs(t, err, contracts.ErrRecordNotFound)
}
