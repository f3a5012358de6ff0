package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/contracts"
)

func TestRegistryGrants(t *testing.T) {
	r := NewRegistry(audit.Nop())
	ctx := context.Background()

	require.ErrorIs(t, r.RequireAdmin(ctx, "alice"), contracts.ErrNotAdmin)

	r.Grant("alice", RoleAdmin)
	require.NoError(t, r.RequireAdmin(ctx, "alice"))
	require.True(t, r.HasRole("alice", RoleAdmin))
	require.False(t, r.HasRole("alice", RoleGovernor))

	r.Revoke("alice", RoleAdmin)
	require.ErrorIs(t, r.RequireAdmin(ctx, "alice"), contracts.ErrNotAdmin)
}

func TestRequireGovernor(t *testing.T) {
	r := NewRegistry(audit.Nop())
	ctx := context.Background()

	require.ErrorIs(t, r.RequireGovernor(ctx, "g1"), contracts.ErrNotGovernor)
	r.Grant("g1", RoleGovernor)
	require.NoError(t, r.RequireGovernor(ctx, "g1"))
}

func TestRequireOwner(t *testing.T) {
	r := NewRegistry(audit.Nop())
	ctx := context.Background()

	require.NoError(t, r.RequireOwner(ctx, "alice", "alice"))
	require.ErrorIs(t, r.RequireOwner(ctx, "mallory", "alice"), contracts.ErrNotAuthorized)
}

func TestDenialIsLogged(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry(audit.NewLoggerWithWriter(&buf))

	require.Error(t, r.RequireAdmin(context.Background(), "mallory"))

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	require.Equal(t, contracts.EventAccessDenied, event["name"])
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tm := NewTokenManager([]byte("secret"), "", time.Hour).
		WithClock(func() time.Time { return now })

	tok, err := tm.Issue("alice", []Role{RoleGovernor})
	require.NoError(t, err)

	claims, err := tm.Validate(tok)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Address)
	require.True(t, claims.HasRole(RoleGovernor))
	require.False(t, claims.HasRole(RoleAdmin))
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tm := NewTokenManager([]byte("secret"), "", time.Minute).
		WithClock(func() time.Time { return now })

	tok, err := tm.Issue("alice", nil)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = tm.Validate(tok)
	require.Error(t, err)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	tm := NewTokenManager([]byte("secret"), "", time.Hour)
	other := NewTokenManager([]byte("other"), "", time.Hour)

	tok, err := tm.Issue("alice", nil)
	require.NoError(t, err)

	_, err = other.Validate(tok)
	require.Error(t, err)
}
