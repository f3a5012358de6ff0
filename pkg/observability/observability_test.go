package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.Equal(t, "credence-core", config.ServiceName)
	require.Equal(t, "development", config.Environment)
	require.Equal(t, "localhost:4317", config.OTLPEndpoint)
	require.Equal(t, 1.0, config.SampleRate)
	require.True(t, config.Enabled)
	require.False(t, config.Insecure)
}

func TestNewProviderDisabled(t *testing.T) {
	config := &Config{Enabled: false}

	p, err := New(context.Background(), config)
	require.NoError(t, err)
	require.NotNil(t, p)

	ctx := context.Background()
	// Recording methods must be safe no-ops when disabled.
	p.RecordBondCreated(ctx, 1_000_000)
	p.RecordWithdrawal(ctx, 500_000)
	p.RecordSlashExecuted(ctx)
	p.RecordProposalCreated(ctx)
	p.RecordVote(ctx, true)
	p.RecordDenial(ctx, "admin")
	p.RecordEmergencyWithdrawal(ctx, 100)

	require.NoError(t, p.Shutdown(ctx))
}

func TestDisabledProviderStillTraces(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	ctx, span := p.StartSpan(context.Background(), "bond.create")
	require.NotNil(t, ctx)
	span.End()
}
