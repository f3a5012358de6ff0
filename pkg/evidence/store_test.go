package evidence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/contracts"
)

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
}

func TestSubmitAssignsMonotonicIDs(t *testing.T) {
	s := NewStore(audit.Nop()).WithClock(fixedClock())
	ctx := context.Background()

	a, err := s.Submit(ctx, "gov-1", 1, "sha256:aaa", contracts.HashSHA256, "double sign")
	require.NoError(t, err)
	b, err := s.Submit(ctx, "gov-2", 1, "sha256:bbb", contracts.HashSHA256, "")
	require.NoError(t, err)

	require.Equal(t, uint64(1), a.ID)
	require.Equal(t, uint64(2), b.ID)
}

func TestSubmitRejectsDuplicateHash(t *testing.T) {
	s := NewStore(audit.Nop())
	ctx := context.Background()

	_, err := s.Submit(ctx, "gov-1", 1, "sha256:aaa", contracts.HashSHA256, "")
	require.NoError(t, err)

	// Same hash on a different proposal is still a duplicate: uniqueness
	// is global.
	_, err = s.Submit(ctx, "gov-2", 2, "sha256:aaa", contracts.HashSHA256, "")
	require.ErrorIs(t, err, contracts.ErrDuplicateEvidence)
	require.Equal(t, 1, s.Count())
}

func TestSubmitRejectsEmptyHash(t *testing.T) {
	s := NewStore(audit.Nop())
	_, err := s.Submit(context.Background(), "gov-1", 1, "", contracts.HashSHA256, "")
	require.ErrorIs(t, err, contracts.ErrInvalidHash)
}

func TestGetAndListByProposal(t *testing.T) {
	s := NewStore(audit.Nop()).WithClock(fixedClock())
	ctx := context.Background()

	_, _ = s.Submit(ctx, "gov-1", 7, "sha256:aaa", contracts.HashSHA256, "")
	_, _ = s.Submit(ctx, "gov-1", 7, "sha256:bbb", contracts.HashKeccak, "")
	_, _ = s.Submit(ctx, "gov-1", 8, "sha256:ccc", contracts.HashSHA256, "")

	got, err := s.Get(2)
	require.NoError(t, err)
	require.Equal(t, contracts.HashKeccak, got.HashType)

	_, err = s.Get(99)
	require.ErrorIs(t, err, contracts.ErrEvidenceNotFound)

	list := s.ListByProposal(7)
	require.Len(t, list, 2)
	require.Equal(t, "sha256:aaa", list[0].Hash)
	require.Equal(t, "sha256:bbb", list[1].Hash)
}

func TestRecordsAreCopies(t *testing.T) {
	s := NewStore(audit.Nop())
	ctx := context.Background()
	_, _ = s.Submit(ctx, "gov-1", 1, "sha256:aaa", contracts.HashSHA256, "original")

	got, err := s.Get(1)
	require.NoError(t, err)
	got.Description = "tampered"

	again, err := s.Get(1)
	require.NoError(t, err)
	require.Equal(t, "original", again.Description)
}

func TestTrailVerifies(t *testing.T) {
	s := NewStore(audit.Nop())
	ctx := context.Background()
	for _, h := range []string{"sha256:a", "sha256:b", "sha256:c"} {
		_, err := s.Submit(ctx, "gov-1", 1, h, contracts.HashSHA256, "")
		require.NoError(t, err)
	}
	ok, reason := s.Trail().Verify()
	require.True(t, ok, reason)
	require.Equal(t, 3, s.Trail().Length())
}
