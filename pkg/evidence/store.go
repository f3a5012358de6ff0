// Package evidence provides the append-only Evidence Store. Records
// reference off-chain artifacts by hash; the hash is unique across the
// whole store so the same artifact can never back two submissions.
// Governance consults the store read-only; nothing ever mutates or
// deletes a record.
package evidence

import (
	"context"
	"sync"
	"time"

	"github.com/credence-labs/credence-core/pkg/audit"
	"github.com/credence-labs/credence-core/pkg/contracts"
)

// Store holds evidence records keyed by id, with a global hash index.
type Store struct {
	mu         sync.RWMutex
	records    map[uint64]*contracts.EvidenceRecord
	byHash     map[string]uint64
	byProposal map[uint64][]uint64
	counter    uint64
	trail      *audit.Trail
	logger     audit.Logger
	clock      func() time.Time
}

// NewStore creates an empty evidence store.
func NewStore(logger audit.Logger) *Store {
	if logger == nil {
		logger = audit.Nop()
	}
	return &Store{
		records:    make(map[uint64]*contracts.EvidenceRecord),
		byHash:     make(map[string]uint64),
		byProposal: make(map[uint64][]uint64),
		trail:      audit.NewTrail(audit.TrailEvidence),
		logger:     logger,
		clock:      time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

// Submit appends a new evidence record and returns it. The artifact
// hash must be globally unique; resubmitting a known hash fails with
// ErrDuplicateEvidence.
func (s *Store) Submit(ctx context.Context, submitter string, proposalID uint64, hash string, hashType contracts.HashType, description string) (*contracts.EvidenceRecord, error) {
	if hash == "" {
		return nil, contracts.ErrInvalidHash
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[hash]; exists {
		return nil, contracts.ErrDuplicateEvidence
	}

	s.counter++
	record := &contracts.EvidenceRecord{
		ID:          s.counter,
		ProposalID:  proposalID,
		Hash:        hash,
		HashType:    hashType,
		Description: description,
		SubmittedBy: submitter,
		SubmittedAt: s.clock(),
	}

	if _, err := s.trail.Append("evidence", submitter, record); err != nil {
		s.counter--
		return nil, err
	}
	s.records[record.ID] = record
	s.byHash[hash] = record.ID
	s.byProposal[proposalID] = append(s.byProposal[proposalID], record.ID)

	_ = s.logger.Record(ctx, audit.ClassGovernance, contracts.EventEvidenceSubmitted, submitter, hash, map[string]interface{}{
		"id":          record.ID,
		"proposal_id": proposalID,
	})
	return record, nil
}

// Get returns the record with the given id.
func (s *Store) Get(id uint64) (*contracts.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, contracts.ErrEvidenceNotFound
	}
	copied := *record
	return &copied, nil
}

// GetByHash returns the record with the given artifact hash.
func (s *Store) GetByHash(hash string) (*contracts.EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[hash]
	if !ok {
		return nil, contracts.ErrEvidenceNotFound
	}
	copied := *s.records[id]
	return &copied, nil
}

// ListByProposal returns all records linked to a proposal, in
// submission order.
func (s *Store) ListByProposal(proposalID uint64) []*contracts.EvidenceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byProposal[proposalID]
	out := make([]*contracts.EvidenceRecord, 0, len(ids))
	for _, id := range ids {
		copied := *s.records[id]
		out = append(out, &copied)
	}
	return out
}

// Exists reports whether an evidence record with the given id exists.
func (s *Store) Exists(id uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok
}

// Count returns the number of records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Trail exposes the hash-chained trail for verification.
func (s *Store) Trail() *audit.Trail {
	return s.trail
}
