package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/credence-labs/credence-core/pkg/canonicalize"
)

// TrailType categorizes an append-only trail.
type TrailType string

const (
	TrailSlash     TrailType = "SLASH"
	TrailEmergency TrailType = "EMERGENCY"
	TrailEvidence  TrailType = "EVIDENCE"
)

// TrailEntry is an immutable, hash-chained entry.
type TrailEntry struct {
	Sequence    uint64      `json:"sequence"`
	EntryType   string      `json:"entry_type"`
	ContentHash string      `json:"content_hash"`
	PrevHash    string      `json:"prev_hash"`
	Timestamp   time.Time   `json:"timestamp"`
	Author      string      `json:"author,omitempty"`
	Record      interface{} `json:"record"`
}

// Trail is an append-only, hash-chained log. There is no update or
// delete operation; Verify recomputes the whole chain.
type Trail struct {
	mu        sync.RWMutex
	trailType TrailType
	entries   []TrailEntry
	headHash  string
	clock     func() time.Time
}

// NewTrail creates an empty trail.
func NewTrail(tt TrailType) *Trail {
	return &Trail{
		trailType: tt,
		entries:   make([]TrailEntry, 0),
		headHash:  "genesis",
		clock:     time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (t *Trail) WithClock(clock func() time.Time) *Trail {
	t.clock = clock
	return t
}

// Append adds a record to the trail and returns its sequence number.
func (t *Trail) Append(entryType, author string, record interface{}) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seq := uint64(len(t.entries)) + 1
	contentHash, err := entryHash(seq, entryType, record, t.headHash)
	if err != nil {
		return 0, err
	}

	entry := TrailEntry{
		Sequence:    seq,
		EntryType:   entryType,
		ContentHash: contentHash,
		PrevHash:    t.headHash,
		Timestamp:   t.clock(),
		Author:      author,
		Record:      record,
	}

	t.entries = append(t.entries, entry)
	t.headHash = contentHash
	return seq, nil
}

// Get retrieves an entry by sequence number.
func (t *Trail) Get(seq uint64) (*TrailEntry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if seq == 0 || seq > uint64(len(t.entries)) {
		return nil, fmt.Errorf("trail entry %d not found", seq)
	}
	entry := t.entries[seq-1]
	return &entry, nil
}

// Entries returns a copy of all entries in order.
func (t *Trail) Entries() []TrailEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]TrailEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Head returns the current head hash.
func (t *Trail) Head() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.headHash
}

// Length returns the number of entries.
func (t *Trail) Length() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Verify checks the integrity of the whole chain.
func (t *Trail) Verify() (bool, string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	prevHash := "genesis"
	for i, entry := range t.entries {
		if entry.PrevHash != prevHash {
			return false, fmt.Sprintf("chain broken at entry %d: expected prev %s, got %s", i+1, prevHash, entry.PrevHash)
		}
		computed, err := entryHash(entry.Sequence, entry.EntryType, entry.Record, entry.PrevHash)
		if err != nil {
			return false, fmt.Sprintf("failed to hash entry %d", i+1)
		}
		if computed != entry.ContentHash {
			return false, fmt.Sprintf("hash mismatch at entry %d", i+1)
		}
		prevHash = entry.ContentHash
	}
	return true, "chain verified"
}

// Type returns the trail type.
func (t *Trail) Type() TrailType {
	return t.trailType
}

func entryHash(seq uint64, entryType string, record interface{}, prevHash string) (string, error) {
	hashInput := struct {
		Seq      uint64      `json:"seq"`
		Type     string      `json:"type"`
		Record   interface{} `json:"record"`
		PrevHash string      `json:"prev"`
	}{seq, entryType, record, prevHash}
	return canonicalize.Hash(hashInput)
}
