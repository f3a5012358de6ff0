package contracts

import "time"

// HashType identifies the digest algorithm of an evidence artifact.
type HashType string

const (
	HashSHA256  HashType = "SHA256"
	HashSHA512  HashType = "SHA512"
	HashKeccak  HashType = "KECCAK256"
	HashBlake2b HashType = "BLAKE2B"
)

// EvidenceRecord references an off-chain artifact supporting a slash
// proposal. Records are append-only; the artifact hash is unique across
// the whole store.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type EvidenceRecord struct {
	ID          uint64    `json:"id"`
	ProposalID  uint64    `json:"proposal_id"`
	Hash        string    `json:"hash"`
	HashType    HashType  `json:"hash_type"`
	Description string    `json:"description,omitempty"`
	SubmittedBy string    `json:"submitted_by"`
	SubmittedAt time.Time `json:"submitted_at"`
}
