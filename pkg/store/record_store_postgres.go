package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/credence-labs/credence-core/pkg/contracts"

	_ "github.com/lib/pq"
)

// PostgresRecordStore persists emergency withdrawal records. Records
// are insert-only; there is no update or delete statement in this file
// on purpose.
type PostgresRecordStore struct {
	db *sql.DB
}

// NewPostgresRecordStore returns a store over an open connection.
func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

// Init creates the emergency_records schema.
func (s *PostgresRecordStore) Init(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS emergency_records (
		id BIGINT PRIMARY KEY,
		identity TEXT NOT NULL,
		gross_amount BIGINT NOT NULL,
		fee_amount BIGINT NOT NULL,
		net_amount BIGINT NOT NULL,
		treasury TEXT NOT NULL,
		approved_admin TEXT NOT NULL,
		approved_governance TEXT NOT NULL,
		reason TEXT,
		timestamp TIMESTAMPTZ NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to init emergency_records schema: %w", err)
	}
	return nil
}

// Append inserts one record.
func (s *PostgresRecordStore) Append(ctx context.Context, r *contracts.EmergencyRecord) error {
	query := `
		INSERT INTO emergency_records (id, identity, gross_amount, fee_amount, net_amount, treasury, approved_admin, approved_governance, reason, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Identity, r.GrossAmount, r.FeeAmount, r.NetAmount,
		r.Treasury, r.ApprovedAdmin, r.ApprovedGovernance, r.Reason, r.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to persist emergency record: %w", err)
	}
	return nil
}

// Get returns the record with the given id.
func (s *PostgresRecordStore) Get(ctx context.Context, id uint64) (*contracts.EmergencyRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, identity, gross_amount, fee_amount, net_amount, treasury, approved_admin, approved_governance, reason, timestamp FROM emergency_records WHERE id = $1",
		id)

	var r contracts.EmergencyRecord
	err := row.Scan(&r.ID, &r.Identity, &r.GrossAmount, &r.FeeAmount, &r.NetAmount, &r.Treasury, &r.ApprovedAdmin, &r.ApprovedGovernance, &r.Reason, &r.Timestamp)
	if err == sql.ErrNoRows {
		return nil, contracts.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get emergency record: %w", err)
	}
	return &r, nil
}

// ListByIdentity returns all records for an identity in id order.
func (s *PostgresRecordStore) ListByIdentity(ctx context.Context, identity string) ([]*contracts.EmergencyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, identity, gross_amount, fee_amount, net_amount, treasury, approved_admin, approved_governance, reason, timestamp FROM emergency_records WHERE identity = $1 ORDER BY id",
		identity)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []*contracts.EmergencyRecord
	for rows.Next() {
		var r contracts.EmergencyRecord
		if err := rows.Scan(&r.ID, &r.Identity, &r.GrossAmount, &r.FeeAmount, &r.NetAmount, &r.Treasury, &r.ApprovedAdmin, &r.ApprovedGovernance, &r.Reason, &r.Timestamp); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
