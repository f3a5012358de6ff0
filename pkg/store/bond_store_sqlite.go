// Package store persists custody state snapshots and emergency records.
// The engines remain the source of truth within a process; the stores
// exist so state survives restarts and so records can be audited out of
// band.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/credence-labs/credence-core/pkg/contracts"

	_ "modernc.org/sqlite"
)

// SQLiteBondStore persists bond snapshots keyed by identity.
type SQLiteBondStore struct {
	db *sql.DB
}

// NewSQLiteBondStore runs migrations and returns the store.
func NewSQLiteBondStore(db *sql.DB) (*SQLiteBondStore, error) {
	s := &SQLiteBondStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteBondStore) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS bonds (
        identity TEXT PRIMARY KEY,
        bonded_amount INTEGER NOT NULL,
        slashed_amount INTEGER NOT NULL DEFAULT 0,
        bond_start DATETIME NOT NULL,
        bond_duration_seconds INTEGER NOT NULL,
        active INTEGER NOT NULL DEFAULT 1,
        is_rolling INTEGER NOT NULL DEFAULT 0,
        withdrawal_requested_at DATETIME,
        notice_period_seconds INTEGER NOT NULL DEFAULT 0
    );`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// Save upserts the snapshot for a bond's identity.
func (s *SQLiteBondStore) Save(ctx context.Context, b *contracts.Bond) error {
	query := `INSERT INTO bonds (
		identity, bonded_amount, slashed_amount, bond_start, bond_duration_seconds, active, is_rolling, withdrawal_requested_at, notice_period_seconds
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (identity) DO UPDATE SET
		bonded_amount = excluded.bonded_amount,
		slashed_amount = excluded.slashed_amount,
		bond_start = excluded.bond_start,
		bond_duration_seconds = excluded.bond_duration_seconds,
		active = excluded.active,
		is_rolling = excluded.is_rolling,
		withdrawal_requested_at = excluded.withdrawal_requested_at,
		notice_period_seconds = excluded.notice_period_seconds`

	var requestedAt sql.NullString
	if !b.WithdrawalRequestedAt.IsZero() {
		requestedAt = sql.NullString{String: b.WithdrawalRequestedAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		b.Identity, b.BondedAmount, b.SlashedAmount,
		b.BondStart.UTC().Format(time.RFC3339Nano), int64(b.BondDuration/time.Second),
		b.Active, b.IsRolling, requestedAt, int64(b.NoticePeriod/time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to save bond: %w", err)
	}
	return nil
}

// Get returns the snapshot for an identity.
func (s *SQLiteBondStore) Get(ctx context.Context, identity string) (*contracts.Bond, error) {
	query := `
        SELECT identity, bonded_amount, slashed_amount, bond_start, bond_duration_seconds, active, is_rolling, withdrawal_requested_at, notice_period_seconds
        FROM bonds
        WHERE identity = ?
    `
	row := s.db.QueryRowContext(ctx, query, identity)
	b, err := scanBondRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contracts.ErrBondNotFound
	}
	return b, err
}

// ListActive returns all snapshots with an active bond.
func (s *SQLiteBondStore) ListActive(ctx context.Context) ([]*contracts.Bond, error) {
	query := `
        SELECT identity, bonded_amount, slashed_amount, bond_start, bond_duration_seconds, active, is_rolling, withdrawal_requested_at, notice_period_seconds
        FROM bonds
        WHERE active = 1
        ORDER BY identity
    `
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var bonds []*contracts.Bond
	for rows.Next() {
		b, err := scanBondRow(rows)
		if err != nil {
			return nil, err
		}
		bonds = append(bonds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bonds, nil
}

// Delete removes a snapshot. Used when a closed bond ages out.
func (s *SQLiteBondStore) Delete(ctx context.Context, identity string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM bonds WHERE identity = ?`, identity)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBondRow(row rowScanner) (*contracts.Bond, error) {
	var (
		b               contracts.Bond
		start           string
		durationSeconds int64
		requestedAt     sql.NullString
		noticeSeconds   int64
	)
	err := row.Scan(&b.Identity, &b.BondedAmount, &b.SlashedAmount, &start, &durationSeconds, &b.Active, &b.IsRolling, &requestedAt, &noticeSeconds)
	if err != nil {
		return nil, err
	}

	b.BondStart, err = time.Parse(time.RFC3339Nano, start)
	if err != nil {
		return nil, fmt.Errorf("invalid bond_start: %w", err)
	}
	b.BondDuration = time.Duration(durationSeconds) * time.Second
	b.NoticePeriod = time.Duration(noticeSeconds) * time.Second
	if requestedAt.Valid {
		b.WithdrawalRequestedAt, err = time.Parse(time.RFC3339Nano, requestedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid withdrawal_requested_at: %w", err)
		}
	}
	return &b, nil
}
