package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sqlc-dev/pqtype"
)

// ─── TYPES ───────────────────────────────────────────────────────────────────

// Record is one archived assessment. The three documents are stored as-is;
// Financial is nil when only the risk stage ran.
type Record struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Profile   json.RawMessage `json:"profileData"`
	Risk      json.RawMessage `json:"riskResult"`
	Financial json.RawMessage `json:"financialResult,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type recordRow struct {
	ID        string                `db:"id"`
	UserID    string                `db:"user_id"`
	Profile   pqtype.NullRawMessage `db:"profile_data"`
	Risk      pqtype.NullRawMessage `db:"risk_result"`
	Financial pqtype.NullRawMessage `db:"financial_result"`
	CreatedAt time.Time             `db:"created_at"`
	UpdatedAt time.Time             `db:"updated_at"`
}

func (r recordRow) toRecord() Record {
	rec := Record{
		ID:        r.ID,
		UserID:    r.UserID,
		Profile:   r.Profile.RawMessage,
		Risk:      r.Risk.RawMessage,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.Financial.Valid {
		rec.Financial = r.Financial.RawMessage
	}
	return rec
}

func nullable(raw json.RawMessage) pqtype.NullRawMessage {
	return pqtype.NullRawMessage{RawMessage: raw, Valid: len(raw) > 0}
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrNotFound is returned by Get when no record has the given id.
var ErrNotFound = errors.New("store: record not found")

// ErrInvalidRecord is returned by Save when a required field is missing.
var ErrInvalidRecord = errors.New("store: invalid record")

// DefaultListLimit caps ListByUser when the caller passes limit <= 0.
const DefaultListLimit = 20

// ─── METHODS ─────────────────────────────────────────────────────────────────

// Save inserts rec. Records are append-only; an empty ID is filled with a new
// UUID and zero timestamps with the current time. The stored record is
// returned.
func (s *Store) Save(ctx context.Context, rec Record) (Record, error) {
	if rec.UserID == "" || len(rec.Profile) == 0 || len(rec.Risk) == 0 {
		return Record{}, fmt.Errorf("%w: user, profile and risk result are required", ErrInvalidRecord)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	query := s.db.Rebind(`
		INSERT INTO analysis_results (id, user_id, profile_data, risk_result, financial_result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	err := s.withTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			rec.ID,
			rec.UserID,
			nullable(rec.Profile),
			nullable(rec.Risk),
			nullable(rec.Financial),
			rec.CreatedAt,
			rec.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("Save: insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Get loads a single record by id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	var row recordRow
	query := s.db.Rebind(`SELECT * FROM analysis_results WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("store: get record: %w", err)
	}
	return row.toRecord(), nil
}

// ListByUser returns a user's records, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var rows []recordRow
	query := s.db.Rebind(`
		SELECT * FROM analysis_results
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`)
	if err := s.db.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("store: list records: %w", err)
	}

	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = r.toRecord()
	}
	return out, nil
}
