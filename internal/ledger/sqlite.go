package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mithun789/campus-Me/internal/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS generation_records (
	request_id  TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	artifact_id TEXT,
	payload     BLOB NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS generation_records_status ON generation_records(status);
`

// SQLite keeps records in a local database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite ledger requires a path")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite ledger: %w", err)
	}
	// A single connection serializes writers, which sqlite needs anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply ledger schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Record(ctx context.Context, rec models.GenerationRecord) error {
	if rec.RequestID == "" {
		return fmt.Errorf("generation record requires a request id")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode generation record: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO generation_records (request_id, status, artifact_id, payload, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(request_id) DO UPDATE SET
	status = excluded.status,
	artifact_id = excluded.artifact_id,
	payload = excluded.payload,
	updated_at = excluded.updated_at`,
		rec.RequestID, rec.Status, rec.ArtifactID, payload, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert generation record %s: %w", rec.RequestID, err)
	}
	return nil
}

// Get returns the stored record or models.ErrNotFound.
func (s *SQLite) Get(ctx context.Context, requestID string) (models.GenerationRecord, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM generation_records WHERE request_id = ?`, requestID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GenerationRecord{}, fmt.Errorf("generation record %s: %w", requestID, models.ErrNotFound)
	}
	if err != nil {
		return models.GenerationRecord{}, fmt.Errorf("failed to read generation record %s: %w", requestID, err)
	}
	var rec models.GenerationRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return models.GenerationRecord{}, fmt.Errorf("failed to decode generation record %s: %w", requestID, err)
	}
	return rec, nil
}

// CountByStatus tallies records per status.
func (s *SQLite) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM generation_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count generation records: %w", err)
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }
