package spool

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id TEXT NOT NULL,
    batch_id TEXT NOT NULL UNIQUE,
    payload BLOB NOT NULL,
    raw_size INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    attempts INTEGER NOT NULL DEFAULT 0,
    last_error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_batches_project ON batches(project_id);
`

// Entry is one spooled batch. Payload is the encoded activity body.
type Entry struct {
	ID         int64
	ProjectID  string
	BatchID    string
	Payload    []byte
	RawSize    int
	StoredSize int
	CreatedAt  time.Time
	Attempts   int
	LastError  string
}

// Store is the local fallback for batches the collector did not accept.
// Payloads are kept zstd-compressed in a SQLite database.
type Store struct {
	db    *sql.DB
	codec *codec
	path  string
}

// Open opens (creating if needed) the spool database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spool database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// other agent instances of the same client share this file
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure spool database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate spool database: %w", err)
	}

	c, err := newCodec()
	if err != nil {
		db.Close()
		return nil, err
	}

	util.LogDebugf("Spool opened at %s", path)
	return &Store{db: db, codec: c, path: path}, nil
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

// Save stores payload under batchID. Saving the same batch twice keeps the
// first copy.
func (s *Store) Save(ctx context.Context, projectID, batchID string, payload []byte, createdAt time.Time) (int64, error) {
	blob := s.codec.compress(payload)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (project_id, batch_id, payload, raw_size, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(batch_id) DO NOTHING`,
		projectID, batchID, blob, len(payload), createdAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to spool batch %s: %w", batchID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var id int64
		if err := s.db.QueryRowContext(ctx, `SELECT id FROM batches WHERE batch_id = ?`, batchID).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to look up spooled batch %s: %w", batchID, err)
		}
		return id, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read spool id: %w", err)
	}

	util.LogDebug("Batch spooled",
		util.F("batch_id", batchID),
		util.F("raw_bytes", len(payload)),
		util.F("stored_bytes", len(blob)))
	return id, nil
}

// Pending returns up to limit spooled batches, oldest first. A limit of
// zero or less returns every batch.
func (s *Store) Pending(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, project_id, batch_id, payload, raw_size, created_at, attempts, last_error
	          FROM batches ORDER BY id ASC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query spool: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			blob      []byte
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.BatchID, &blob, &e.RawSize, &createdAt, &e.Attempts, &e.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan spool row: %w", err)
		}

		e.StoredSize = len(blob)
		e.CreatedAt = time.UnixMilli(createdAt)
		e.Payload, err = s.codec.decompress(blob)
		if err != nil {
			return nil, fmt.Errorf("spooled batch %s is corrupt: %w", e.BatchID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read spool: %w", err)
	}
	return entries, nil
}

// MarkAttempt records a failed delivery of entry id
func (s *Store) MarkAttempt(ctx context.Context, id int64, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE batches SET attempts = attempts + 1, last_error = ? WHERE id = ?`, msg, id); err != nil {
		return fmt.Errorf("failed to update spooled batch %d: %w", id, err)
	}
	return nil
}

// Delete removes a delivered entry
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete spooled batch %d: %w", id, err)
	}
	return nil
}

// Count returns how many batches are waiting
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM batches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count spool: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	s.codec.close()
	return s.db.Close()
}
