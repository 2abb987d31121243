// Package ledger records uploads made by export runs in SQLite so a
// retried run does not upload the same content to the same container
// twice.
//
// An upload is keyed by Key(checksum, destination container ID).
package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryDSN keeps the ledger for the lifetime of the process only.
const MemoryDSN = ":memory:"

// Run states stored in the runs table.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunSkipped   = "skipped"
	RunFailed    = "failed"
)

// Upload is one recorded upload.
type Upload struct {
	Key             string
	RunID           string
	OriginFileID    string
	DestContainerID string
	FileName        string
	Checksum        string
	CreatedAt       time.Time
}

// Ledger is the SQLite-backed upload record.
type Ledger struct {
	db *sql.DB
}

// Key derives the idempotency key of an upload.
func Key(checksum, destContainerID string) string {
	sum := sha256.Sum256([]byte(checksum + "\x00" + destContainerID))
	return hex.EncodeToString(sum[:])
}

// Checksum returns the sha256 hex digest of content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Open opens (creating if needed) the ledger at dsn.
func Open(dsn string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}

	return l, nil
}

func (l *Ledger) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS uploads (
			key TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			origin_file_id TEXT,
			dest_container_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			checksum TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_dest ON uploads(dest_container_id, file_name)`,
	}

	for _, m := range migrations {
		if _, err := l.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// StartRun records the start of a run.
func (l *Ledger) StartRun(ctx context.Context, runID, sessionID string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, session_id, status, started_at) VALUES (?, ?, ?, ?)`,
		runID, sessionID, RunRunning, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recording run %s: %w", runID, err)
	}

	return nil
}

// FinishRun stores the final state of a run; runErr may be nil.
func (l *Ledger) FinishRun(ctx context.Context, runID, status string, runErr error) error {
	var msg sql.NullString
	if runErr != nil {
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}

	_, err := l.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, ended_at = ?, error = ? WHERE run_id = ?`,
		status, time.Now().UTC(), msg, runID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}

	return nil
}

// RunStatus returns the stored status of a run, or "" if unknown.
func (l *Ledger) RunStatus(ctx context.Context, runID string) (string, error) {
	var status string

	err := l.db.QueryRowContext(ctx, `SELECT status FROM runs WHERE run_id = ?`, runID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	return status, err
}

// Lookup returns the upload recorded under key, or nil.
func (l *Ledger) Lookup(ctx context.Context, key string) (*Upload, error) {
	var (
		u      Upload
		origin sql.NullString
	)

	err := l.db.QueryRowContext(ctx,
		`SELECT key, run_id, origin_file_id, dest_container_id, file_name, checksum, created_at
		FROM uploads WHERE key = ?`, key).
		Scan(&u.Key, &u.RunID, &origin, &u.DestContainerID, &u.FileName, &u.Checksum, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("looking up upload %s: %w", key, err)
	}

	u.OriginFileID = origin.String

	return &u, nil
}

// Record stores an upload, replacing an earlier one with the same key.
func (l *Ledger) Record(ctx context.Context, u Upload) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO uploads
		(key, run_id, origin_file_id, dest_container_id, file_name, checksum, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Key, u.RunID, u.OriginFileID, u.DestContainerID, u.FileName, u.Checksum, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording upload %s: %w", u.FileName, err)
	}

	return nil
}
