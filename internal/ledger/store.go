package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"articast/internal/source"
)

// Status is the terminal outcome recorded for an item.
type Status string

const (
	StatusConverted Status = "converted"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusConverted || s == StatusFailed
}

// ParseStatus converts a user-supplied status string.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown ledger status %q", value)
	}
	return status, nil
}

// Record is one write request from the pipeline.
type Record struct {
	Key      source.Key
	Artifact string
	Status   Status
	Title    string
	Category string
	Engine   string
	Error    string
}

// Entry is a persisted ledger row.
type Entry struct {
	Key       source.Key
	Artifact  string
	Status    Status
	Title     string
	Category  string
	Engine    string
	Error     string
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the SQLite-backed dedup ledger.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open connects to the ledger at path, creating it and applying migrations
// when needed.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// HasConverted reports whether key already has a converted entry.
func (s *Store) HasConverted(ctx context.Context, key source.Key) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM ledger_entries WHERE source = ? AND source_id = ? AND status = ?",
		key.Source, key.ID, string(StatusConverted),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return count > 0, nil
}

// Record persists the outcome for rec.Key and reports whether the row
// changed. Recording the status already stored is a no-op; converted
// replaces failed; failed never replaces converted.
func (s *Store) Record(ctx context.Context, rec Record) (bool, error) {
	if rec.Key.IsZero() {
		return false, errors.New("ledger record requires source and id")
	}
	if !rec.Status.Valid() {
		return false, fmt.Errorf("invalid ledger status %q", rec.Status)
	}

	var changed bool
	err := retryOnBusy(ctx, func() error {
		var txErr error
		changed, txErr = s.record(ctx, rec)
		return txErr
	})
	return changed, err
}

func (s *Store) record(ctx context.Context, rec Record) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var current string
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM ledger_entries WHERE source = ? AND source_id = ?",
		rec.Key.Source, rec.Key.ID,
	).Scan(&current)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ledger_entries (
                source, source_id, status, artifact, title, category, engine, error,
                attempts, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			rec.Key.Source, rec.Key.ID, string(rec.Status), rec.Artifact, rec.Title,
			rec.Category, rec.Engine, rec.Error, now, now,
		)
		if err != nil {
			return false, fmt.Errorf("insert ledger entry: %w", err)
		}
	case err != nil:
		return false, fmt.Errorf("read ledger entry: %w", err)
	case Status(current) == rec.Status, Status(current) == StatusConverted:
		return false, nil
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE ledger_entries
                SET status = ?, artifact = ?, title = ?, category = ?, engine = ?, error = ?,
                    attempts = attempts + 1, updated_at = ?
              WHERE source = ? AND source_id = ?`,
			string(rec.Status), rec.Artifact, rec.Title, rec.Category, rec.Engine, rec.Error, now,
			rec.Key.Source, rec.Key.ID,
		)
		if err != nil {
			return false, fmt.Errorf("update ledger entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit ledger entry: %w", err)
	}
	return true, nil
}

// Get returns the entry for key, or nil when none exists.
func (s *Store) Get(ctx context.Context, key source.Key) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM ledger_entries WHERE source = ? AND source_id = ?",
		key.Source, key.ID,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns entries, most recently updated first. With no statuses every
// entry is returned.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]Entry, error) {
	query := "SELECT " + entryColumns + " FROM ledger_entries"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += " WHERE status IN (" + makePlaceholders(len(statuses)) + ")"
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += " ORDER BY updated_at DESC, source, source_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}

// Counts returns the number of entries per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM ledger_entries GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count ledger entries: %w", err)
	}
	defer rows.Close()

	counts := map[Status]int{StatusConverted: 0, StatusFailed: 0}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan ledger count: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}
