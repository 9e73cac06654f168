package ledger

import (
	"context"
	"errors"
	"strings"
	"time"
)

const entryColumns = "source, source_id, status, artifact, title, category, engine, error, attempts, created_at, updated_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry            Entry
		status           string
		created, updated string
	)
	if err := scanner.Scan(
		&entry.Key.Source, &entry.Key.ID, &status, &entry.Artifact, &entry.Title,
		&entry.Category, &entry.Engine, &entry.Error, &entry.Attempts, &created, &updated,
	); err != nil {
		return nil, err
	}
	entry.Status = Status(status)
	entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	entry.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &entry, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
