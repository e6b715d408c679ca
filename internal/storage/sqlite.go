package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/attestor-io/attestor/internal/resource"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS resources (
    namespace TEXT NOT NULL,
    key TEXT NOT NULL,
    value BLOB NOT NULL,
    expires_at TIMESTAMP,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (namespace, key)
);

CREATE INDEX IF NOT EXISTS idx_resources_expires ON resources(expires_at);
`

// SQLite is a durable capability backed by a single SQLite database.
// Writes retry on SQLITE_BUSY with quadratic backoff, matching WAL-mode
// behavior under concurrent writers.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and initializes) a SQLite-backed capability at dbPath.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening resource database: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		return nil, fmt.Errorf("creating resource schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Get returns the value for (namespace, key). Expired entries read as
// absent; physical removal is left to Delete or the retention sweeper.
func (s *SQLite) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM resources WHERE namespace = ? AND key = ?`,
		namespace, key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying resource: %w", err)
	}
	if expiresAt.Valid && time.Now().After(expiresAt.Time) {
		return nil, false, nil
	}
	return value, true, nil
}

// Set upserts (namespace, key, value), overwriting any previous value.
func (s *SQLite) Set(ctx context.Context, namespace, key string, value []byte, opts resource.SetOptions) error {
	var expiresAt interface{}
	if opts.TTL > 0 {
		expiresAt = time.Now().Add(opts.TTL).UTC()
	}

	query := `INSERT INTO resources (namespace, key, value, expires_at, updated_at)
	          VALUES (?, ?, ?, ?, ?)
	          ON CONFLICT(namespace, key) DO UPDATE SET
	              value = excluded.value,
	              expires_at = excluded.expires_at,
	              updated_at = excluded.updated_at`

	return s.execWithRetry(ctx, query, namespace, key, value, expiresAt, time.Now().UTC())
}

// Delete removes (namespace, key); deleting an absent key succeeds.
func (s *SQLite) Delete(ctx context.Context, namespace, key string) error {
	return s.execWithRetry(ctx,
		`DELETE FROM resources WHERE namespace = ? AND key = ?`, namespace, key)
}

// Size returns the number of unexpired entries in a namespace.
func (s *SQLite) Size(ctx context.Context, namespace string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM resources
		 WHERE namespace = ? AND (expires_at IS NULL OR expires_at > ?)`,
		namespace, time.Now().UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting resources: %w", err)
	}
	return n, nil
}

// HealthCheck pings the database.
func (s *SQLite) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("resource database unreachable: %w", err)
	}
	return nil
}

// Keys enumerates unexpired keys in a namespace, oldest first.
func (s *SQLite) Keys(ctx context.Context, namespace string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM resources
		 WHERE namespace = ? AND (expires_at IS NULL OR expires_at > ?)
		 ORDER BY updated_at ASC`,
		namespace, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("listing resource keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// execWithRetry runs a write, retrying on SQLite busy/locked.
func (s *SQLite) execWithRetry(ctx context.Context, query string, args ...interface{}) error {
	const maxRetries = 15
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepRetry(ctx, attempt); err != nil {
				return err
			}
		}
		_, lastErr = s.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteLocked(lastErr) {
			return fmt.Errorf("writing resource: %w", lastErr)
		}
	}
	return fmt.Errorf("writing resource: %w", lastErr)
}

func sleepRetry(ctx context.Context, attempt int) error {
	backoff := time.Duration(attempt*attempt) * 20 * time.Millisecond
	if backoff > 250*time.Millisecond {
		backoff = 250 * time.Millisecond
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-time.After(backoff):
		return nil
	}
}

// isSQLiteLocked reports whether the error is SQLite busy/locked (retryable).
func isSQLiteLocked(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "locked")
}
