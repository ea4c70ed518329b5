// Package litequeue implements the queue contract on a local SQLite database
// with the same at-least-once visibility semantics as SQS: a claimed message
// stays invisible until its deadline, extensions push the deadline forward,
// and an expired claim makes the message deliverable again. It backs
// single-host deployments and the test suite.
package litequeue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"riptide/internal/queue"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    body TEXT NOT NULL,
    receipt TEXT,
    visible_at TEXT NOT NULL,
    enqueued_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_visible_at ON messages(visible_at);
`

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	claimPollInterval       = 250 * time.Millisecond
)

// Queue is a SQLite-backed message queue.
type Queue struct {
	db         *sql.DB
	waitTime   time.Duration
	visibility time.Duration
}

// Open initializes or connects to the queue database.
func Open(path string, waitTime, visibility time.Duration) (*Queue, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Queue{db: db, waitTime: waitTime, visibility: visibility}, nil
}

// Close closes the underlying database connection.
func (q *Queue) Close() error {
	if q == nil || q.db == nil {
		return nil
	}
	return q.db.Close()
}

// Enqueue inserts a message that is immediately deliverable.
func (q *Queue) Enqueue(ctx context.Context, body []byte) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return q.execWithRetry(ctx,
		`INSERT INTO messages (body, receipt, visible_at, enqueued_at) VALUES (?, NULL, ?, ?)`,
		string(body), now, now)
}

// Receive claims the oldest deliverable message, waiting up to the configured
// long-poll time. A nil message with a nil error means the wait elapsed empty.
func (q *Queue) Receive(ctx context.Context) (*queue.Message, error) {
	deadline := time.Now().Add(q.waitTime)
	for {
		msg, err := q.claim(ctx)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			return msg, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(claimPollInterval):
		}
	}
}

func (q *Queue) claim(ctx context.Context) (*queue.Message, error) {
	receipt := uuid.NewString()
	visibleAt := time.Now().UTC().Add(q.visibility).Format(time.RFC3339Nano)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var (
		id   int64
		body string
	)
	err := retryOnBusy(ctx, func() error {
		tx, err := q.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck

		row := tx.QueryRowContext(ctx,
			`SELECT id, body FROM messages WHERE visible_at <= ? ORDER BY id LIMIT 1`, now)
		if scanErr := row.Scan(&id, &body); scanErr != nil {
			return scanErr
		}
		if _, execErr := tx.ExecContext(ctx,
			`UPDATE messages SET receipt = ?, visible_at = ? WHERE id = ?`,
			receipt, visibleAt, id); execErr != nil {
			return execErr
		}
		return tx.Commit()
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim message: %w", err)
	}
	return &queue.Message{Body: []byte(body), Receipt: receipt}, nil
}

// Extend pushes the claimed message's visibility deadline forward by d from now.
func (q *Queue) Extend(ctx context.Context, receipt string, d time.Duration) error {
	visibleAt := time.Now().UTC().Add(d).Format(time.RFC3339Nano)
	res, err := q.execResultWithRetry(ctx,
		`UPDATE messages SET visible_at = ? WHERE receipt = ? AND visible_at > ?`,
		visibleAt, receipt, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("extend message: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return queue.ErrReceiptInvalid
	}
	return nil
}

// Delete resolves the claimed message permanently.
func (q *Queue) Delete(ctx context.Context, receipt string) error {
	res, err := q.execResultWithRetry(ctx, `DELETE FROM messages WHERE receipt = ?`, receipt)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return queue.ErrReceiptInvalid
	}
	return nil
}

// Depth reports how many messages exist, visible or claimed.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == 5 {
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

func (q *Queue) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := q.db.ExecContext(ctx, query, args...)
		return err
	})
}

func (q *Queue) execResultWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = q.db.ExecContext(ctx, query, args...)
		return execErr
	})
	return res, err
}
