// Package quota persists the provider's daily credit allowance so repeated
// runs within the same day share one balance.
package quota

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("quota schema version mismatch")

// Clock supplies the current time. Injectable so day-boundary behaviour is
// testable without waiting for midnight.
type Clock func() time.Time

// Ledger tracks the remaining daily credits, backed by SQLite. All mutations
// go through a single mutex so concurrent reservations cannot double-spend.
type Ledger struct {
	mu        sync.Mutex
	db        *sql.DB
	allowance int
	clock     Clock
}

// Option customizes ledger construction.
type Option func(*Ledger)

// WithClock overrides the wall clock used for day-boundary detection.
func WithClock(clock Clock) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// Open initializes or connects to the ledger database at path. allowance is
// the number of credits granted at the start of each calendar day.
func Open(path string, allowance int, opts ...Option) (*Ledger, error) {
	if allowance < 0 {
		return nil, fmt.Errorf("open ledger: negative allowance %d", allowance)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	ledger := &Ledger{db: db, allowance: allowance, clock: time.Now}
	for _, opt := range opts {
		opt(ledger)
	}

	if err := ledger.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ledger, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Ledger) initSchema(ctx context.Context) error {
	var tableExists int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return l.createSchema(ctx)
	}

	var version int
	if err := l.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read quota schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (l *Ledger) createSchema(ctx context.Context) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create quota schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record quota schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit quota schema: %w", err)
	}
	return nil
}

func (l *Ledger) today() string {
	return l.clock().Format("2006-01-02")
}

// RefreshIfNewDay resets the balance to the daily allowance when the stored
// date differs from the clock's current date. Seeds the row on first use.
func (l *Ledger) RefreshIfNewDay(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refreshLocked(ctx)
}

func (l *Ledger) refreshLocked(ctx context.Context) error {
	today := l.today()

	var day string
	err := l.db.QueryRowContext(ctx, "SELECT day FROM ledger WHERE id = 1").Scan(&day)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = l.db.ExecContext(ctx,
			"INSERT INTO ledger (id, day, remaining) VALUES (1, ?, ?)", today, l.allowance)
		if err != nil {
			return fmt.Errorf("seed ledger: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read ledger day: %w", err)
	}

	if day == today {
		return nil
	}
	if _, err := l.db.ExecContext(ctx,
		"UPDATE ledger SET day = ?, remaining = ? WHERE id = 1", today, l.allowance); err != nil {
		return fmt.Errorf("reset ledger for new day: %w", err)
	}
	return nil
}

// TryConsume atomically reserves cost credits. It refreshes the day boundary
// first, then decrements only when the full cost is available. Returns false
// with no state change when the balance is insufficient.
func (l *Ledger) TryConsume(ctx context.Context, cost int) (bool, error) {
	if cost < 0 {
		return false, fmt.Errorf("consume quota: negative cost %d", cost)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.refreshLocked(ctx); err != nil {
		return false, err
	}

	res, err := l.db.ExecContext(ctx,
		"UPDATE ledger SET remaining = remaining - ? WHERE id = 1 AND remaining >= ?", cost, cost)
	if err != nil {
		return false, fmt.Errorf("consume quota: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume quota: rows affected: %w", err)
	}
	return affected == 1, nil
}

// Remaining reports the current balance after applying the day boundary.
func (l *Ledger) Remaining(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.refreshLocked(ctx); err != nil {
		return 0, err
	}

	var remaining int
	if err := l.db.QueryRowContext(ctx, "SELECT remaining FROM ledger WHERE id = 1").Scan(&remaining); err != nil {
		return 0, fmt.Errorf("read ledger balance: %w", err)
	}
	return remaining, nil
}

// Allowance reports the configured daily allowance.
func (l *Ledger) Allowance() int {
	return l.allowance
}
