// Package artifacts persists rendered outputs (images, narration audio,
// subtitle files) keyed by storyboard entry, with an SQLite index over
// on-disk payloads.
package artifacts

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

var (
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("artifact schema version mismatch")
	// ErrNotFound indicates no artifact exists for the requested key.
	ErrNotFound = errors.New("artifact not found")
)

// Kind classifies an artifact payload.
type Kind string

const (
	KindImage    Kind = "image"
	KindAudio    Kind = "audio"
	KindSubtitle Kind = "subtitle"
)

// Record describes one stored artifact. The (EntryID, Kind, Seq) triple is
// the stable key; writing the same key again replaces the payload.
type Record struct {
	EntryID   string
	Kind      Kind
	Seq       int
	Filename  string
	Size      int64
	CreatedAt time.Time
}

// Path returns the absolute payload location for a record obtained from this store.
func (s *Store) Path(rec Record) string {
	return filepath.Join(s.filesDir, rec.Filename)
}

// Clock supplies the current time.
type Clock func() time.Time

// Store is the artifact store: an SQLite index plus a payload directory.
type Store struct {
	mu       sync.Mutex
	db       *sql.DB
	filesDir string
	clock    Clock
}

// Option customizes store construction.
type Option func(*Store)

// WithClock overrides the wall clock used for timestamps and retention sweeps.
func WithClock(clock Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// Open initializes or connects to the artifact store rooted at dir. Payloads
// live under dir/files, the index at dir/artifacts.db.
func Open(dir string, opts ...Option) (*Store, error) {
	filesDir := filepath.Join(dir, "files")
	if err := os.MkdirAll(filesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "artifacts.db"))
	if err != nil {
		return nil, fmt.Errorf("open artifact db: %w", err)
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

	store := &Store{db: db, filesDir: filesDir, clock: time.Now}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read artifact schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create artifact schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record artifact schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit artifact schema: %w", err)
	}
	return nil
}

func payloadName(entryID string, kind Kind, seq int, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s_%s_%d.%s", sanitize(entryID), kind, seq, ext)
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '-'
		default:
			return r
		}
	}, id)
}

// Put stores a payload under (entryID, kind, seq), replacing any previous
// payload for the same key. The write is staged to a temp file and renamed
// so a crash never leaves a half-written artifact behind the index row.
func (s *Store) Put(ctx context.Context, entryID string, kind Kind, seq int, ext string, data []byte) (Record, error) {
	if strings.TrimSpace(entryID) == "" {
		return Record{}, fmt.Errorf("store artifact: empty entry id")
	}
	if seq < 0 {
		return Record{}, fmt.Errorf("store artifact: negative sequence %d", seq)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filename := payloadName(entryID, kind, seq, ext)
	target := filepath.Join(s.filesDir, filename)

	tmp, err := os.CreateTemp(s.filesDir, filename+".tmp-*")
	if err != nil {
		return Record{}, fmt.Errorf("stage artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return Record{}, fmt.Errorf("write artifact payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Record{}, fmt.Errorf("close artifact payload: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return Record{}, fmt.Errorf("commit artifact payload: %w", err)
	}

	createdAt := s.clock().UTC()

	// A replaced key may have pointed at a differently named payload (new
	// extension); remove the orphan after the index row is updated.
	var previous string
	err = s.db.QueryRowContext(ctx,
		"SELECT filename FROM artifacts WHERE entry_id = ? AND kind = ? AND seq = ?",
		entryID, string(kind), seq).Scan(&previous)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("read artifact index: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO artifacts (entry_id, kind, seq, filename, size, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (entry_id, kind, seq)
DO UPDATE SET filename = excluded.filename, size = excluded.size, created_at = excluded.created_at`,
		entryID, string(kind), seq, filename, int64(len(data)), createdAt.Format(time.RFC3339))
	if err != nil {
		return Record{}, fmt.Errorf("index artifact: %w", err)
	}

	if previous != "" && previous != filename {
		_ = os.Remove(filepath.Join(s.filesDir, previous))
	}

	return Record{
		EntryID:   entryID,
		Kind:      kind,
		Seq:       seq,
		Filename:  filename,
		Size:      int64(len(data)),
		CreatedAt: createdAt,
	}, nil
}

// Get loads the payload stored under (entryID, kind, seq).
func (s *Store) Get(ctx context.Context, entryID string, kind Kind, seq int) (Record, []byte, error) {
	rec, err := s.lookup(ctx, entryID, kind, seq)
	if err != nil {
		return Record{}, nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.filesDir, rec.Filename))
	if err != nil {
		return Record{}, nil, fmt.Errorf("read artifact payload: %w", err)
	}
	return rec, data, nil
}

func (s *Store) lookup(ctx context.Context, entryID string, kind Kind, seq int) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT entry_id, kind, seq, filename, size, created_at FROM artifacts WHERE entry_id = ? AND kind = ? AND seq = ?",
		entryID, string(kind), seq)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s/%s/%d", ErrNotFound, entryID, kind, seq)
	}
	return rec, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec     Record
		kind    string
		created string
	)
	if err := row.Scan(&rec.EntryID, &kind, &rec.Seq, &rec.Filename, &rec.Size, &created); err != nil {
		return Record{}, err
	}
	rec.Kind = Kind(kind)
	ts, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return Record{}, fmt.Errorf("parse artifact timestamp: %w", err)
	}
	rec.CreatedAt = ts
	return rec, nil
}

// List returns all artifacts for an entry ordered by kind then sequence.
// An empty entryID lists the whole store.
func (s *Store) List(ctx context.Context, entryID string) ([]Record, error) {
	query := "SELECT entry_id, kind, seq, filename, size, created_at FROM artifacts"
	args := []any{}
	if entryID != "" {
		query += " WHERE entry_id = ?"
		args = append(args, entryID)
	}
	query += " ORDER BY entry_id, kind, seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return records, nil
}

// SweepExpired removes artifacts older than retentionDays, payloads
// included, and reports how many were removed.
func (s *Store) SweepExpired(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("sweep artifacts: non-positive retention %d", retentionDays)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339)

	rows, err := s.db.QueryContext(ctx,
		"SELECT filename FROM artifacts WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("find expired artifacts: %w", err)
	}
	var filenames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan expired artifact: %w", err)
		}
		filenames = append(filenames, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate expired artifacts: %w", err)
	}

	if len(filenames) == 0 {
		return 0, nil
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM artifacts WHERE created_at < ?", cutoff); err != nil {
		return 0, fmt.Errorf("delete expired artifacts: %w", err)
	}
	for _, name := range filenames {
		if err := os.Remove(filepath.Join(s.filesDir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("remove expired payload %s: %w", name, err)
		}
	}
	return len(filenames), nil
}

// Stats summarizes the store for the stats command.
type Stats struct {
	Count      int
	TotalBytes int64
	ByKind     map[Kind]int
}

// Summarize computes store-wide statistics.
func (s *Store) Summarize(ctx context.Context) (Stats, error) {
	stats := Stats{ByKind: make(map[Kind]int)}

	rows, err := s.db.QueryContext(ctx,
		"SELECT kind, COUNT(1), COALESCE(SUM(size), 0) FROM artifacts GROUP BY kind")
	if err != nil {
		return Stats{}, fmt.Errorf("summarize artifacts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind  string
			count int
			size  int64
		)
		if err := rows.Scan(&kind, &count, &size); err != nil {
			return Stats{}, fmt.Errorf("scan artifact stats: %w", err)
		}
		stats.ByKind[Kind(kind)] = count
		stats.Count += count
		stats.TotalBytes += size
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate artifact stats: %w", err)
	}
	return stats, nil
}
