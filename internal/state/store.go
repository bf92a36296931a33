package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"
)

// ErrLocked indicates another ruumba process holds the state database.
var ErrLocked = errors.New("state database is locked by another process")

// lockRetryDelay is how often Open retries a held lock.
const lockRetryDelay = 50 * time.Millisecond

// Template is what a run remembers about one template.
type Template struct {
	Path         string
	ContentHash  string
	SizeBytes    int64
	LastModified time.Time
	ExitCode     int
	CheckedAt    time.Time
}

// Clean reports whether the run that checked the template succeeded.
func (t *Template) Clean() bool {
	return t.ExitCode == 0
}

// Store reads and writes template state.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

// NewStore wraps an open database. The schema must already exist.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (creating if needed) the state database at path and takes an
// exclusive lock on path+".lock". It waits for the lock until ctx is done
// and then returns ErrLocked.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("failed to acquire state lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	version, err := GetSchemaVersion(db)
	if err == nil && version == "0" {
		err = CreateSchema(db)
	}
	if err != nil {
		db.Close()
		lock.Unlock()
		return nil, err
	}

	return &Store{db: db, lock: lock}, nil
}

// Close closes the database and releases the lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); err == nil {
			err = unlockErr
		}
	}
	return err
}

// Get returns the state of one template. Returns (nil, nil) if unknown.
func (s *Store) Get(ctx context.Context, path string) (*Template, error) {
	row := sq.Select("path", "content_hash", "size_bytes", "last_modified", "exit_code", "checked_at").
		From("templates").
		Where(sq.Eq{"path": path}).
		RunWith(s.db).
		QueryRowContext(ctx)

	tmpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state for %s: %w", path, err)
	}
	return tmpl, nil
}

// All returns every remembered template ordered by path.
func (s *Store) All(ctx context.Context) ([]*Template, error) {
	rows, err := sq.Select("path", "content_hash", "size_bytes", "last_modified", "exit_code", "checked_at").
		From("templates").
		OrderBy("path").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tmpl)
	}
	return templates, rows.Err()
}

// Record writes the given templates in a single transaction, replacing any
// earlier state for the same paths.
func (s *Store) Record(ctx context.Context, templates []Template) error {
	if len(templates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, tmpl := range templates {
		_, err := sq.Insert("templates").
			Columns("path", "content_hash", "size_bytes", "last_modified", "exit_code", "checked_at").
			Values(
				tmpl.Path,
				tmpl.ContentHash,
				tmpl.SizeBytes,
				tmpl.LastModified.UTC().Format(time.RFC3339Nano),
				tmpl.ExitCode,
				tmpl.CheckedAt.UTC().Format(time.RFC3339Nano),
			).
			Options("OR REPLACE").
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to record %s: %w", tmpl.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}

// Delete forgets the given paths.
func (s *Store) Delete(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	_, err := sq.Delete("templates").
		Where(sq.Eq{"path": paths}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete templates: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (*Template, error) {
	tmpl := &Template{}
	var lastModified, checkedAt string

	if err := row.Scan(&tmpl.Path, &tmpl.ContentHash, &tmpl.SizeBytes, &lastModified, &tmpl.ExitCode, &checkedAt); err != nil {
		return nil, err
	}

	tmpl.LastModified, _ = time.Parse(time.RFC3339Nano, lastModified)
	tmpl.CheckedAt, _ = time.Parse(time.RFC3339Nano, checkedAt)
	return tmpl, nil
}
