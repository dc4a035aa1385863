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
	_ "modernc.org/sqlite"

	"github.com/mbra/nzbmonkey/internal/config"
)

const table = "group_state"

// Store manages cursor persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Entry is one persisted value.
type Entry struct {
	Group     string
	Field     string
	Value     int64
	UpdatedAt time.Time
}

// Filter narrows List and Delete. Empty fields match everything.
type Filter struct {
	Group string
	Field string
}

// Open initializes or connects to the state database under cfg's state directory.
func Open(cfg *config.Config) (*Store, error) {
	return OpenPath(cfg.StatePath())
}

// OpenPath opens the database at path, creating it and its directory if needed.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
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

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns the stored value or def when no row exists.
func (s *Store) Get(ctx context.Context, group, field string, def int64) (int64, error) {
	ctx = ensureContext(ctx)
	query, args, err := sq.Select("value").
		From(table).
		Where(sq.Eq{"grp": group, "field": field}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build get query: %w", err)
	}

	var value int64
	err = retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s/%s: %w", group, field, err)
	}
	return value, nil
}

// Set stores value, replacing any previous one.
func (s *Store) Set(ctx context.Context, group, field string, value int64) error {
	ctx = ensureContext(ctx)
	query, args, err := sq.Insert(table).
		Columns("grp", "field", "value", "updated_at").
		Values(group, field, value, s.now().Unix()).
		Suffix("ON CONFLICT(grp, field) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build set query: %w", err)
	}
	if err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return fmt.Errorf("set %s/%s: %w", group, field, err)
	}
	return nil
}

// List returns entries matching filter ordered by group then field.
func (s *Store) List(ctx context.Context, filter Filter) ([]Entry, error) {
	ctx = ensureContext(ctx)
	query, args, err := sq.Select("grp", "field", "value", "updated_at").
		From(table).
		Where(filter.where()).
		OrderBy("grp", "field").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var entries []Entry
	err = retryOnBusy(ctx, func() error {
		entries = entries[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				e       Entry
				updated int64
			)
			if err := rows.Scan(&e.Group, &e.Field, &e.Value, &updated); err != nil {
				return err
			}
			e.UpdatedAt = time.Unix(updated, 0)
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list state: %w", err)
	}
	return entries, nil
}

// Delete removes entries matching filter and returns how many were removed.
// A zero filter clears every group.
func (s *Store) Delete(ctx context.Context, filter Filter) (int64, error) {
	ctx = ensureContext(ctx)
	query, args, err := sq.Delete(table).Where(filter.where()).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete query: %w", err)
	}

	var res sql.Result
	if err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return 0, fmt.Errorf("delete state: %w", err)
	}
	return res.RowsAffected()
}

func (f Filter) where() sq.And {
	cond := sq.And{}
	if f.Group != "" {
		cond = append(cond, sq.Eq{"grp": f.Group})
	}
	if f.Field != "" {
		cond = append(cond, sq.Eq{"field": f.Field})
	}
	return cond
}
