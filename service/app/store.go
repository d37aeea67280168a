package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// _busy_timeout=5000: wait up to 5s when DB is locked (default=0, fails immediately)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.createTables(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS apps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			icon TEXT NOT NULL DEFAULT '',
			isPublic INTEGER NOT NULL DEFAULT 1,
			createdAt INTEGER NOT NULL,
			updatedAt INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_apps_name ON apps(name COLLATE NOCASE)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, a NewApp) (*App, error) {
	now := s.now().UTC()

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO apps (name, url, icon, isPublic, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id
	`, a.Name, a.URL, a.Icon, a.IsPublic, now.UnixMilli(), now.UnixMilli()).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert app: %w", err)
	}

	return s.Get(ctx, id)
}

func (s *Store) Update(ctx context.Context, id int64, a NewApp) (*App, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE apps SET name = ?, url = ?, icon = ?, isPublic = ?, updatedAt = ?
		WHERE id = ?
	`, a.Name, a.URL, a.Icon, a.IsPublic, s.now().UTC().UnixMilli(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update app %d: %w", id, err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	return s.Get(ctx, id)
}

// Get returns nil, nil when no app has the given id.
func (s *Store) Get(ctx context.Context, id int64) (*App, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, url, icon, isPublic, createdAt, updatedAt
		FROM apps WHERE id = ?
	`, id)

	a, err := scanApp(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// List returns apps ordered by name. Hidden apps are skipped unless
// includeHidden is set.
func (s *Store) List(ctx context.Context, includeHidden bool) ([]App, error) {
	query := `SELECT id, name, url, icon, isPublic, createdAt, updatedAt FROM apps`
	if !includeHidden {
		query += ` WHERE isPublic = 1`
	}
	query += ` ORDER BY name COLLATE NOCASE, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make([]App, 0)
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *a)
	}

	return apps, rows.Err()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM apps`).Scan(&n)
	return n, err
}

// CountByIcon returns how many apps reference icon.
func (s *Store) CountByIcon(ctx context.Context, icon string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM apps WHERE icon = ?`, icon).Scan(&n)
	return n, err
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM apps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete app %d: %w", id, err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApp(row scanner) (*App, error) {
	var a App
	var createdAt, updatedAt int64

	if err := row.Scan(&a.ID, &a.Name, &a.URL, &a.Icon, &a.IsPublic, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	a.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &a, nil
}
