// Package sqlite provides a SQLite-backed save store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/metropole/internal/city/domain"
	sqlitemigrate "github.com/louisbranch/metropole/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/metropole/internal/storage"
	"github.com/louisbranch/metropole/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists city saves in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite save store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Put upserts a save by id, preserving created_at on overwrite.
func (s *Store) Put(ctx context.Context, save storage.Save) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	saveID := strings.TrimSpace(save.ID)
	if saveID == "" {
		return fmt.Errorf("save id is required")
	}

	snapshot, err := json.Marshal(save.Snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	now := s.now().UTC()
	createdAt := save.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO saves (id, name, snapshot, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   snapshot = excluded.snapshot,
		   updated_at = excluded.updated_at`,
		saveID,
		save.Name,
		string(snapshot),
		toMillis(createdAt),
		toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("put save: %w", err)
	}
	return nil
}

// Get returns one save by id.
func (s *Store) Get(ctx context.Context, id string) (storage.Save, error) {
	if err := ctx.Err(); err != nil {
		return storage.Save{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Save{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.Save{}, fmt.Errorf("save id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, snapshot, created_at, updated_at FROM saves WHERE id = ?`,
		id,
	)
	return scanSave(row.Scan)
}

// List returns all saves, most recently updated first.
func (s *Store) List(ctx context.Context) ([]storage.Save, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, snapshot, created_at, updated_at
		   FROM saves
		  ORDER BY updated_at DESC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var saves []storage.Save
	for rows.Next() {
		save, err := scanSave(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list saves: %w", err)
		}
		saves = append(saves, save)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	return saves, nil
}

// Delete removes one save by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM saves WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete save: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete save: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanSave(scan func(dest ...any) error) (storage.Save, error) {
	var save storage.Save
	var snapshot string
	var createdAt int64
	var updatedAt int64
	err := scan(&save.ID, &save.Name, &snapshot, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Save{}, storage.ErrNotFound
		}
		return storage.Save{}, fmt.Errorf("scan save: %w", err)
	}

	var decoded domain.Snapshot
	if err := json.Unmarshal([]byte(snapshot), &decoded); err != nil {
		return storage.Save{}, fmt.Errorf("decode snapshot: %w", err)
	}
	save.Snapshot = decoded
	save.CreatedAt = fromMillis(createdAt)
	save.UpdatedAt = fromMillis(updatedAt)
	return save, nil
}

var _ storage.SaveStore = (*Store)(nil)
