// Package storage defines persistence contracts for saved cities.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/metropole/internal/city/domain"
)

var (
	// ErrNotFound indicates a requested save is missing.
	ErrNotFound = errors.New("save not found")
)

// Save stores one persisted city snapshot under a stable save id.
type Save struct {
	ID        string
	Name      string
	Snapshot  domain.Snapshot
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaveStore persists city saves. Put upserts by save id, preserving the
// original creation time on overwrite.
type SaveStore interface {
	Put(ctx context.Context, save Save) error
	Get(ctx context.Context, id string) (Save, error)
	List(ctx context.Context) ([]Save, error)
	Delete(ctx context.Context, id string) error
}
