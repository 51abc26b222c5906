package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/metropole/internal/city/domain"
	"github.com/louisbranch/metropole/internal/storage"
)

func testClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	t.Parallel()

	store := New()
	save := storage.Save{
		ID:   "save-1",
		Name: "Testopolis",
		Snapshot: domain.Snapshot{
			Name:  "Testopolis",
			Funds: 1000,
			Year:  3,
		},
	}
	if err := store.Put(context.Background(), save); err != nil {
		t.Fatalf("put save: %v", err)
	}

	got, err := store.Get(context.Background(), "save-1")
	if err != nil {
		t.Fatalf("get save: %v", err)
	}
	if got.Name != "Testopolis" {
		t.Fatalf("name = %q, want Testopolis", got.Name)
	}
	if got.Snapshot.Funds != 1000 || got.Snapshot.Year != 3 {
		t.Fatalf("unexpected snapshot: %+v", got.Snapshot)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := New()
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutPreservesCreatedAtOnOverwrite(t *testing.T) {
	t.Parallel()

	store := New().WithClock(testClock(time.Date(2026, time.February, 22, 16, 0, 0, 0, time.UTC)))
	if err := store.Put(context.Background(), storage.Save{ID: "save-1", Name: "First"}); err != nil {
		t.Fatalf("put save: %v", err)
	}
	first, err := store.Get(context.Background(), "save-1")
	if err != nil {
		t.Fatalf("get save: %v", err)
	}

	if err := store.Put(context.Background(), storage.Save{ID: "save-1", Name: "Second"}); err != nil {
		t.Fatalf("put save again: %v", err)
	}
	second, err := store.Get(context.Background(), "save-1")
	if err != nil {
		t.Fatalf("get save: %v", err)
	}

	if second.Name != "Second" {
		t.Fatalf("name = %q, want Second", second.Name)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Fatalf("expected updated_at to advance, got %v then %v", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestListOrdersByMostRecent(t *testing.T) {
	t.Parallel()

	store := New().WithClock(testClock(time.Date(2026, time.February, 22, 16, 0, 0, 0, time.UTC)))
	for _, id := range []string{"a", "b", "c"} {
		if err := store.Put(context.Background(), storage.Save{ID: id}); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	if err := store.Put(context.Background(), storage.Save{ID: "a"}); err != nil {
		t.Fatalf("touch a: %v", err)
	}

	saves, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list saves: %v", err)
	}
	if len(saves) != 3 {
		t.Fatalf("expected 3 saves, got %d", len(saves))
	}
	if saves[0].ID != "a" {
		t.Fatalf("expected most recently updated save first, got %q", saves[0].ID)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	store := New()
	if err := store.Put(context.Background(), storage.Save{ID: "save-1"}); err != nil {
		t.Fatalf("put save: %v", err)
	}

	if err := store.Delete(context.Background(), "save-1"); err != nil {
		t.Fatalf("delete save: %v", err)
	}
	if _, err := store.Get(context.Background(), "save-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(context.Background(), "save-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}
