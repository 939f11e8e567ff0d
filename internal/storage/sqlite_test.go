//go:build sqlite

package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"mcceval/internal/model"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "mcceval.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	exerciseStore(t, store)
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected path error")
	}
}

func TestNewStoreSQLite(t *testing.T) {
	store, err := NewStore("sqlite", filepath.Join(t.TempDir(), "factory.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestSQLiteStoreGetGenomeDataBeyondVariableLimit(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "wide.db"))
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	const n = 3*maxQueryIDs + 7
	genomes := make([]model.Genome, 0, n)
	ids := make([]int64, 0, n)
	for i := range n {
		id := int64(n - i)
		genomes = append(genomes, model.Genome{ID: id, Kind: model.KindMaze, Encoding: fmt.Sprintf(`{"m":%d}`, id)})
		ids = append(ids, id)
	}
	if err := store.SaveGenomes(ctx, "exp", 0, 0, genomes); err != nil {
		t.Fatalf("save genomes: %v", err)
	}

	data, err := store.GetGenomeData(ctx, "exp", 0, model.KindMaze, ids)
	if err != nil {
		t.Fatalf("get genome data: %v", err)
	}
	if len(data) != n {
		t.Fatalf("expected %d genomes, got %d", n, len(data))
	}
	for i, g := range data {
		if g.ID != ids[i] {
			t.Fatalf("genome %d: expected id %d, got %d", i, ids[i], g.ID)
		}
	}

	ids = append(ids, n+1)
	if _, err := store.GetGenomeData(ctx, "exp", 0, model.KindMaze, ids); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
