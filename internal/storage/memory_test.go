package storage

import (
	"context"
	"testing"

	"mcceval/internal/model"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	exerciseStore(t, store)
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.GetIDs(context.Background(), "exp", 0, model.KindMaze, nil); err == nil {
		t.Fatal("expected error from uninitialized store")
	}
}

func TestMemoryStoreRejectsUnknownKind(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	err := store.SaveGenomes(context.Background(), "exp", 0, 0, []model.Genome{{ID: 1, Kind: "wing"}})
	if err == nil {
		t.Fatal("expected unknown kind error")
	}
}
