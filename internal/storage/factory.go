package storage

import (
	"fmt"

	"mcceval/internal/model"
)

const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

// NewStore opens the backend named by kind. The sqlite backend needs a path and a binary built
// with -tags sqlite.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		if sqlitePath == "" {
			return nil, fmt.Errorf("%w: sqlite store needs a path", model.ErrConfiguration)
		}
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("%w: unsupported store backend %q", model.ErrConfiguration, kind)
	}
}

// CloseIfSupported closes stores that hold resources; the memory store holds none.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
