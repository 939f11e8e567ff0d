//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"mcceval/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveGenomes(ctx context.Context, experimentID string, run, batch int, genomes []model.Genome) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO genomes (experiment_id, run, kind, id, batch, encoding)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(experiment_id, run, kind, id) DO UPDATE SET
			batch = excluded.batch,
			encoding = excluded.encoding
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, g := range genomes {
		if !g.Kind.Valid() {
			return fmt.Errorf("genome %d: unknown kind %q", g.ID, g.Kind)
		}
		if _, err := stmt.ExecContext(ctx, experimentID, run, string(g.Kind), g.ID, batch, g.Encoding); err != nil {
			return fmt.Errorf("save genome %d: %w", g.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetIDs(ctx context.Context, experimentID string, run int, kind model.GenomeKind, batch *int) ([]int64, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	query := `SELECT id FROM genomes WHERE experiment_id = ? AND run = ? AND kind = ?`
	args := []any{experimentID, run, string(kind)}
	if batch != nil {
		query += ` AND batch = ?`
		args = append(args, *batch)
	}
	rows, err := db.QueryContext(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) GetGenomeData(ctx context.Context, experimentID string, run int, kind model.GenomeKind, ids []int64) ([]model.Genome, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Genome{}, nil
	}

	byID := make(map[int64]model.Genome, len(ids))
	for group := range slices.Chunk(ids, maxQueryIDs) {
		if err := s.collectGenomes(ctx, db, experimentID, run, kind, group, byID); err != nil {
			return nil, err
		}
	}

	out := make([]model.Genome, 0, len(ids))
	for _, id := range ids {
		g, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%s genome %d in %s/%d: %w", kind, id, experimentID, run, ErrNotFound)
		}
		out = append(out, g)
	}
	return out, nil
}

// maxQueryIDs keeps each IN list well under SQLite's bound-variable limit.
const maxQueryIDs = 500

func (s *SQLiteStore) collectGenomes(ctx context.Context, db *sql.DB, experimentID string, run int, kind model.GenomeKind, ids []int64, into map[int64]model.Genome) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+3)
	args = append(args, experimentID, run, string(kind))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, encoding FROM genomes
		WHERE experiment_id = ? AND run = ? AND kind = ? AND id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		g := model.Genome{Kind: kind}
		if err := rows.Scan(&g.ID, &g.Encoding); err != nil {
			return err
		}
		into[g.ID] = g
	}
	return rows.Err()
}

func (s *SQLiteStore) GetBatches(ctx context.Context, experimentID string, run int, kind model.GenomeKind) (map[int64]int, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, batch FROM genomes WHERE experiment_id = ? AND run = ? AND kind = ?
	`, experimentID, run, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := make(map[int64]int)
	for rows.Next() {
		var (
			id    int64
			batch int
		)
		if err := rows.Scan(&id, &batch); err != nil {
			return nil, err
		}
		batches[id] = batch
	}
	return batches, rows.Err()
}

func saveSQLite[T any](ctx context.Context, s *SQLiteStore, kind ResultKind, key BatchKey, records []T) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := EncodeBatch(key, records)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO results (batch_id, kind, experiment_id, run, chunk, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(batch_id, kind) DO UPDATE SET
			payload = excluded.payload
	`, key.BatchID.String(), string(kind), key.ExperimentID, key.Run, key.Chunk, payload)
	return err
}

func loadSQLite[T any](ctx context.Context, s *SQLiteStore, kind ResultKind, experimentID string, run int) ([]T, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT payload FROM results
		WHERE experiment_id = ? AND run = ? AND kind = ?
		ORDER BY seq
	`, experimentID, run, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payloads [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		payloads = append(payloads, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return decodeAll[T](kind, payloads)
}

func (s *SQLiteStore) SaveEvaluations(ctx context.Context, key BatchKey, records []model.EvaluationRecord) error {
	return saveSQLite(ctx, s, ResultEvaluations, key, records)
}

func (s *SQLiteStore) SaveDiversity(ctx context.Context, key BatchKey, records []model.DiversityRecord) error {
	return saveSQLite(ctx, s, ResultDiversity, key, records)
}

func (s *SQLiteStore) SaveUpscale(ctx context.Context, key BatchKey, results []model.UpscaleResult) error {
	return saveSQLite(ctx, s, ResultUpscale, key, results)
}

func (s *SQLiteStore) SaveSolveTallies(ctx context.Context, key BatchKey, tallies []model.SolveTally) error {
	return saveSQLite(ctx, s, ResultSolveTallies, key, tallies)
}

func (s *SQLiteStore) LoadEvaluations(ctx context.Context, experimentID string, run int) ([]model.EvaluationRecord, error) {
	return loadSQLite[model.EvaluationRecord](ctx, s, ResultEvaluations, experimentID, run)
}

func (s *SQLiteStore) LoadDiversity(ctx context.Context, experimentID string, run int) ([]model.DiversityRecord, error) {
	return loadSQLite[model.DiversityRecord](ctx, s, ResultDiversity, experimentID, run)
}

func (s *SQLiteStore) LoadUpscale(ctx context.Context, experimentID string, run int) ([]model.UpscaleResult, error) {
	return loadSQLite[model.UpscaleResult](ctx, s, ResultUpscale, experimentID, run)
}

func (s *SQLiteStore) LoadSolveTallies(ctx context.Context, experimentID string, run int) ([]model.SolveTally, error) {
	return loadSQLite[model.SolveTally](ctx, s, ResultSolveTallies, experimentID, run)
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS genomes (
			experiment_id TEXT NOT NULL,
			run INTEGER NOT NULL,
			kind TEXT NOT NULL,
			id INTEGER NOT NULL,
			batch INTEGER NOT NULL,
			encoding TEXT NOT NULL,
			PRIMARY KEY (experiment_id, run, kind, id)
		);
		CREATE TABLE IF NOT EXISTS results (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			experiment_id TEXT NOT NULL,
			run INTEGER NOT NULL,
			chunk INTEGER NOT NULL,
			payload BLOB NOT NULL,
			UNIQUE (batch_id, kind)
		);
		CREATE INDEX IF NOT EXISTS results_run ON results (experiment_id, run, kind);
	`)
	return err
}
