package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"mcceval/internal/model"
)

type runKey struct {
	experimentID string
	run          int
}

type genomeKey struct {
	runKey
	kind model.GenomeKind
}

type storedGenome struct {
	genome model.Genome
	batch  int
}

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	genomes     map[genomeKey]map[int64]storedGenome
	results     map[runKey]map[ResultKind][][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.genomes = make(map[genomeKey]map[int64]storedGenome)
	s.results = make(map[runKey]map[ResultKind][][]byte)
	return nil
}

func (s *MemoryStore) checkInit() error {
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	return nil
}

func (s *MemoryStore) SaveGenomes(_ context.Context, experimentID string, run, batch int, genomes []model.Genome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInit(); err != nil {
		return err
	}

	for _, g := range genomes {
		if !g.Kind.Valid() {
			return fmt.Errorf("genome %d: unknown kind %q", g.ID, g.Kind)
		}
		key := genomeKey{runKey{experimentID, run}, g.Kind}
		byID, ok := s.genomes[key]
		if !ok {
			byID = make(map[int64]storedGenome)
			s.genomes[key] = byID
		}
		byID[g.ID] = storedGenome{genome: g, batch: batch}
	}
	return nil
}

func (s *MemoryStore) GetIDs(_ context.Context, experimentID string, run int, kind model.GenomeKind, batch *int) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInit(); err != nil {
		return nil, err
	}

	byID := s.genomes[genomeKey{runKey{experimentID, run}, kind}]
	ids := make([]int64, 0, len(byID))
	for id, stored := range byID {
		if batch != nil && stored.batch != *batch {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *MemoryStore) GetGenomeData(_ context.Context, experimentID string, run int, kind model.GenomeKind, ids []int64) ([]model.Genome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInit(); err != nil {
		return nil, err
	}

	byID := s.genomes[genomeKey{runKey{experimentID, run}, kind}]
	out := make([]model.Genome, 0, len(ids))
	for _, id := range ids {
		stored, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%s genome %d in %s/%d: %w", kind, id, experimentID, run, ErrNotFound)
		}
		out = append(out, stored.genome)
	}
	return out, nil
}

func (s *MemoryStore) GetBatches(_ context.Context, experimentID string, run int, kind model.GenomeKind) (map[int64]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkInit(); err != nil {
		return nil, err
	}

	byID := s.genomes[genomeKey{runKey{experimentID, run}, kind}]
	batches := make(map[int64]int, len(byID))
	for id, stored := range byID {
		batches[id] = stored.batch
	}
	return batches, nil
}

func saveMemory[T any](s *MemoryStore, kind ResultKind, key BatchKey, records []T) error {
	payload, err := EncodeBatch(key, records)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInit(); err != nil {
		return err
	}
	rk := runKey{key.ExperimentID, key.Run}
	byKind, ok := s.results[rk]
	if !ok {
		byKind = make(map[ResultKind][][]byte)
		s.results[rk] = byKind
	}
	byKind[kind] = append(byKind[kind], payload)
	return nil
}

func loadMemory[T any](s *MemoryStore, kind ResultKind, experimentID string, run int) ([]T, error) {
	s.mu.RLock()
	if err := s.checkInit(); err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	payloads := slices.Clone(s.results[runKey{experimentID, run}][kind])
	s.mu.RUnlock()
	return decodeAll[T](kind, payloads)
}

func (s *MemoryStore) SaveEvaluations(_ context.Context, key BatchKey, records []model.EvaluationRecord) error {
	return saveMemory(s, ResultEvaluations, key, records)
}

func (s *MemoryStore) SaveDiversity(_ context.Context, key BatchKey, records []model.DiversityRecord) error {
	return saveMemory(s, ResultDiversity, key, records)
}

func (s *MemoryStore) SaveUpscale(_ context.Context, key BatchKey, results []model.UpscaleResult) error {
	return saveMemory(s, ResultUpscale, key, results)
}

func (s *MemoryStore) SaveSolveTallies(_ context.Context, key BatchKey, tallies []model.SolveTally) error {
	return saveMemory(s, ResultSolveTallies, key, tallies)
}

func (s *MemoryStore) LoadEvaluations(_ context.Context, experimentID string, run int) ([]model.EvaluationRecord, error) {
	return loadMemory[model.EvaluationRecord](s, ResultEvaluations, experimentID, run)
}

func (s *MemoryStore) LoadDiversity(_ context.Context, experimentID string, run int) ([]model.DiversityRecord, error) {
	return loadMemory[model.DiversityRecord](s, ResultDiversity, experimentID, run)
}

func (s *MemoryStore) LoadUpscale(_ context.Context, experimentID string, run int) ([]model.UpscaleResult, error) {
	return loadMemory[model.UpscaleResult](s, ResultUpscale, experimentID, run)
}

func (s *MemoryStore) LoadSolveTallies(_ context.Context, experimentID string, run int) ([]model.SolveTally, error) {
	return loadMemory[model.SolveTally](s, ResultSolveTallies, experimentID, run)
}
