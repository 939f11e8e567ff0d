package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"mcceval/internal/model"
)

var ErrNotFound = errors.New("not found")

// BatchKey identifies one chunk's worth of results within an experiment run.
type BatchKey struct {
	ExperimentID string    `json:"experiment_id"`
	Run          int       `json:"run"`
	BatchID      uuid.UUID `json:"batch_id"`
	Chunk        int       `json:"chunk"`
}

func NewBatchKey(experimentID string, run, chunk int) BatchKey {
	return BatchKey{ExperimentID: experimentID, Run: run, BatchID: uuid.New(), Chunk: chunk}
}

// GenomeRepository serves genomes by id. Callers list ids first and then fetch bounded windows
// of them, so a run is never loaded whole.
type GenomeRepository interface {
	// GetIDs lists the ids of one kind in ascending order. A non-nil batch restricts the list
	// to genomes imported with that batch number.
	GetIDs(ctx context.Context, experimentID string, run int, kind model.GenomeKind, batch *int) ([]int64, error)
	// GetGenomeData returns the genomes for ids in the same order. A missing id is ErrNotFound.
	GetGenomeData(ctx context.Context, experimentID string, run int, kind model.GenomeKind, ids []int64) ([]model.Genome, error)
}

// BatchIndex reports the import batch of every genome of one kind.
type BatchIndex interface {
	GetBatches(ctx context.Context, experimentID string, run int, kind model.GenomeKind) (map[int64]int, error)
}

// ResultSink receives each chunk's terminal output.
type ResultSink interface {
	SaveEvaluations(ctx context.Context, key BatchKey, records []model.EvaluationRecord) error
	SaveDiversity(ctx context.Context, key BatchKey, records []model.DiversityRecord) error
	SaveUpscale(ctx context.Context, key BatchKey, results []model.UpscaleResult) error
	SaveSolveTallies(ctx context.Context, key BatchKey, tallies []model.SolveTally) error
}

// ResultReader reads back everything saved for a run, in save order.
type ResultReader interface {
	LoadEvaluations(ctx context.Context, experimentID string, run int) ([]model.EvaluationRecord, error)
	LoadDiversity(ctx context.Context, experimentID string, run int) ([]model.DiversityRecord, error)
	LoadUpscale(ctx context.Context, experimentID string, run int) ([]model.UpscaleResult, error)
	LoadSolveTallies(ctx context.Context, experimentID string, run int) ([]model.SolveTally, error)
}

// Store is a genome repository that also persists results.
type Store interface {
	Init(ctx context.Context) error
	SaveGenomes(ctx context.Context, experimentID string, run, batch int, genomes []model.Genome) error
	GenomeRepository
	BatchIndex
	ResultSink
	ResultReader
}
