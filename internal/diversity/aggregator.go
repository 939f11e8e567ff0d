package diversity

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"mcceval/internal/model"
)

// Entity is one member of a population under comparison.
type Entity[T any] struct {
	ID    int64
	Kind  model.GenomeKind
	Value T
}

// Aggregator reduces pairwise dissimilarities into one DiversityRecord per entity.
type Aggregator[T any] struct {
	// Workers bounds concurrent comparisons. Zero uses GOMAXPROCS.
	Workers int
	// Width is the number of metrics Compare returns.
	Width   int
	Compare func(a, b T) []float64
}

func (a *Aggregator[T]) workers() int {
	if a.Workers > 0 {
		return a.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (a *Aggregator[T]) check() error {
	if a.Compare == nil || a.Width <= 0 {
		return fmt.Errorf("%w: diversity aggregator needs a comparison and a positive width", model.ErrConfiguration)
	}
	return nil
}

// Exhaustive compares every entity against every other member of population. Each metric is
// the sum over comparisons divided by the number of comparisons made.
func (a *Aggregator[T]) Exhaustive(ctx context.Context, entities, population []Entity[T]) ([]model.DiversityRecord, error) {
	partial, err := a.NewPartial(entities)
	if err != nil {
		return nil, err
	}
	if err := partial.Add(ctx, population); err != nil {
		return nil, err
	}
	return partial.Records(), nil
}

// Sampled draws one reference set from population with sampler and reduces every entity
// against it.
func (a *Aggregator[T]) Sampled(ctx context.Context, entities, population []Entity[T], sampler Sampler) ([]model.DiversityRecord, error) {
	return a.Exhaustive(ctx, entities, SampleForClustering(population, sampler))
}

// Partial reduces a window of entities against a population that arrives in windows, so
// neither side has to be resident whole. Records are final once every window was added.
type Partial[T any] struct {
	agg      *Aggregator[T]
	entities []Entity[T]
	sums     []*Accumulator
}

func (a *Aggregator[T]) NewPartial(entities []Entity[T]) (*Partial[T], error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	sums := make([]*Accumulator, len(entities))
	for i := range sums {
		sums[i] = NewAccumulator(a.Width)
	}
	return &Partial[T]{agg: a, entities: entities, sums: sums}, nil
}

// Add compares every entity with each member of window other than itself.
func (p *Partial[T]) Add(ctx context.Context, window []Entity[T]) error {
	for i, e := range p.entities {
		if err := p.agg.accumulate(ctx, e, window, p.sums[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Partial[T]) Records() []model.DiversityRecord {
	records := make([]model.DiversityRecord, len(p.entities))
	for i, e := range p.entities {
		records[i] = model.DiversityRecord{
			EntityID:    e.ID,
			Kind:        e.Kind,
			Metrics:     p.sums[i].Means(),
			Comparisons: p.sums[i].Count(),
		}
	}
	return records
}

func (a *Aggregator[T]) accumulate(ctx context.Context, e Entity[T], population []Entity[T], acc *Accumulator) error {
	workers := a.workers()
	block := max(1, (len(population)+workers-1)/workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for members := range slices.Chunk(population, block) {
		g.Go(func() error {
			for _, p := range members {
				if p.ID == e.ID {
					continue
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				metrics := a.Compare(e.Value, p.Value)
				if len(metrics) != a.Width {
					return fmt.Errorf("compare %d with %d: got %d metrics, want %d", e.ID, p.ID, len(metrics), a.Width)
				}
				acc.AddAll(metrics)
			}
			return nil
		})
	}
	return g.Wait()
}
