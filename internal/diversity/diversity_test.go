package diversity

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"mcceval/internal/model"
)

func randomBody(rng *rand.Rand, id int64, lx, ly, lz int) *model.VoxelBody {
	b := model.NewVoxelBody(id, lx, ly, lz)
	for i := range b.Voxels {
		b.Voxels[i] = model.Material(rng.IntN(3))
	}
	return b
}

func bodyEntities(bodies ...*model.VoxelBody) []Entity[*model.VoxelBody] {
	out := make([]Entity[*model.VoxelBody], len(bodies))
	for i, b := range bodies {
		out[i] = Entity[*model.VoxelBody]{ID: b.GenomeID, Kind: model.KindBody, Value: b}
	}
	return out
}

func voxelAggregator(workers int) *Aggregator[*model.VoxelBody] {
	return &Aggregator[*model.VoxelBody]{Workers: workers, Width: GridMetrics, Compare: VoxelMetrics}
}

func TestVoxelDissimilarityIsSymmetric(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := range 50 {
		a := randomBody(rng, 1, 1+rng.IntN(4), 1+rng.IntN(4), 1+rng.IntN(4))
		b := randomBody(rng, 2, 1+rng.IntN(4), 1+rng.IntN(4), 1+rng.IntN(4))
		assert.Equal(t, VoxelDissimilarity(a, b), VoxelDissimilarity(b, a), "case %d", i)
		assert.Equal(t, GridDiff{}, VoxelDissimilarity(a, a))
	}
}

func TestVoxelDissimilarityCategories(t *testing.T) {
	a := model.NewVoxelBody(1, 2, 2, 1)
	b := model.NewVoxelBody(2, 2, 2, 1)
	a.Set(1, 0, 0, model.MaterialActive)
	assert.Equal(t, GridDiff{Overall: 1, Occupancy: 1, Active: 1}, VoxelDissimilarity(a, b))

	b.Set(1, 0, 0, model.MaterialPassive)
	assert.Equal(t, GridDiff{Overall: 1, Active: 1, Passive: 1}, VoxelDissimilarity(a, b))
}

func TestVoxelDissimilarityOutsideExtentsIsEmpty(t *testing.T) {
	small := model.NewVoxelBody(1, 1, 1, 1)
	small.Set(0, 0, 0, model.MaterialPassive)
	large := model.NewVoxelBody(2, 2, 1, 1)
	large.Set(0, 0, 0, model.MaterialPassive)
	large.Set(1, 0, 0, model.MaterialPassive)
	assert.Equal(t, GridDiff{Overall: 1, Occupancy: 1, Passive: 1}, VoxelDissimilarity(small, large))
}

func TestExhaustiveWorkedExample(t *testing.T) {
	a := model.NewVoxelBody(1, 2, 2, 1)
	a.Set(0, 1, 0, model.MaterialActive)
	b := model.NewVoxelBody(2, 2, 2, 1)
	c := model.NewVoxelBody(3, 2, 2, 1)
	c.Set(0, 1, 0, model.MaterialActive)
	population := bodyEntities(a, b, c)

	records, err := voxelAggregator(2).Exhaustive(context.Background(), population[:1], population)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].EntityID)
	assert.Equal(t, 2, records[0].Comparisons)
	// against b: one mismatch in overall, occupancy and active; against c: none
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0}, records[0].Metrics)
}

func TestExhaustiveRejectsWidthMismatch(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	population := bodyEntities(randomBody(rng, 1, 2, 2, 2), randomBody(rng, 2, 2, 2, 2))
	agg := &Aggregator[*model.VoxelBody]{Width: 3, Compare: VoxelMetrics}
	_, err := agg.Exhaustive(context.Background(), population, population)
	require.Error(t, err)

	_, err = (&Aggregator[*model.VoxelBody]{}).Exhaustive(context.Background(), population, population)
	require.ErrorIs(t, err, model.ErrConfiguration)
}

func TestSampledConvergesToExhaustive(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	bodies := make([]*model.VoxelBody, 60)
	for i := range bodies {
		bodies[i] = randomBody(rng, int64(i+1), 3, 3, 3)
	}
	population := bodyEntities(bodies...)
	agg := voxelAggregator(4)
	ctx := context.Background()

	exhaustive, err := agg.Exhaustive(ctx, population, population)
	require.NoError(t, err)
	want := Summarize(exhaustive)[0].Mean

	full, err := agg.Sampled(ctx, population, population, Sampler{Size: len(population)})
	require.NoError(t, err)
	assert.InDelta(t, want, Summarize(full)[0].Mean, 1e-9)

	means := make([]float64, 0, 30)
	for seed := range 30 {
		sampled, err := agg.Sampled(ctx, population, population, Sampler{Size: 30, Seed: int64(seed + 1)})
		require.NoError(t, err)
		means = append(means, Summarize(sampled)[0].Mean)
	}
	assert.InEpsilon(t, want, stat.Mean(means, nil), 0.05)
}

func TestPartialOverWindowsMatchesExhaustive(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	bodies := make([]*model.VoxelBody, 11)
	for i := range bodies {
		bodies[i] = randomBody(rng, int64(i+1), 3, 2, 2)
	}
	population := bodyEntities(bodies...)
	agg := voxelAggregator(3)
	ctx := context.Background()

	want, err := agg.Exhaustive(ctx, population, population)
	require.NoError(t, err)

	var got []model.DiversityRecord
	for entities := range slices.Chunk(population, 4) {
		partial, err := agg.NewPartial(entities)
		require.NoError(t, err)
		for window := range slices.Chunk(population, 3) {
			require.NoError(t, partial.Add(ctx, window))
		}
		got = append(got, partial.Records()...)
	}
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].EntityID, got[i].EntityID)
		assert.Equal(t, len(population)-1, got[i].Comparisons)
		assert.InDeltaSlice(t, want[i].Metrics, got[i].Metrics, 1e-9)
	}
}

func TestAccumulatorConcurrentAdds(t *testing.T) {
	acc := NewAccumulator(2)
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				acc.AddAll([]float64{1, 0.5})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 16000, acc.Count())
	assert.Equal(t, []float64{16000, 8000}, acc.Sums())
	assert.Equal(t, []float64{1, 0.5}, acc.Means())
}

func TestMazeDissimilarity(t *testing.T) {
	a := &model.Maze{
		Walls:  []model.Wall{{X1: 0, Y1: 2, X2: 3, Y2: 2}},
		Start:  model.Point{X: 0.5, Y: 0.5},
		Target: model.Point{X: 3.5, Y: 3.5},
	}
	b := &model.Maze{
		Walls:  []model.Wall{{X1: 1, Y1: 2, X2: 2, Y2: 2}, {X1: 1, Y1: 0, X2: 1, Y2: 1}},
		Start:  model.Point{X: 0.5, Y: 0.5},
		Target: model.Point{X: 3.5, Y: 2.5},
	}
	assert.Equal(t, []float64{3, 1}, MazeDissimilarity(a, b))
	assert.Equal(t, MazeDissimilarity(a, b), MazeDissimilarity(b, a))
	assert.Equal(t, []float64{0, 0}, MazeDissimilarity(a, a))
}

func TestTrajectoryDissimilarityPadsShorter(t *testing.T) {
	a := []model.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	b := []model.Point{{X: 0, Y: 0}}
	assert.InDelta(t, 1.0, TrajectoryDissimilarity(a, b), 1e-12)
	assert.InDelta(t, 1.0, TrajectoryDissimilarity(b, a), 1e-12)
	assert.InDelta(t, 1.0, TrajectoryDissimilarity(a, nil), 1e-12)
	assert.Zero(t, TrajectoryDissimilarity(nil, nil))
}
