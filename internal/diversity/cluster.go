package diversity

import (
	"context"
	"fmt"

	"mcceval/internal/model"
)

// ClusterRange bounds the cluster counts tried by a Clusterer.
type ClusterRange struct {
	Min int
	Max int
}

func (r ClusterRange) Validate() error {
	if r.Min < 2 || r.Max < r.Min {
		return fmt.Errorf("%w: cluster range [%d, %d]", model.ErrConfiguration, r.Min, r.Max)
	}
	return nil
}

// Clusterer groups a reference set into k clusters. Implementations live outside this module.
type Clusterer[T any] interface {
	Cluster(ctx context.Context, reference []Entity[T], k int) error
}

// SampleForClustering selects the members of population chosen by sampler.
func SampleForClustering[T any](population []Entity[T], sampler Sampler) []Entity[T] {
	ids := make([]int64, len(population))
	for i, e := range population {
		ids[i] = e.ID
	}
	selected := make(map[int64]struct{}, len(ids))
	for _, id := range sampler.Sample(ids) {
		selected[id] = struct{}{}
	}
	out := make([]Entity[T], 0, len(selected))
	for _, e := range population {
		if _, ok := selected[e.ID]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Cluster hands the sampled reference set to c once for every k in r.
func Cluster[T any](ctx context.Context, c Clusterer[T], population []Entity[T], sampler Sampler, r ClusterRange) error {
	if err := r.Validate(); err != nil {
		return err
	}
	reference := SampleForClustering(population, sampler)
	for k := r.Min; k <= r.Max && k <= len(reference); k++ {
		if err := c.Cluster(ctx, reference, k); err != nil {
			return fmt.Errorf("cluster k=%d: %w", k, err)
		}
	}
	return nil
}
