package diversity

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"mcceval/internal/model"
)

type Strategy string

const (
	StrategyUniform    Strategy = "uniform"
	StrategyStratified Strategy = "stratified"
	StrategyEven       Strategy = "even"
)

func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyUniform, StrategyStratified, StrategyEven:
		return st, nil
	case "":
		return StrategyUniform, nil
	default:
		return "", fmt.Errorf("%w: unknown sampling strategy %q", model.ErrConfiguration, s)
	}
}

// Sampler draws a reference set without replacement.
//
// Stratified draws from each group in proportion to its size, giving every group at least one
// member when Size allows. Even gives every group the same quota regardless of its size and
// hands quota a small group cannot fill to the others.
type Sampler struct {
	// Size of the sample. Zero, or a size at least the population, selects everyone.
	Size     int
	Strategy Strategy
	// Group names the stratum of an entity id. Stratified and even sampling fall back to uniform
	// draws without it.
	Group func(id int64) string
	// Seed makes draws reproducible. Zero draws fresh randomness on every call.
	Seed int64
}

func (s Sampler) rng() *rand.Rand {
	if s.Seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(s.Seed), 0x9e3779b97f4a7c15))
}

// Sample returns the selected ids in population order.
func (s Sampler) Sample(ids []int64) []int64 {
	if s.Size <= 0 || s.Size >= len(ids) {
		return slices.Clone(ids)
	}
	rng := s.rng()
	if s.Group == nil || s.Strategy == StrategyUniform || s.Strategy == "" {
		return pick(rng, ids, s.Size)
	}

	groups := make(map[string][]int64)
	for _, id := range ids {
		key := s.Group(id)
		groups[key] = append(groups[key], id)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	sizes := make([]int, len(keys))
	for i, k := range keys {
		sizes[i] = len(groups[k])
	}
	var quotas []int
	if s.Strategy == StrategyEven {
		quotas = evenQuotas(sizes, s.Size)
	} else {
		quotas = proportionalQuotas(sizes, len(ids), s.Size)
	}

	selected := make(map[int64]struct{}, s.Size)
	for i, k := range keys {
		for _, id := range pick(rng, groups[k], quotas[i]) {
			selected[id] = struct{}{}
		}
	}
	out := make([]int64, 0, len(selected))
	for _, id := range ids {
		if _, ok := selected[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// pick draws n of ids without replacement, preserving input order.
func pick(rng *rand.Rand, ids []int64, n int) []int64 {
	if n >= len(ids) {
		return slices.Clone(ids)
	}
	idx := rng.Perm(len(ids))[:n]
	slices.Sort(idx)
	out := make([]int64, n)
	for i, j := range idx {
		out[i] = ids[j]
	}
	return out
}

func proportionalQuotas(sizes []int, total, size int) []int {
	quotas := make([]int, len(sizes))
	assigned := 0
	for i, n := range sizes {
		quotas[i] = size * n / total
		if quotas[i] == 0 && size >= len(sizes) {
			quotas[i] = 1
		}
		assigned += quotas[i]
	}
	for assigned > size {
		// take back from the largest quota that can spare one
		largest := -1
		for i, q := range quotas {
			if q > 1 && (largest < 0 || q > quotas[largest]) {
				largest = i
			}
		}
		if largest < 0 {
			break
		}
		quotas[largest]--
		assigned--
	}
	return fill(quotas, sizes, size-assigned)
}

func evenQuotas(sizes []int, size int) []int {
	quotas := make([]int, len(sizes))
	share := size / len(sizes)
	assigned := 0
	for i, n := range sizes {
		quotas[i] = min(share, n)
		assigned += quotas[i]
	}
	return fill(quotas, sizes, size-assigned)
}

// fill hands out remaining quota one at a time to groups with unsampled members.
func fill(quotas, sizes []int, remaining int) []int {
	for remaining > 0 {
		progressed := false
		for i := range quotas {
			if remaining == 0 {
				break
			}
			if quotas[i] < sizes[i] {
				quotas[i]++
				remaining--
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return quotas
}
