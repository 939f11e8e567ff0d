// Package chunk partitions id sequences into bounded windows so that only one window of
// decoded phenotypes and evaluation units is resident at a time.
package chunk

import (
	"fmt"
	"iter"
	"slices"

	"mcceval/internal/model"
)

// Chunk returns a lazy sequence of consecutive, non-overlapping windows over ids. Every window
// holds size ids except possibly the last, and their concatenation is ids. The windows alias
// ids and must not be appended to.
func Chunk[T any](ids []T, size int) (iter.Seq[[]T], error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be > 0, got %d", model.ErrConfiguration, size)
	}
	return slices.Chunk(ids, size), nil
}

// Count returns the number of windows Chunk yields for n ids.
func Count(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
