package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcceval/internal/model"
)

func sequence(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i*3 + 1)
	}
	return ids
}

func TestChunkCompleteness(t *testing.T) {
	for _, n := range []int{0, 1, 5, 10, 11, 97} {
		for _, size := range []int{1, 2, 3, 10, 100} {
			ids := sequence(n)
			chunks, err := Chunk(ids, size)
			require.NoError(t, err)

			var joined []int64
			windows := 0
			var lengths []int
			for window := range chunks {
				joined = append(joined, window...)
				lengths = append(lengths, len(window))
				windows++
			}

			if n == 0 {
				assert.Empty(t, joined)
			} else {
				assert.Equal(t, ids, joined, "n=%d size=%d", n, size)
			}
			assert.Equal(t, Count(n, size), windows, "n=%d size=%d", n, size)
			for i, l := range lengths {
				if i < len(lengths)-1 {
					assert.Equal(t, size, l)
				} else {
					assert.LessOrEqual(t, l, size)
					assert.Positive(t, l)
				}
			}
		}
	}
}

func TestChunkIsLazyAndStoppable(t *testing.T) {
	chunks, err := Chunk(sequence(10), 3)
	require.NoError(t, err)

	var seen [][]int64
	for window := range chunks {
		seen = append(seen, window)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, [][]int64{{1, 4, 7}, {10, 13, 16}}, seen)
}

func TestChunkRejectsNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -4} {
		_, err := Chunk(sequence(4), size)
		assert.ErrorIs(t, err, model.ErrConfiguration)
	}
}
