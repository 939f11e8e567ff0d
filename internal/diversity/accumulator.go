package diversity

import (
	"math"
	"sync/atomic"
)

// Accumulator is a fixed-width vector of float64 sums that many goroutines add into at once.
type Accumulator struct {
	bits  []atomic.Uint64
	count atomic.Int64
}

func NewAccumulator(width int) *Accumulator {
	return &Accumulator{bits: make([]atomic.Uint64, width)}
}

func (a *Accumulator) Width() int {
	return len(a.bits)
}

func (a *Accumulator) Add(i int, v float64) {
	for {
		old := a.bits[i].Load()
		next := math.Float64bits(math.Float64frombits(old) + v)
		if a.bits[i].CompareAndSwap(old, next) {
			return
		}
	}
}

// AddAll adds one comparison's metrics, which must have the accumulator's width.
func (a *Accumulator) AddAll(values []float64) {
	for i, v := range values {
		a.Add(i, v)
	}
	a.count.Add(1)
}

// Count is the number of AddAll calls.
func (a *Accumulator) Count() int {
	return int(a.count.Load())
}

func (a *Accumulator) Sums() []float64 {
	out := make([]float64, len(a.bits))
	for i := range a.bits {
		out[i] = math.Float64frombits(a.bits[i].Load())
	}
	return out
}

// Means divides each sum by Count. An accumulator with no comparisons yields zeros.
func (a *Accumulator) Means() []float64 {
	out := a.Sums()
	n := a.Count()
	if n == 0 {
		return out
	}
	for i := range out {
		out[i] /= float64(n)
	}
	return out
}
