// Package diversity measures how far each entity sits from a reference population.
package diversity

import "mcceval/internal/model"

// GridDiff counts co-located voxel mismatches between two bodies. The categories overlap:
// one voxel that is active in a and empty in b counts toward Overall, Occupancy and Active.
type GridDiff struct {
	Overall   int
	Occupancy int
	Active    int
	Passive   int
}

// GridMetrics is the width of GridDiff.Metrics.
const GridMetrics = 4

func (d GridDiff) Metrics() []float64 {
	return []float64{float64(d.Overall), float64(d.Occupancy), float64(d.Active), float64(d.Passive)}
}

// VoxelDissimilarity compares a and b over the union of their extents; coordinates outside a
// body read as empty.
func VoxelDissimilarity(a, b *model.VoxelBody) GridDiff {
	var d GridDiff
	lx, ly, lz := max(a.LengthX, b.LengthX), max(a.LengthY, b.LengthY), max(a.LengthZ, b.LengthZ)
	for z := 0; z < lz; z++ {
		for y := 0; y < ly; y++ {
			for x := 0; x < lx; x++ {
				ma, mb := a.At(x, y, z), b.At(x, y, z)
				if ma == mb {
					continue
				}
				d.Overall++
				if (ma == model.MaterialNone) != (mb == model.MaterialNone) {
					d.Occupancy++
				}
				if (ma == model.MaterialActive) != (mb == model.MaterialActive) {
					d.Active++
				}
				if (ma == model.MaterialPassive) != (mb == model.MaterialPassive) {
					d.Passive++
				}
			}
		}
	}
	return d
}

func VoxelMetrics(a, b *model.VoxelBody) []float64 {
	return VoxelDissimilarity(a, b).Metrics()
}

type edge struct {
	x, y       int
	horizontal bool
}

func unitEdges(walls []model.Wall) map[edge]struct{} {
	edges := make(map[edge]struct{})
	for _, w := range walls {
		switch {
		case w.Y1 == w.Y2:
			for x := min(w.X1, w.X2); x < max(w.X1, w.X2); x++ {
				edges[edge{x: x, y: w.Y1, horizontal: true}] = struct{}{}
			}
		case w.X1 == w.X2:
			for y := min(w.Y1, w.Y2); y < max(w.Y1, w.Y2); y++ {
				edges[edge{x: w.X1, y: y}] = struct{}{}
			}
		}
	}
	return edges
}

// MazeMetrics is the width of MazeDissimilarity.
const MazeMetrics = 2

// MazeDissimilarity returns the number of unit wall edges present in exactly one maze, and the
// summed displacement of the start and target positions.
func MazeDissimilarity(a, b *model.Maze) []float64 {
	ea, eb := unitEdges(a.Walls), unitEdges(b.Walls)
	mismatch := 0
	for e := range ea {
		if _, ok := eb[e]; !ok {
			mismatch++
		}
	}
	for e := range eb {
		if _, ok := ea[e]; !ok {
			mismatch++
		}
	}
	displacement := a.Start.Distance(b.Start) + a.Target.Distance(b.Target)
	return []float64{float64(mismatch), displacement}
}

// TrajectoryDissimilarity is the mean distance between time-aligned samples. The shorter
// trajectory is held at its final point; an empty one is held at the other's first point.
func TrajectoryDissimilarity(a, b []model.Point) float64 {
	n := max(len(a), len(b))
	switch {
	case n == 0:
		return 0
	case len(a) == 0:
		a = b[:1]
	case len(b) == 0:
		b = a[:1]
	}
	total := 0.0
	for i := 0; i < n; i++ {
		pa := a[min(i, len(a)-1)]
		pb := b[min(i, len(b)-1)]
		total += pa.Distance(pb)
	}
	return total / float64(n)
}

func TrajectoryMetrics(a, b []model.Point) []float64 {
	return []float64{TrajectoryDissimilarity(a, b)}
}
