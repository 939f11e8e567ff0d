package codec

import (
	"math"

	"mcceval/internal/model"
)

var brainOutputIDs = []string{"frequency", "phase"}

const (
	defaultMinFrequency = 1.0
	defaultMaxFrequency = 5.0
)

// BrainCodec decodes a brain CPPN into a controller sized to its paired body.
type BrainCodec struct {
	MinFrequency float64
	MaxFrequency float64
}

// Decode queries the brain CPPN once per voxel of an lx*ly*lz body for its phase offset, and
// once at the origin for the shared oscillation frequency.
func (c BrainCodec) Decode(g model.Genome, lx, ly, lz int) (*model.BodyController, error) {
	if lx < 1 || ly < 1 || lz < 1 {
		return nil, model.NewDecodeError(g, "non-positive body extents %dx%dx%d", lx, ly, lz)
	}
	cppn, _, err := decodeNetwork(g, model.KindBrain, cppnInputIDs, brainOutputIDs)
	if err != nil {
		return nil, err
	}

	minF, maxF := c.MinFrequency, c.MaxFrequency
	if minF <= 0 {
		minF = defaultMinFrequency
	}
	if maxF <= minF {
		maxF = math.Max(defaultMaxFrequency, minF)
	}

	origin, err := cppn.Query([]float64{0, 0, 0, 0, 1})
	if err != nil {
		return nil, model.NewDecodeError(g, "query origin: %w", err)
	}
	controller := &model.BodyController{
		GenomeID:  g.ID,
		LengthX:   lx,
		LengthY:   ly,
		LengthZ:   lz,
		Frequency: minF + (maxF-minF)/(1+math.Exp(-origin[0])),
		Phases:    make([]float64, lx*ly*lz),
	}

	inputs := make([]float64, len(cppnInputIDs))
	i := 0
	for z := 0; z < lz; z++ {
		for y := 0; y < ly; y++ {
			for x := 0; x < lx; x++ {
				nx, ny, nz := normalize(x, lx), normalize(y, ly), normalize(z, lz)
				inputs[0], inputs[1], inputs[2] = nx, ny, nz
				inputs[3] = math.Sqrt(nx*nx + ny*ny + nz*nz)
				inputs[4] = 1
				out, err := cppn.Query(inputs)
				if err != nil {
					return nil, model.NewDecodeError(g, "query (%d,%d,%d): %w", x, y, z, err)
				}
				controller.Phases[i] = math.Pi * math.Tanh(out[1])
				i++
			}
		}
	}
	return controller, nil
}
