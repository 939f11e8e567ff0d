package codec

import (
	"math"

	"mcceval/internal/model"
)

var (
	cppnInputIDs  = []string{"x", "y", "z", "d", "bias"}
	bodyOutputIDs = []string{"presence", "material"}
)

// BodyFactory holds the dimensional parameters a body CPPN is queried over.
type BodyFactory struct {
	LengthX           int
	LengthY           int
	LengthZ           int
	PresenceThreshold float64
}

type BodyCodec struct {
	Factory BodyFactory
}

// Decode queries the body CPPN over the factory grid grown by resolutionDelta on every axis.
// A voxel is tissue when the presence output exceeds the threshold; a positive material output
// makes it active.
func (c BodyCodec) Decode(g model.Genome, resolutionDelta int) (*model.VoxelBody, error) {
	lx := c.Factory.LengthX + resolutionDelta
	ly := c.Factory.LengthY + resolutionDelta
	lz := c.Factory.LengthZ + resolutionDelta
	if lx < 1 || ly < 1 || lz < 1 {
		return nil, model.NewDecodeError(g, "non-positive body extents %dx%dx%d", lx, ly, lz)
	}

	cppn, _, err := decodeNetwork(g, model.KindBody, cppnInputIDs, bodyOutputIDs)
	if err != nil {
		return nil, err
	}

	body := model.NewVoxelBody(g.ID, lx, ly, lz)
	inputs := make([]float64, len(cppnInputIDs))
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
				if out[0] <= c.Factory.PresenceThreshold {
					continue
				}
				material := model.MaterialPassive
				if out[1] > 0 {
					material = model.MaterialActive
				}
				body.Set(x, y, z, material)
			}
		}
	}
	return body, nil
}
