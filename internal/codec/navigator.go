package codec

import (
	"math"

	"mcceval/internal/model"
)

// Rangefinders plus radar slices, and the (angular, linear) velocity outputs.
const (
	DefaultNavigatorInputs  = 10
	DefaultNavigatorOutputs = 2
)

type NavigatorCodec struct {
	Inputs  int
	Outputs int
}

// Decode compiles the navigator network. Sensor inputs are scaled by the diagonal of the
// width*height maze it will be evaluated in.
func (c NavigatorCodec) Decode(g model.Genome, width, height int) (*model.Navigator, error) {
	if width < 1 || height < 1 {
		return nil, model.NewDecodeError(g, "non-positive maze extents %dx%d", width, height)
	}
	inputs, outputs := c.Inputs, c.Outputs
	if inputs <= 0 {
		inputs = DefaultNavigatorInputs
	}
	if outputs <= 0 {
		outputs = DefaultNavigatorOutputs
	}
	inputIDs := indexedIDs("in", inputs)
	outputIDs := indexedIDs("out", outputs)

	compiled, network, err := decodeNetwork(g, model.KindNavigator, inputIDs, outputIDs)
	if err != nil {
		return nil, err
	}
	scale := 1 / math.Hypot(float64(width), float64(height))
	return &model.Navigator{
		GenomeID:   g.ID,
		Network:    network,
		InputIDs:   inputIDs,
		OutputIDs:  outputIDs,
		InputScale: scale,
		Query: func(raw []float64) ([]float64, error) {
			scaled := make([]float64, len(raw))
			for i, v := range raw {
				scaled[i] = v * scale
			}
			return compiled.Query(scaled)
		},
	}, nil
}
