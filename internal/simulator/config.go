package simulator

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mcceval/internal/model"
)

type configDocument struct {
	Mode        Mode             `yaml:"mode"`
	Bound       float64          `yaml:"bound"`
	Bodies      []bodyConfig     `yaml:"bodies,omitempty"`
	Controllers []controllerConf `yaml:"controllers,omitempty"`
	Mazes       []mazeConfig     `yaml:"mazes,omitempty"`
	Navigators  []navigatorConf  `yaml:"navigators,omitempty"`
}

// bodyConfig lists one digit string per z layer, x-fastest then y: 0 empty, 1 passive, 2 active.
type bodyConfig struct {
	ID     int64    `yaml:"id"`
	X      int      `yaml:"x"`
	Y      int      `yaml:"y"`
	Z      int      `yaml:"z"`
	Layers []string `yaml:"layers"`
}

type controllerConf struct {
	ID        int64     `yaml:"id"`
	Frequency float64   `yaml:"frequency"`
	Phases    []float64 `yaml:"phases,flow"`
}

type mazeConfig struct {
	ID     int64        `yaml:"id"`
	Width  int          `yaml:"width"`
	Height int          `yaml:"height"`
	Walls  []model.Wall `yaml:"walls,flow"`
	Start  model.Point  `yaml:"start,flow"`
	Target model.Point  `yaml:"target,flow"`
}

type navigatorConf struct {
	ID         int64           `yaml:"id"`
	InputIDs   []string        `yaml:"inputs,flow"`
	OutputIDs  []string        `yaml:"outputs,flow"`
	InputScale float64         `yaml:"input_scale"`
	Neurons    []model.Neuron  `yaml:"neurons"`
	Synapses   []model.Synapse `yaml:"synapses"`
}

func buildConfig(req Request) (configDocument, error) {
	doc := configDocument{Mode: req.Mode, Bound: req.Bound}
	for _, p := range req.Phenotypes {
		switch v := p.(type) {
		case *model.VoxelBody:
			doc.Bodies = append(doc.Bodies, bodyConfigFor(v))
		case *model.BodyController:
			doc.Controllers = append(doc.Controllers, controllerConf{ID: v.GenomeID, Frequency: v.Frequency, Phases: v.Phases})
		case *model.Maze:
			doc.Mazes = append(doc.Mazes, mazeConfig{
				ID: v.GenomeID, Width: v.Width, Height: v.Height, Walls: v.Walls, Start: v.Start, Target: v.Target,
			})
		case *model.Navigator:
			doc.Navigators = append(doc.Navigators, navigatorConf{
				ID:         v.GenomeID,
				InputIDs:   v.InputIDs,
				OutputIDs:  v.OutputIDs,
				InputScale: v.InputScale,
				Neurons:    v.Network.Neurons,
				Synapses:   v.Network.Synapses,
			})
		default:
			return configDocument{}, fmt.Errorf("unsupported phenotype %T", p)
		}
	}
	return doc, nil
}

func bodyConfigFor(b *model.VoxelBody) bodyConfig {
	conf := bodyConfig{ID: b.GenomeID, X: b.LengthX, Y: b.LengthY, Z: b.LengthZ}
	var sb strings.Builder
	for z := 0; z < b.LengthZ; z++ {
		sb.Reset()
		for y := 0; y < b.LengthY; y++ {
			for x := 0; x < b.LengthX; x++ {
				sb.WriteByte('0' + byte(b.At(x, y, z)))
			}
		}
		conf.Layers = append(conf.Layers, sb.String())
	}
	return conf
}

// WriteConfig writes the simulator-readable YAML configuration for req to path.
func WriteConfig(path string, req Request) error {
	doc, err := buildConfig(req)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal simulator config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
