package codec

import (
	"encoding/json"
	"math"

	"mcceval/internal/model"
)

// WallGene places one interior wall during recursive division. Locations are unit fractions
// of the region being divided; OrientationSeed selects a horizontal wall when the region
// allows either orientation.
type WallGene struct {
	WallLocation    float64 `json:"wall_location"`
	PassageLocation float64 `json:"passage_location"`
	OrientationSeed bool    `json:"orientation_seed"`
}

type mazeDocument struct {
	model.VersionedRecord
	WallGenes []WallGene `json:"wall_genes"`
}

func EncodeMaze(genes []WallGene) (string, error) {
	doc := mazeDocument{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		WallGenes:       genes,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type MazeFactory struct {
	Width  int
	Height int
}

type MazeCodec struct {
	Factory MazeFactory
}

type region struct {
	x, y, w, h int
}

// Decode lays out the maze by recursive division: regions are divided breadth-first, one wall
// gene per division, each wall leaving a single one-cell passage. The navigator starts in the
// top-left cell and targets the bottom-right cell.
func (c MazeCodec) Decode(g model.Genome) (*model.Maze, error) {
	width, height := c.Factory.Width, c.Factory.Height
	if width < 1 || height < 1 {
		return nil, model.NewDecodeError(g, "non-positive maze extents %dx%d", width, height)
	}
	if err := checkKind(g, model.KindMaze); err != nil {
		return nil, err
	}
	var doc mazeDocument
	if err := json.Unmarshal([]byte(g.Encoding), &doc); err != nil {
		return nil, model.NewDecodeError(g, "malformed encoding: %w", err)
	}
	if err := checkVersion(g, doc.VersionedRecord); err != nil {
		return nil, err
	}
	for i, gene := range doc.WallGenes {
		if !unit(gene.WallLocation) || !unit(gene.PassageLocation) {
			return nil, model.NewDecodeError(g, "wall gene %d out of range", i)
		}
	}

	maze := &model.Maze{
		GenomeID: g.ID,
		Width:    width,
		Height:   height,
		Walls: []model.Wall{
			{X1: 0, Y1: 0, X2: width, Y2: 0},
			{X1: width, Y1: 0, X2: width, Y2: height},
			{X1: 0, Y1: height, X2: width, Y2: height},
			{X1: 0, Y1: 0, X2: 0, Y2: height},
		},
		Start:  model.Point{X: 0.5, Y: 0.5},
		Target: model.Point{X: float64(width) - 0.5, Y: float64(height) - 0.5},
	}

	queue := []region{{x: 0, y: 0, w: width, h: height}}
	for _, gene := range doc.WallGenes {
		var r region
		found := false
		for len(queue) > 0 {
			r, queue = queue[0], queue[1:]
			if r.w >= 2 || r.h >= 2 {
				found = true
				break
			}
		}
		if !found {
			break
		}

		horizontal := gene.OrientationSeed
		if horizontal && r.h < 2 {
			horizontal = false
		} else if !horizontal && r.w < 2 {
			horizontal = true
		}

		if horizontal {
			at := r.y + 1 + fraction(gene.WallLocation, r.h-1)
			passage := r.x + fraction(gene.PassageLocation, r.w)
			maze.Walls = appendSegment(maze.Walls, model.Wall{X1: r.x, Y1: at, X2: passage, Y2: at})
			maze.Walls = appendSegment(maze.Walls, model.Wall{X1: passage + 1, Y1: at, X2: r.x + r.w, Y2: at})
			queue = append(queue,
				region{x: r.x, y: r.y, w: r.w, h: at - r.y},
				region{x: r.x, y: at, w: r.w, h: r.y + r.h - at},
			)
		} else {
			at := r.x + 1 + fraction(gene.WallLocation, r.w-1)
			passage := r.y + fraction(gene.PassageLocation, r.h)
			maze.Walls = appendSegment(maze.Walls, model.Wall{X1: at, Y1: r.y, X2: at, Y2: passage})
			maze.Walls = appendSegment(maze.Walls, model.Wall{X1: at, Y1: passage + 1, X2: at, Y2: r.y + r.h})
			queue = append(queue,
				region{x: r.x, y: r.y, w: at - r.x, h: r.h},
				region{x: at, y: r.y, w: r.x + r.w - at, h: r.h},
			)
		}
	}
	return maze, nil
}

func unit(v float64) bool {
	return v >= 0 && v <= 1 && !math.IsNaN(v)
}

// fraction maps a unit value onto one of n slots, returning an offset in [0, n-1].
func fraction(v float64, n int) int {
	offset := int(v * float64(n))
	if offset >= n {
		offset = n - 1
	}
	return offset
}

func appendSegment(walls []model.Wall, w model.Wall) []model.Wall {
	if w.X1 == w.X2 && w.Y1 == w.Y2 {
		return walls
	}
	return append(walls, w)
}
