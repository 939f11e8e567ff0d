package model

import "math"

type Material uint8

const (
	MaterialNone Material = iota
	MaterialPassive
	MaterialActive
)

func (m Material) String() string {
	switch m {
	case MaterialPassive:
		return "passive"
	case MaterialActive:
		return "active"
	default:
		return "none"
	}
}

// VoxelBody is a decoded body: a dense material grid indexed x-fastest.
type VoxelBody struct {
	GenomeID int64      `json:"genome_id"`
	LengthX  int        `json:"length_x"`
	LengthY  int        `json:"length_y"`
	LengthZ  int        `json:"length_z"`
	Voxels   []Material `json:"voxels"`
}

func NewVoxelBody(genomeID int64, lx, ly, lz int) *VoxelBody {
	return &VoxelBody{
		GenomeID: genomeID,
		LengthX:  lx,
		LengthY:  ly,
		LengthZ:  lz,
		Voxels:   make([]Material, lx*ly*lz),
	}
}

func (b *VoxelBody) Index(x, y, z int) int {
	return x + y*b.LengthX + z*b.LengthX*b.LengthY
}

// At returns the material at (x, y, z), or MaterialNone outside the extents.
func (b *VoxelBody) At(x, y, z int) Material {
	if x < 0 || y < 0 || z < 0 || x >= b.LengthX || y >= b.LengthY || z >= b.LengthZ {
		return MaterialNone
	}
	return b.Voxels[b.Index(x, y, z)]
}

func (b *VoxelBody) Set(x, y, z int, m Material) {
	b.Voxels[b.Index(x, y, z)] = m
}

func (b *VoxelBody) Count(m Material) int {
	n := 0
	for _, v := range b.Voxels {
		if v == m {
			n++
		}
	}
	return n
}

// BodyController drives each voxel of a paired body with a phase-shifted oscillation.
type BodyController struct {
	GenomeID  int64     `json:"genome_id"`
	LengthX   int       `json:"length_x"`
	LengthY   int       `json:"length_y"`
	LengthZ   int       `json:"length_z"`
	Frequency float64   `json:"frequency"`
	Phases    []float64 `json:"phases"`
}

// Actuation returns the volumetric actuation of voxel index at time t, in [-1, 1].
func (c *BodyController) Actuation(index int, t float64) float64 {
	if index < 0 || index >= len(c.Phases) {
		return 0
	}
	return math.Sin(2*math.Pi*c.Frequency*t + c.Phases[index])
}

type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (p Point) Distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Wall is an axis-aligned segment in maze cell coordinates.
type Wall struct {
	X1 int `json:"x1" yaml:"x1"`
	Y1 int `json:"y1" yaml:"y1"`
	X2 int `json:"x2" yaml:"x2"`
	Y2 int `json:"y2" yaml:"y2"`
}

type Maze struct {
	GenomeID int64  `json:"genome_id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Walls    []Wall `json:"walls"`
	Start    Point  `json:"start"`
	Target   Point  `json:"target"`
}

// Navigator is a decoded maze-navigation controller.
type Navigator struct {
	GenomeID   int64    `json:"genome_id"`
	Network    Network  `json:"network"`
	InputIDs   []string `json:"input_ids"`
	OutputIDs  []string `json:"output_ids"`
	InputScale float64  `json:"input_scale"`

	Query func(inputs []float64) ([]float64, error) `json:"-"`
}

func (n *Navigator) Activate(inputs []float64) ([]float64, error) {
	return n.Query(inputs)
}
