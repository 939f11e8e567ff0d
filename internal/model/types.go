package model

import "fmt"

// VersionedRecord captures schema and codec evolution for encoded genomes.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type GenomeKind string

const (
	KindBody      GenomeKind = "body"
	KindBrain     GenomeKind = "brain"
	KindMaze      GenomeKind = "maze"
	KindNavigator GenomeKind = "navigator"
)

func (k GenomeKind) Valid() bool {
	switch k {
	case KindBody, KindBrain, KindMaze, KindNavigator:
		return true
	default:
		return false
	}
}

func ParseGenomeKind(s string) (GenomeKind, error) {
	kind := GenomeKind(s)
	if !kind.Valid() {
		return "", fmt.Errorf("unknown genome kind: %q", s)
	}
	return kind, nil
}

// Genome is an externally sourced, immutable serialized encoding.
type Genome struct {
	ID       int64      `json:"id"`
	Kind     GenomeKind `json:"kind"`
	Encoding string     `json:"encoding"`
}

// Network is the neuron/synapse graph carried inside body, brain and navigator encodings.
type Network struct {
	Neurons  []Neuron  `json:"neurons"`
	Synapses []Synapse `json:"synapses"`
}

type Neuron struct {
	ID         string  `json:"id"`
	Activation string  `json:"activation"`
	Bias       float64 `json:"bias"`
}

type Synapse struct {
	ID      string  `json:"id"`
	From    string  `json:"from"`
	To      string  `json:"to"`
	Weight  float64 `json:"weight"`
	Enabled bool    `json:"enabled"`
}

type PairKind string

const (
	PairBodyBrain     PairKind = "body_brain"
	PairMazeNavigator PairKind = "maze_navigator"
)

// Kinds returns the primary and secondary genome kinds paired by k.
func (k PairKind) Kinds() (GenomeKind, GenomeKind) {
	if k == PairMazeNavigator {
		return KindMaze, KindNavigator
	}
	return KindBody, KindBrain
}

type DiversityRecord struct {
	EntityID    int64      `json:"entity_id"`
	Kind        GenomeKind `json:"kind"`
	Metrics     []float64  `json:"metrics"`
	Comparisons int        `json:"comparisons"`
}

type UpscaleStopReason string

const (
	StopCeiling         UpscaleStopReason = "ceiling"
	StopCriterionFailed UpscaleStopReason = "criterion_failed"
	StopDecodeError     UpscaleStopReason = "decode_error"
	StopSimulationError UpscaleStopReason = "simulation_error"
	StopTimeout         UpscaleStopReason = "timeout"
)

type UpscaleResult struct {
	BodyID        int64             `json:"body_id"`
	BrainID       int64             `json:"brain_id"`
	EvolvedSize   int               `json:"evolved_size"`
	MaxViableSize int               `json:"max_viable_size"`
	Trials        int               `json:"trials"`
	Improved      bool              `json:"improved"`
	StopReason    UpscaleStopReason `json:"stop_reason"`
}

// SolveTally counts successful pairings of one maze or navigator within a chunk.
type SolveTally struct {
	EntityID int64      `json:"entity_id"`
	Kind     GenomeKind `json:"kind"`
	Trials   int        `json:"trials"`
	Solves   int        `json:"solves"`
}
