package model

import (
	"errors"
	"sync/atomic"
)

type TrialStatus string

const (
	StatusSucceeded       TrialStatus = "succeeded"
	StatusFailed          TrialStatus = "failed"
	StatusDecodeError     TrialStatus = "decode_error"
	StatusSimulationError TrialStatus = "simulation_error"
	StatusTimeout         TrialStatus = "timeout"
)

// StatusFor classifies a trial error into the status recorded on its unit.
func StatusFor(err error) TrialStatus {
	switch {
	case err == nil:
		return StatusSucceeded
	case errors.Is(err, ErrTimeout):
		return StatusTimeout
	case errors.Is(err, ErrDecode):
		return StatusDecodeError
	case errors.Is(err, ErrSimulation):
		return StatusSimulationError
	default:
		return StatusFailed
	}
}

type Outcome struct {
	Status     TrialStatus `json:"status"`
	Success    bool        `json:"success"`
	Steps      int         `json:"steps"`
	Distance   float64     `json:"distance"`
	Trajectory []Point     `json:"trajectory,omitempty"`
	Err        string      `json:"error,omitempty"`
}

// FailedOutcome converts a trial error into an unsuccessful outcome.
func FailedOutcome(err error) Outcome {
	return Outcome{Status: StatusFor(err), Err: err.Error()}
}

// EvaluationUnit pairs two genomes for one trial. Its outcome is written exactly once.
type EvaluationUnit struct {
	Kind        PairKind
	PrimaryID   int64
	SecondaryID int64
	Primary     Genome
	Secondary   Genome

	// Decoded phenotypes, populated by the trial that evaluates the unit.
	PrimaryPhenotype   any
	SecondaryPhenotype any

	Outcome Outcome

	recorded atomic.Bool
}

func NewEvaluationUnit(kind PairKind, primary, secondary Genome) *EvaluationUnit {
	return &EvaluationUnit{
		Kind:        kind,
		PrimaryID:   primary.ID,
		SecondaryID: secondary.ID,
		Primary:     primary,
		Secondary:   secondary,
	}
}

// Record stores the unit's outcome. A second call fails with ErrOutcomeRecorded.
func (u *EvaluationUnit) Record(outcome Outcome) error {
	if !u.recorded.CompareAndSwap(false, true) {
		return ErrOutcomeRecorded
	}
	u.Outcome = outcome
	return nil
}

func (u *EvaluationUnit) Recorded() bool {
	return u.recorded.Load()
}

// EvaluationRecord is the flattened, sink-ready form of an evaluated unit.
type EvaluationRecord struct {
	Kind        PairKind    `json:"kind"`
	PrimaryID   int64       `json:"primary_id"`
	SecondaryID int64       `json:"secondary_id"`
	Status      TrialStatus `json:"status"`
	Success     bool        `json:"success"`
	Steps       int         `json:"steps"`
	Distance    float64     `json:"distance"`
	Error       string      `json:"error,omitempty"`
}

// Flatten reads the recorded outcome. Call it only after the evaluating task has finished.
func (u *EvaluationUnit) Flatten() EvaluationRecord {
	return EvaluationRecord{
		Kind:        u.Kind,
		PrimaryID:   u.PrimaryID,
		SecondaryID: u.SecondaryID,
		Status:      u.Outcome.Status,
		Success:     u.Outcome.Success,
		Steps:       u.Outcome.Steps,
		Distance:    u.Outcome.Distance,
		Error:       u.Outcome.Err,
	}
}
