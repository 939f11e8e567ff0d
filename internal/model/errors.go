package model

import (
	"errors"
	"fmt"
)

var (
	ErrDecode          = errors.New("decode genome")
	ErrConfiguration   = errors.New("invalid configuration")
	ErrSimulation      = errors.New("simulation failed")
	ErrTimeout         = errors.New("simulation timed out")
	ErrOutcomeRecorded = errors.New("outcome already recorded")
)

// DecodeError reports a malformed or dimensionally incompatible genome.
type DecodeError struct {
	GenomeID int64
	Kind     GenomeKind
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s genome %d: %v", e.Kind, e.GenomeID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func NewDecodeError(g Genome, format string, args ...any) *DecodeError {
	return &DecodeError{GenomeID: g.ID, Kind: g.Kind, Err: fmt.Errorf(format, args...)}
}
