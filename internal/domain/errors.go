package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable reports a failed fetch or read of an input dataset.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSchema reports a required column that is absent or holds unusable values.
	ErrSchema = errors.New("schema error")

	// ErrMalformedDateColumn reports a non-identifier column whose header is not a date.
	ErrMalformedDateColumn = errors.New("malformed date column")

	// ErrTypeMismatch reports join keys that cannot be compared.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrEmptySelection reports a state selection with no observations.
	ErrEmptySelection = errors.New("empty selection")
)

// Stage names the pipeline step a failure came from.
type Stage string

const (
	StageLoad    Stage = "load"
	StageReshape Stage = "reshape"
	StageMerge   Stage = "merge"
	StageStats   Stage = "stats"
)

// StageError tags an error with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// AtStage wraps err with stage. Errors that already carry a stage keep it.
func AtStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage recorded on err, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
