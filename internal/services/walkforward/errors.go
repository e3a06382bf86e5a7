package walkforward

import (
	"errors"
	"fmt"

	"FinWalk/internal/domain/models"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrEmptyGrid        = errors.New("empty parameter grid")
	ErrGridTooLarge     = errors.New("parameter grid too large")
	ErrNoValidSelection = errors.New("no valid selection")
	ErrMisalignedInput  = errors.New("misaligned input")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrSimulation       = errors.New("simulation failed")
)

// InsufficientDataError is returned when the series cannot hold the requested
// windows, or too few splits survive for the comparison. Unit defaults to
// observations.
type InsufficientDataError struct {
	Have   int
	Need   int
	Unit   string
	Detail string
}

func (e *InsufficientDataError) Error() string {
	unit := e.Unit
	if unit == "" {
		unit = "observations"
	}
	return fmt.Sprintf("insufficient data: have %d %s, need %d: %s", e.Have, unit, e.Need, e.Detail)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// EmptyGridError is returned when fewer than two distinct candidates are supplied.
type EmptyGridError struct {
	Candidates int
}

func (e *EmptyGridError) Error() string {
	return fmt.Sprintf("empty parameter grid: %d distinct candidates, need at least 2", e.Candidates)
}

func (e *EmptyGridError) Is(target error) bool { return target == ErrEmptyGrid }

// GridTooLargeError is returned before any simulation when splits x pairs exceeds the limit.
type GridTooLargeError struct {
	Splits      int
	Pairs       int
	Evaluations int
	Limit       int
}

func (e *GridTooLargeError) Error() string {
	return fmt.Sprintf("parameter grid too large: %d splits x %d pairs = %d evaluations, limit %d",
		e.Splits, e.Pairs, e.Evaluations, e.Limit)
}

func (e *GridTooLargeError) Is(target error) bool { return target == ErrGridTooLarge }

// NoValidSelectionError is returned for a split whose grid produced no comparable score.
type NoValidSelectionError struct {
	SplitID int
	Entries int
	NaN     int
}

func (e *NoValidSelectionError) Error() string {
	if e.Entries == 0 {
		return fmt.Sprintf("no valid selection for split %d: no scores", e.SplitID)
	}
	return fmt.Sprintf("no valid selection for split %d: %d of %d scores are NaN", e.SplitID, e.NaN, e.Entries)
}

func (e *NoValidSelectionError) Is(target error) bool { return target == ErrNoValidSelection }

// MisalignedInputError is returned when the score vectors cannot be compared.
type MisalignedInputError struct {
	InSample  int
	OutSample int
	Detail    string
}

func (e *MisalignedInputError) Error() string {
	return fmt.Sprintf("misaligned input: %d in-sample vs %d out-of-sample scores: %s", e.InSample, e.OutSample, e.Detail)
}

func (e *MisalignedInputError) Is(target error) bool { return target == ErrMisalignedInput }

// InvalidConfigError reports a rejected run or split parameter.
type InvalidConfigError struct {
	Field  string
	Detail string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Detail)
}

func (e *InvalidConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// SimulationError wraps a collaborator failure with the cell that triggered it.
type SimulationError struct {
	Stage   string
	SplitID int
	Pair    *models.ParameterPair
	Err     error
}

func (e *SimulationError) Error() string {
	if e.Pair != nil {
		return fmt.Sprintf("%s simulation failed for split %d pair %s: %v", e.Stage, e.SplitID, e.Pair, e.Err)
	}
	return fmt.Sprintf("%s simulation failed for split %d: %v", e.Stage, e.SplitID, e.Err)
}

func (e *SimulationError) Unwrap() error { return e.Err }

func (e *SimulationError) Is(target error) bool { return target == ErrSimulation }

func invalid(field, format string, args ...interface{}) error {
	return &InvalidConfigError{Field: field, Detail: fmt.Sprintf(format, args...)}
}
