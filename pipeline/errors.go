package pipeline

import (
	"errors"
	"fmt"
)

// Stage names one of the three steps of a run.
type Stage string

const (
	StageExtract  Stage = "extract"
	StageSearch   Stage = "search"
	StageGenerate Stage = "generate"
)

var (
	ErrExtraction = errors.New("extraction failure")
	ErrSearch     = errors.New("search failure")
	ErrGeneration = errors.New("generation failure")
)

// Sentinel returns the failure kind matching the stage, or nil for an unknown stage.
func (s Stage) Sentinel() error {
	switch s {
	case StageExtract:
		return ErrExtraction
	case StageSearch:
		return ErrSearch
	case StageGenerate:
		return ErrGeneration
	default:
		return nil
	}
}

// StageError is the single failure a run returns. errors.Is matches it against
// the sentinel of its stage and against Err.
type StageError struct {
	Stage   Stage
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *StageError) Unwrap() []error {
	var errs []error
	if s := e.Stage.Sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func stageMessage(s Stage) string {
	switch s {
	case StageExtract:
		return "failed to parse company info"
	case StageSearch:
		return "failed to fetch financial data"
	case StageGenerate:
		return "failed to generate analysis"
	default:
		return "analysis failed"
	}
}

// NewStageError builds the StageError for stage with its standard message.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Message: stageMessage(stage), Err: err}
}
