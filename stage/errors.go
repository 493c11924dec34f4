package stage

import "errors"

// MetaError exposes stage-correlation metadata on an error, so a caller
// several layers removed from a failing transform can recover which
// stage produced it. The correlation key is the stage name rather than
// a task index, since a stage runs for the lifetime of the pipeline
// rather than once per call.
type MetaError interface {
	error
	Unwrap() error
	StageName() string
}

type taggedError struct {
	err   error
	stage string
}

func newTaggedError(err error, stageName string) error {
	if err == nil {
		return nil
	}
	return &taggedError{err: err, stage: stageName}
}

func (e *taggedError) Error() string     { return "stage " + e.stage + ": " + e.err.Error() }
func (e *taggedError) Unwrap() error     { return e.err }
func (e *taggedError) StageName() string { return e.stage }

// ExtractStageName returns the stage name attached to err, if any.
func ExtractStageName(err error) (string, bool) {
	var me MetaError
	if errors.As(err, &me) {
		return me.StageName(), true
	}
	return "", false
}
