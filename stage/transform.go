package stage

import (
	"errors"

	"github.com/pipelinehq/strpipe/handoff"
)

// ErrInvalidTransform is returned by Adapt when fn does not match any of
// the accepted transformation function shapes.
var ErrInvalidTransform = errors.New("stage: invalid transform function type")

// TransformFunc is the normalized shape every stage's transformation
// routine is reduced to: given a record, produce a result and whether
// one was produced at all. Returning ok == false corresponds to the
// "transformation produced nothing" edge case — the caller logs and
// drops the input record rather than treating it as fatal.
type TransformFunc func(handoff.Record) (handoff.Record, bool)

// Adapt builds a TransformFunc from one of the function shapes a stage
// author is allowed to hand the core: a plain byte-transform, one that
// can fail, or one that already reports success explicitly. Reducing
// several accepted call signatures to one internal shape keeps every
// stage author from being forced onto the same rigid function type.
//
//   - func(handoff.Record) (handoff.Record, bool)  — already normalized
//   - func(handoff.Record) handoff.Record          — always produces a result
//   - func(handoff.Record) (handoff.Record, error) — nil error means success
func Adapt(fn interface{}) (TransformFunc, error) {
	switch t := fn.(type) {
	case func(handoff.Record) (handoff.Record, bool):
		return t, nil

	case func(handoff.Record) handoff.Record:
		return func(r handoff.Record) (handoff.Record, bool) {
			return t(r), true
		}, nil

	case func(handoff.Record) (handoff.Record, error):
		return func(r handoff.Record) (handoff.Record, bool) {
			out, err := t(r)
			if err != nil {
				return nil, false
			}
			return out, true
		}, nil

	default:
		return nil, ErrInvalidTransform
	}
}
