// Package errorsx centralizes the pipeline core's error taxonomy so that
// every layer — event, handoff, stage, and the top-level Pipeline — can
// return and compare against the same sentinels without importing each
// other and creating a cycle.
package errorsx

import "errors"

// Namespace prefixes sentinel error messages so they are identifiable in
// aggregated logs without needing a type switch.
const Namespace = "strpipe"

// Sentinel errors, grouped by the error taxonomy: setup/argument errors
// are fatal to pipeline construction and propagate to the caller; runtime
// errors encountered inside a stage's consumption loop are logged and
// absorbed so the rest of the pipeline keeps running.
var (
	// ErrInvalidArgument signals a nil record or nil stage handle passed to
	// an operation that requires one. Propagate; this is a caller bug.
	ErrInvalidArgument = errors.New(Namespace + ": invalid argument")

	// ErrInvalidCapacity signals a capacity outside [1, 1_000_000].
	// Aborts pipeline construction.
	ErrInvalidCapacity = errors.New(Namespace + ": capacity must be in [1, 1000000]")

	// ErrAllocFailure signals a failure allocating a record copy or
	// buffer. In practice unreachable on a healthy Go runtime; retained
	// so the taxonomy stays complete and testable.
	ErrAllocFailure = errors.New(Namespace + ": allocation failure")

	// ErrNotInitialized signals Submit called on a stage that was never
	// successfully constructed. Caller bug; propagate. WaitFinished and
	// Close on such a stage return without doing anything.
	ErrNotInitialized = errors.New(Namespace + ": stage not initialized")

	// ErrNoStages signals pipeline construction with zero stage names.
	ErrNoStages = errors.New(Namespace + ": pipeline requires at least one stage")

	// ErrUnknownStage signals a stage name the resolver could not map to
	// a transformation routine.
	ErrUnknownStage = errors.New(Namespace + ": unknown stage")
)

// DownstreamSubmitError wraps an error returned by a downstream stage's
// Submit call. Per the error taxonomy this is logged by the stage that
// observed it and never propagated: the producing stage cannot recover
// the lost record, but the pipeline as a whole must keep running.
type DownstreamSubmitError struct {
	Stage string
	Err   error
}

func (e *DownstreamSubmitError) Error() string {
	return Namespace + ": stage " + e.Stage + ": downstream submit failed: " + e.Err.Error()
}

func (e *DownstreamSubmitError) Unwrap() error { return e.Err }

// TransformProducedNothingError marks a record dropped because the
// stage's transformation routine declined to produce a result. Logged
// and absorbed; never propagated.
type TransformProducedNothingError struct {
	Stage string
}

func (e *TransformProducedNothingError) Error() string {
	return Namespace + ": stage " + e.Stage + ": transform produced no result, record dropped"
}
