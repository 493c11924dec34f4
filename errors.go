package strpipe

import "github.com/pipelinehq/strpipe/errorsx"

// Re-exported sentinel errors. Defined in errorsx so that stage and
// handoff can return and compare against the same values without
// importing this package, which itself imports stage — keeping these
// names available at the top level is purely a caller convenience.
var (
	ErrInvalidArgument = errorsx.ErrInvalidArgument
	ErrInvalidCapacity = errorsx.ErrInvalidCapacity
	ErrNotInitialized  = errorsx.ErrNotInitialized
	ErrNoStages        = errorsx.ErrNoStages
	ErrUnknownStage    = errorsx.ErrUnknownStage
)
