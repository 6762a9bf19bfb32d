package pipeline

import "errors"

// Pipeline-level errors. Stage failures inside the source chain are absorbed
// into fallthrough; only these terminate a run.
var (
	// ErrNoValidHandles means the input contained no usable handles after
	// normalization and deduplication.
	ErrNoValidHandles = errors.New("no valid handles in input")

	// ErrGeneratedRatioExceeded means synthetic records exceeded the allowed
	// share of a production run. The run output must not be used downstream.
	ErrGeneratedRatioExceeded = errors.New("generated data ratio exceeds production limit")

	// ErrUnknownMode means the requested discovery mode is not recognized.
	ErrUnknownMode = errors.New("unknown discovery mode")

	// ErrMissingKeyword means a mode requiring a keyword was invoked without one.
	ErrMissingKeyword = errors.New("keyword required for this mode")
)
