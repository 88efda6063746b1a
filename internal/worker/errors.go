package worker

import "errors"

// Sentinel error kinds for this package.
var (
	ErrSource      = errors.New("frame source failed")
	ErrAnalysis    = errors.New("analysis failed")
	ErrStopTimeout = errors.New("stop timed out")
)
