package smoketest

import "errors"

// Error constants.
var (
	ErrFetch    = errors.New("image fetch failed")
	ErrNotImage = errors.New("not a supported image")
	ErrSave     = errors.New("image save failed")
)
