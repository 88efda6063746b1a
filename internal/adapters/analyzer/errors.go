package analyzer

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrRequest  = errors.New("analyzer request failed")
	ErrResponse = errors.New("analyzer response invalid")
	ErrGallery  = errors.New("gallery unavailable")
)
