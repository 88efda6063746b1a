package source

import (
	"errors"
)

// Sentinel error kinds for this package.
var (
	ErrUnknownKind  = errors.New("unknown frame source kind")
	ErrUnsupported  = errors.New("frame source not supported in this build")
	ErrNoImages     = errors.New("no images found")
	ErrDecode       = errors.New("decode frame failed")
	ErrClosedSource = errors.New("frame source closed")
)
