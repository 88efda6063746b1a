package repository

import "errors"

// Sentinel kinds for recognition store errors.
var (
	ErrNotFound        = errors.New("identity not found")
	ErrInvalidLimit    = errors.New("invalid recognitions limit")
	ErrInvalidIdentity = errors.New("empty identity")
)
