package model

import "errors"

// Sentinel errors shared by the loop and its collaborators.
var (
	// ErrSourceExhausted is returned by a frame source with no more frames.
	ErrSourceExhausted = errors.New("frame source exhausted")
	// ErrNoFace is returned by an analyzer that ran fine but found nothing.
	ErrNoFace = errors.New("no face detected")
)
