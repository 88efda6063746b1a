//go:build !linux

package source

import (
	"context"
	"fmt"

	"github.com/okian/behavior/internal/domain/model"
)

// Webcam is only available on linux.
type Webcam struct{}

// NewWebcam always fails outside linux.
func NewWebcam(device string, _ ...Option) (*Webcam, error) {
	return nil, fmt.Errorf("%w: webcam %s needs V4L2", ErrUnsupported, device)
}

// Next is never reached.
func (w *Webcam) Next(context.Context) (model.Frame, error) { return model.Frame{}, ErrUnsupported }

// Close is a no-op.
func (w *Webcam) Close() error { return nil }
