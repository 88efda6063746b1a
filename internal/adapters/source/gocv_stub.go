//go:build !gocv

package source

import (
	"context"
	"fmt"

	"github.com/okian/behavior/internal/domain/model"
)

// GoCV needs the gocv build tag and a system OpenCV.
type GoCV struct{}

// NewGoCV always fails without the gocv build tag.
func NewGoCV(device string, _ ...Option) (*GoCV, error) {
	return nil, fmt.Errorf("%w: rebuild with -tags gocv to open %s", ErrUnsupported, device)
}

// Next is never reached.
func (g *GoCV) Next(context.Context) (model.Frame, error) { return model.Frame{}, ErrUnsupported }

// Close is a no-op.
func (g *GoCV) Close() error { return nil }
