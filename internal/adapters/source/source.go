// Package source provides frame sources for the perception loop: a synthetic
// face pattern, an image directory replay, a V4L2 webcam and an OpenCV capture.
package source

import (
	"fmt"

	"github.com/okian/behavior/internal/config"
	"github.com/okian/behavior/internal/worker"
)

// Open builds the frame source selected by cfg.Kind. Each call returns a
// fresh handle; the caller owns it and must Close it.
func Open(cfg config.Source) (worker.Source, error) {
	switch cfg.Kind {
	case "pattern":
		return NewPattern(WithSize(cfg.Width, cfg.Height), WithFrames(cfg.Frames), WithFPS(cfg.FPS)), nil
	case "dir":
		d, err := NewDir(cfg.Dir, WithLoop(cfg.Loop), WithFPS(cfg.FPS))
		if err != nil {
			return nil, err
		}
		return d, nil
	case "webcam":
		w, err := NewWebcam(cfg.Device, WithSize(cfg.Width, cfg.Height))
		if err != nil {
			return nil, err
		}
		return w, nil
	case "gocv":
		c, err := NewGoCV(cfg.Device, WithSize(cfg.Width, cfg.Height))
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}
