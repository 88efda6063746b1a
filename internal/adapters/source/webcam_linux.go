//go:build linux

package source

import (
	"bytes"
	"context"
	"image/jpeg"
	"sync"
	"time"

	"github.com/blackjack/webcam"
	"github.com/pkg/errors"

	"github.com/okian/behavior/internal/domain/model"
)

const (
	// V4L2 fourcc for Motion-JPEG.
	pixfmtMJPEG     webcam.PixelFormat = 0x47504A4D
	frameWaitSecond                    = 1
)

// Webcam reads MJPEG frames from a V4L2 device.
type Webcam struct {
	mu     sync.Mutex
	cam    *webcam.Webcam
	seq    uint64
	closed bool
}

// NewWebcam opens device and starts streaming.
func NewWebcam(device string, opts ...Option) (*Webcam, error) {
	s := newSettings(opts)

	cam, err := webcam.Open(device)
	if err != nil {
		return nil, errors.Wrap(err, "Can not open device")
	}

	if _, ok := cam.GetSupportedFormats()[pixfmtMJPEG]; !ok {
		_ = cam.Close()
		return nil, errors.Wrapf(ErrUnsupported, "%s does not offer MJPEG", device)
	}
	if _, _, _, err := cam.SetImageFormat(pixfmtMJPEG, uint32(s.width), uint32(s.height)); err != nil { //nolint:gosec // sizes are validated positive
		_ = cam.Close()
		return nil, errors.Wrap(err, "Can not set image format")
	}
	if err := cam.StartStreaming(); err != nil {
		_ = cam.Close()
		return nil, errors.Wrap(err, "Can not start streaming")
	}
	return &Webcam{cam: cam}, nil
}

// Next waits for the next frame and decodes it. Wait timeouts are retried
// until ctx is done.
func (w *Webcam) Next(ctx context.Context) (model.Frame, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return model.Frame{}, ErrClosedSource
	}

	for {
		if err := ctx.Err(); err != nil {
			return model.Frame{}, err
		}

		err := w.cam.WaitForFrame(frameWaitSecond)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			continue
		default:
			return model.Frame{}, errors.Wrap(err, "Frame wait failed")
		}

		raw, err := w.cam.ReadFrame()
		if err != nil {
			return model.Frame{}, errors.Wrap(err, "Read frame failed")
		}
		if len(raw) == 0 {
			continue
		}

		img, err := jpeg.Decode(bytes.NewReader(raw))
		if err != nil {
			return model.Frame{}, errors.Wrap(ErrDecode, err.Error())
		}
		w.seq++
		return model.Frame{Image: img, Seq: w.seq, CapturedAt: time.Now()}, nil
	}
}

// Close stops streaming and releases the device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.cam.StopStreaming()
	return errors.Wrap(w.cam.Close(), "Can not close device")
}
