//go:build gocv

package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/okian/behavior/internal/domain/model"
)

// maxEmptyReads bounds consecutive empty reads before the capture is treated as ended.
const maxEmptyReads = 30

// GoCV captures frames through OpenCV. Built only with -tags gocv.
type GoCV struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	seq    uint64
	closed bool
}

// NewGoCV opens a capture by numeric device id, /dev/videoN path or URL.
func NewGoCV(device string, opts ...Option) (*GoCV, error) {
	s := newSettings(opts)

	var target interface{} = device
	if id, err := strconv.Atoi(strings.TrimPrefix(device, "/dev/video")); err == nil {
		target = id
	}
	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("open video capture %s: %w", device, err)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(s.width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(s.height))

	return &GoCV{cap: vc, mat: gocv.NewMat()}, nil
}

// Next reads one frame. A read failure means the stream ended.
func (g *GoCV) Next(ctx context.Context) (model.Frame, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return model.Frame{}, ErrClosedSource
	}

	for empty := 0; empty < maxEmptyReads; empty++ {
		if err := ctx.Err(); err != nil {
			return model.Frame{}, err
		}
		if ok := g.cap.Read(&g.mat); !ok {
			return model.Frame{}, model.ErrSourceExhausted
		}
		if g.mat.Empty() {
			continue
		}
		img, err := g.mat.ToImage()
		if err != nil {
			return model.Frame{}, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		g.seq++
		return model.Frame{Image: img, Seq: g.seq, CapturedAt: time.Now()}, nil
	}
	return model.Frame{}, model.ErrSourceExhausted
}

// Close releases the capture and its buffer.
func (g *GoCV) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	_ = g.mat.Close()
	return g.cap.Close()
}
