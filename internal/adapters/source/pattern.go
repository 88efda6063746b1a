package source

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
	"time"

	"github.com/okian/behavior/internal/domain/model"
)

const patternBase = 300.0

var (
	white    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black    = color.RGBA{A: 255}
	skinTone = color.RGBA{R: 150, G: 150, B: 200, A: 255}
	red      = color.RGBA{R: 255, A: 255}
)

// FacePattern draws a crude face on white: an oval head, two eyes, a nose and
// a smiling mouth. It is laid out on a 300x300 grid and scaled to w x h.
func FacePattern(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: white}, image.Point{}, draw.Src)

	sx, sy := float64(w)/patternBase, float64(h)/patternBase
	fillEllipse(img, 150*sx, 150*sy, 100*sx, 130*sy, skinTone)
	fillEllipse(img, 120*sx, 120*sy, 15*sx, 15*sy, black)
	fillEllipse(img, 180*sx, 120*sy, 15*sx, 15*sy, black)
	fillEllipse(img, 150*sx, 160*sy, 10*sx, 15*sy, black)
	strokeLowerArc(img, 150*sx, 200*sy, 40*sx, 20*sy, math.Max(1, 2*sx), black)
	return img
}

// RectPattern draws a red square on white, the simplest non-face input.
func RectPattern(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: white}, image.Point{}, draw.Src)
	r := image.Rect(w/4, h/4, 3*w/4, 3*h/4)
	draw.Draw(img, r, &image.Uniform{C: red}, image.Point{}, draw.Src)
	return img
}

func fillEllipse(img *image.RGBA, cx, cy, rx, ry float64, c color.Color) {
	if rx <= 0 || ry <= 0 {
		return
	}
	b := img.Bounds()
	for y := int(cy - ry); y <= int(cy+ry); y++ {
		for x := int(cx - rx); x <= int(cx+rx); x++ {
			dx, dy := (float64(x)-cx)/rx, (float64(y)-cy)/ry
			if dx*dx+dy*dy <= 1 && image.Pt(x, y).In(b) {
				img.Set(x, y, c)
			}
		}
	}
}

// strokeLowerArc draws the bottom half of an ellipse outline.
func strokeLowerArc(img *image.RGBA, cx, cy, rx, ry, thickness float64, c color.Color) {
	b := img.Bounds()
	steps := int(math.Max(rx, ry) * 4)
	for i := 0; i <= steps; i++ {
		a := math.Pi * float64(i) / float64(steps)
		px, py := cx+rx*math.Cos(a), cy+ry*math.Sin(a)
		for t := -thickness / 2; t <= thickness/2; t++ {
			p := image.Pt(int(px), int(py+t))
			if p.In(b) {
				img.Set(p.X, p.Y, c)
			}
		}
	}
}

// Pattern is a synthetic source that repeats FacePattern.
type Pattern struct {
	mu     sync.Mutex
	img    *image.RGBA
	frames int
	pace   time.Duration
	seq    uint64
	closed bool
}

// NewPattern creates a synthetic face source.
func NewPattern(opts ...Option) *Pattern {
	s := newSettings(opts)
	return &Pattern{
		img:    FacePattern(s.width, s.height),
		frames: s.frames,
		pace:   s.pace,
	}
}

// Next returns the next synthetic frame.
func (p *Pattern) Next(ctx context.Context) (model.Frame, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return model.Frame{}, ErrClosedSource
	}
	if p.frames > 0 && p.seq >= uint64(p.frames) {
		p.mu.Unlock()
		return model.Frame{}, model.ErrSourceExhausted
	}
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	if err := sleep(ctx, p.pace); err != nil {
		return model.Frame{}, err
	}
	return model.Frame{Image: p.img, Seq: seq, CapturedAt: time.Now()}, nil
}

// Close releases the source.
func (p *Pattern) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
