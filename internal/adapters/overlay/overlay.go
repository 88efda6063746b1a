// Package overlay draws face boxes and labels over frames and keeps the most
// recent annotated frame for the HTTP layer.
package overlay

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/okian/behavior/internal/domain/model"
	"github.com/okian/behavior/internal/domain/scoring"
)

// Green is the box and label colour.
var Green = color.RGBA{G: 255, A: 255} //nolint:gochecknoglobals // palette

const (
	defaultThickness = 2
	defaultQuality   = 80
	labelGap         = 4
)

// Renderer annotates frames. It is safe for concurrent use: the loop renders
// while HTTP handlers read the latest JPEG.
type Renderer struct {
	thickness int
	quality   int
	face      font.Face

	mu      sync.Mutex
	latest  *image.RGBA
	seq     uint64
	encoded []byte
	encSeq  uint64
}

// New creates a renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		thickness: defaultThickness,
		quality:   defaultQuality,
		face:      basicfont.Face7x13,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws faces over a copy of the frame and keeps it as the latest image.
func (r *Renderer) Render(_ context.Context, frame model.Frame, faces []model.DetectedFace) {
	if frame.Image == nil {
		return
	}
	img := Draw(frame.Image, faces, r.thickness, r.face)

	r.mu.Lock()
	r.latest = img
	r.seq = frame.Seq
	r.mu.Unlock()
}

// Latest returns the latest annotated image and its frame sequence number.
func (r *Renderer) Latest() (*image.RGBA, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest, r.seq
}

// JPEG returns the latest annotated frame encoded as JPEG. Encoding happens
// once per frame; ok is false before the first render.
func (r *Renderer) JPEG() ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == nil {
		return nil, false, nil
	}
	if r.encoded != nil && r.encSeq == r.seq {
		return r.encoded, true, nil
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, r.latest, &jpeg.Options{Quality: r.quality}); err != nil {
		return nil, false, fmt.Errorf("encode frame %d: %w", r.seq, err)
	}
	r.encoded, r.encSeq = buf.Bytes(), r.seq
	return r.encoded, true, nil
}

// Draw copies src and draws one box per face with its labels.
func Draw(src image.Image, faces []model.DetectedFace, thickness int, face font.Face) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)

	for _, f := range faces {
		if f.Region.Empty() {
			continue
		}
		rect := f.Region.Rect().Add(b.Min)
		Box(dst, rect, thickness, Green)

		if f.HasIdentity {
			Text(dst, face, IdentityLabel(f.Identity, f.IdentityConfidence), rect.Min.X, rect.Min.Y-labelGap)
		}
		if label := EmotionLabel(f.Emotions); label != "" {
			y := rect.Min.Y - labelGap
			if f.HasIdentity {
				y = rect.Max.Y + face.Metrics().Height.Ceil()
			}
			Text(dst, face, label, rect.Min.X, y)
		}
	}
	return dst
}

// Box strokes the outline of r with the given thickness, clipped to dst.
func Box(dst draw.Image, r image.Rectangle, thickness int, c color.Color) {
	if thickness < 1 {
		thickness = 1
	}
	u := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), u, image.Point{}, draw.Src)
	}
}

// Text writes s with its baseline at (x, y), clamped so it stays inside dst.
func Text(dst draw.Image, face font.Face, s string, x, y int) {
	m := face.Metrics()
	if top := y - m.Ascent.Ceil(); top < dst.Bounds().Min.Y {
		y = dst.Bounds().Min.Y + m.Ascent.Ceil()
	}
	if x < dst.Bounds().Min.X {
		x = dst.Bounds().Min.X
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(Green),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// EmotionLabel formats the dominant emotion, e.g. "HAPPY (88%)". Empty scores give "".
func EmotionLabel(scores model.EmotionScores) string {
	e, score := scoring.Dominant(scores)
	if e == "" {
		return ""
	}
	return fmt.Sprintf("%s (%.0f%%)", strings.ToUpper(string(e)), score)
}

// IdentityLabel formats a recognized identity, e.g. "alice (91.5%)".
func IdentityLabel(name string, confidence float64) string {
	return fmt.Sprintf("%s (%.1f%%)", name, confidence)
}
