package overlay

import "golang.org/x/image/font"

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithThickness sets the box stroke width in pixels.
func WithThickness(px int) Option {
	return func(r *Renderer) {
		if px > 0 {
			r.thickness = px
		}
	}
}

// WithQuality sets the JPEG quality used by JPEG.
func WithQuality(q int) Option {
	return func(r *Renderer) {
		if q > 0 && q <= 100 {
			r.quality = q
		}
	}
}

// WithFace sets the label font.
func WithFace(f font.Face) Option {
	return func(r *Renderer) {
		if f != nil {
			r.face = f
		}
	}
}
