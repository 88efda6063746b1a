package source

import "time"

// settings are shared by every source kind; each kind reads what it needs.
type settings struct {
	width  int
	height int
	frames int
	loop   bool
	pace   time.Duration
}

// Option applies a configuration option to a source.
type Option func(*settings)

// WithSize sets the requested frame size.
func WithSize(width, height int) Option {
	return func(s *settings) {
		if width > 0 && height > 0 {
			s.width, s.height = width, height
		}
	}
}

// WithFrames caps the number of frames. Zero means endless.
func WithFrames(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.frames = n
		}
	}
}

// WithLoop restarts a directory replay at the first file after the last.
func WithLoop(loop bool) Option {
	return func(s *settings) {
		s.loop = loop
	}
}

// WithFPS paces synthetic and replayed sources. Zero disables pacing.
func WithFPS(fps int) Option {
	return func(s *settings) {
		if fps > 0 {
			s.pace = time.Second / time.Duration(fps)
		} else {
			s.pace = 0
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{width: 640, height: 480}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
