// Package smoketest runs one analyzer call on a known image and reports what
// came back.
package smoketest

import (
	"context"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/okian/behavior/internal/domain/model"
	"github.com/okian/behavior/internal/domain/scoring"
	"github.com/okian/behavior/internal/worker"
	"github.com/okian/behavior/pkg/logger"
)

// Report is the outcome of one smoke run.
type Report struct {
	Name     string
	Bounds   image.Rectangle
	Faces    []model.DetectedFace
	Duration time.Duration
	// Err is the analyzer error. It does not fail the run.
	Err error
}

// Run saves img when cfg.Save is set, analyzes it once and prints the report.
// Only I/O errors are returned; analyzer failures are part of the report.
func Run(ctx context.Context, cfg *Config, an worker.Analyzer, name string, img image.Image) (Report, error) {
	if cfg.Save != "" {
		if err := Save(img, cfg.Save); err != nil {
			return Report{}, err
		}
		fmt.Fprintf(cfg.out(), "saved %s\n", cfg.Save)
	}

	cfg.log().Info(ctx, "analyzing", logger.String("image", name), logger.String("analyzer", cfg.AnalyzerURL))
	start := time.Now()
	faces, err := an.Analyze(ctx, model.Frame{Image: img, Seq: 1, CapturedAt: start})
	r := Report{Name: name, Bounds: img.Bounds(), Faces: faces, Duration: time.Since(start), Err: err}
	Print(cfg.out(), r)
	return r, nil
}

// Print writes a human readable report.
func Print(w io.Writer, r Report) {
	fmt.Fprintf(w, "image: %s (%dx%d)\n", r.Name, r.Bounds.Dx(), r.Bounds.Dy())
	fmt.Fprintf(w, "took: %s\n", r.Duration.Round(time.Millisecond))
	if r.Err != nil {
		fmt.Fprintf(w, "error: %v\n", r.Err)
		return
	}
	fmt.Fprintf(w, "faces: %s\n", humanize.Comma(int64(len(r.Faces))))
	if len(r.Faces) == 0 {
		fmt.Fprintln(w, "no faces detected")
		return
	}
	for i, f := range r.Faces {
		label, score := scoring.Dominant(f.Emotions)
		fmt.Fprintf(w, "face_%d: area=[%d %d %d %d] dominant=%s (%.1f%%)\n",
			i+1, f.Region.X, f.Region.Y, f.Region.X+f.Region.W, f.Region.Y+f.Region.H, label, score)
	}
}
