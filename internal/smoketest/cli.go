package smoketest

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/urfave/cli"

	"github.com/okian/behavior/internal/adapters/analyzer"
	"github.com/okian/behavior/internal/adapters/source"
	"github.com/okian/behavior/internal/worker"
	"github.com/okian/behavior/pkg/logger"
)

// Defaults.
const (
	DefaultAnalyzerURL = "http://localhost:5005"
	DefaultImageURL    = "https://raw.githubusercontent.com/serengil/retinaface/master/tests/dataset/img1.jpg"
	defaultSize        = 300
	defaultTimeout     = 30 * time.Second
)

// AnalyzerFactory builds the analyzer a command runs against.
type AnalyzerFactory func(cfg *Config) worker.Analyzer

// DeepFace is the default factory.
func DeepFace(cfg *Config) worker.Analyzer {
	return analyzer.New(cfg.AnalyzerURL,
		analyzer.WithDetector(cfg.Detector),
		analyzer.WithTimeout(cfg.Timeout),
	)
}

// NewApp builds the smoke CLI. newAnalyzer nil uses DeepFace; log nil discards
// progress records.
func NewApp(ctx context.Context, log logger.Logger, newAnalyzer AnalyzerFactory) *cli.App {
	if newAnalyzer == nil {
		newAnalyzer = DeepFace
	}

	app := cli.NewApp()
	app.Name = "smoke"
	app.Usage = "run the face analyzer once on a known image"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "url", Value: DefaultAnalyzerURL, Usage: "analyzer base URL", EnvVar: "BEHAVIOR_ANALYZER__URL"},
		cli.StringFlag{Name: "detector", Value: "opencv", Usage: "face detector backend"},
		cli.DurationFlag{Name: "timeout", Value: defaultTimeout, Usage: "analyzer and download timeout"},
		cli.StringFlag{Name: "save", Usage: "write the image under test to `FILE` (PNG)"},
		cli.StringFlag{Name: "cache", Value: ".", Usage: "directory for downloaded images"},
		cli.IntFlag{Name: "size", Value: defaultSize, Usage: "edge of generated images in pixels"},
	}

	run := func(c *cli.Context, name string, load func(*Config) (image.Image, error)) error {
		cfg := configFrom(c)
		cfg.Logger = log
		img, err := load(cfg)
		if err != nil {
			return err
		}
		_, err = Run(ctx, cfg, newAnalyzer(cfg), name, img)
		return err
	}

	app.Commands = []cli.Command{
		{
			Name:  "pattern",
			Usage: "analyze a synthetic face drawing",
			Action: func(c *cli.Context) error {
				return run(c, "pattern", func(cfg *Config) (image.Image, error) {
					return source.FacePattern(cfg.Size, cfg.Size), nil
				})
			},
		},
		{
			Name:  "rect",
			Usage: "analyze a red rectangle, which holds no face",
			Action: func(c *cli.Context) error {
				return run(c, "rect", func(cfg *Config) (image.Image, error) {
					return source.RectPattern(cfg.Size, cfg.Size), nil
				})
			},
		},
		{
			Name:      "image",
			Usage:     "analyze a local image or download one",
			ArgsUsage: "[path|url]",
			Action: func(c *cli.Context) error {
				ref := c.Args().First()
				if ref == "" {
					ref = DefaultImageURL
				}
				return run(c, ref, func(cfg *Config) (image.Image, error) {
					img, _, err := Load(ctx, cfg, ref)
					return img, err
				})
			},
		},
	}
	return app
}

// ExitCode maps a run error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNotImage):
		return 2
	default:
		return 1
	}
}

func configFrom(c *cli.Context) *Config {
	return &Config{
		AnalyzerURL: c.GlobalString("url"),
		Detector:    c.GlobalString("detector"),
		Timeout:     c.GlobalDuration("timeout"),
		Save:        c.GlobalString("save"),
		CacheDir:    c.GlobalString("cache"),
		Size:        c.GlobalInt("size"),
		Out:         c.App.Writer,
	}
}
