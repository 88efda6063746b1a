package smoketest

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/okian/behavior/pkg/logger"
)

// Config holds the smoke run settings.
type Config struct {
	// AnalyzerURL is the DeepFace endpoint.
	AnalyzerURL string
	Detector    string
	Timeout     time.Duration
	// Size is the edge of generated pattern images.
	Size int
	// Save writes the image under test to this path when set.
	Save string
	// CacheDir holds downloaded images; a cached copy is not downloaded again.
	CacheDir string

	Out        io.Writer
	HTTPClient *http.Client
	Logger     logger.Logger
}

func (c *Config) log() logger.Logger {
	if c.Logger == nil {
		return logger.Nop()
	}
	return c.Logger
}

func (c *Config) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout}
}
