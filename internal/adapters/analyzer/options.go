package analyzer

import (
	"net"
	"net/http"
	"time"
)

// Default client configuration constants.
const (
	defaultTimeout        = 10 * time.Second
	defaultConnectTimeout = 5 * time.Second
	defaultKeepAlive      = 30 * time.Second
	defaultIdleTimeout    = 90 * time.Second
	defaultDetector       = "opencv"
	defaultModel          = "VGG-Face"
	defaultJPEGQuality    = 85
)

// newHTTPClient returns a client with connection timeouts set; never use http.DefaultClient.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   defaultConnectTimeout,
				KeepAlive: defaultKeepAlive,
			}).DialContext,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     defaultIdleTimeout,
		},
	}
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http = newHTTPClient(d)
		}
	}
}

// WithDetector sets the detector_backend sent to DeepFace.
func WithDetector(name string) Option {
	return func(cl *Client) {
		if name != "" {
			cl.detector = name
		}
	}
}

// WithModel sets the model_name used for embeddings.
func WithModel(name string) Option {
	return func(cl *Client) {
		if name != "" {
			cl.model = name
		}
	}
}
