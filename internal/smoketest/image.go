package smoketest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/h2non/filetype"

	"github.com/okian/behavior/pkg/logger"
)

const (
	filePermission      = 0o600
	directoryPermission = 0o750
	maxDownload         = 32 << 20
)

// IsURL reports whether ref names an http(s) resource.
func IsURL(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Load reads the image at ref, a local path or an http(s) URL. URLs are
// downloaded into cfg.CacheDir once and reused afterwards.
func Load(ctx context.Context, cfg *Config, ref string) (image.Image, string, error) {
	p := ref
	if IsURL(ref) {
		var err error
		if p, err = fetch(ctx, cfg, ref); err != nil {
			return nil, "", err
		}
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", p, err)
	}
	return img, p, nil
}

// Decode sniffs data and decodes it when it is a JPEG or PNG.
func Decode(data []byte) (image.Image, error) {
	kind, err := filetype.Match(data)
	if err != nil || (kind.MIME.Value != "image/jpeg" && kind.MIME.Value != "image/png") {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, kind.MIME.Value)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotImage, err)
	}
	return img, nil
}

func fetch(ctx context.Context, cfg *Config, ref string) (string, error) {
	dir := cfg.CacheDir
	if dir == "" {
		dir = "."
	}
	u, _ := url.Parse(ref)
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		name = "download"
	}
	dst := filepath.Join(dir, name)
	if _, err := os.Stat(dst); err == nil {
		cfg.log().Debug(ctx, "using cached image", logger.String("path", dst))
		return dst, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	resp, err := cfg.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s: status %d", ErrFetch, ref, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if !filetype.IsImage(data) {
		return "", fmt.Errorf("%w: %s", ErrNotImage, ref)
	}

	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSave, err)
	}
	if err := os.WriteFile(dst, data, filePermission); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSave, err)
	}
	fmt.Fprintf(cfg.out(), "downloaded %s (%s)\n", dst, humanize.Bytes(uint64(len(data))))
	return dst, nil
}

// Save writes img as PNG to p.
func Save(img image.Image, p string) error {
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("%w: %w", ErrSave, err)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	if err := os.WriteFile(p, buf.Bytes(), filePermission); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	return nil
}
