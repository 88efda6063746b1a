package source

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"sync"
	"time"

	"github.com/h2non/filetype"
	"github.com/karrick/godirwalk"

	"github.com/okian/behavior/internal/domain/model"
)

var decodable = map[string]bool{"image/jpeg": true, "image/png": true}

// Dir replays the JPEG and PNG files of a directory in lexical path order.
type Dir struct {
	mu     sync.Mutex
	files  []string
	next   int
	loop   bool
	pace   time.Duration
	seq    uint64
	closed bool
}

// NewDir scans dir recursively. Files are identified by content, not extension.
func NewDir(dir string, opts ...Option) (*Dir, error) {
	s := newSettings(opts)

	files, err := ScanImages(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	return &Dir{files: files, loop: s.loop, pace: s.pace}, nil
}

// ScanImages returns the decodable image files under dir, sorted.
func ScanImages(dir string) ([]string, error) {
	var files []string
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			kind, err := filetype.MatchFile(path)
			if err != nil {
				return nil //nolint:nilerr // unreadable files are skipped
			}
			if decodable[kind.MIME.Value] {
				files = append(files, path)
			}
			return nil
		},
		Unsorted:            false,
		FollowSymbolicLinks: true,
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	return files, nil
}

// Len returns the number of files in the replay.
func (d *Dir) Len() int { return len(d.files) }

// Next decodes the next file.
func (d *Dir) Next(ctx context.Context) (model.Frame, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return model.Frame{}, ErrClosedSource
	}
	if d.next >= len(d.files) {
		if !d.loop {
			d.mu.Unlock()
			return model.Frame{}, model.ErrSourceExhausted
		}
		d.next = 0
	}
	path := d.files[d.next]
	d.next++
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	if err := sleep(ctx, d.pace); err != nil {
		return model.Frame{}, err
	}

	img, err := decodeFile(path)
	if err != nil {
		return model.Frame{}, err
	}
	return model.Frame{Image: img, Seq: seq, CapturedAt: time.Now()}, nil
}

// Close releases the source.
func (d *Dir) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return img, nil
}
