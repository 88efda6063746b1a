// Package export writes the emotion history to timestamped CSV files.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gosimple/slug"

	"github.com/okian/behavior/internal/domain/model"
	"github.com/okian/behavior/pkg/logger"
	"github.com/okian/behavior/pkg/metrics"
)

const (
	fileTimeLayout = "20060102_150405"
	// maxSuffix bounds the "_N" suffixes tried when exports share a second.
	maxSuffix = 1000
)

// Header is the first CSV row.
func Header() []string {
	h := make([]string, 0, len(model.Labels)+2)
	h = append(h, "timestamp")
	for _, l := range model.Labels {
		h = append(h, string(l))
	}
	return append(h, "dominant")
}

// Writer exports history entries into a directory.
type Writer struct {
	dir    string
	name   string
	now    func() time.Time
	logger logger.Logger
}

// New creates a writer for dir. name prefixes every file after slugging.
func New(dir, name string, opts ...Option) *Writer {
	w := &Writer{
		dir:    dir,
		name:   name,
		now:    time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// FileName returns the export file name for t, e.g. "lobby_20251016_141502.csv".
func FileName(name string, t time.Time) string {
	s := slug.Make(name)
	if s == "" {
		s = "session"
	}
	return fmt.Sprintf("%s_%s.csv", s, t.Format(fileTimeLayout))
}

// Export writes entries to a new file and returns its path.
// Any failure is reported as ErrExport and leaves no partial file behind.
func (w *Writer) Export(ctx context.Context, entries []model.HistoryEntry) (string, error) {
	path, err := w.export(ctx, entries)
	metrics.RecordExport(err == nil)
	if err != nil {
		w.logger.Error(ctx, "history export failed", logger.Error(err))
		return "", err
	}
	return path, nil
}

func (w *Writer) export(ctx context.Context, entries []model.HistoryEntry) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", ErrExport, err)
	}
	path, f, err := w.create(FileName(w.name, w.now()))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExport, err)
	}
	if err := Write(f, entries); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: %w", ErrExport, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: %w", ErrExport, err)
	}

	if info, err := os.Stat(path); err == nil {
		w.logger.Info(ctx, "history exported",
			logger.String("path", path),
			logger.Int("rows", len(entries)),
			logger.String("size", humanize.Bytes(uint64(info.Size()))))
	}
	return path, nil
}

// create opens a new file for name, appending "_1", "_2", ... before the
// extension while an earlier export already holds the name.
func (w *Writer) create(name string) (string, *os.File, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 0; i <= maxSuffix; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		path := filepath.Join(w.dir, candidate)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return path, f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", nil, err
		}
	}
	return "", nil, fmt.Errorf("%s: %w", name, fs.ErrExist)
}

// Write encodes entries as CSV to out.
func Write(out io.Writer, entries []model.HistoryEntry) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	row := make([]string, 0, len(model.Labels)+2)
	for _, e := range entries {
		row = row[:0]
		row = append(row, e.At.Format(time.RFC3339))
		for _, l := range model.Labels {
			row = append(row, strconv.FormatFloat(e.Scores.Get(l), 'f', 2, 64))
		}
		row = append(row, string(e.Dominant))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
