package analyzer

import (
	"context"
	"fmt"
	"image"
	_ "image/png" // register decoder
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/h2non/filetype"
	"github.com/karrick/godirwalk"
	gocache "github.com/patrickmn/go-cache"
	"gonum.org/v1/gonum/floats"

	"github.com/okian/behavior/internal/domain/model"
	"github.com/okian/behavior/pkg/logger"
)

var enrollable = map[string]bool{"image/jpeg": true, "image/png": true}

const (
	galleryKey            = "gallery"
	defaultRefresh        = 5 * time.Minute
	defaultMaxDistance    = 0.6
	embeddingCacheTimeout = time.Hour
)

// Representer computes face embeddings. *Client satisfies it.
type Representer interface {
	Represent(ctx context.Context, img image.Image) ([]Representation, error)
}

// GalleryEntry is one enrolled face.
type GalleryEntry struct {
	Identity  string
	Path      string
	Embedding []float64
}

// Gallery matches faces against enrolled images: <dir>/<identity>.jpg.
// Embeddings are cached per file version and the list is rebuilt after the
// refresh interval.
type Gallery struct {
	rep         Representer
	dir         string
	maxDistance float64
	refresh     time.Duration
	cache       *gocache.Cache
	loadMu      sync.Mutex
	logger      logger.Logger
}

// GalleryOption applies a configuration option to the Gallery.
type GalleryOption func(*Gallery)

// WithRefresh sets how long a loaded gallery is trusted.
func WithRefresh(d time.Duration) GalleryOption {
	return func(g *Gallery) {
		if d > 0 {
			g.refresh = d
		}
	}
}

// WithMaxDistance sets the cosine distance below which a face matches.
func WithMaxDistance(d float64) GalleryOption {
	return func(g *Gallery) {
		if d > 0 {
			g.maxDistance = d
		}
	}
}

// WithGalleryLogger sets the logger.
func WithGalleryLogger(l logger.Logger) GalleryOption {
	return func(g *Gallery) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGallery creates a gallery over dir.
func NewGallery(rep Representer, dir string, opts ...GalleryOption) *Gallery {
	g := &Gallery{
		rep:         rep,
		dir:         dir,
		maxDistance: defaultMaxDistance,
		refresh:     defaultRefresh,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.cache = gocache.New(g.refresh, 2*g.refresh)
	return g
}

// Entries returns the enrolled faces, loading them when the cache is cold.
func (g *Gallery) Entries(ctx context.Context) ([]GalleryEntry, error) {
	if v, ok := g.cache.Get(galleryKey); ok {
		return v.([]GalleryEntry), nil
	}

	g.loadMu.Lock()
	defer g.loadMu.Unlock()
	if v, ok := g.cache.Get(galleryKey); ok {
		return v.([]GalleryEntry), nil
	}

	entries, err := g.load(ctx)
	if err != nil {
		return nil, err
	}
	g.cache.Set(galleryKey, entries, gocache.DefaultExpiration)
	g.logger.Info(ctx, "gallery loaded", logger.Int("identities", len(entries)), logger.String("dir", g.dir))
	return entries, nil
}

// Invalidate forces the next lookup to rescan the directory.
func (g *Gallery) Invalidate() {
	g.cache.Delete(galleryKey)
}

func (g *Gallery) load(ctx context.Context) ([]GalleryEntry, error) {
	var entries []GalleryEntry
	err := godirwalk.Walk(g.dir, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			kind, err := filetype.MatchFile(path)
			if err != nil || !enrollable[kind.MIME.Value] {
				return nil //nolint:nilerr // non-images are skipped
			}
			emb, err := g.embedding(ctx, path)
			if err != nil {
				g.logger.Warn(ctx, "gallery image skipped", logger.String("path", path), logger.Error(err))
				return nil
			}
			entries = append(entries, GalleryEntry{Identity: identityOf(path), Path: path, Embedding: emb})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGallery, err)
	}
	return entries, nil
}

// embedding returns the cached embedding of path, keyed by its modification time.
func (g *Gallery) embedding(ctx context.Context, path string) ([]float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("emb:%s:%d", path, info.ModTime().UnixNano())
	if v, ok := g.cache.Get(key); ok {
		return v.([]float64), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return nil, err
	}

	reps, err := g.rep.Represent(ctx, img)
	if err != nil {
		return nil, err
	}
	g.cache.Set(key, reps[0].Embedding, embeddingCacheTimeout)
	return reps[0].Embedding, nil
}

// identityOf maps face_database/alice.jpg to "alice".
func identityOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FindIdentity embeds every face in frame and returns the closest enrolled
// identity per face when it is closer than the max distance.
func (g *Gallery) FindIdentity(ctx context.Context, frame model.Frame) ([]model.IdentityMatch, error) {
	entries, err := g.Entries(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	reps, err := g.rep.Represent(ctx, frame.Image)
	if err != nil {
		return nil, err
	}

	var matches []model.IdentityMatch
	for _, r := range reps {
		best, dist := Nearest(r.Embedding, entries)
		if best < 0 || dist >= g.maxDistance {
			continue
		}
		matches = append(matches, model.IdentityMatch{Region: r.Region, Identity: entries[best].Identity, Distance: dist})
	}
	return matches, nil
}

// Nearest returns the index and cosine distance of the closest entry, -1 when none is comparable.
func Nearest(vec []float64, entries []GalleryEntry) (int, float64) {
	best, bestDist := -1, 0.0
	for i, e := range entries {
		d, ok := CosineDistance(vec, e.Embedding)
		if !ok {
			continue
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

// CosineDistance is 1 - cos(a, b). ok is false for mismatched or zero vectors.
func CosineDistance(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0, false
	}
	return 1 - floats.Dot(a, b)/(na*nb), true
}
