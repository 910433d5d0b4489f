package attachment

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcelsud/shipment-relay/delivery"
	"github.com/rs/zerolog"
)

// LargeAttachmentBytes is the size at which a warning is logged; no hard cap
const LargeAttachmentBytes = 5 << 20

const objectScheme = "s3"

// ObjectFetcher reads objects from a bucket store; found=false means missing
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) (data []byte, found bool, err error)
}

/* Loader resolves attachment references to bytes
 * http(s) URLs and paths map onto files under root, s3://bucket/key goes
 * through the object fetcher. Nothing is cached between calls
 */
type Loader struct {
	root    string
	objects ObjectFetcher
	logger  zerolog.Logger
}

type Option func(*Loader)

// WithRoot sets the directory uploaded files are served from
func WithRoot(dir string) Option {
	return func(l *Loader) { l.root = dir }
}

// WithObjects enables s3:// locators
func WithObjects(f ObjectFetcher) Option {
	return func(l *Loader) { l.objects = f }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a loader
func NewLoader(opts ...Option) *Loader {
	l := &Loader{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the attachment bytes, nil when it is absent, or a file error
func (l *Loader) Load(ctx context.Context, ref delivery.AttachmentReference) ([]byte, error) {
	locator := strings.TrimSpace(ref.Locator)
	if locator == "" {
		l.logger.Debug().Str("kind", string(ref.Kind)).Msg("empty attachment locator")
		return nil, nil
	}

	u, err := url.Parse(locator)
	if err == nil && u.Scheme == objectScheme {
		return l.loadObject(ctx, ref, u)
	}

	return l.loadFile(ref, l.resolvePath(locator, u))
}

func (l *Loader) resolvePath(locator string, u *url.URL) string {
	p := locator
	if u != nil && (u.Scheme == "http" || u.Scheme == "https" || u.Scheme == "file") {
		p = u.Path
	}
	if l.root == "" {
		return filepath.Clean(p)
	}
	// Rooting the path before cleaning keeps ".." from escaping root
	return filepath.Join(l.root, filepath.Clean("/"+p))
}

func (l *Loader) loadFile(ref delivery.AttachmentReference, path string) ([]byte, error) {
	log := l.logger.With().Str("kind", string(ref.Kind)).Str("path", path).Logger()

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Msg("file not found")
		return nil, nil
	}
	if err != nil {
		return nil, delivery.FileError(fmt.Errorf("stat %s attachment: %w", ref.Kind, err))
	}
	if info.IsDir() {
		return nil, delivery.FileError(fmt.Errorf("%s attachment %s is a directory", ref.Kind, path))
	}
	if info.Size() >= LargeAttachmentBytes {
		log.Warn().Int64("bytes", info.Size()).Msg("large attachment")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, delivery.FileError(fmt.Errorf("reading %s attachment: %w", ref.Kind, err))
	}

	log.Debug().Int("bytes", len(data)).Msg("attachment loaded")
	return data, nil
}

func (l *Loader) loadObject(ctx context.Context, ref delivery.AttachmentReference, u *url.URL) ([]byte, error) {
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	log := l.logger.With().Str("kind", string(ref.Kind)).Str("bucket", bucket).Str("key", key).Logger()

	if l.objects == nil {
		log.Warn().Msg("object store not configured, skipping attachment")
		return nil, nil
	}
	if bucket == "" || key == "" {
		log.Warn().Msg("malformed object locator")
		return nil, nil
	}

	data, found, err := l.objects.Fetch(ctx, bucket, key)
	if err != nil {
		return nil, delivery.FileError(fmt.Errorf("fetching %s attachment: %w", ref.Kind, err))
	}
	if !found {
		log.Warn().Msg("file not found")
		return nil, nil
	}
	if len(data) >= LargeAttachmentBytes {
		log.Warn().Int("bytes", len(data)).Msg("large attachment")
	}

	return data, nil
}
