package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"starviewcore/internal/observability"
	"starviewcore/internal/scene"
)

const (
	opLoad  = "asset_load"
	opFetch = "asset_fetch"
)

// LoaderOptions configures a Loader. Zero values fall back to defaults.
type LoaderOptions struct {
	MaxConcurrent int64
	Metrics       observability.MetricsRecorder
	Tracer        observability.Tracer
	Logger        *slog.Logger
}

// Loader fetches assets from a Store and decodes them into scene subgraphs.
// It is safe for concurrent use; at most MaxConcurrent fetches run at once.
type Loader struct {
	store   Store
	sem     *semaphore.Weighted
	metrics observability.MetricsRecorder
	tracer  observability.Tracer
	logger  *slog.Logger

	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewLoader wraps store.
func NewLoader(store Store, opts LoaderOptions) *Loader {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 6
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NoopRecorder{}
	}
	if opts.Tracer == nil {
		opts.Tracer = observability.NoopTracer{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		store:    store,
		sem:      semaphore.NewWeighted(opts.MaxConcurrent),
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		logger:   opts.Logger,
		decoders: map[string]Decoder{".json": DecoderFunc(DecodeScene)},
	}
}

// Store returns the backing store.
func (l *Loader) Store() Store { return l.store }

// RegisterDecoder installs d for keys ending in ext (".glb", ".gltf", ...).
func (l *Loader) RegisterDecoder(ext string, d Decoder) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decoders[strings.ToLower(ext)] = d
}

func (l *Loader) decoderFor(key string) (Decoder, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.decoders[strings.ToLower(path.Ext(key))]
	return d, ok
}

// Fetch returns the raw bytes behind url.
func (l *Loader) Fetch(ctx context.Context, url string) ([]byte, error) {
	return l.fetch(ctx, opFetch, url)
}

// Load fetches url and decodes it.
func (l *Loader) Load(ctx context.Context, url string) (*scene.Node, error) {
	key := KeyFromURL(url)
	data, err := l.fetch(ctx, opLoad, url)
	if err != nil {
		return nil, err
	}
	var node *scene.Node
	if d, ok := l.decoderFor(key); ok {
		node, err = d.Decode(key, data)
	} else {
		node, err = sniff(key, data)
	}
	if err != nil {
		return nil, err
	}
	if node.Name == "" {
		node.Name = key
	}
	return node, nil
}

func (l *Loader) fetch(ctx context.Context, op, url string) (data []byte, err error) {
	key := KeyFromURL(url)
	if key == "" {
		return nil, fmt.Errorf("empty asset url %q", url)
	}
	ctx, span := l.tracer.Start(ctx, op)
	start := time.Now()
	defer func() {
		l.metrics.Observe(ctx, op, err == nil, time.Since(start))
		span.End(err)
	}()
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer l.sem.Release(1)

	_, rc, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	data, err = io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	l.logger.Debug("asset fetched", "key", key, "bytes", len(data), "driver", l.store.Driver())
	return data, nil
}
