// Package viewer is the layered visibility engine behind the star map. It owns
// the scene graph, the per-layer load lifecycle, the iso stack, the clipping
// slab and the colony index.
//
// An Engine is driven by a single goroutine. Asset loads run in the
// background and hand their results back as completions, which the driving
// goroutine applies through Tick or Settle. Every state change and every
// Observer call therefore happens on the driving goroutine.
package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"starviewcore/internal/catalog"
	"starviewcore/internal/metadata"
	"starviewcore/internal/scene"
	"starviewcore/pkg/viewapi"
)

// AssetLoader turns an asset URL into a scene subgraph. *assets.Loader
// implements it.
type AssetLoader interface {
	Load(ctx context.Context, url string) (*scene.Node, error)
}

// MetadataSource returns the colony metadata co-indexed with a point cloud.
type MetadataSource interface {
	ColonyMetadata(ctx context.Context, url string) ([]viewapi.ColonyMeta, error)
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	// Catalog defaults to catalog.Default().
	Catalog catalog.Catalog
	// Metadata defaults to reading the JSON metadata through the loader
	// when the loader can fetch raw bytes.
	Metadata      MetadataSource
	Observer      viewapi.Observer
	Logger        *slog.Logger
	PickThreshold float64
	// QueueSize bounds completions waiting for the driving goroutine.
	QueueSize int
}

type completion func()

// Engine holds every layer and the scene they are attached to.
type Engine struct {
	loader        AssetLoader
	meta          MetadataSource
	cat           catalog.Catalog
	observer      viewapi.Observer
	logger        *slog.Logger
	pickThreshold float64

	root   *scene.Node
	layers map[viewapi.LayerID]*layer
	order  []viewapi.LayerID

	iso      *isoStack
	clip     clipSlab
	colony   colonyIndex
	colonies colonies

	starCloudOpacity float64
	heliumIntensity  float64
	galacticY        float64

	completions chan completion
	pending     int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an engine over loader. The returned engine has every catalog
// layer Unloaded and an empty scene.
func New(loader AssetLoader, opts Options) (*Engine, error) {
	if loader == nil {
		return nil, fmt.Errorf("viewer: asset loader required")
	}
	cat := opts.Catalog
	if len(cat.Layers) == 0 {
		cat = catalog.Default()
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("viewer: %w", err)
	}
	meta := opts.Metadata
	if meta == nil {
		if f, ok := loader.(metadata.Fetcher); ok {
			meta = metadata.NewAssetSource(f)
		}
	}
	if opts.Observer == nil {
		opts.Observer = viewapi.ObserverFunc(func(viewapi.LayerID, viewapi.LayerView) {})
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.PickThreshold <= 0 {
		opts.PickThreshold = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		loader:           loader,
		meta:             meta,
		cat:              cat,
		observer:         opts.Observer,
		logger:           opts.Logger,
		pickThreshold:    opts.PickThreshold,
		root:             scene.NewGroup("root"),
		layers:           make(map[viewapi.LayerID]*layer, len(cat.Layers)),
		clip:             newClipSlab(),
		starCloudOpacity: cat.StarCloudOpacity,
		heliumIntensity:  cat.HeliumIntensity,
		galacticY:        cat.GalacticPlaneY,
		completions:      make(chan completion, opts.QueueSize),
		ctx:              ctx,
		cancel:           cancel,
	}
	for _, def := range cat.Layers {
		l := &layer{def: def, opacity: def.Opacity}
		if def.ColorTemperature != nil {
			l.temperature = *def.ColorTemperature
		}
		switch def.Kind {
		case catalog.KindStarCloud:
			l.opacity = cat.StarCloudOpacity
		case catalog.KindColonies:
			l.opacity = cat.ColoniesOpacity
		}
		e.layers[def.ID] = l
		e.order = append(e.order, def.ID)
		if def.Kind == catalog.KindIsoStack {
			e.iso = newIsoStack(l, len(def.URLs))
		}
	}
	e.colonies = newColonies(cat.Bubbles)
	return e, nil
}

// Root returns the scene the render loop draws.
func (e *Engine) Root() *scene.Node { return e.root }

// Catalog returns the layer table the engine was built with.
func (e *Engine) Catalog() catalog.Catalog { return e.cat }

// Pending reports how many completions have not been applied yet.
func (e *Engine) Pending() int { return e.pending }

// Layer returns the current view of id.
func (e *Engine) Layer(id viewapi.LayerID) (viewapi.LayerView, error) {
	l, ok := e.layers[id]
	if !ok {
		return viewapi.LayerView{}, fmt.Errorf("%w: %s", ErrUnknownLayer, id)
	}
	return e.view(l), nil
}

// Layers returns every layer view in catalog order.
func (e *Engine) Layers() []viewapi.LayerView {
	out := make([]viewapi.LayerView, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.view(e.layers[id]))
	}
	return out
}

// Node returns the subgraph attached for id.
func (e *Engine) Node(id viewapi.LayerID) (*scene.Node, error) {
	l, ok := e.layers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLayer, id)
	}
	if l.state != viewapi.Loaded || l.node == nil {
		return nil, fmt.Errorf("%w: %s", ErrLayerNotLoaded, id)
	}
	return l.node, nil
}

// LastError returns the error from the most recent load of id, if any.
func (e *Engine) LastError(id viewapi.LayerID) error {
	if l, ok := e.layers[id]; ok {
		return l.err
	}
	return fmt.Errorf("%w: %s", ErrUnknownLayer, id)
}

// Tick applies every completion that is ready without blocking and returns
// how many were applied. Call it once per frame.
func (e *Engine) Tick() int {
	n := 0
	for {
		select {
		case fn := <-e.completions:
			e.apply(fn)
			n++
		default:
			return n
		}
	}
}

// Settle applies completions until no load is in flight.
func (e *Engine) Settle(ctx context.Context) error {
	for e.pending > 0 {
		select {
		case fn := <-e.completions:
			e.apply(fn)
		case <-ctx.Done():
			return ctx.Err()
		case <-e.ctx.Done():
			return ErrClosed
		}
	}
	return nil
}

// Close cancels in-flight loads and waits for their goroutines to exit.
func (e *Engine) Close(ctx context.Context) error {
	e.cancel()
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) apply(fn completion) {
	e.pending--
	fn()
}

// expect reserves n completions. It must run on the driving goroutine
// before the goroutines that post them start.
func (e *Engine) expect(n int) { e.pending += n }

// post hands a completion to the driving goroutine. It gives up once the
// engine is closed.
func (e *Engine) post(fn completion) {
	select {
	case e.completions <- fn:
	case <-e.ctx.Done():
	}
}

// spawn runs job in the background and posts the completion it returns.
func (e *Engine) spawn(job func(ctx context.Context) completion) {
	e.expect(1)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.post(job(e.ctx))
	}()
}

func (e *Engine) notify(l *layer) {
	e.observer.LayerStateChanged(l.def.ID, e.view(l))
}

func (e *Engine) layer(id viewapi.LayerID) (*layer, error) {
	l, ok := e.layers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLayer, id)
	}
	return l, nil
}
