// Command starview loads the star map layers headlessly and prints the
// resulting layer states, clip slab and colony queries as JSON. It exercises
// the same engine a GUI drives and is used to validate asset sets before
// publishing them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"starviewcore/internal/assets"
	"starviewcore/internal/catalog"
	"starviewcore/internal/config"
	"starviewcore/internal/metadata"
	"starviewcore/internal/observability"
	"starviewcore/internal/viewer"
	"starviewcore/pkg/viewapi"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

type options struct {
	layers     string
	bootstrap  bool
	query      string
	around     string
	size       float64
	pick       string
	iso        int
	clipAxis   string
	importMeta bool
	metrics    bool
	trace      bool
	timeout    time.Duration
}

type report struct {
	Layers      []viewapi.LayerView `json:"layers"`
	Clip        viewapi.ClipView    `json:"clip"`
	Allegiances []string            `json:"allegiances,omitempty"`
	Hits        []viewapi.ColonyHit `json:"hits,omitempty"`
	Pick        *viewapi.ColonyHit  `json:"pick,omitempty"`
	Errors      map[string]string   `json:"errors,omitempty"`
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("starview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o options
	fs.StringVar(&o.layers, "layers", "", "comma separated layer ids to activate, or \"all\"")
	fs.BoolVar(&o.bootstrap, "bootstrap", true, "load the colonized system bubbles")
	fs.StringVar(&o.query, "query", "", "colony box query as minx,miny,minz,maxx,maxy,maxz")
	fs.StringVar(&o.around, "around", "", "colony search box center as x,y,z")
	fs.Float64Var(&o.size, "size", viewer.DefaultSearchBoxSize, "search box edge length for -around")
	fs.StringVar(&o.pick, "pick", "", "colony pick ray as ox,oy,oz,dx,dy,dz")
	fs.IntVar(&o.iso, "iso", 0, "number of iso levels to show")
	fs.StringVar(&o.clipAxis, "clip", "", "enable the clipping slab along x, y or z")
	fs.BoolVar(&o.importMeta, "import-meta", false, "copy the colony metadata file into the configured database and exit")
	fs.BoolVar(&o.metrics, "metrics", false, "write asset metrics in Prometheus text format to stderr")
	fs.BoolVar(&o.trace, "trace", false, "write asset fetch spans as JSON lines to stderr")
	fs.DurationVar(&o.timeout, "timeout", 2*time.Minute, "overall load deadline")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := run(o, stdout, stderr); err != nil {
		if _, writeErr := fmt.Fprintf(stderr, "starview: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}
	return 0
}

func run(o options, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		if cat, err = catalog.Load(cfg.CatalogPath); err != nil {
			return err
		}
	}

	store, err := assets.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open assets: %w", err)
	}
	prom := observability.NewPrometheusRecorder()
	opts := assets.LoaderOptions{
		MaxConcurrent: cfg.MaxConcurrentLoads,
		Metrics:       observability.MultiRecorder{prom, observability.NewExpvarMetricsRecorder("")},
		Logger:        logger,
	}
	if o.trace {
		opts.Tracer = observability.NewJSONTracer(stderr)
	}
	loader := assets.NewLoader(store, opts)

	meta, err := metadata.Open(ctx, cfg, loader)
	if err != nil {
		return fmt.Errorf("open metadata: %w", err)
	}
	defer func() { _ = meta.Close() }()

	if o.importMeta {
		return importMetadata(ctx, cat, loader, meta, logger, stdout)
	}

	e, err := viewer.New(loader, viewer.Options{
		Catalog:       cat,
		Metadata:      meta,
		Logger:        logger,
		PickThreshold: cfg.PickThreshold,
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = e.Close(closeCtx)
	}()

	if o.bootstrap {
		e.Bootstrap()
	}
	for _, id := range layerIDs(o.layers, cat) {
		if err := e.Activate(id); err != nil {
			return err
		}
	}
	if err := e.Settle(ctx); err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	e.SetIsoVisibilityCount(o.iso)
	if o.clipAxis != "" {
		if err := e.SetClipAxis(o.clipAxis); err != nil {
			return err
		}
		e.EnableClipping()
	}

	rep := report{Layers: e.Layers(), Clip: e.Clip(), Allegiances: e.Allegiances()}
	for _, v := range rep.Layers {
		if lerr := e.LastError(v.ID); lerr != nil {
			if rep.Errors == nil {
				rep.Errors = make(map[string]string)
			}
			rep.Errors[string(v.ID)] = lerr.Error()
		}
	}
	if o.query != "" {
		v, err := parseFloats(o.query, 6)
		if err != nil {
			return fmt.Errorf("-query: %w", err)
		}
		rep.Hits = e.QueryBox(mgl32.Vec3{v[0], v[1], v[2]}, mgl32.Vec3{v[3], v[4], v[5]})
	}
	if o.around != "" {
		v, err := parseFloats(o.around, 3)
		if err != nil {
			return fmt.Errorf("-around: %w", err)
		}
		rep.Hits = append(rep.Hits, e.QueryAround(mgl32.Vec3{v[0], v[1], v[2]}, float32(o.size))...)
	}
	if o.pick != "" {
		v, err := parseFloats(o.pick, 6)
		if err != nil {
			return fmt.Errorf("-pick: %w", err)
		}
		if hit, ok := e.Pick(mgl32.Vec3{v[0], v[1], v[2]}, mgl32.Vec3{v[3], v[4], v[5]}); ok {
			rep.Pick = &hit
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return err
	}
	if o.metrics {
		return prom.WriteText(stderr)
	}
	return nil
}

// importMetadata seeds a database source from the metadata file in the asset
// store.
func importMetadata(ctx context.Context, cat catalog.Catalog, f metadata.Fetcher, dst metadata.Source, logger *slog.Logger, stdout io.Writer) error {
	imp, ok := dst.(metadata.Importer)
	if !ok {
		return errors.New("-import-meta needs STARVIEW_META_DRIVER=sqlite or postgres")
	}
	for _, l := range cat.Layers {
		if l.Kind != catalog.KindColonyCloud || l.MetaURL == "" {
			continue
		}
		entries, err := metadata.NewAssetSource(f).ColonyMetadata(ctx, l.MetaURL)
		if err != nil {
			return err
		}
		if err := imp.Import(ctx, l.MetaURL, entries); err != nil {
			return err
		}
		logger.Info("colony metadata imported", "url", l.MetaURL, "rows", len(entries))
		if _, err := fmt.Fprintf(stdout, "imported %d rows from %s\n", len(entries), l.MetaURL); err != nil {
			return err
		}
	}
	return nil
}

func layerIDs(list string, cat catalog.Catalog) []viewapi.LayerID {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil
	}
	var out []viewapi.LayerID
	if list == "all" {
		for _, l := range cat.Layers {
			// members load through their group; colonies load at bootstrap
			if l.Kind == catalog.KindGuardianSite || l.Kind == catalog.KindColonies {
				continue
			}
			out = append(out, l.ID)
		}
		return out
	}
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, viewapi.LayerID(p))
		}
	}
	return out
}

func parseFloats(s string, n int) ([]float32, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma separated numbers, got %d", n, len(parts))
	}
	out := make([]float32, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}
