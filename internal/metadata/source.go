// Package metadata resolves the colony metadata table that is co-indexed
// with the colony point cloud. The default source reads the baked JSON file
// next to the cloud; sqlite and postgres sources serve the same rows from a
// database.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"starviewcore/internal/assets"
	"starviewcore/internal/config"
	infrapg "starviewcore/internal/infra/metadata/postgres"
	infrasqlite "starviewcore/internal/infra/metadata/sqlite"
	"starviewcore/pkg/viewapi"
)

// Source returns the metadata rows for a metadata URL, index aligned with
// the points of the matching cloud.
type Source interface {
	ColonyMetadata(ctx context.Context, url string) ([]viewapi.ColonyMeta, error)
	Close() error
}

// Importer is implemented by sources that can be seeded.
type Importer interface {
	Import(ctx context.Context, url string, entries []viewapi.ColonyMeta) error
}

// Fetcher reads raw asset bytes; *assets.Loader satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// AssetSource parses the JSON metadata file from the asset store.
type AssetSource struct {
	fetcher Fetcher
}

// NewAssetSource returns a Source reading through f.
func NewAssetSource(f Fetcher) *AssetSource { return &AssetSource{fetcher: f} }

// ColonyMetadata implements Source.
func (s *AssetSource) ColonyMetadata(ctx context.Context, url string) ([]viewapi.ColonyMeta, error) {
	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return entries, nil
}

// Close implements Source.
func (s *AssetSource) Close() error { return nil }

type rawEntry struct {
	SystemID   json.RawMessage `json:"systemId"`
	SystemID64 json.RawMessage `json:"systemId64"`
}

// Parse decodes a JSON array of metadata records. Each record carries its
// system identifier under "systemId" or "systemId64", as a string or a
// number; numbers are kept verbatim so 64-bit ids do not lose precision.
func Parse(data []byte) ([]viewapi.ColonyMeta, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raws []rawEntry
	if err := dec.Decode(&raws); err != nil {
		return nil, err
	}
	out := make([]viewapi.ColonyMeta, len(raws))
	for i, r := range raws {
		raw := r.SystemID
		if len(raw) == 0 || string(raw) == "null" {
			raw = r.SystemID64
		}
		id, err := idString(raw)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out[i] = viewapi.ColonyMeta{SystemID: id}
	}
	return out, nil
}

func idString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("system id %s is neither string nor number", raw)
	}
	return n.String(), nil
}

// Open selects a Source from configuration. f serves the asset driver.
// Database sources are keyed by the normalized asset key, so
// "./colonytargetCloud_meta.json" and "colonytargetCloud_meta.json" name the
// same rows.
func Open(ctx context.Context, cfg config.Config, f Fetcher) (Source, error) {
	switch strings.ToLower(cfg.MetaDriver) {
	case "", "asset":
		return NewAssetSource(f), nil
	case "sqlite":
		s, err := infrasqlite.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return keyed{s}, nil
	case "postgres":
		s, err := infrapg.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return keyed{s}, nil
	default:
		return nil, fmt.Errorf("unknown metadata driver %s", cfg.MetaDriver)
	}
}

type tableStore interface {
	Source
	Importer
}

type keyed struct{ inner tableStore }

func (k keyed) ColonyMetadata(ctx context.Context, url string) ([]viewapi.ColonyMeta, error) {
	return k.inner.ColonyMetadata(ctx, assets.KeyFromURL(url))
}

func (k keyed) Import(ctx context.Context, url string, entries []viewapi.ColonyMeta) error {
	return k.inner.Import(ctx, assets.KeyFromURL(url), entries)
}

func (k keyed) Close() error { return k.inner.Close() }
