package config

import (
	"log/slog"
	"testing"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.AssetDriver != "fs" || cfg.MetaDriver != "asset" || cfg.MaxConcurrentLoads != 6 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestOverrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"STARVIEW_ASSET_DRIVER":         "S3",
		"STARVIEW_ASSET_S3_BUCKET":      "galaxy",
		"STARVIEW_ASSET_S3_PATH_STYLE":  "TRUE",
		"STARVIEW_META_DRIVER":          "sqlite",
		"STARVIEW_SQLITE_PATH":          "/tmp/x.db",
		"STARVIEW_MAX_CONCURRENT_LOADS": "2",
		"STARVIEW_PICK_THRESHOLD":       "25",
		"STARVIEW_CATALOG":              "layers.yaml",
		"STARVIEW_LOG_LEVEL":            "debug",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AssetDriver != "s3" || cfg.S3.Bucket != "galaxy" || !cfg.S3.PathStyle {
		t.Fatalf("unexpected s3 config %+v", cfg)
	}
	if cfg.MetaDriver != "sqlite" || cfg.SQLitePath != "/tmp/x.db" {
		t.Fatalf("unexpected metadata config %+v", cfg)
	}
	if cfg.MaxConcurrentLoads != 2 || cfg.PickThreshold != 25 || cfg.CatalogPath != "layers.yaml" {
		t.Fatalf("unexpected numeric config %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.LogLevel)
	}
}

func TestInvalidValues(t *testing.T) {
	cases := []map[string]string{
		{"STARVIEW_ASSET_DRIVER": "s3"},
		{"STARVIEW_MAX_CONCURRENT_LOADS": "0"},
		{"STARVIEW_MAX_CONCURRENT_LOADS": "many"},
		{"STARVIEW_PICK_THRESHOLD": "-1"},
		{"STARVIEW_LOG_LEVEL": "loud"},
	}
	for _, env := range cases {
		if _, err := FromLookup(lookupFrom(env)); err == nil {
			t.Fatalf("expected error for %v", env)
		}
	}
}

func TestBlankValuesFallBack(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{"STARVIEW_ASSET_ROOT": "   "}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AssetRoot != DefaultAssetRoot {
		t.Fatalf("expected blank value to fall back to default, got %q", cfg.AssetRoot)
	}
}
