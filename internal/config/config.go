// Package config reads the viewer's runtime configuration from the
// environment.
//
//	STARVIEW_ASSET_DRIVER          fs|s3|memory (default fs)
//	STARVIEW_ASSET_ROOT            asset directory when driver=fs (default ./assets)
//	STARVIEW_ASSET_S3_BUCKET       bucket when driver=s3 (required)
//	STARVIEW_ASSET_S3_REGION       default us-east-1
//	STARVIEW_ASSET_S3_PREFIX       optional key prefix inside the bucket
//	STARVIEW_ASSET_S3_ENDPOINT     optional, for MinIO
//	STARVIEW_ASSET_S3_PATH_STYLE   true|false
//	STARVIEW_META_DRIVER           asset|sqlite|postgres (default asset)
//	STARVIEW_SQLITE_PATH           default ./starview.db
//	STARVIEW_POSTGRES_DSN          default postgres://localhost/starview?sslmode=disable
//	STARVIEW_MAX_CONCURRENT_LOADS  default 6
//	STARVIEW_PICK_THRESHOLD        point pick radius in world units (default 1)
//	STARVIEW_CATALOG               optional YAML layer catalog override
//	STARVIEW_LOG_LEVEL             debug|info|warn|error (default info)
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	DefaultAssetRoot          = "./assets"
	DefaultSQLitePath         = "./starview.db"
	DefaultPostgresDSN        = "postgres://localhost/starview?sslmode=disable"
	DefaultMaxConcurrentLoads = 6
	DefaultPickThreshold      = 1.0
)

// S3Config holds the bucket settings for the s3 asset driver.
type S3Config struct {
	Bucket    string
	Region    string
	Prefix    string
	Endpoint  string
	PathStyle bool
}

// Config is the resolved runtime configuration.
type Config struct {
	AssetDriver        string
	AssetRoot          string
	S3                 S3Config
	MetaDriver         string
	SQLitePath         string
	PostgresDSN        string
	MaxConcurrentLoads int64
	PickThreshold      float64
	CatalogPath        string
	LogLevel           slog.Level
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		AssetDriver:        "fs",
		AssetRoot:          DefaultAssetRoot,
		MetaDriver:         "asset",
		SQLitePath:         DefaultSQLitePath,
		PostgresDSN:        DefaultPostgresDSN,
		MaxConcurrentLoads: DefaultMaxConcurrentLoads,
		PickThreshold:      DefaultPickThreshold,
		LogLevel:           slog.LevelInfo,
	}
}

// Load reads the process environment.
func Load() (Config, error) { return FromLookup(os.LookupEnv) }

// FromLookup resolves configuration through lookup, which has the signature
// of os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get("STARVIEW_ASSET_DRIVER"); ok {
		cfg.AssetDriver = strings.ToLower(v)
	}
	if v, ok := get("STARVIEW_ASSET_ROOT"); ok {
		cfg.AssetRoot = v
	}
	cfg.S3.Bucket, _ = get("STARVIEW_ASSET_S3_BUCKET")
	cfg.S3.Region, _ = get("STARVIEW_ASSET_S3_REGION")
	cfg.S3.Prefix, _ = get("STARVIEW_ASSET_S3_PREFIX")
	cfg.S3.Endpoint, _ = get("STARVIEW_ASSET_S3_ENDPOINT")
	if v, ok := get("STARVIEW_ASSET_S3_PATH_STYLE"); ok {
		cfg.S3.PathStyle = strings.EqualFold(v, "true")
	}
	if cfg.AssetDriver == "s3" && cfg.S3.Bucket == "" {
		return Config{}, fmt.Errorf("STARVIEW_ASSET_S3_BUCKET required for s3 driver")
	}
	if v, ok := get("STARVIEW_META_DRIVER"); ok {
		cfg.MetaDriver = strings.ToLower(v)
	}
	if v, ok := get("STARVIEW_SQLITE_PATH"); ok {
		cfg.SQLitePath = v
	}
	if v, ok := get("STARVIEW_POSTGRES_DSN"); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := get("STARVIEW_MAX_CONCURRENT_LOADS"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("STARVIEW_MAX_CONCURRENT_LOADS: want a positive integer, got %q", v)
		}
		cfg.MaxConcurrentLoads = n
	}
	if v, ok := get("STARVIEW_PICK_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return Config{}, fmt.Errorf("STARVIEW_PICK_THRESHOLD: want a positive number, got %q", v)
		}
		cfg.PickThreshold = f
	}
	cfg.CatalogPath, _ = get("STARVIEW_CATALOG")
	if v, ok := get("STARVIEW_LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("STARVIEW_LOG_LEVEL: %w", err)
		}
	}
	return cfg, nil
}
