package assets

import (
	"context"
	"fmt"

	"starviewcore/internal/config"
	infrafs "starviewcore/internal/infra/assets/fs"
	inframemory "starviewcore/internal/infra/assets/memory"
	infras3 "starviewcore/internal/infra/assets/s3"
)

// Open selects a Store implementation from configuration.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch Driver(cfg.AssetDriver) {
	case DriverFilesystem, "":
		return infrafs.New(cfg.AssetRoot)
	case DriverS3:
		return infras3.New(ctx, infras3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Prefix:    cfg.S3.Prefix,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	case DriverMemory:
		return inframemory.New(), nil
	default:
		return nil, fmt.Errorf("unknown asset driver %s", cfg.AssetDriver)
	}
}

// NewMemory returns an empty in-memory store.
func NewMemory() *inframemory.Store { return inframemory.New() }

// NewFilesystem returns a directory-backed store.
func NewFilesystem(root string) (Store, error) { return infrafs.New(root) }

// NewMockS3ForTests exposes the in-process S3 fake for cross-package tests.
func NewMockS3ForTests(prefix string) Store { return infras3.NewMockForTests(prefix) }
