// Package core defines the asset store abstraction shared by the backends
// under internal/infra/assets.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete asset store backend.
type Driver string

const (
	// DriverFilesystem serves pre-baked asset files from a local directory.
	DriverFilesystem Driver = "fs"
	// DriverS3 serves assets from an S3 / MinIO bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps assets in process memory (tests, seeding).
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// SignedURLOptions configures a pre-signed asset URL.
type SignedURLOptions struct {
	Expiry time.Duration // default 15m
}

// Info describes a stored asset.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is a read-mostly key/value view over baked assets. Writes exist for
// seeding and tooling; the viewer only reads.
type Store interface {
	// Get returns the asset body. Missing keys yield an error wrapping ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// List returns assets under prefix ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Put stores a new asset and fails if the key exists.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	Driver() Driver
}

// Presigner is implemented by stores that can hand out direct download URLs.
type Presigner interface {
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
}

var (
	// ErrNotFound is wrapped by every backend when a key is absent.
	ErrNotFound = errors.New("assets: not found")
	// ErrUnsupported is returned when an optional capability is not available.
	ErrUnsupported = errors.New("assets: unsupported operation")
)
