// Package assets is the only entry point to the asset store backends. It
// re-exports the store abstraction, selects a backend from configuration and
// turns stored bytes into scene subgraphs for the viewer.
package assets

import (
	"path"
	"strings"

	"starviewcore/internal/assets/core"
)

type (
	// Driver identifies an asset store backend.
	Driver = core.Driver
	// PutOptions configures an asset write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes a stored asset.
	Info = core.Info
	// Store is the interface for asset store backends.
	Store = core.Store
	// Presigner is implemented by stores that can sign download URLs.
	Presigner = core.Presigner
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	// ErrNotFound is wrapped when an asset key is absent.
	ErrNotFound = core.ErrNotFound
	// ErrUnsupported indicates an operation isn't supported by a driver.
	ErrUnsupported = core.ErrUnsupported
)

// KeyFromURL maps the relative asset URLs used by the layer catalog
// ("./star_cloud.glb", "/KDEglb/iso_0.1_draco.glb") onto store keys.
func KeyFromURL(url string) string {
	k := strings.TrimSpace(url)
	for strings.HasPrefix(k, "./") {
		k = k[2:]
	}
	k = strings.TrimLeft(k, "/")
	if k == "" {
		return ""
	}
	return path.Clean(k)
}
