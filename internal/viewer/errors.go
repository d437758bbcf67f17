package viewer

import (
	"errors"
	"fmt"
	"strings"

	"starviewcore/pkg/viewapi"
)

var (
	// ErrUnknownLayer is returned for ids the catalog does not define.
	ErrUnknownLayer = errors.New("viewer: unknown layer")
	// ErrLayerNotLoaded is returned by accessors that need a loaded layer.
	// Toggles and parameter setters never return it.
	ErrLayerNotLoaded = errors.New("viewer: layer not loaded")
	// ErrCoIndexMismatch means the colony metadata and point buffer differ
	// in length, so points cannot be resolved to systems.
	ErrCoIndexMismatch = errors.New("viewer: colony metadata and point count differ")
	// ErrNoControl is returned when a parameter is set on a layer that does
	// not expose it.
	ErrNoControl = errors.New("viewer: layer has no such control")
	// ErrClosed is returned by Settle once the engine has been closed.
	ErrClosed = errors.New("viewer: engine closed")
)

// LoadError records a failed asset load. The layer is left Failed and the
// next activation retries.
type LoadError struct {
	Layer viewapi.LayerID
	URL   string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s (%s): %v", e.Layer, e.URL, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PartialLoadError reports the members of a multi-asset group that failed
// while the rest loaded. The group itself is usable.
type PartialLoadError struct {
	Group  viewapi.LayerID
	Failed []*LoadError
}

func (e *PartialLoadError) Error() string {
	ids := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		ids[i] = string(f.Layer)
	}
	return fmt.Sprintf("%s: %d member(s) failed: %s", e.Group, len(e.Failed), strings.Join(ids, ", "))
}

// Unwrap exposes every member failure to errors.Is and errors.As.
func (e *PartialLoadError) Unwrap() []error {
	out := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		out[i] = f
	}
	return out
}
