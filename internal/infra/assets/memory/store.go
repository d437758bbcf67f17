// Package memory implements an in-memory asset Store for tests and seeding.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"starviewcore/internal/assets/core"
)

type assetEntry struct {
	info core.Info
	data []byte
}

// Store implements core.Store backed by process memory. It also counts Get
// calls per key so tests can assert how often an asset was fetched.
type Store struct {
	mu   sync.RWMutex
	objs map[string]assetEntry
	gets map[string]int
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{objs: make(map[string]assetEntry), gets: make(map[string]int)}
}

// Driver returns the store driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put stores a new asset; errors if key exists.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objs[key]; exists {
		return core.Info{}, fmt.Errorf("asset %s already exists", key)
	}
	info := core.Info{Key: key, Size: int64(len(b)), ContentType: opts.ContentType, Metadata: cloneMetadata(opts.Metadata), LastModified: time.Now().UTC()}
	s.objs[key] = assetEntry{info: info, data: b}
	return info, nil
}

// Get returns asset metadata and a reader over a copy of its content.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	s.mu.Lock()
	s.gets[key]++
	obj, ok := s.objs[key]
	s.mu.Unlock()
	if !ok {
		return core.Info{}, nil, fmt.Errorf("asset %s: %w", key, core.ErrNotFound)
	}
	dataCopy := make([]byte, len(obj.data))
	copy(dataCopy, obj.data)
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, io.NopCloser(bytes.NewReader(dataCopy)), nil
}

// Head returns asset metadata only.
func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, fmt.Errorf("asset %s: %w", key, core.ErrNotFound)
	}
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, nil
}

// Delete removes the asset returning true if it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	delete(s.objs, key)
	return ok, nil
}

// List returns all assets under prefix.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Info, 0, len(s.objs))
	for k, v := range s.objs {
		if strings.HasPrefix(k, prefix) {
			inf := v.info
			inf.Metadata = cloneMetadata(inf.Metadata)
			out = append(out, inf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Gets reports how many times key was requested through Get.
func (s *Store) Gets(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gets[key]
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
