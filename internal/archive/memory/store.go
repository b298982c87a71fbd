// Package memory implements an in-memory archive Store for tests.
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

	"cropplan/internal/archive"
)

type entry struct {
	info archive.Info
	data []byte
}

// Store implements archive.Store backed by process memory.
type Store struct {
	mu   sync.RWMutex
	objs map[string]entry
}

var _ archive.Store = (*Store)(nil)

// New returns an empty in-memory archive.
func New() *Store { return &Store{objs: make(map[string]entry)} }

func (s *Store) Driver() archive.Driver { return archive.DriverMemory }

// Put stores a new entry; errors if key exists.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts archive.PutOptions) (archive.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objs[key]; exists {
		return archive.Info{}, fmt.Errorf("archive entry %s already exists", key)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return archive.Info{}, err
	}
	info := archive.Info{
		Key:          key,
		Size:         int64(len(b)),
		ContentType:  opts.ContentType,
		Metadata:     cloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}
	s.objs[key] = entry{info: info, data: b}
	return info, nil
}

func (s *Store) Get(_ context.Context, key string) (archive.Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return archive.Info{}, nil, archive.ErrNotFound
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Head(_ context.Context, key string) (archive.Info, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return archive.Info{}, archive.ErrNotFound
	}
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	delete(s.objs, key)
	return ok, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]archive.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]archive.Info, 0, len(s.objs))
	for k, v := range s.objs {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			info := v.info
			info.Metadata = cloneMetadata(info.Metadata)
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
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
