package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryBackend is a map-backed object store for tests and local
// development.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryBackend creates an empty in-memory object store.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		objects: make(map[string][]byte),
	}
}

// Put stores body under key. The object only becomes visible once the
// body has been read to completion without error.
func (b *MemoryBackend) Put(ctx context.Context, key string, body io.Reader, length int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read object body: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

// Get retrieves an object.
func (b *MemoryBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	data, ok := b.objects[key]
	b.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Len reports the number of stored objects.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
