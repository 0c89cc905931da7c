package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

type memoryObject struct {
	info Info
	data []byte
}

// Memory keeps objects in process memory. Used in tests and single-process
// demos.
type Memory struct {
	mu   sync.RWMutex
	objs map[string]memoryObject
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{objs: make(map[string]memoryObject)} }

// Driver returns DriverMemory.
func (m *Memory) Driver() Driver { return DriverMemory }

// Put stores a new object.
func (m *Memory) Put(_ context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Info{}, fmt.Errorf("reading blob %s: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objs[key]; exists {
		return Info{}, fmt.Errorf("%w: %s", ErrExists, key)
	}
	info := Info{Key: key, Size: int64(len(b)), ContentType: opts.ContentType, LastModified: time.Now().UTC()}
	m.objs[key] = memoryObject{info: info, data: b}
	return info, nil
}

// Get returns a copy of an object.
func (m *Memory) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	m.mu.RLock()
	obj, ok := m.objs[key]
	m.mu.RUnlock()
	if !ok {
		return Info{}, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return obj.info, io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes an object, reporting whether it existed.
func (m *Memory) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objs[key]
	delete(m.objs, key)
	return ok, nil
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objs)
}
