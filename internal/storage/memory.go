package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryService keeps containers in process memory. Containers spring into
// existence on first write. It is safe for concurrent use.
type MemoryService struct {
	mu         sync.RWMutex
	containers map[string]map[string]Object
}

// NewMemoryService returns an empty in-memory store.
func NewMemoryService() *MemoryService {
	return &MemoryService{containers: make(map[string]map[string]Object)}
}

// Container returns a handle for name.
func (s *MemoryService) Container(name string) Container {
	return &memoryContainer{svc: s, name: name}
}

// EnsureContainers registers every name that is not present yet.
func (s *MemoryService) EnsureContainers(_ context.Context, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if _, ok := s.containers[name]; !ok {
			s.containers[name] = make(map[string]Object)
		}
	}
	return nil
}

// Keys lists the object keys stored in container, in no particular order.
func (s *MemoryService) Keys(container string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.containers[container]))
	for k := range s.containers[container] {
		keys = append(keys, k)
	}
	return keys
}

type memoryContainer struct {
	svc  *MemoryService
	name string
}

func (c *memoryContainer) Name() string { return c.name }

func (c *memoryContainer) Upload(ctx context.Context, key string, reader io.Reader, _ int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read upload body %q: %w", key, err)
	}

	c.svc.mu.Lock()
	defer c.svc.mu.Unlock()
	objects, ok := c.svc.containers[c.name]
	if !ok {
		objects = make(map[string]Object)
		c.svc.containers[c.name] = objects
	}
	objects[key] = Object{Data: data, ContentType: contentTypeOrDefault(contentType)}
	return nil
}

func (c *memoryContainer) Download(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.svc.mu.RLock()
	defer c.svc.mu.RUnlock()
	obj, ok := c.svc.containers[c.name][key]
	if !ok {
		return nil, fmt.Errorf("get object %q: %w", key, ErrNotFound)
	}
	return &Object{Data: bytes.Clone(obj.Data), ContentType: obj.ContentType}, nil
}
