package archivestore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"mobilid/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{objects: make(map[string][]byte)}
}

func (s *InMemoryStore) Put(_ context.Context, serial, versionHash string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectKey(serial, versionHash)] = slices.Clone(data)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, serial, versionHash string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[objectKey(serial, versionHash)]
	if !ok {
		return nil, fmt.Errorf("archive %s/%s: %w", serial, versionHash, sentinel.ErrNotFound)
	}
	return slices.Clone(data), nil
}

func (s *InMemoryStore) Delete(_ context.Context, serial, versionHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectKey(serial, versionHash))
	return nil
}

// Len reports how many archives are held.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
