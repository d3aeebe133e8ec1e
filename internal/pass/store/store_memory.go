package store

import (
	"context"
	"crypto/subtle"
	"sort"
	"sync"

	"mobilid/internal/pass/models"
	"mobilid/pkg/platform/sentinel"
)

// InMemoryStore keeps pass records in process memory with a secondary
// index on version hash.
type InMemoryStore struct {
	mu       sync.RWMutex
	bySerial map[string]models.PassRecord
	byHash   map[string]string
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		bySerial: make(map[string]models.PassRecord),
		byHash:   make(map[string]string),
	}
}

func (s *InMemoryStore) Get(_ context.Context, serial string) (models.PassRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.bySerial[serial]
	if !ok {
		return models.PassRecord{}, sentinel.ErrNotFound
	}
	return rec, nil
}

func (s *InMemoryStore) GetByVersionHash(_ context.Context, hash string) (models.PassRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	serial, ok := s.byHash[hash]
	if !ok {
		return models.PassRecord{}, sentinel.ErrNotFound
	}
	return s.bySerial[serial], nil
}

// GetByAuth is the authorization gate for device-facing reads. A token
// mismatch is indistinguishable from a missing serial.
func (s *InMemoryStore) GetByAuth(_ context.Context, serial, authToken string) (models.PassRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.bySerial[serial]
	if !ok || authToken == "" || subtle.ConstantTimeCompare([]byte(rec.AuthToken), []byte(authToken)) != 1 {
		return models.PassRecord{}, sentinel.ErrNotFound
	}
	return rec, nil
}

func (s *InMemoryStore) Exists(_ context.Context, serial string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bySerial[serial]
	return ok, nil
}

func (s *InMemoryStore) ListSerialNumbers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.bySerial))
	for serial := range s.bySerial {
		out = append(out, serial)
	}
	sort.Strings(out)
	return out, nil
}

func (s *InMemoryStore) VersionHashExists(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byHash[hash]
	return ok, nil
}

// Upsert inserts or replaces the content version of a pass. The auth token,
// pass type and creation time of an existing record are preserved.
func (s *InMemoryStore) Upsert(_ context.Context, rec models.PassRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.byHash[rec.VersionHash]; ok && owner != rec.SerialNumber {
		return models.ErrHashTaken
	}

	prev, exists := s.bySerial[rec.SerialNumber]
	if exists {
		if rec.LastUpdate.Before(prev.LastUpdate) {
			return models.ErrStaleWrite
		}
		rec.AuthToken = prev.AuthToken
		rec.PassType = prev.PassType
		rec.CreatedAt = prev.CreatedAt
		if prev.VersionHash != rec.VersionHash {
			delete(s.byHash, prev.VersionHash)
		}
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.LastUpdate
	}

	s.bySerial[rec.SerialNumber] = rec
	s.byHash[rec.VersionHash] = rec.SerialNumber
	return nil
}
