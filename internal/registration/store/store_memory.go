package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	passmodels "mobilid/internal/pass/models"
	"mobilid/internal/registration/models"
	"mobilid/pkg/platform/sentinel"
	"mobilid/pkg/requestcontext"
)

// Passes resolves pass records so the in-memory directory can enforce the
// same referential integrity the Postgres foreign keys give.
type Passes interface {
	Get(ctx context.Context, serial string) (passmodels.PassRecord, error)
}

// InMemoryStore is the registration directory held in process memory.
type InMemoryStore struct {
	mu      sync.Mutex
	passes  Passes
	devices map[string]models.Device
	// device id -> serial -> bound at
	bindings map[string]map[string]time.Time
}

func NewInMemory(passes Passes) *InMemoryStore {
	return &InMemoryStore{
		passes:   passes,
		devices:  make(map[string]models.Device),
		bindings: make(map[string]map[string]time.Time),
	}
}

func (s *InMemoryStore) RegisterDevice(ctx context.Context, deviceID, pushAddress, platform string) error {
	now := requestcontext.Now(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[deviceID]
	if !ok {
		d = models.Device{ID: deviceID, CreatedAt: now}
	}
	d.PushAddress = pushAddress
	if platform != "" {
		d.Platform = platform
	}
	d.UpdatedAt = now
	s.devices[deviceID] = d
	return nil
}

func (s *InMemoryStore) GetDevice(_ context.Context, deviceID string) (models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return models.Device{}, sentinel.ErrNotFound
	}
	return d, nil
}

func (s *InMemoryStore) Bind(ctx context.Context, deviceID, serial string) (bool, error) {
	if _, err := s.passes.Get(ctx, serial); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, fmt.Errorf("bind %s: pass: %w", serial, sentinel.ErrNotFound)
		}
		return false, fmt.Errorf("bind %s: %w", serial, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[deviceID]; !ok {
		return false, fmt.Errorf("bind %s: device: %w", serial, sentinel.ErrNotFound)
	}
	serials, ok := s.bindings[deviceID]
	if !ok {
		serials = make(map[string]time.Time)
		s.bindings[deviceID] = serials
	}
	if _, bound := serials[serial]; bound {
		return false, nil
	}
	serials[serial] = requestcontext.Now(ctx)
	return true, nil
}

// Unbind removes the pair and, when it was the device's last binding, the
// device itself. Unknown pairs are a no-op so retries converge.
func (s *InMemoryStore) Unbind(_ context.Context, deviceID, serial string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unbindLocked(deviceID, serial), nil
}

func (s *InMemoryStore) unbindLocked(deviceID, serial string) bool {
	if _, ok := s.devices[deviceID]; !ok {
		return false
	}
	serials := s.bindings[deviceID]
	delete(serials, serial)
	if len(serials) > 0 {
		return false
	}
	delete(s.bindings, deviceID)
	delete(s.devices, deviceID)
	return true
}

func (s *InMemoryStore) UnbindSerial(_ context.Context, serial string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for deviceID, serials := range s.bindings {
		if _, ok := serials[serial]; ok {
			s.unbindLocked(deviceID, serial)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryStore) HasRegistrations(_ context.Context, deviceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bindings[deviceID]) > 0, nil
}

func (s *InMemoryStore) ListSerialsForDevice(ctx context.Context, deviceID, passType string, updatedSince *time.Time) (models.SerialList, error) {
	s.mu.Lock()
	serials := make([]string, 0, len(s.bindings[deviceID]))
	for serial := range s.bindings[deviceID] {
		serials = append(serials, serial)
	}
	s.mu.Unlock()
	sort.Strings(serials)

	out := models.SerialList{SerialNumbers: []string{}}
	for _, serial := range serials {
		rec, err := s.passes.Get(ctx, serial)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return models.SerialList{}, fmt.Errorf("list serials for device: %w", err)
		}
		if passType != "" && rec.PassType != passType {
			continue
		}
		if updatedSince != nil && !rec.LastUpdate.After(*updatedSince) {
			continue
		}
		out.SerialNumbers = append(out.SerialNumbers, serial)
		if rec.LastUpdate.After(out.LastUpdated) {
			out.LastUpdated = rec.LastUpdate
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListDevicesForSerial(_ context.Context, serial string) ([]models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Device
	for deviceID, serials := range s.bindings {
		if _, ok := serials[serial]; ok {
			out = append(out, s.devices[deviceID])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
