package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	passmodels "mobilid/internal/pass/models"
	passstore "mobilid/internal/pass/store"
	"mobilid/pkg/platform/sentinel"
	"mobilid/pkg/platform/tx"
)

const passType = "pass.edu.oc.id"

type InMemoryStoreSuite struct {
	suite.Suite
	ctx    context.Context
	passes *passstore.InMemoryStore
	store  *InMemoryStore
	t0     time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.passes = passstore.NewInMemory()
	s.store = NewInMemory(s.passes)
	s.putPass("1234567", "H1", s.t0)
	s.putPass("7654321", "H9", s.t0)
}

func (s *InMemoryStoreSuite) putPass(serial, hash string, at time.Time) {
	s.Require().NoError(s.passes.Upsert(s.ctx, passmodels.PassRecord{
		SerialNumber: serial,
		PassType:     passType,
		VersionHash:  hash,
		LastUpdate:   at,
		AuthToken:    "tok",
	}))
}

func (s *InMemoryStoreSuite) register(deviceID, serial string) bool {
	s.Require().NoError(s.store.RegisterDevice(s.ctx, deviceID, "push-"+deviceID, "iPhone"))
	created, err := s.store.Bind(s.ctx, deviceID, serial)
	s.Require().NoError(err)
	return created
}

func (s *InMemoryStoreSuite) TestBindIsIdempotent() {
	s.True(s.register("dev-1", "1234567"))
	s.False(s.register("dev-1", "1234567"))

	devices, err := s.store.ListDevicesForSerial(s.ctx, "1234567")
	s.Require().NoError(err)
	s.Len(devices, 1)
}

func (s *InMemoryStoreSuite) TestRegisterDeviceUpdatesPushAddress() {
	s.register("dev-1", "1234567")
	s.Require().NoError(s.store.RegisterDevice(s.ctx, "dev-1", "new-push", ""))

	d, err := s.store.GetDevice(s.ctx, "dev-1")
	s.Require().NoError(err)
	s.Equal("new-push", d.PushAddress)
	s.Equal("iPhone", d.Platform, "empty platform keeps the previous one")
}

func (s *InMemoryStoreSuite) TestBindRequiresDeviceAndPass() {
	_, err := s.store.Bind(s.ctx, "ghost", "1234567")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.RegisterDevice(s.ctx, "dev-1", "push", ""))
	_, err = s.store.Bind(s.ctx, "dev-1", "0000000")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestUnbindLastRegistrationRemovesDevice() {
	s.register("dev-1", "1234567")

	removed, err := s.store.Unbind(s.ctx, "dev-1", "1234567")
	s.Require().NoError(err)
	s.True(removed)

	_, err = s.store.GetDevice(s.ctx, "dev-1")
	s.ErrorIs(err, sentinel.ErrNotFound)

	// re-registering behaves as new
	s.True(s.register("dev-1", "1234567"))
}

func (s *InMemoryStoreSuite) TestUnbindKeepsDeviceWithOtherBindings() {
	s.register("dev-1", "1234567")
	s.register("dev-1", "7654321")

	removed, err := s.store.Unbind(s.ctx, "dev-1", "1234567")
	s.Require().NoError(err)
	s.False(removed)

	has, err := s.store.HasRegistrations(s.ctx, "dev-1")
	s.Require().NoError(err)
	s.True(has)
}

func (s *InMemoryStoreSuite) TestUnbindUnknownIsNoop() {
	removed, err := s.store.Unbind(s.ctx, "ghost", "1234567")
	s.Require().NoError(err)
	s.False(removed)
}

func (s *InMemoryStoreSuite) TestUnbindSerialCascades() {
	s.register("dev-1", "1234567")
	s.register("dev-2", "1234567")
	s.register("dev-2", "7654321")

	n, err := s.store.UnbindSerial(s.ctx, "1234567")
	s.Require().NoError(err)
	s.Equal(2, n)

	_, err = s.store.GetDevice(s.ctx, "dev-1")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.GetDevice(s.ctx, "dev-2")
	s.NoError(err)
}

func (s *InMemoryStoreSuite) TestListSerialsForDevice() {
	s.register("dev-1", "1234567")
	s.register("dev-1", "7654321")

	t1 := s.t0.Add(time.Minute)
	s.putPass("1234567", "H2", t1)

	all, err := s.store.ListSerialsForDevice(s.ctx, "dev-1", passType, nil)
	s.Require().NoError(err)
	s.Equal([]string{"1234567", "7654321"}, all.SerialNumbers)
	s.Equal(t1, all.LastUpdated)

	since := s.t0
	updated, err := s.store.ListSerialsForDevice(s.ctx, "dev-1", passType, &since)
	s.Require().NoError(err)
	s.Equal([]string{"1234567"}, updated.SerialNumbers)
	s.Equal(t1, updated.LastUpdated)

	none, err := s.store.ListSerialsForDevice(s.ctx, "dev-1", passType, &t1)
	s.Require().NoError(err)
	s.True(none.Empty())
	s.True(none.LastUpdated.IsZero())

	other, err := s.store.ListSerialsForDevice(s.ctx, "dev-1", "pass.other", nil)
	s.Require().NoError(err)
	s.True(other.Empty())
}

func (s *InMemoryStoreSuite) TestConcurrentBindSamePairCreatesOnce() {
	s.Require().NoError(s.store.RegisterDevice(s.ctx, "dev-1", "push-dev-1", "iPhone"))

	var created atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.store.Bind(s.ctx, "dev-1", "1234567")
			s.NoError(err)
			if ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), created.Load())
	devices, err := s.store.ListDevicesForSerial(s.ctx, "1234567")
	s.Require().NoError(err)
	s.Len(devices, 1)
}

// A register of one serial racing an unbind of the device's other serial
// must not lose the device between RegisterDevice and Bind.
func (s *InMemoryStoreSuite) TestRegisterAndUnbindSerializePerDevice() {
	runner := tx.NewSharded()
	for i := range 50 {
		deviceID := fmt.Sprintf("dev-%d", i)
		s.register(deviceID, "1234567")
		ctx := tx.WithShardKey(s.ctx, deviceID)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			err := runner.RunInTx(ctx, func(ctx context.Context) error {
				if err := s.store.RegisterDevice(ctx, deviceID, "push-"+deviceID, "iPhone"); err != nil {
					return err
				}
				_, err := s.store.Bind(ctx, deviceID, "7654321")
				return err
			})
			s.NoError(err)
		}()
		go func() {
			defer wg.Done()
			err := runner.RunInTx(ctx, func(ctx context.Context) error {
				_, err := s.store.Unbind(ctx, deviceID, "1234567")
				return err
			})
			s.NoError(err)
		}()
		wg.Wait()

		list, err := s.store.ListSerialsForDevice(s.ctx, deviceID, passType, nil)
		s.Require().NoError(err)
		s.Equal([]string{"7654321"}, list.SerialNumbers)
		_, err = s.store.GetDevice(s.ctx, deviceID)
		s.NoError(err)
	}
}

func TestInMemory_ListDevicesForUnknownSerial(t *testing.T) {
	s := NewInMemory(passstore.NewInMemory())
	devices, err := s.ListDevicesForSerial(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, devices)
}
