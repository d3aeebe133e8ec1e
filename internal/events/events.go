// Package events publishes pass change events for downstream consumers such
// as the alternate wallet issuer.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mobilid/pkg/platform/codec"
)

type Type string

const (
	PassCreated Type = "pass.created"
	PassUpdated Type = "pass.updated"
)

// PassEvent announces a committed pass version. It carries identifiers
// only; consumers fetch whatever else they need.
type PassEvent struct {
	ID           string    `cbor:"1,keyasint"`
	Type         Type      `cbor:"2,keyasint"`
	SerialNumber string    `cbor:"3,keyasint"`
	PassType     string    `cbor:"4,keyasint"`
	VersionHash  string    `cbor:"5,keyasint"`
	PreviousHash string    `cbor:"6,keyasint,omitempty"`
	LastUpdate   time.Time `cbor:"7,keyasint"`
	OccurredAt   time.Time `cbor:"8,keyasint"`
}

// NewPassEvent stamps a fresh event id and time.
func NewPassEvent(t Type, serial, passType, hash, previous string, lastUpdate, now time.Time) PassEvent {
	return PassEvent{
		ID:           uuid.NewString(),
		Type:         t,
		SerialNumber: serial,
		PassType:     passType,
		VersionHash:  hash,
		PreviousHash: previous,
		LastUpdate:   lastUpdate.UTC(),
		OccurredAt:   now.UTC(),
	}
}

func Encode(e PassEvent) ([]byte, error) {
	b, err := codec.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	return b, nil
}

func Decode(b []byte) (PassEvent, error) {
	var e PassEvent
	if err := codec.Unmarshal(b, &e); err != nil {
		return PassEvent{}, fmt.Errorf("decode pass event: %w", err)
	}
	return e, nil
}

// Publisher delivers events. Delivery is at-least-once; consumers dedupe on ID.
type Publisher interface {
	Publish(ctx context.Context, e PassEvent) error
}

// Noop drops events. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, PassEvent) error { return nil }
