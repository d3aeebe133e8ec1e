package models

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/zeebo/blake3"

	"mobilid/pkg/platform/codec"
	"mobilid/pkg/platform/sentinel"
)

var (
	// ErrStaleWrite rejects an upsert whose LastUpdate is older than the stored one.
	ErrStaleWrite = fmt.Errorf("%w: last_update would move backward", sentinel.ErrConflict)
	// ErrHashTaken means another record already owns the version hash; re-mint.
	ErrHashTaken = fmt.Errorf("%w: version hash already in use", sentinel.ErrConflict)
)

// Attributes is the flat display attribute set sourced from the identity
// system. Mailbox is optional and empty when absent.
type Attributes struct {
	Name           string `cbor:"name" json:"name"`
	PhotoURL       string `cbor:"photo_url" json:"photo_url"`
	Balance        string `cbor:"balance" json:"balance"`
	MealsRemaining string `cbor:"meals_remaining" json:"meals_remaining"`
	KudosEarned    string `cbor:"kudos_earned" json:"kudos_earned"`
	KudosRequired  string `cbor:"kudos_required" json:"kudos_required"`
	PIN            string `cbor:"pin" json:"pin"`
	PrintBalance   string `cbor:"print_balance" json:"print_balance"`
	Mailbox        string `cbor:"mailbox,omitempty" json:"mailbox,omitempty"`
}

// Fingerprint is a BLAKE3 digest of the canonical CBOR encoding of Attributes.
type Fingerprint [32]byte

// FingerprintOf hashes a deterministic encoding, so equal attribute sets
// always produce equal fingerprints.
func FingerprintOf(a Attributes) (Fingerprint, error) {
	b, err := codec.Marshal(a)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("encode attributes: %w", err)
	}
	return blake3.Sum256(b), nil
}

// PassRecord is one pass and its current content version.
type PassRecord struct {
	SerialNumber string
	PassType     string
	VersionHash  string
	LastUpdate   time.Time
	AuthToken    string
	Attributes   Attributes
	Fingerprint  Fingerprint
	CreatedAt    time.Time
}

// NextLastUpdate returns the timestamp for a new version. Conditional fetch
// headers carry whole seconds, so versions are truncated to the second and
// forced at least one second past prev to stay strictly increasing.
func NextLastUpdate(prev, now time.Time) time.Time {
	next := now.UTC().Truncate(time.Second)
	if prev.IsZero() {
		return next
	}
	floor := prev.UTC().Truncate(time.Second).Add(time.Second)
	if next.Before(floor) {
		return floor
	}
	return next
}

// NewAuthToken mints the device bearer token. It is issued once per pass
// and never rotated.
func NewAuthToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate auth token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
