// Package versionhash mints the opaque, unguessable token that identifies
// one content revision of a pass. It doubles as the QR payload, so it must
// never repeat across passes.
package versionhash

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"mobilid/pkg/platform/sentinel"
)

const (
	// EntropyBytes is the random input size before encoding.
	EntropyBytes = 32
	// MaxAttempts bounds collision retries.
	MaxAttempts = 8
)

var ErrExhausted = errors.New("version hash: no unique value after max attempts")

// Prober reports whether a hash is already assigned to a pass.
type Prober interface {
	VersionHashExists(ctx context.Context, hash string) (bool, error)
}

type Hasher struct {
	prober Prober
	rand   io.Reader
}

type Option func(*Hasher)

// WithRand overrides the randomness source. Tests only.
func WithRand(r io.Reader) Option {
	return func(h *Hasher) { h.rand = r }
}

func New(prober Prober, opts ...Option) *Hasher {
	h := &Hasher{prober: prober, rand: rand.Reader}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Mint returns a URL-safe hash that no existing pass carries. Collisions are
// retried with fresh randomness and never surface to the caller.
func (h *Hasher) Mint(ctx context.Context) (string, error) {
	buf := make([]byte, EntropyBytes)
	for range MaxAttempts {
		if _, err := io.ReadFull(h.rand, buf); err != nil {
			return "", fmt.Errorf("read entropy: %w", err)
		}
		candidate := base64.RawURLEncoding.EncodeToString(buf)

		exists, err := h.prober.VersionHashExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("%w: probe version hash: %w", sentinel.ErrUnavailable, err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrExhausted
}
