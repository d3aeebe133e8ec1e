package identity

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobilid/internal/platform/config"
	"mobilid/internal/upstream/token"
)

const (
	testSecret = "shared-secret"
	fullBody   = `{"FullName":"Jane Doe","PhotoURL":"https://img/1.jpg","EagleBucks":12.5,"MealsRemaining":3,"KudosEarned":4,"KudosRequired":"10","IDPin":"1234","PrintBalance":"1.20","Mailbox":null}`
)

var fixedNow = time.Unix(1700000000, 0)

func newTestClient(t *testing.T, url string, mutate func(*config.Upstream)) *Client {
	t.Helper()
	cfg := config.Upstream{
		BaseURL:          url + "/mobilepass/details",
		SharedSecret:     testSecret,
		TokenScheme:      "salted",
		Timeout:          200 * time.Millisecond,
		FailureThreshold: 2,
		Cooldown:         time.Minute,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, WithClock(func() time.Time { return fixedNow }))
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mobilepass/details/1234567", r.URL.Path)

		plain, err := token.New(token.SaltedScheme).Decrypt(r.URL.Query().Get("token"), testSecret)
		require.NoError(t, err)
		assert.Equal(t, "1234567-1700000000", plain)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fullBody))
	}))
	defer srv.Close()

	rec, err := newTestClient(t, srv.URL, nil).Fetch(context.Background(), "1234567")
	require.NoError(t, err)
	assert.Equal(t, "1234567", rec.ID)
	assert.Equal(t, "Jane Doe", rec.Attributes.Name)
	assert.Equal(t, "12.5", rec.Attributes.Balance)
	assert.Equal(t, "3", rec.Attributes.MealsRemaining)
	assert.Equal(t, "10", rec.Attributes.KudosRequired)
	assert.Equal(t, "", rec.Attributes.Mailbox)
}

func TestFetch_HexToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := hex.DecodeString(r.URL.Query().Get("token"))
		require.NoError(t, err)
		_, err = token.New(token.SaltedScheme).Decrypt(string(raw), testSecret)
		require.NoError(t, err)
		_, _ = w.Write([]byte(fullBody))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, func(c *config.Upstream) { c.HexToken = true }).Fetch(context.Background(), "1234567")
	require.NoError(t, err)
}

func TestFetch_ErrorCategories(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		category  ErrorCategory
		retryable bool
	}{
		{"not found", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) }, ErrorNotFound, false},
		{"rejected token", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusForbidden) }, ErrorAuthentication, false},
		{"outage", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) }, ErrorProviderOutage, true},
		{"garbage", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("<html>")) }, ErrorBadData, false},
		{"missing name", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"IDPin":"1234"}`)) }, ErrorContractMismatch, false},
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}, ErrorTimeout, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestClient(t, srv.URL, nil).Fetch(context.Background(), "1234567")
			require.Error(t, err)
			assert.Equal(t, tt.category, GetCategory(err))
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestFetch_CircuitOpensAfterTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	for range 2 {
		_, err := c.Fetch(context.Background(), "1234567")
		require.Error(t, err)
	}

	_, err := c.Fetch(context.Background(), "1234567")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "circuit open", pe.Message)
	assert.Equal(t, int32(2), hits.Load(), "open circuit short-circuits the request")
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(fullBody))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, nil)

	_, err := c.Verify(context.Background(), "1234567", "1234")
	require.NoError(t, err)

	_, err = c.Verify(context.Background(), "1234567", "0000")
	assert.ErrorIs(t, err, ErrPINMismatch)
}

func TestRequestURL_EscapesID(t *testing.T) {
	c := newTestClient(t, "http://upstream.test", nil)
	u, err := c.requestURL("12 34")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://upstream.test/mobilepass/details/12%2034?token="))
}
