package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobilid/pkg/platform/clock"
	"mobilid/pkg/requestcontext"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMemoryStoreSlidingWindow(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fake(t0)
	s := NewMemoryStore(clk)

	for i := range 3 {
		res, err := s.AllowN(ctx, "k", 1, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		clk.Advance(10 * time.Second)
	}

	res, err := s.AllowN(ctx, "k", 1, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, t0.Add(time.Minute), res.ResetAt)
	assert.Equal(t, 30*time.Second, res.RetryAfter)

	t.Run("oldest event ages out", func(t *testing.T) {
		clk.Advance(30 * time.Second)
		res, err := s.AllowN(ctx, "k", 1, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)

		n, err := s.Count(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("reset clears the key", func(t *testing.T) {
		require.NoError(t, s.Reset(ctx, "k"))
		n, err := s.Count(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestMemoryStoreRejectedCostIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(clock.Fake(t0))

	res, err := s.AllowN(ctx, "k", 5, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	n, err := s.Count(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLockout(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fake(t0)
	m := NewMetricsWithRegisterer(prometheus.NewRegistry())
	l, err := NewLockout(NewMemoryStore(clk), 2, 15*time.Minute, WithLockoutMetrics(m))
	require.NoError(t, err)

	locked, err := l.Locked(ctx, "1234567")
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, l.RecordFailure(ctx, "1234567"))
	require.NoError(t, l.RecordFailure(ctx, "1234567"))

	locked, err = l.Locked(ctx, "1234567")
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Lockouts.WithLabelValues("locked")))

	locked, err = l.Locked(ctx, "7654321")
	require.NoError(t, err)
	assert.False(t, locked, "other identities are unaffected")

	clk.Advance(15 * time.Minute)
	locked, err = l.Locked(ctx, "1234567")
	require.NoError(t, err)
	assert.False(t, locked, "failures expire with the window")

	require.NoError(t, l.RecordFailure(ctx, "1234567"))
	require.NoError(t, l.RecordFailure(ctx, "1234567"))
	require.NoError(t, l.Clear(ctx, "1234567"))
	locked, err = l.Locked(ctx, "1234567")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestNewLockoutValidation(t *testing.T) {
	_, err := NewLockout(nil, 1, time.Minute)
	assert.Error(t, err)
	_, err = NewLockout(NewMemoryStore(nil), 0, time.Minute)
	assert.Error(t, err)
}

func TestLimiterMiddleware(t *testing.T) {
	m := NewMetricsWithRegisterer(prometheus.NewRegistry())
	lim := NewLimiter(NewMemoryStore(clock.Fake(t0)), 1, time.Minute, WithMetrics(m))
	h := lim.Middleware("scan")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/scan/abc", nil)
		req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test"))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	first := call("10.0.0.1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := call("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "rate_limit_exceeded")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Rejections.WithLabelValues("scan")))

	assert.Equal(t, http.StatusOK, call("10.0.0.2").Code, "limits are per client")
}
