package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow_FallsBackToWallClock(t *testing.T) {
	before := time.Now()
	got := Now(context.Background())
	assert.False(t, got.Before(before))
}

func TestNow_UsesInjectedTime(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := WithTime(context.Background(), fixed)
	assert.Equal(t, fixed, Now(ctx))
}

func TestDetach_KeepsValuesDropsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTrigger(ctx, "scan")
	detached := Detach(ctx)
	cancel()

	assert.NoError(t, detached.Err())
	assert.Equal(t, "req-1", RequestID(detached))
	assert.Equal(t, "scan", Trigger(detached))
}

func TestClientMetadata(t *testing.T) {
	ctx := WithClientMetadata(context.Background(), "10.0.0.1", "PassKit/1.0")
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, "PassKit/1.0", UserAgent(ctx))
}
