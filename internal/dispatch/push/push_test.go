package push

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sideshow/apns2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobilid/internal/platform/config"
)

func newTestAPNs(t *testing.T, handler http.HandlerFunc) *APNsSender {
	t.Helper()
	srv := httptest.NewUnstartedServer(handler)
	srv.EnableHTTP2 = true
	srv.StartTLS()
	t.Cleanup(srv.Close)

	client := &apns2.Client{Host: srv.URL, HTTPClient: srv.Client()}
	return newAPNsSender(client)
}

func TestAPNsSender_Send(t *testing.T) {
	var gotPath, gotTopic string
	var gotBody []byte
	s := newTestAPNs(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTopic = r.Header.Get("apns-topic")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("apns-id", "id-1")
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, s.Send(context.Background(), "abc123", "pass.edu.oc.id"))
	assert.Equal(t, "/3/device/abc123", gotPath)
	assert.Equal(t, "pass.edu.oc.id", gotTopic)
	assert.JSONEq(t, `{}`, string(gotBody))
}

func TestAPNsSender_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reason string
		want   error
	}{
		{"unregistered", http.StatusGone, apns2.ReasonUnregistered, ErrUnregistered},
		{"bad token", http.StatusBadRequest, apns2.ReasonBadDeviceToken, ErrUnregistered},
		{"throttled", http.StatusTooManyRequests, apns2.ReasonTooManyRequests, ErrRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestAPNs(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]string{"reason": tt.reason})
			})
			err := s.Send(context.Background(), "abc123", "pass.edu.oc.id")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNew_DisabledUsesLogSender(t *testing.T) {
	s, err := New(config.Push{Enabled: false}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)
	assert.NoError(t, s.Send(context.Background(), "abc", "topic"))
}

func TestNew_MissingCertificate(t *testing.T) {
	_, err := New(config.Push{Enabled: true, P12Path: "/nonexistent.p12"}, nil)
	assert.Error(t, err)
}

type slowSender struct{}

func (slowSender) Send(ctx context.Context, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(slowSender{}, 10*time.Millisecond).Send(context.Background(), "a", "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
