// Package push delivers the empty "pass changed" notification to devices.
package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"

	"mobilid/internal/platform/config"
)

var (
	// ErrUnregistered means the push address is permanently invalid and the
	// device should be unbound.
	ErrUnregistered = errors.New("push: device token no longer valid")
	// ErrRejected is any other refusal from the push service.
	ErrRejected = errors.New("push: notification rejected")
)

// Sender delivers one notification. Implementations are safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, pushAddress, topic string) error
}

// emptyPayload tells the wallet to call back and list updated serials.
var emptyPayload = []byte("{}")

// APNsSender talks to the Apple push service over HTTP/2 with the pass type
// certificate.
type APNsSender struct {
	client *apns2.Client
}

// NewAPNs loads the .p12 push certificate and selects the environment.
func NewAPNs(cfg config.Push) (*APNsSender, error) {
	cert, err := certificate.FromP12File(cfg.P12Path, cfg.P12Password)
	if err != nil {
		return nil, fmt.Errorf("load push certificate: %w", err)
	}
	client := apns2.NewClient(cert)
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}
	return newAPNsSender(client), nil
}

func newAPNsSender(client *apns2.Client) *APNsSender {
	return &APNsSender{client: client}
}

func (s *APNsSender) Send(ctx context.Context, pushAddress, topic string) error {
	res, err := s.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: pushAddress,
		Topic:       topic,
		Payload:     emptyPayload,
	})
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	if res.Sent() {
		return nil
	}
	switch res.Reason {
	case apns2.ReasonUnregistered, apns2.ReasonBadDeviceToken, apns2.ReasonDeviceTokenNotForTopic:
		return fmt.Errorf("%w: %d %s", ErrUnregistered, res.StatusCode, res.Reason)
	}
	return fmt.Errorf("%w: %d %s", ErrRejected, res.StatusCode, res.Reason)
}

// LogSender stands in when push is disabled: it records intent in the log
// and always succeeds. Devices still converge on their next poll.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, _ string, topic string) error {
	s.logger.DebugContext(ctx, "push disabled, notification skipped", "topic", topic)
	return nil
}

// New selects APNs when enabled and the log sender otherwise.
func New(cfg config.Push, logger *slog.Logger) (Sender, error) {
	if !cfg.Enabled {
		return NewLogSender(logger), nil
	}
	return NewAPNs(cfg)
}

// defaultTimeout bounds a single send when the caller has no deadline.
const defaultTimeout = 10 * time.Second

// WithTimeout wraps a sender so every call is bounded.
func WithTimeout(s Sender, d time.Duration) Sender {
	if d <= 0 {
		d = defaultTimeout
	}
	return timeoutSender{next: s, timeout: d}
}

type timeoutSender struct {
	next    Sender
	timeout time.Duration
}

func (t timeoutSender) Send(ctx context.Context, pushAddress, topic string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Send(ctx, pushAddress, topic)
}
