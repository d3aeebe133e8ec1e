package identity

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mobilid/internal/pass/models"
	"mobilid/internal/platform/config"
	"mobilid/internal/upstream/token"
	"mobilid/pkg/platform/circuit"
)

const (
	upstreamName = "identity"
	maxBodyBytes = 1 << 20
)

// Record is one identity as reported by the identity source.
type Record struct {
	ID         string
	Attributes models.Attributes
}

// Client fetches identity records over HTTP, authenticating each request
// with a fresh encrypted token.
type Client struct {
	baseURL  string
	secret   string
	hexToken bool
	timeout  time.Duration
	codec    *token.Codec
	http     *http.Client
	breaker  *circuit.Breaker
	defaults Defaults
	logger   *slog.Logger
	now      func() time.Time
	tracer   trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

func WithDefaults(d Defaults) Option {
	return func(cl *Client) { cl.defaults = d }
}

func New(cfg config.Upstream, opts ...Option) *Client {
	c := &Client{
		baseURL:  cfg.BaseURL,
		secret:   cfg.SharedSecret,
		hexToken: cfg.HexToken,
		timeout:  cfg.Timeout,
		codec:    token.New(token.Scheme(cfg.TokenScheme)),
		http:     &http.Client{},
		defaults: DefaultValues,
		logger:   slog.Default(),
		now:      time.Now,
		tracer:   otel.Tracer("mobilid/upstream/identity"),
	}
	if c.timeout <= 0 {
		c.timeout = 3 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = circuit.New(upstreamName,
		circuit.WithFailureThreshold(cfg.FailureThreshold),
		circuit.WithCooldown(cfg.Cooldown),
		circuit.WithNow(c.now),
	)
	return c
}

// Fetch returns the current identity record for id. Every failure is a
// *ProviderError; transient ones are Retryable and trip the breaker.
func (c *Client) Fetch(ctx context.Context, id string) (Record, error) {
	ctx, span := c.tracer.Start(ctx, "identity.Fetch", trace.WithAttributes(attribute.String("identity.id", id)))
	defer span.End()

	rec, err := c.fetch(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(GetCategory(err)))
		c.record(ctx, err)
		return Record{}, err
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "identity circuit closed")
	}
	return rec, nil
}

// Verify fetches id and checks the supplied PIN in constant time.
func (c *Client) Verify(ctx context.Context, id, pin string) (Record, error) {
	rec, err := c.Fetch(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if subtle.ConstantTimeCompare([]byte(rec.Attributes.PIN), []byte(pin)) != 1 {
		return Record{}, ErrPINMismatch
	}
	return rec, nil
}

func (c *Client) fetch(ctx context.Context, id string) (Record, error) {
	if !c.breaker.Allow() {
		return Record{}, NewProviderError(ErrorProviderOutage, upstreamName, "circuit open", nil)
	}

	reqURL, err := c.requestURL(id)
	if err != nil {
		return Record{}, NewProviderError(ErrorInternal, upstreamName, "build request url", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Record{}, NewProviderError(ErrorInternal, upstreamName, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Record{}, NewProviderError(ErrorTimeout, upstreamName, "request timed out", err)
		}
		return Record{}, NewProviderError(ErrorProviderOutage, upstreamName, "request failed", err)
	}
	defer resp.Body.Close()

	if cat, ok := statusCategory(resp.StatusCode); ok {
		return Record{}, NewProviderError(cat, upstreamName, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return Record{}, NewProviderError(ErrorTimeout, upstreamName, "read body timed out", err)
		}
		return Record{}, NewProviderError(ErrorProviderOutage, upstreamName, "read body", err)
	}

	attrs, err := decodeAttributes(body, c.defaults)
	if err != nil {
		if errors.Is(err, errMissingFields) {
			return Record{}, NewProviderError(ErrorContractMismatch, upstreamName, "incomplete payload", err)
		}
		return Record{}, NewProviderError(ErrorBadData, upstreamName, "invalid payload", err)
	}
	return Record{ID: id, Attributes: attrs}, nil
}

func (c *Client) requestURL(id string) (string, error) {
	tok, err := c.codec.Encrypt(token.IdentityPayload(id, c.now()), c.secret)
	if err != nil {
		return "", err
	}
	if c.hexToken {
		tok = hex.EncodeToString([]byte(tok))
	}
	base := c.baseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base + url.PathEscape(id))
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", tok)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) record(ctx context.Context, err error) {
	if !IsRetryable(err) {
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "identity circuit opened", "error", err)
	}
}

func statusCategory(status int) (ErrorCategory, bool) {
	switch {
	case status == http.StatusOK:
		return "", false
	case status == http.StatusNotFound:
		return ErrorNotFound, true
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorAuthentication, true
	case status == http.StatusTooManyRequests:
		return ErrorRateLimited, true
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return ErrorTimeout, true
	case status >= 500:
		return ErrorProviderOutage, true
	default:
		return ErrorBadData, true
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
