package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	passmodels "mobilid/internal/pass/models"
	"mobilid/internal/pkpass"
	platformmetrics "mobilid/internal/platform/metrics"
	"mobilid/internal/platform/middleware"
	"mobilid/internal/ratelimit"
	regmodels "mobilid/internal/registration/models"
	"mobilid/internal/sync/metrics"
	"mobilid/internal/sync/service"
	dErrors "mobilid/pkg/domain-errors"
	"mobilid/pkg/platform/httputil"
	"mobilid/pkg/platform/middleware/metadata"
	"mobilid/pkg/platform/middleware/requesttime"
	"mobilid/pkg/requestcontext"
)

// LastUpdatedLayout is how lastUpdated is rendered in serial lists. Devices
// echo it back verbatim as passesUpdatedSince.
const LastUpdatedLayout = "2006-01-02 15:04:05"

const maxBodyBytes = 1 << 20

// Service is the device protocol surface the handler delegates to.
type Service interface {
	Register(ctx context.Context, deviceID, passType, serial, authToken, pushAddress, userAgent string) (service.RegisterOutcome, error)
	ListUpdatedSerials(ctx context.Context, deviceID, passType string, updatedSince *time.Time) (regmodels.SerialList, bool, error)
	FetchPass(ctx context.Context, passType, serial, authToken string, ifModifiedSince *time.Time) (service.FetchResult, error)
	Unregister(ctx context.Context, deviceID, passType, serial, authToken string) error
	TriggerUpdate(ctx context.Context, serial string) (bool, error)
	Scan(ctx context.Context, hash string) (string, bool, error)
	Download(ctx context.Context, hash string) (passmodels.PassRecord, []byte, bool, error)
	Enroll(ctx context.Context, id, pin string) (service.Enrollment, error)
}

type Handler struct {
	svc          Service
	logger       *slog.Logger
	httpMetrics  *platformmetrics.Metrics
	metrics      *metrics.Metrics
	clientTokens middleware.ClientTokenValidator
	limiter      *ratelimit.Limiter
	timeout      time.Duration
	now          func() time.Time
}

type Option func(*Handler)

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func WithHTTPMetrics(m *platformmetrics.Metrics) Option {
	return func(h *Handler) { h.httpMetrics = m }
}

// WithClientTokens requires a client JWT on the update trigger route.
func WithClientTokens(v middleware.ClientTokenValidator) Option {
	return func(h *Handler) { h.clientTokens = v }
}

// WithRateLimit limits enroll, scan and download per client IP.
func WithRateLimit(l *ratelimit.Limiter) Option {
	return func(h *Handler) { h.limiter = l }
}

func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// WithClock fixes the request time. Tests only.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func New(svc Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		svc:     svc,
		logger:  logger,
		timeout: 30 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the device protocol and the supplementary routes on r.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(metadata.ClientMetadata)
	router.Use(requesttime.MiddlewareWithClock(h.now))
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.Timeout(h.timeout))
	router.Use(middleware.LatencyMiddleware(h.httpMetrics))

	router.Route("/v1", func(v1 chi.Router) {
		v1.With(middleware.ContentTypeJSON).Post("/devices/{deviceID}/registrations/{passType}/{serial}", h.handleRegister)
		v1.Delete("/devices/{deviceID}/registrations/{passType}/{serial}", h.handleUnregister)
		v1.Get("/devices/{deviceID}/registrations/{passType}", h.handleListSerials)
		v1.Get("/passes/{passType}/{serial}", h.handleFetchPass)
		v1.With(middleware.ContentTypeJSON).Post("/log", h.handleDeviceLog)
	})

	router.With(h.limit("enroll"), middleware.ContentTypeJSON).Post("/enroll", h.handleEnroll)
	router.With(h.limit("scan")).Get("/scan/{passHash}", h.handleScan)
	router.With(h.limit("download")).Get("/download/{passHash}", h.handleDownload)
	router.With(h.limit("download")).Post("/download/{passHash}", h.handleDownload)
	router.With(middleware.RequireClientToken(h.clientTokens, h.logger)).
		Get("/{client}/update/{serial}", h.handleTrigger)

	r.Mount("/", router)
}

func (h *Handler) limit(scope string) func(http.Handler) http.Handler {
	if h.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return h.limiter.Middleware(scope)
}

type registerRequest struct {
	PushToken   string `json:"pushToken"`
	PushAddress string `json:"pushAddress"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := chi.URLParam(r, "deviceID")
	serial := chi.URLParam(r, "serial")

	// An unreadable body leaves the push address empty; the service rejects
	// it only once the token checks out, so bad credentials always get 401.
	var req registerRequest
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	pushAddress := req.PushToken
	if pushAddress == "" {
		pushAddress = req.PushAddress
	}

	token, _ := middleware.PassAuthToken(r)
	outcome, err := h.svc.Register(ctx, deviceID, chi.URLParam(r, "passType"), serial, token, pushAddress, requestcontext.UserAgent(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, err, "register device", "device_id", deviceID, "serial", serial)
		return
	}
	if outcome == service.Created {
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleUnregister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := chi.URLParam(r, "deviceID")
	serial := chi.URLParam(r, "serial")

	token, _ := middleware.PassAuthToken(r)
	if err := h.svc.Unregister(ctx, deviceID, chi.URLParam(r, "passType"), serial, token); err != nil {
		h.writeServiceError(ctx, w, err, "unregister device", "device_id", deviceID, "serial", serial)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type serialListResponse struct {
	LastUpdated   string   `json:"lastUpdated"`
	SerialNumbers []string `json:"serialNumbers"`
}

func (h *Handler) handleListSerials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := chi.URLParam(r, "deviceID")

	raw := r.URL.Query().Get("passesUpdatedSince")
	if raw == "" {
		raw = r.URL.Query().Get("updatedSince")
	}
	since, err := ParseUpdatedSince(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "passesUpdatedSince is not a recognized timestamp"))
		return
	}

	list, found, err := h.svc.ListUpdatedSerials(ctx, deviceID, chi.URLParam(r, "passType"), since)
	if err != nil {
		h.writeServiceError(ctx, w, err, "list serials", "device_id", deviceID)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, serialListResponse{
		LastUpdated:   list.LastUpdated.UTC().Format(LastUpdatedLayout),
		SerialNumbers: list.SerialNumbers,
	})
}

func (h *Handler) handleFetchPass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	serial := chi.URLParam(r, "serial")

	var ims *time.Time
	if v := r.Header.Get("If-Modified-Since"); v != "" {
		if t, err := http.ParseTime(v); err == nil {
			ims = &t
		}
	}

	token, _ := middleware.PassAuthToken(r)
	res, err := h.svc.FetchPass(ctx, chi.URLParam(r, "passType"), serial, token, ims)
	if err != nil {
		h.writeServiceError(ctx, w, err, "fetch pass", "serial", serial)
		return
	}
	w.Header().Set("Last-Modified", res.LastModified.UTC().Format(http.TimeFormat))
	if res.NotModified {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeArchive(w, res.Archive, "")
}

type deviceLogRequest struct {
	Logs []string `json:"logs"`
}

func (h *Handler) handleDeviceLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req deviceLogRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	for _, entry := range req.Logs {
		h.logger.InfoContext(ctx, "device log",
			"entry", entry,
			"client_ip", requestcontext.ClientIP(ctx),
			"request_id", middleware.GetRequestID(ctx),
		)
	}
	h.metrics.AddDeviceLogs(len(req.Logs))
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	ctx := requestcontext.WithTrigger(r.Context(), "client")
	client := chi.URLParam(r, "client")
	serial := chi.URLParam(r, "serial")

	found, err := h.svc.TriggerUpdate(ctx, serial)
	if err != nil {
		h.metrics.IncrementTrigger(client, "failed")
		h.writeServiceError(ctx, w, err, "trigger update", "client", client, "serial", serial)
		return
	}
	if !found {
		h.metrics.IncrementTrigger(client, "unknown")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.metrics.IncrementTrigger(client, "queued")
	h.logger.InfoContext(ctx, "update triggered", "client", client, "serial", serial)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := requestcontext.WithTrigger(r.Context(), "scan")
	serial, found, err := h.svc.Scan(ctx, chi.URLParam(r, "passHash"))
	if err != nil {
		h.writeServiceError(ctx, w, err, "scan")
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(serial))
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, data, found, err := h.svc.Download(ctx, chi.URLParam(r, "passHash"))
	if err != nil {
		h.writeServiceError(ctx, w, err, "download pass")
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Last-Modified", rec.LastUpdate.UTC().Format(http.TimeFormat))
	writeArchive(w, data, rec.SerialNumber)
}

type enrollRequest struct {
	ID  string `json:"id"`
	PIN string `json:"pin"`
}

type enrollResponse struct {
	PassHash     string `json:"passHash"`
	DownloadPath string `json:"downloadPath"`
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := requestcontext.WithTrigger(r.Context(), "enroll")
	var req enrollRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	res, err := h.svc.Enroll(ctx, req.ID, req.PIN)
	if err != nil {
		h.writeServiceError(ctx, w, err, "enroll")
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, enrollResponse{
		PassHash:     res.Pass.VersionHash,
		DownloadPath: "/download/" + res.Pass.VersionHash,
	})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, op string, attrs ...any) {
	code := dErrors.CodeOf(err)
	args := append([]any{"operation", op, "error", err, "request_id", middleware.GetRequestID(ctx)}, attrs...)
	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable, dErrors.CodeTimeout:
		h.logger.ErrorContext(ctx, "request failed", args...)
	default:
		h.logger.WarnContext(ctx, "request rejected", args...)
	}
	httputil.WriteError(w, err)
}

func writeArchive(w http.ResponseWriter, data []byte, serial string) {
	w.Header().Set("Content-Type", pkpass.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if serial != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pkpass"`, serial))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

var errBadTimestamp = errors.New("unrecognized timestamp")

// ParseUpdatedSince accepts the lastUpdated layout, RFC 3339 or unix
// seconds. An empty value means no filter.
func ParseUpdatedSince(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(LastUpdatedLayout, raw, time.UTC); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := time.Unix(secs, 0).UTC()
		return &t, nil
	}
	return nil, errBadTimestamp
}
