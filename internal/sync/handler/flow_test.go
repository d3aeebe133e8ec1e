package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	passmodels "mobilid/internal/pass/models"
	passstore "mobilid/internal/pass/store"
	platformmetrics "mobilid/internal/platform/metrics"
	"mobilid/internal/ratelimit"
	regstore "mobilid/internal/registration/store"
	"mobilid/internal/sync/handler"
	"mobilid/internal/sync/metrics"
	"mobilid/internal/sync/service"
	"mobilid/internal/upstream/identity"
	"mobilid/pkg/platform/tx"
	"mobilid/pkg/testutil"
)

const (
	flowPassType = "pass.edu.oc.id"
	flowSerial   = "1234567"
	flowToken    = "flow-auth-token"
	flowDevice   = "device-flow"
)

type archiveIssuer struct{}

func (archiveIssuer) Create(context.Context, string, identity.Record) (passmodels.PassRecord, bool, error) {
	return passmodels.PassRecord{}, false, nil
}

func (archiveIssuer) ArchiveFor(_ context.Context, rec passmodels.PassRecord) ([]byte, error) {
	return []byte("archive-" + rec.VersionHash), nil
}

type noJobs struct{}

func (noJobs) EnqueueRefresh(context.Context, string) error { return nil }
func (noJobs) EnqueueRotate(context.Context, string) error  { return nil }

// The device round trip over HTTP against the in-memory stores.
func TestDeviceSyncFlow(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(90 * time.Second)
	now := t0

	ctx := context.Background()
	passes := passstore.NewInMemory()
	directory := regstore.NewInMemory(passes)
	require.NoError(t, passes.Upsert(ctx, passmodels.PassRecord{
		SerialNumber: flowSerial,
		PassType:     flowPassType,
		VersionHash:  "hash-t0",
		LastUpdate:   t0,
		AuthToken:    flowToken,
	}))

	reg := prometheus.NewRegistry()
	svc, err := service.New(passes, directory, archiveIssuer{}, noJobs{}, tx.NewSharded(),
		service.Config{PassType: flowPassType})
	require.NoError(t, err)
	router := chi.NewRouter()
	handler.New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)),
		handler.WithMetrics(metrics.NewWithRegisterer(reg)),
		handler.WithHTTPMetrics(platformmetrics.NewWithRegisterer(reg)),
		handler.WithClock(func() time.Time { return now }),
	).Register(router)

	registrationPath := "/v1/devices/" + flowDevice + "/registrations/" + flowPassType + "/" + flowSerial
	listPath := "/v1/devices/" + flowDevice + "/registrations/" + flowPassType
	passPath := "/v1/passes/" + flowPassType + "/" + flowSerial

	testutil.Given(t, "a pass with version hash-t0", func(t *testing.T) {
		testutil.When(t, "a device registers twice", func(t *testing.T) {
			body := map[string]string{"pushToken": "push-flow"}
			first := testutil.DoRequest(router, testutil.WithPassAuth(testutil.NewJSONRequest(t, http.MethodPost, registrationPath, body), flowToken))
			second := testutil.DoRequest(router, testutil.WithPassAuth(testutil.NewJSONRequest(t, http.MethodPost, registrationPath, body), flowToken))

			testutil.Then(t, "the first creates and the second confirms", func(t *testing.T) {
				testutil.AssertStatus(t, first, http.StatusCreated)
				testutil.AssertStatusOK(t, second)
			})
		})

		testutil.When(t, "the device lists its passes", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, listPath))

			testutil.Then(t, "the serial is listed with its last update", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				testutil.AssertJSONContains(t, rr, "lastUpdated", "2024-03-01 12:00:00")
			})
		})

		testutil.When(t, "the device fetches the pass", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.WithPassAuth(testutil.NewRequest(t, http.MethodGet, passPath), flowToken))
			cached := testutil.DoRequest(router, testutil.WithIfModifiedSince(
				testutil.WithPassAuth(testutil.NewRequest(t, http.MethodGet, passPath), flowToken), t0))

			testutil.Then(t, "it gets the archive once and 304 afterwards", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				testutil.AssertLastModified(t, rr, t0)
				assert.Equal(t, "archive-hash-t0", string(testutil.ReadBody(t, rr)))
				testutil.AssertNotModified(t, cached)
			})
		})

		testutil.When(t, "the device fetches without credentials", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.WithPassAuth(testutil.NewRequest(t, http.MethodGet, passPath), "wrong"))

			testutil.Then(t, "it is rejected", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
			})
		})
	})

	testutil.Given(t, "the pass changed at t1", func(t *testing.T) {
		rec, err := passes.Get(ctx, flowSerial)
		require.NoError(t, err)
		rec.VersionHash = "hash-t1"
		rec.LastUpdate = t1
		require.NoError(t, passes.Upsert(ctx, rec))
		now = t1

		testutil.When(t, "the device polls since t0", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, listPath+"?passesUpdatedSince=2024-03-01%2012:00:00"))
			fetched := testutil.DoRequest(router, testutil.WithIfModifiedSince(
				testutil.WithPassAuth(testutil.NewRequest(t, http.MethodGet, passPath), flowToken), t0))

			testutil.Then(t, "the change is listed and served", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				testutil.AssertJSONContains(t, rr, "lastUpdated", "2024-03-01 12:01:30")
				testutil.AssertStatusOK(t, fetched)
				testutil.AssertLastModified(t, fetched, t1)
			})
		})

		testutil.When(t, "the device polls since t1", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, listPath+"?passesUpdatedSince=2024-03-01%2012:01:30"))

			testutil.Then(t, "nothing is new", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusNoContent)
			})
		})
	})

	testutil.Given(t, "a registered device", func(t *testing.T) {
		testutil.When(t, "it unregisters", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.WithPassAuth(testutil.NewRequest(t, http.MethodDelete, registrationPath), flowToken))
			listed := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, listPath))

			testutil.Then(t, "its list is empty", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				testutil.AssertStatus(t, listed, http.StatusNoContent)
			})
		})
	})
}

func TestPublicRoutesAreRateLimited(t *testing.T) {
	passes := passstore.NewInMemory()
	svc, err := service.New(passes, regstore.NewInMemory(passes), archiveIssuer{}, noJobs{}, tx.NewSharded(),
		service.Config{PassType: flowPassType})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(nil), 1, time.Minute,
		ratelimit.WithMetrics(ratelimit.NewMetricsWithRegisterer(reg)))
	router := chi.NewRouter()
	handler.New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)),
		handler.WithMetrics(metrics.NewWithRegisterer(reg)),
		handler.WithHTTPMetrics(platformmetrics.NewWithRegisterer(reg)),
		handler.WithRateLimit(limiter),
	).Register(router)

	testutil.AssertStatus(t, testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/scan/unknown")), http.StatusNoContent)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/scan/unknown"))
	testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limit_exceeded")
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// Device protocol routes are not limited.
	for range 3 {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/v1/devices/d/registrations/"+flowPassType))
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	}
}
