package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"mobilid/internal/dispatch"
	"mobilid/internal/dispatch/lock"
	dispatchmetrics "mobilid/internal/dispatch/metrics"
	"mobilid/internal/dispatch/push"
	"mobilid/internal/events"
	jwttoken "mobilid/internal/jwt_token"
	passstore "mobilid/internal/pass/store"
	"mobilid/internal/pass/versionhash"
	"mobilid/internal/pkpass"
	"mobilid/internal/pkpass/archivestore"
	"mobilid/internal/platform/config"
	platformmetrics "mobilid/internal/platform/metrics"
	"mobilid/internal/platform/postgres"
	"mobilid/internal/platform/redis"
	"mobilid/internal/ratelimit"
	regstore "mobilid/internal/registration/store"
	"mobilid/internal/scheduler"
	synchandler "mobilid/internal/sync/handler"
	syncmetrics "mobilid/internal/sync/metrics"
	syncservice "mobilid/internal/sync/service"
	"mobilid/internal/upstream/identity"
	"mobilid/pkg/platform/tx"
)

type app struct {
	router    http.Handler
	queue     *dispatch.Queue
	scheduler *scheduler.Scheduler
	closers   []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type stores struct {
	passes interface {
		dispatch.PassStore
		syncservice.PassStore
		versionhash.Prober
	}
	directory interface {
		dispatch.Directory
		syncservice.Directory
	}
	tx tx.Runner
}

// build constructs every component from cfg. Optional backends (Postgres,
// Redis, MinIO, Kafka, APNs) fall back to in-process implementations when
// they are not configured.
func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.close()
		return nil, err
	}

	db, err := postgres.Open(ctx, cfg.Database, log)
	if err != nil {
		return fail(err)
	}
	if db != nil {
		a.closers = append(a.closers, func() { _ = db.Close() })
	}
	st := newStores(db)

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fail(err)
	}
	var redisClient *goredis.Client
	var locker dispatch.Locker = lock.NewLocal()
	if rdb != nil {
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		redisClient = rdb.Client
		locker = lock.NewRedis(redisClient)
	}

	backing, err := archivestore.New(ctx, cfg.Storage)
	if err != nil {
		return fail(fmt.Errorf("archive store: %w", err))
	}
	archives := archivestore.NewCached(backing, redisClient, cfg.Redis.ArchiveCacheTTL, archivestore.WithCacheLogger(log))

	signer, err := pkpass.LoadSigner(cfg.Signing)
	if err != nil {
		return fail(err)
	}
	assets, err := pkpass.LoadAssets(cfg.Pass.AssetsDir)
	if err != nil {
		return fail(err)
	}
	builder := pkpass.NewBuilder(cfg.Pass, assets, signer,
		pkpass.WithLogger(log),
		pkpass.WithThumbnailer(pkpass.NewThumbnailer(&http.Client{}, cfg.Pass.PhotoTimeout)),
	)

	idClient := identity.New(cfg.Upstream, identity.WithLogger(log))

	sender, err := push.New(cfg.Push, log)
	if err != nil {
		return fail(fmt.Errorf("push sender: %w", err))
	}

	publisher, closeEvents, err := events.New(ctx, cfg.Kafka, log)
	if err != nil {
		return fail(fmt.Errorf("event publisher: %w", err))
	}
	a.closers = append(a.closers, closeEvents)

	dm := dispatchmetrics.New()
	dispatcher, err := dispatch.New(dispatch.Deps{
		Passes:    st.passes,
		Directory: st.directory,
		Identity:  idClient,
		Hasher:    versionhash.New(st.passes),
		Builder:   builder,
		Archives:  archives,
		Pusher:    push.WithTimeout(sender, cfg.Push.Timeout),
		Locker:    locker,
		Tx:        st.tx,
		Events:    publisher,
	}, dispatch.Config{
		Topic:             cfg.Pass.TypeIdentifier,
		LockTTL:           cfg.Redis.LockTTL,
		FanoutConcurrency: cfg.Dispatch.FanoutConcurrency,
		SweepConcurrency:  cfg.Sweep.Concurrency,
	}, dispatch.WithLogger(log), dispatch.WithMetrics(dm))
	if err != nil {
		return fail(err)
	}

	a.queue = dispatch.NewQueue(cfg.Dispatch.QueueSize, cfg.Dispatch.Workers,
		dispatch.WithQueueLogger(log),
		dispatch.WithQueueMetrics(dm),
	)

	if cfg.Sweep.Enabled {
		a.scheduler, err = scheduler.New(dispatcher, scheduler.Config{
			Interval:   cfg.Sweep.Interval,
			StartDelay: cfg.Sweep.StartDelay,
		}, scheduler.WithLogger(log))
		if err != nil {
			return fail(err)
		}
	}

	var limitStore ratelimit.Store = ratelimit.NewMemoryStore(nil)
	if redisClient != nil {
		limitStore = ratelimit.NewRedisStore(redisClient, nil)
	}
	rlMetrics := ratelimit.NewMetrics()

	serviceOpts := []syncservice.Option{}
	handlerOpts := []synchandler.Option{}
	if cfg.RateLimit.Enabled {
		lockout, err := ratelimit.NewLockout(limitStore, cfg.RateLimit.EnrollAttempts, cfg.RateLimit.EnrollLockout,
			ratelimit.WithLockoutMetrics(rlMetrics))
		if err != nil {
			return fail(err)
		}
		serviceOpts = append(serviceOpts, syncservice.WithLockout(lockout))
		handlerOpts = append(handlerOpts, synchandler.WithRateLimit(ratelimit.NewLimiter(
			limitStore, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window,
			ratelimit.WithLogger(log), ratelimit.WithMetrics(rlMetrics),
		)))
	}

	sm := syncmetrics.New()
	svc, err := syncservice.New(st.passes, st.directory, dispatcher, dispatcher.Background(a.queue), st.tx,
		syncservice.Config{
			PassType:  cfg.Pass.TypeIdentifier,
			IDLength:  cfg.Enrollment.IDLength,
			PINLength: cfg.Enrollment.PINLength,
			Allowlist: cfg.Enrollment.Allowlist,
		},
		append(serviceOpts,
			syncservice.WithLogger(log),
			syncservice.WithMetrics(sm),
			syncservice.WithVerifier(idClient),
		)...,
	)
	if err != nil {
		return fail(err)
	}

	handlerOpts = append(handlerOpts,
		synchandler.WithMetrics(sm),
		synchandler.WithHTTPMetrics(platformmetrics.New()),
		synchandler.WithTimeout(cfg.Server.RequestTimeout),
	)
	if cfg.Server.ClientTriggerSecret != "" {
		handlerOpts = append(handlerOpts, synchandler.WithClientTokens(jwttoken.NewJWTService(cfg.Server.ClientTriggerSecret, "mobilid")))
	}

	router := chi.NewRouter()
	router.Get("/healthz", healthHandler(db, rdb))
	router.Handle("/metrics", promhttp.Handler())
	synchandler.New(svc, log, handlerOpts...).Register(router)
	a.router = router
	return a, nil
}

func newStores(db *sqlx.DB) stores {
	if db == nil {
		passes := passstore.NewInMemory()
		return stores{
			passes:    passes,
			directory: regstore.NewInMemory(passes),
			tx:        tx.NewSharded(),
		}
	}
	return stores{
		passes:    passstore.NewPostgres(db),
		directory: regstore.NewPostgres(db),
		tx:        tx.NewPostgres(db),
	}
}

func healthHandler(db *sqlx.DB, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if rdb != nil {
			if err := rdb.Health(ctx); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
