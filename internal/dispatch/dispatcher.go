// Package dispatch owns the pass update pipeline: refresh from the identity
// source, rebuild and commit a new version, and tell every bound device.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"mobilid/internal/dispatch/lock"
	"mobilid/internal/dispatch/metrics"
	"mobilid/internal/dispatch/push"
	"mobilid/internal/events"
	passmodels "mobilid/internal/pass/models"
	"mobilid/internal/pkpass"
	"mobilid/internal/pkpass/archivestore"
	regmodels "mobilid/internal/registration/models"
	"mobilid/internal/upstream/identity"
	"mobilid/pkg/platform/sentinel"
	"mobilid/pkg/platform/tx"
	"mobilid/pkg/requestcontext"
)

// PassStore is the subset of the pass store the dispatcher writes through.
type PassStore interface {
	Get(ctx context.Context, serial string) (passmodels.PassRecord, error)
	ListSerialNumbers(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, rec passmodels.PassRecord) error
}

// Directory resolves the devices to notify and drops dead bindings.
type Directory interface {
	ListDevicesForSerial(ctx context.Context, serial string) ([]regmodels.Device, error)
	Unbind(ctx context.Context, deviceID, serial string) (bool, error)
	UnbindSerial(ctx context.Context, serial string) (int, error)
}

type IdentitySource interface {
	Fetch(ctx context.Context, id string) (identity.Record, error)
}

type HashMinter interface {
	Mint(ctx context.Context) (string, error)
}

type ArchiveBuilder interface {
	Build(ctx context.Context, rec passmodels.PassRecord) (*pkpass.Archive, error)
}

type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (lock.Release, bool, error)
}

// Outcome is the result of one refresh or rotation.
type Outcome string

const (
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeCoalesced means another refresh for the serial held the lock;
	// its result stands for this one.
	OutcomeCoalesced Outcome = "coalesced"
	// OutcomeRetired means the identity source no longer knows the holder
	// and the pass was removed from the directory.
	OutcomeRetired Outcome = "retired"
)

const maxCommitAttempts = 3

// ErrUpstreamUnavailable wraps transient identity failures. Nothing was
// mutated; the next trigger will retry.
var ErrUpstreamUnavailable = errors.New("dispatch: identity source unavailable")

// Deps are the collaborators a Dispatcher cannot work without.
type Deps struct {
	Passes    PassStore
	Directory Directory
	Identity  IdentitySource
	Hasher    HashMinter
	Builder   ArchiveBuilder
	Archives  archivestore.Store
	Pusher    push.Sender
	Locker    Locker
	Tx        tx.Runner
	Events    events.Publisher
}

// Config tunes a Dispatcher.
type Config struct {
	// Topic is the push topic, the pass type identifier.
	Topic             string
	LockTTL           time.Duration
	FanoutConcurrency int
	SweepConcurrency  int
	// RotateRetry is how often a rotation re-tries a lock held by a refresh.
	RotateRetry time.Duration
}

type Dispatcher struct {
	passes    PassStore
	directory Directory
	identity  IdentitySource
	hasher    HashMinter
	builder   ArchiveBuilder
	archives  archivestore.Store
	pusher    push.Sender
	locker    Locker
	tx        tx.Runner
	events    events.Publisher

	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	rebuild singleflight.Group
}

type Option func(*Dispatcher)

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func New(deps Deps, cfg Config, opts ...Option) (*Dispatcher, error) {
	switch {
	case deps.Passes == nil:
		return nil, errors.New("pass store is required")
	case deps.Directory == nil:
		return nil, errors.New("registration directory is required")
	case deps.Identity == nil:
		return nil, errors.New("identity source is required")
	case deps.Hasher == nil:
		return nil, errors.New("version hasher is required")
	case deps.Builder == nil:
		return nil, errors.New("archive builder is required")
	case deps.Archives == nil:
		return nil, errors.New("archive store is required")
	case deps.Pusher == nil:
		return nil, errors.New("push sender is required")
	case deps.Tx == nil:
		return nil, errors.New("transaction runner is required")
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocal()
	}
	if deps.Events == nil {
		deps.Events = events.Noop{}
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if cfg.FanoutConcurrency <= 0 {
		cfg.FanoutConcurrency = 16
	}
	if cfg.SweepConcurrency <= 0 {
		cfg.SweepConcurrency = 8
	}
	if cfg.RotateRetry <= 0 {
		cfg.RotateRetry = 100 * time.Millisecond
	}

	d := &Dispatcher{
		passes:    deps.Passes,
		directory: deps.Directory,
		identity:  deps.Identity,
		hasher:    deps.Hasher,
		builder:   deps.Builder,
		archives:  deps.Archives,
		pusher:    deps.Pusher,
		locker:    deps.Locker,
		tx:        deps.Tx,
		events:    deps.Events,
		cfg:       cfg,
		logger:    slog.Default(),
		tracer:    otel.Tracer("mobilid/dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// RefreshAndNotify re-reads the holder's identity and, when it changed,
// commits a new pass version and notifies every bound device.
func (d *Dispatcher) RefreshAndNotify(ctx context.Context, serial string) (Outcome, error) {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "dispatch.Refresh", trace.WithAttributes(attribute.String("pass.serial", serial)))
	defer span.End()

	outcome, err := d.refresh(ctx, serial)
	d.metrics.ObserveRefresh(time.Since(start))
	d.metrics.IncrementRefresh(outcomeLabel(outcome, err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		return outcome, err
	}
	span.SetAttributes(attribute.String("dispatch.outcome", string(outcome)))
	return outcome, nil
}

func (d *Dispatcher) refresh(ctx context.Context, serial string) (Outcome, error) {
	release, ok, err := d.locker.TryAcquire(ctx, serial, d.cfg.LockTTL)
	if err != nil {
		return "", fmt.Errorf("acquire refresh lock: %w", err)
	}
	if !ok {
		return OutcomeCoalesced, nil
	}
	defer d.release(ctx, serial, release)

	prev, err := d.passes.Get(ctx, serial)
	if err != nil {
		return "", fmt.Errorf("load pass %s: %w", serial, err)
	}

	rec, err := d.identity.Fetch(ctx, serial)
	if err != nil {
		switch {
		case identity.IsRetryable(err):
			return "", fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
		case identity.GetCategory(err) == identity.ErrorNotFound:
			return d.retire(ctx, serial)
		default:
			return "", fmt.Errorf("fetch identity %s: %w", serial, err)
		}
	}

	fp, err := passmodels.FingerprintOf(rec.Attributes)
	if err != nil {
		return "", err
	}
	if fp == prev.Fingerprint {
		return OutcomeUnchanged, nil
	}

	next := prev
	next.Attributes = rec.Attributes
	next.Fingerprint = fp
	committed, err := d.commit(ctx, &prev, next, events.PassUpdated)
	if err != nil {
		return "", err
	}
	d.logger.InfoContext(ctx, "pass refreshed",
		"serial", serial,
		"trigger", requestcontext.Trigger(ctx),
		"last_update", committed.LastUpdate,
	)
	d.notify(ctx, serial)
	return OutcomeUpdated, nil
}

// RotateAndNotify issues a new version hash for unchanged content. A scanned
// barcode carries the hash, so rotating makes each scan single-use.
// Unlike a refresh it never coalesces: an unchanged refresh keeps the
// scanned hash, so the rotation waits for the lock until ctx is done.
func (d *Dispatcher) RotateAndNotify(ctx context.Context, serial string) (Outcome, error) {
	ctx, span := d.tracer.Start(ctx, "dispatch.Rotate", trace.WithAttributes(attribute.String("pass.serial", serial)))
	defer span.End()

	release, err := d.waitForLock(ctx, serial)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	defer d.release(ctx, serial, release)

	prev, err := d.passes.Get(ctx, serial)
	if err != nil {
		return "", fmt.Errorf("load pass %s: %w", serial, err)
	}
	if _, err := d.commit(ctx, &prev, prev, events.PassUpdated); err != nil {
		span.RecordError(err)
		return "", err
	}
	d.notify(ctx, serial)
	return OutcomeUpdated, nil
}

// Create issues the first version of a pass. An existing record is
// returned unchanged with created=false.
func (d *Dispatcher) Create(ctx context.Context, passType string, rec identity.Record) (passmodels.PassRecord, bool, error) {
	serial := rec.ID
	release, ok, err := d.locker.TryAcquire(ctx, serial, d.cfg.LockTTL)
	if err != nil {
		return passmodels.PassRecord{}, false, fmt.Errorf("acquire refresh lock: %w", err)
	}
	if !ok {
		return passmodels.PassRecord{}, false, fmt.Errorf("pass %s is being issued: %w", serial, sentinel.ErrLocked)
	}
	defer d.release(ctx, serial, release)

	existing, err := d.passes.Get(ctx, serial)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return passmodels.PassRecord{}, false, fmt.Errorf("load pass %s: %w", serial, err)
	}

	fp, err := passmodels.FingerprintOf(rec.Attributes)
	if err != nil {
		return passmodels.PassRecord{}, false, err
	}
	token, err := passmodels.NewAuthToken()
	if err != nil {
		return passmodels.PassRecord{}, false, err
	}
	created, err := d.commit(ctx, nil, passmodels.PassRecord{
		SerialNumber: serial,
		PassType:     passType,
		AuthToken:    token,
		Attributes:   rec.Attributes,
		Fingerprint:  fp,
		CreatedAt:    requestcontext.Now(ctx).UTC(),
	}, events.PassCreated)
	if err != nil {
		return passmodels.PassRecord{}, false, err
	}
	d.logger.InfoContext(ctx, "pass issued", "serial", serial)
	return created, true, nil
}

// Retire removes every registration of serial so devices stop receiving
// updates. The PassRecord is kept. The devices involved are unknown up
// front, so the unit of work excludes every registration in flight.
func (d *Dispatcher) Retire(ctx context.Context, serial string) (int, error) {
	var n int
	err := d.tx.RunInTx(tx.WithAllShards(ctx), func(ctx context.Context) error {
		var err error
		n, err = d.directory.UnbindSerial(ctx, serial)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("retire pass %s: %w", serial, err)
	}
	return n, nil
}

func (d *Dispatcher) retire(ctx context.Context, serial string) (Outcome, error) {
	n, err := d.Retire(ctx, serial)
	if err != nil {
		return "", err
	}
	d.logger.WarnContext(ctx, "identity no longer exists, pass retired", "serial", serial, "registrations", n)
	return OutcomeRetired, nil
}

// commit mints a hash, builds and stores the archive under it, then upserts
// the record. A hash collision at upsert time re-mints. The archive is
// written first so a committed version always has bytes to serve.
func (d *Dispatcher) commit(ctx context.Context, prev *passmodels.PassRecord, next passmodels.PassRecord, evType events.Type) (passmodels.PassRecord, error) {
	var prevLU time.Time
	var prevHash string
	if prev != nil {
		prevLU, prevHash = prev.LastUpdate, prev.VersionHash
	}

	var lastErr error
	for range maxCommitAttempts {
		hash, err := d.hasher.Mint(ctx)
		if err != nil {
			return passmodels.PassRecord{}, fmt.Errorf("mint version hash: %w", err)
		}
		next.VersionHash = hash
		next.LastUpdate = passmodels.NextLastUpdate(prevLU, requestcontext.Now(ctx))

		archive, err := d.build(ctx, next)
		if err != nil {
			return passmodels.PassRecord{}, err
		}
		if err := d.archives.Put(ctx, next.SerialNumber, hash, archive.Bytes); err != nil {
			return passmodels.PassRecord{}, fmt.Errorf("store archive: %w", err)
		}

		err = d.tx.RunInTx(ctx, func(ctx context.Context) error {
			return d.passes.Upsert(ctx, next)
		})
		if err == nil {
			lastErr = nil
			break
		}
		d.dropArchive(ctx, next.SerialNumber, hash)
		if !errors.Is(err, passmodels.ErrHashTaken) {
			return passmodels.PassRecord{}, fmt.Errorf("commit pass %s: %w", next.SerialNumber, err)
		}
		lastErr = err
		d.logger.WarnContext(ctx, "version hash collided at commit, re-minting", "serial", next.SerialNumber)
	}
	if lastErr != nil {
		return passmodels.PassRecord{}, fmt.Errorf("commit pass %s: %w", next.SerialNumber, lastErr)
	}

	if prevHash != "" && prevHash != next.VersionHash {
		d.dropArchive(ctx, next.SerialNumber, prevHash)
	}
	ev := events.NewPassEvent(evType, next.SerialNumber, next.PassType, next.VersionHash, prevHash, next.LastUpdate, requestcontext.Now(ctx))
	if err := d.events.Publish(ctx, ev); err != nil {
		d.logger.WarnContext(ctx, "pass event not published", "serial", next.SerialNumber, "type", evType, "error", err)
	}
	return next, nil
}

func (d *Dispatcher) build(ctx context.Context, rec passmodels.PassRecord) (*pkpass.Archive, error) {
	start := time.Now()
	archive, err := d.builder.Build(ctx, rec)
	d.metrics.ObserveBuild(time.Since(start))
	if err != nil {
		d.logger.ErrorContext(ctx, "pass build failed", "serial", rec.SerialNumber, "error", err)
		return nil, fmt.Errorf("build pass %s: %w", rec.SerialNumber, err)
	}
	return archive, nil
}

// ArchiveFor returns the signed archive for rec's current version,
// rebuilding it when the store has lost it. Concurrent misses for the same
// version share one build.
func (d *Dispatcher) ArchiveFor(ctx context.Context, rec passmodels.PassRecord) ([]byte, error) {
	data, err := d.archives.Get(ctx, rec.SerialNumber, rec.VersionHash)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	v, err, _ := d.rebuild.Do(rec.SerialNumber+"/"+rec.VersionHash, func() (any, error) {
		archive, err := d.build(ctx, rec)
		if err != nil {
			return nil, err
		}
		if err := d.archives.Put(ctx, rec.SerialNumber, rec.VersionHash, archive.Bytes); err != nil {
			d.logger.WarnContext(ctx, "rebuilt archive not stored", "serial", rec.SerialNumber, "error", err)
		}
		return archive.Bytes, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (d *Dispatcher) dropArchive(ctx context.Context, serial, hash string) {
	if err := d.archives.Delete(ctx, serial, hash); err != nil {
		d.logger.WarnContext(ctx, "archive cleanup failed", "serial", serial, "error", err)
	}
}

func (d *Dispatcher) waitForLock(ctx context.Context, serial string) (lock.Release, error) {
	for {
		release, ok, err := d.locker.TryAcquire(ctx, serial, d.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire refresh lock: %w", err)
		}
		if ok {
			return release, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rotation of %s still waiting for refresh lock: %w", serial, ctx.Err())
		case <-time.After(d.cfg.RotateRetry):
		}
	}
}

func (d *Dispatcher) release(ctx context.Context, serial string, release lock.Release) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		d.logger.WarnContext(ctx, "refresh lock release failed", "serial", serial, "error", err)
	}
}

func (d *Dispatcher) notify(ctx context.Context, serial string) {
	res, err := d.NotifyChanged(ctx, serial)
	if err != nil {
		d.logger.WarnContext(ctx, "change notification failed", "serial", serial, "error", err)
		return
	}
	d.logger.InfoContext(ctx, "devices notified",
		"serial", serial,
		"devices", res.Devices,
		"sent", res.Sent,
		"failed", res.Failed,
		"unbound", res.Unbound,
	)
}

func outcomeLabel(o Outcome, err error) string {
	switch {
	case err == nil:
		return string(o)
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	default:
		return "failed"
	}
}
