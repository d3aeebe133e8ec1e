// Package service implements the device side of the pass web service: the
// registration lifecycle, change listing and authorized pass delivery, plus
// enrollment and the scan and trigger entry points that feed the dispatcher.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"mobilid/internal/dispatch"
	passmodels "mobilid/internal/pass/models"
	regmodels "mobilid/internal/registration/models"
	"mobilid/internal/sync/metrics"
	"mobilid/internal/upstream/identity"
	dErrors "mobilid/pkg/domain-errors"
	"mobilid/pkg/platform/sentinel"
	"mobilid/pkg/platform/tx"
)

type PassStore interface {
	Get(ctx context.Context, serial string) (passmodels.PassRecord, error)
	GetByAuth(ctx context.Context, serial, authToken string) (passmodels.PassRecord, error)
	GetByVersionHash(ctx context.Context, hash string) (passmodels.PassRecord, error)
}

type Directory interface {
	RegisterDevice(ctx context.Context, deviceID, pushAddress, platform string) error
	Bind(ctx context.Context, deviceID, serial string) (bool, error)
	Unbind(ctx context.Context, deviceID, serial string) (bool, error)
	ListSerialsForDevice(ctx context.Context, deviceID, passType string, updatedSince *time.Time) (regmodels.SerialList, error)
}

// Issuer creates passes and serves their archives.
type Issuer interface {
	Create(ctx context.Context, passType string, rec identity.Record) (passmodels.PassRecord, bool, error)
	ArchiveFor(ctx context.Context, rec passmodels.PassRecord) ([]byte, error)
}

// Jobs schedules dispatcher work without waiting for it.
type Jobs interface {
	EnqueueRefresh(ctx context.Context, serial string) error
	EnqueueRotate(ctx context.Context, serial string) error
}

type IdentityVerifier interface {
	Verify(ctx context.Context, id, pin string) (identity.Record, error)
}

// EnrollmentLockout tracks failed PINs per identity.
type EnrollmentLockout interface {
	Locked(ctx context.Context, id string) (bool, error)
	RecordFailure(ctx context.Context, id string) error
	Clear(ctx context.Context, id string) error
}

// RegisterOutcome distinguishes a new binding from a repeated one.
type RegisterOutcome int

const (
	Created RegisterOutcome = iota
	AlreadyRegistered
)

// FetchResult is the answer to a conditional pass fetch. Archive is nil
// when NotModified is set.
type FetchResult struct {
	NotModified  bool
	LastModified time.Time
	Archive      []byte
}

// Enrollment is the result of a successful Enroll.
type Enrollment struct {
	Pass    passmodels.PassRecord
	Created bool
}

// Config carries the issuer-level values the service checks requests against.
type Config struct {
	PassType  string
	IDLength  int
	PINLength int
	Allowlist []string
}

type Service struct {
	passes    PassStore
	directory Directory
	issuer    Issuer
	jobs      Jobs
	verifier  IdentityVerifier
	lockout   EnrollmentLockout
	tx        tx.Runner
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLockout(l EnrollmentLockout) Option {
	return func(s *Service) { s.lockout = l }
}

// WithVerifier enables Enroll.
func WithVerifier(v IdentityVerifier) Option {
	return func(s *Service) { s.verifier = v }
}

func New(passes PassStore, directory Directory, issuer Issuer, jobs Jobs, runner tx.Runner, cfg Config, opts ...Option) (*Service, error) {
	switch {
	case passes == nil:
		return nil, errors.New("pass store is required")
	case directory == nil:
		return nil, errors.New("registration directory is required")
	case issuer == nil:
		return nil, errors.New("issuer is required")
	case jobs == nil:
		return nil, errors.New("job queue is required")
	case runner == nil:
		return nil, errors.New("transaction runner is required")
	case cfg.PassType == "":
		return nil, errors.New("pass type identifier is required")
	}
	s := &Service{
		passes:    passes,
		directory: directory,
		issuer:    issuer,
		jobs:      jobs,
		tx:        runner,
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

var errUnauthorized = dErrors.New(dErrors.CodeUnauthorized, "invalid pass credentials")

// authorize resolves the pass a device presents a token for. A wrong pass
// type, unknown serial or bad token all look the same to the caller.
func (s *Service) authorize(ctx context.Context, passType, serial, authToken string) (passmodels.PassRecord, error) {
	if passType != s.cfg.PassType || authToken == "" {
		return passmodels.PassRecord{}, errUnauthorized
	}
	rec, err := s.passes.GetByAuth(ctx, serial, authToken)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return passmodels.PassRecord{}, errUnauthorized
		}
		return passmodels.PassRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pass")
	}
	if rec.PassType != passType {
		return passmodels.PassRecord{}, errUnauthorized
	}
	return rec, nil
}

// Register binds deviceID to serial, creating the device on first use.
// Repeating the call is harmless and reports AlreadyRegistered. Credentials
// are checked before the request body.
func (s *Service) Register(ctx context.Context, deviceID, passType, serial, authToken, pushAddress, userAgent string) (RegisterOutcome, error) {
	if _, err := s.authorize(ctx, passType, serial, authToken); err != nil {
		s.metrics.IncrementRegistration("unauthorized")
		return 0, err
	}
	if deviceID == "" || pushAddress == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "pushToken is required")
	}

	platform := regmodels.PlatformFromUserAgent(userAgent)
	var created bool
	err := s.tx.RunInTx(tx.WithShardKey(ctx, deviceID), func(ctx context.Context) error {
		if err := s.directory.RegisterDevice(ctx, deviceID, pushAddress, platform); err != nil {
			return fmt.Errorf("upsert device: %w", err)
		}
		var err error
		created, err = s.directory.Bind(ctx, deviceID, serial)
		return err
	})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register device")
	}

	if !created {
		s.metrics.IncrementRegistration("exists")
		return AlreadyRegistered, nil
	}
	s.metrics.IncrementRegistration("created")
	s.logger.InfoContext(ctx, "device registered",
		"device_id", deviceID,
		"serial", serial,
		"platform", platform,
	)
	return Created, nil
}

// ListUpdatedSerials reports which of the device's passes changed after
// updatedSince. found is false when the device has nothing to report.
func (s *Service) ListUpdatedSerials(ctx context.Context, deviceID, passType string, updatedSince *time.Time) (regmodels.SerialList, bool, error) {
	list, err := s.directory.ListSerialsForDevice(ctx, deviceID, passType, updatedSince)
	if err != nil {
		return regmodels.SerialList{}, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list serials")
	}
	return list, !list.Empty(), nil
}

// FetchPass serves the current archive unless the device already has it.
// last_update has whole-second resolution, as does If-Modified-Since.
func (s *Service) FetchPass(ctx context.Context, passType, serial, authToken string, ifModifiedSince *time.Time) (FetchResult, error) {
	rec, err := s.authorize(ctx, passType, serial, authToken)
	if err != nil {
		s.metrics.IncrementFetch("unauthorized")
		return FetchResult{}, err
	}
	lastModified := rec.LastUpdate.UTC().Truncate(time.Second)
	if ifModifiedSince != nil && !lastModified.After(ifModifiedSince.UTC()) {
		s.metrics.IncrementFetch("not_modified")
		return FetchResult{NotModified: true, LastModified: lastModified}, nil
	}

	data, err := s.issuer.ArchiveFor(ctx, rec)
	if err != nil {
		return FetchResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pass archive")
	}
	s.metrics.IncrementFetch("served")
	s.metrics.ObserveArchive(len(data))
	return FetchResult{LastModified: lastModified, Archive: data}, nil
}

// Unregister removes the binding. The device goes with its last binding.
// It shares Register's per-device unit of work, so the two never interleave.
func (s *Service) Unregister(ctx context.Context, deviceID, passType, serial, authToken string) error {
	if _, err := s.authorize(ctx, passType, serial, authToken); err != nil {
		s.metrics.IncrementUnregistration("unauthorized")
		return err
	}
	var deviceRemoved bool
	err := s.tx.RunInTx(tx.WithShardKey(ctx, deviceID), func(ctx context.Context) error {
		var err error
		deviceRemoved, err = s.directory.Unbind(ctx, deviceID, serial)
		return err
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to unregister device")
	}
	s.metrics.IncrementUnregistration("removed")
	s.logger.InfoContext(ctx, "device unregistered",
		"device_id", deviceID,
		"serial", serial,
		"device_removed", deviceRemoved,
	)
	return nil
}

// TriggerUpdate schedules a refresh on behalf of an internal client. found is
// false for serials that were never issued.
func (s *Service) TriggerUpdate(ctx context.Context, serial string) (bool, error) {
	if _, err := s.passes.Get(ctx, serial); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pass")
	}
	if err := s.jobs.EnqueueRefresh(ctx, serial); err != nil {
		return true, enqueueError(err)
	}
	return true, nil
}

// Scan resolves a scanned barcode to its serial and schedules a rotation so
// the scanned code cannot be presented again.
func (s *Service) Scan(ctx context.Context, hash string) (string, bool, error) {
	rec, err := s.passes.GetByVersionHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementScan("unknown")
			return "", false, nil
		}
		return "", false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve pass")
	}
	if err := s.jobs.EnqueueRotate(ctx, rec.SerialNumber); err != nil {
		s.logger.WarnContext(ctx, "rotation after scan not scheduled", "serial", rec.SerialNumber, "error", err)
	}
	s.metrics.IncrementScan("rotated")
	return rec.SerialNumber, true, nil
}

// Download returns the archive of the pass currently carrying hash.
func (s *Service) Download(ctx context.Context, hash string) (passmodels.PassRecord, []byte, bool, error) {
	rec, err := s.passes.GetByVersionHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return passmodels.PassRecord{}, nil, false, nil
		}
		return passmodels.PassRecord{}, nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve pass")
	}
	data, err := s.issuer.ArchiveFor(ctx, rec)
	if err != nil {
		return passmodels.PassRecord{}, nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pass archive")
	}
	return rec, data, true, nil
}

// Enroll issues a pass the first time a holder proves their identity with
// id and PIN. Enrolling again returns the existing pass.
func (s *Service) Enroll(ctx context.Context, id, pin string) (Enrollment, error) {
	if s.verifier == nil {
		return Enrollment{}, dErrors.New(dErrors.CodeUnavailable, "enrollment is disabled")
	}
	if err := s.validateEnrollment(id, pin); err != nil {
		s.metrics.IncrementEnrollment("rejected")
		return Enrollment{}, err
	}

	if s.lockout != nil {
		locked, err := s.lockout.Locked(ctx, id)
		if err != nil {
			s.logger.ErrorContext(ctx, "enrollment lockout check failed", "error", err)
		} else if locked {
			s.metrics.IncrementEnrollment("locked")
			return Enrollment{}, dErrors.New(dErrors.CodeRateLimited, "too many failed attempts, try again later")
		}
	}

	rec, err := s.verifier.Verify(ctx, id, pin)
	if err != nil {
		return Enrollment{}, s.enrollmentError(ctx, id, err)
	}
	if s.lockout != nil {
		if err := s.lockout.Clear(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "failed to clear enrollment failures", "error", err)
		}
	}

	pass, created, err := s.issuer.Create(ctx, s.cfg.PassType, rec)
	if err != nil {
		if errors.Is(err, sentinel.ErrLocked) {
			return Enrollment{}, dErrors.Wrap(err, dErrors.CodeConflict, "enrollment already in progress")
		}
		return Enrollment{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue pass")
	}
	if created {
		s.metrics.IncrementEnrollment("created")
		s.logger.InfoContext(ctx, "holder enrolled", "serial", pass.SerialNumber)
	} else {
		s.metrics.IncrementEnrollment("exists")
	}
	return Enrollment{Pass: pass, Created: created}, nil
}

func (s *Service) validateEnrollment(id, pin string) error {
	if !numeric(id) || (s.cfg.IDLength > 0 && len(id) != s.cfg.IDLength) {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("id must be %d digits", s.cfg.IDLength))
	}
	if !numeric(pin) || (s.cfg.PINLength > 0 && len(pin) != s.cfg.PINLength) {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("pin must be %d digits", s.cfg.PINLength))
	}
	if len(s.cfg.Allowlist) > 0 && !slices.Contains(s.cfg.Allowlist, id) {
		return dErrors.New(dErrors.CodeUnauthorized, "id is not eligible for a pass")
	}
	return nil
}

func (s *Service) enrollmentError(ctx context.Context, id string, err error) error {
	switch {
	case errors.Is(err, identity.ErrPINMismatch), identity.GetCategory(err) == identity.ErrorNotFound:
		s.metrics.IncrementEnrollment("rejected")
		if s.lockout != nil {
			if lerr := s.lockout.RecordFailure(ctx, id); lerr != nil {
				s.logger.WarnContext(ctx, "failed to record enrollment failure", "error", lerr)
			}
		}
		return dErrors.New(dErrors.CodeUnauthorized, "id or pin is incorrect")
	case identity.IsRetryable(err):
		s.metrics.IncrementEnrollment("unavailable")
		s.logger.WarnContext(ctx, "identity source unavailable during enrollment", "serial", id, "error", err)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "identity source unavailable")
	default:
		s.metrics.IncrementEnrollment("unavailable")
		s.logger.ErrorContext(ctx, "identity lookup failed during enrollment", "serial", id, "error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity lookup failed")
	}
}

func enqueueError(err error) error {
	if errors.Is(err, dispatch.ErrQueueFull) || errors.Is(err, dispatch.ErrQueueClosed) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "update queue is busy")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to schedule update")
}

func numeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
