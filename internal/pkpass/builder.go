// Package pkpass renders, signs and zips wallet passes.
package pkpass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	passmodels "mobilid/internal/pass/models"
	"mobilid/internal/platform/config"
)

// Builder turns a PassRecord into a signed archive. It holds no state
// between builds.
type Builder struct {
	cfg    config.Pass
	assets *Assets
	signer Signer
	thumbs *Thumbnailer
	logger *slog.Logger
	tracer trace.Tracer
}

type BuilderOption func(*Builder)

func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

func WithThumbnailer(t *Thumbnailer) BuilderOption {
	return func(b *Builder) { b.thumbs = t }
}

func NewBuilder(cfg config.Pass, assets *Assets, signer Signer, opts ...BuilderOption) *Builder {
	if assets == nil {
		assets = &Assets{}
	}
	b := &Builder{
		cfg:    cfg,
		assets: assets,
		signer: signer,
		thumbs: NewThumbnailer(nil, cfg.PhotoTimeout),
		logger: slog.Default(),
		tracer: otel.Tracer("mobilid/pkpass"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build renders pass.json, digests every entry into the manifest, signs the
// manifest and zips the result. Any signing failure aborts the build.
func (b *Builder) Build(ctx context.Context, rec passmodels.PassRecord) (*Archive, error) {
	ctx, span := b.tracer.Start(ctx, "pkpass.Build", trace.WithAttributes(attribute.String("pass.serial", rec.SerialNumber)))
	defer span.End()

	archive, err := b.build(ctx, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("pass.archive_bytes", archive.Len()))
	return archive, nil
}

func (b *Builder) build(ctx context.Context, rec passmodels.PassRecord) (*Archive, error) {
	doc, err := json.Marshal(Render(b.cfg, rec))
	if err != nil {
		return nil, fmt.Errorf("render pass.json: %w", err)
	}

	files := make(map[string][]byte, len(b.assets.Static)+len(thumbnailSizes)+1)
	files[passFile] = doc
	maps.Copy(files, b.assets.Static)
	maps.Copy(files, b.thumbnails(ctx, rec))

	manifest, err := newManifest(files).Bytes()
	if err != nil {
		return nil, err
	}
	if b.signer == nil {
		return nil, fmt.Errorf("%w: no signer configured", ErrSigning)
	}
	signature, err := b.signer.Sign(manifest)
	if err != nil {
		if !errors.Is(err, ErrSigning) {
			err = fmt.Errorf("%w: %v", ErrSigning, err)
		}
		return nil, err
	}

	data, err := writeZip(signature, manifest, files)
	if err != nil {
		return nil, fmt.Errorf("zip archive: %w", err)
	}
	return &Archive{SerialNumber: rec.SerialNumber, VersionHash: rec.VersionHash, Bytes: data}, nil
}

func (b *Builder) thumbnails(ctx context.Context, rec passmodels.PassRecord) map[string][]byte {
	url := rec.Attributes.PhotoURL
	if url == "" || b.thumbs == nil {
		return b.assets.Thumbnails
	}
	thumbs, err := b.thumbs.Render(ctx, url)
	if err != nil {
		b.logger.WarnContext(ctx, "holder photo unavailable, using default thumbnails",
			"serial", rec.SerialNumber,
			"error", err,
		)
		return b.assets.Thumbnails
	}
	return thumbs
}
