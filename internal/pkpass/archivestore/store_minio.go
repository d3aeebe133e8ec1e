package archivestore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"mobilid/internal/platform/config"
	"mobilid/pkg/platform/sentinel"
)

const (
	contentType = "application/vnd.apple.pkpass"
	noSuchKey   = "NoSuchKey"
)

// MinioStore keeps archives in an S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinio connects and creates the bucket when it does not exist yet.
func NewMinio(ctx context.Context, cfg config.Storage) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioStore) Put(ctx context.Context, serial, versionHash string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey(serial, versionHash),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: map[string]string{"serial": serial},
		})
	if err != nil {
		return fmt.Errorf("put archive %s: %w", serial, err)
	}
	return nil
}

// Get reads the whole object. minio reports a missing key on first read,
// not on GetObject, so both are checked.
func (s *MinioStore) Get(ctx context.Context, serial, versionHash string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(serial, versionHash), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(serial, versionHash, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapError(serial, versionHash, err)
	}
	return data, nil
}

func (s *MinioStore) Delete(ctx context.Context, serial, versionHash string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectKey(serial, versionHash), minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != noSuchKey {
		return fmt.Errorf("delete archive %s: %w", serial, err)
	}
	return nil
}

func (s *MinioStore) mapError(serial, versionHash string, err error) error {
	if minio.ToErrorResponse(err).Code == noSuchKey {
		return fmt.Errorf("archive %s/%s: %w", serial, versionHash, sentinel.ErrNotFound)
	}
	return fmt.Errorf("get archive %s: %w", serial, err)
}
