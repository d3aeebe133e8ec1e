//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"mobilid/internal/platform/config"
)

const (
	minioUser     = "minioadmin"
	minioPassword = "minioadmin"
)

// MinioContainer runs MinIO through the generic container API; there is no
// dedicated module in use here.
type MinioContainer struct {
	Container testcontainers.Container
	Endpoint  string
}

func NewMinioContainer(t *testing.T) *MinioContainer {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioUser,
				"MINIO_ROOT_PASSWORD": minioPassword,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start minio container: %v", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get minio endpoint: %v", err)
	}

	return &MinioContainer{Container: container, Endpoint: endpoint}
}

// Config returns storage settings pointing at bucket on this instance.
func (m *MinioContainer) Config(bucket string) config.Storage {
	return config.Storage{
		Driver:    "minio",
		Endpoint:  m.Endpoint,
		AccessKey: minioUser,
		SecretKey: minioPassword,
		Bucket:    bucket,
	}
}
