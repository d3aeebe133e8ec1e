package archivestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobilid/internal/platform/config"
	"mobilid/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	_, err := s.Get(ctx, "1234567", "h1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	data := []byte("archive-v1")
	require.NoError(t, s.Put(ctx, "1234567", "h1", data))
	data[0] = 'X'

	got, err := s.Get(ctx, "1234567", "h1")
	require.NoError(t, err)
	assert.Equal(t, []byte("archive-v1"), got, "stored bytes are copied")

	require.NoError(t, s.Put(ctx, "1234567", "h2", []byte("archive-v2")))
	assert.Equal(t, 2, s.Len())

	require.NoError(t, s.Delete(ctx, "1234567", "h1"))
	require.NoError(t, s.Delete(ctx, "1234567", "h1"), "delete is idempotent")
	_, err = s.Get(ctx, "1234567", "h1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.Equal(t, 1, s.Len())
}

func TestNew_SelectsDriver(t *testing.T) {
	s, err := New(context.Background(), config.Storage{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &InMemoryStore{}, s)

	_, err = New(context.Background(), config.Storage{Driver: "s3fs"})
	assert.Error(t, err)
}

func TestNewCached_NilClientPassesThrough(t *testing.T) {
	inner := NewInMemory()
	assert.Same(t, inner, NewCached(inner, nil, 0))
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "passes/1234567/abc.pkpass", objectKey("1234567", "abc"))
	assert.Equal(t, "pkpass:1234567:abc", cacheKey("1234567", "abc"))
}
