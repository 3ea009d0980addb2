package photos_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"storefinder/internal/photos"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage_SaveAndOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	storage, err := photos.NewFileStorage(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, storage.Save(ctx, "abc.jpeg", []byte("data"), "image/jpeg"))

	_, err = os.Stat(filepath.Join(dir, "abc.jpeg"))
	require.NoError(t, err)

	rc, err := storage.Open(ctx, "abc.jpeg")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "data", string(body))
}

func TestFileStorage_Delete(t *testing.T) {
	storage, err := photos.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, "abc.png", []byte("data"), "image/png"))
	require.NoError(t, storage.Delete(ctx, "abc.png"))

	_, err = storage.Open(ctx, "abc.png")
	assert.ErrorIs(t, err, photos.ErrNotFound)

	assert.NoError(t, storage.Delete(ctx, "abc.png"))
	assert.Error(t, storage.Delete(ctx, "../abc.png"))
}

func TestFileStorage_RejectsBadInput(t *testing.T) {
	storage, err := photos.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, storage.Save(ctx, "", []byte("x"), "image/png"))
	assert.Error(t, storage.Save(ctx, "../escape.png", []byte("x"), "image/png"))
	assert.Error(t, storage.Save(ctx, "empty.png", nil, "image/png"))

	_, err = storage.Open(ctx, "missing.png")
	assert.ErrorIs(t, err, photos.ErrNotFound)
}

func TestNewFileStorage_EmptyDir(t *testing.T) {
	_, err := photos.NewFileStorage("")
	assert.Error(t, err)
}

func TestNewMinioStorage_RequiresConfig(t *testing.T) {
	_, err := photos.NewMinioStorage(photos.MinioConfig{})
	assert.Error(t, err)

	_, err = photos.NewMinioStorage(photos.MinioConfig{Endpoint: "localhost:9000", Bucket: "photos"})
	assert.Error(t, err)

	storage, err := photos.NewMinioStorage(photos.MinioConfig{
		Endpoint: "localhost:9000", AccessKey: "key", SecretKey: "secret", Bucket: "photos",
	})
	require.NoError(t, err)
	assert.NotNil(t, storage)
}
