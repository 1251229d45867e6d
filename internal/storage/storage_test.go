package storage_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/salesflow/salesflow-api/internal/config"
	"github.com/salesflow/salesflow-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalStorage_PutGetDelete(t *testing.T) {
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	size, err := s.Put(ctx, "pipeline/2026/03/10/a.json", "application/json", bytes.NewBufferString(`{"ok":true}`))
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)

	rc, err := s.Get(ctx, "pipeline/2026/03/10/a.json")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	require.NoError(t, s.Delete(ctx, "pipeline/2026/03/10/a.json"))
	require.NoError(t, s.Delete(ctx, "pipeline/2026/03/10/a.json"))

	_, err = s.Get(ctx, "pipeline/2026/03/10/a.json")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	s, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../secret", "a/../../b", "."} {
		_, err := s.Put(context.Background(), key, "text/plain", bytes.NewBufferString("x"))
		assert.ErrorIs(t, err, storage.ErrInvalidKey, key)
	}
}

func TestCleanKey(t *testing.T) {
	got, err := storage.CleanKey(`pipeline\2026//a.json`)
	require.NoError(t, err)
	assert.Equal(t, "pipeline/2026/a.json", got)
}

func TestNewStorage_UnsupportedMode(t *testing.T) {
	_, err := storage.NewStorage(&config.StorageConfig{Mode: "ftp"}, zap.NewNop())
	assert.Error(t, err)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "azure"}, zap.NewNop())
	assert.Error(t, err)
}
