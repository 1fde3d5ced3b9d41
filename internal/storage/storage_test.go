package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/survivors/internal/config"
	"github.com/cory-johannsen/survivors/internal/game/meta"
	"github.com/cory-johannsen/survivors/internal/storage"
)

func TestOpen_Memory(t *testing.T) {
	b, err := storage.Open(context.Background(), config.Config{Storage: config.StorageConfig{Driver: "memory"}}, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()
	assert.IsType(t, &meta.MemoryStore{}, b.Store)
	assert.NotNil(t, b.Runs)
}

func TestOpen_SQLite(t *testing.T) {
	cfg := config.Config{Storage: config.StorageConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "s.db"),
	}}
	b, err := storage.Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Store.Save(ctx, "p", map[string]string{meta.KeyCurrency: "9"}))
	kv, err := b.Store.Load(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "9", kv[meta.KeyCurrency])
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := storage.Open(context.Background(), config.Config{Storage: config.StorageConfig{Driver: "floppy"}}, zap.NewNop())
	assert.Error(t, err)
}
