package app

import (
	"context"
	"testing"
	"time"

	"asset-fork-merge/config"
	"asset-fork-merge/internal/entities"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Storage: config.StorageConfig{Backend: "memory"},
		HTTP:    config.HTTPConfig{RequestTimeout: time.Second},
		Merge:   config.MergeConfig{Timeout: time.Second, LockTTL: time.Minute},
	}
}

func TestNewMemoryBackend(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), zap.NewNop().Sugar())
	require.NoError(t, err)
	defer a.Close()

	p, err := a.Usecase.CreateProject(ctx, entities.Project{Title: "Depot", OwnerID: "owner"})
	require.NoError(t, err)
	require.True(t, p.IsMaster)
}

func TestNewRedisLock(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.Redis.URL = "redis://" + s.Addr()

	a, err := New(context.Background(), cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	a.Close()
	a.Close()
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage.Backend = "sqlite"

	_, err := New(context.Background(), cfg, zap.NewNop().Sugar())
	require.Error(t, err)
}

func TestNewBadRedisURL(t *testing.T) {
	cfg := memoryConfig()
	cfg.Redis.URL = "://nope"

	_, err := New(context.Background(), cfg, zap.NewNop().Sugar())
	require.Error(t, err)
}
