// Package app assembles storage, locking, archiving and usecases from configuration.
package app

import (
	"context"
	"fmt"

	"asset-fork-merge/config"
	"asset-fork-merge/internal/archive"
	"asset-fork-merge/internal/lock"
	"asset-fork-merge/internal/repository"
	"asset-fork-merge/internal/usecase"
	"asset-fork-merge/internal/usecase/domain"

	"go.uber.org/zap"
)

// App holds started dependencies. Close releases them in reverse order.
type App struct {
	Repo    repository.Repository
	Usecase usecase.InterfaceUsecase

	closers []func()
}

// New starts the configured backend and builds the usecase layer on top of it.
func New(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*App, error) {
	a := &App{}

	repo, err := repository.New(ctx, cfg.Storage.Backend, log, cfg)
	if err != nil {
		return nil, fmt.Errorf("repository init: %w", err)
	}
	if err := repo.OnStart(ctx); err != nil {
		return nil, fmt.Errorf("repository start: %w", err)
	}
	a.Repo = repo
	a.closers = append(a.closers, func() { _ = repo.OnStop(context.Background()) })

	opts := []domain.Option{domain.WithMergeTimeout(cfg.Merge.Timeout)}

	if cfg.Redis.URL != "" {
		rl, err := lock.NewRedis(cfg.Redis.URL, cfg.Merge.LockTTL)
		if err != nil {
			a.Close()
			return nil, err
		}
		lockLog := log.Named("lock")
		rl.OnLost(func(key string, err error) {
			lockLog.Errorw("merge lock expired before release", "key", key, "error", err)
		})
		a.closers = append(a.closers, func() { _ = rl.Close() })
		opts = append(opts, domain.WithLocker(rl))
		log.Infow("merge lock: redis", "ttl", cfg.Merge.LockTTL)
	} else {
		log.Infow("merge lock: local")
	}

	if cfg.Archive.Enabled() {
		arch, err := archive.NewMinio(ctx, log, archive.Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, domain.WithArchiver(arch))
	} else {
		opts = append(opts, domain.WithArchiver(archive.Nop{}))
	}

	a.Usecase = usecase.New(log, ctx, repo, cfg.HTTP.RequestTimeout, opts...)
	return a, nil
}

// Close stops everything New started.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
