// Package main wires the HTTP server for the project fork and merge service.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"asset-fork-merge/internal/app"
	handlers_fiber "asset-fork-merge/internal/transport/http/server/handlers-fiber"

	"asset-fork-merge/config"
	api "asset-fork-merge/internal/oapi"
	"asset-fork-merge/internal/transport/http/middleware"
	"asset-fork-merge/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logging.Level,
		logger.WithFile(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays),
	)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	deps, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Errorw("startup error", "error", err, "backend", cfg.Storage.Backend)
		return
	}
	defer deps.Close()

	serv := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTP.RequestTimeout,
		WriteTimeout: cfg.Merge.Timeout,
	})
	serv.Use(recover.New())
	serv.Use(requestid.New())
	serv.Use(middleware.RequestLogger(log, handlers_fiber.HeaderUserID))

	serv.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	h := handlers_fiber.NewHandler(log, deps.Usecase)
	api.RegisterHandlers(serv, h)

	go func() {
		if err := serv.Listen(cfg.ServerAddr()); err != nil {
			log.Errorw("failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = serv.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warnw("server shutdown timeout", "timeout", cfg.Server.ShutdownTimeout)
	}
}
