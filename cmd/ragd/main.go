package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/knoguchi/campusrag/internal/app"
	"github.com/knoguchi/campusrag/internal/auth"
	"github.com/knoguchi/campusrag/internal/config"
	"github.com/knoguchi/campusrag/internal/server"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout   = 30 * time.Second
	readinessInterval = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up structured logging
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.LogLevel, "debug") {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting campus answer service",
		"grpc_port", cfg.GRPCPort,
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
		"store", cfg.StoreDriver,
		"vector_backend", cfg.VectorBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	engine, err := app.NewEngine(cfg, stores, logger)
	if err != nil {
		return err
	}

	var jwtManager *auth.JWTManager
	if cfg.AuthEnabled() {
		jwtCfg := auth.DefaultJWTConfig(cfg.JWTSecret)
		jwtCfg.Expiry = cfg.JWTExpiry
		jwtManager = auth.NewJWTManager(jwtCfg)
		logger.Info("bearer authentication enabled")
	} else {
		logger.Warn("JWT_SECRET is empty, bearer authentication disabled")
	}

	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:   cfg.HTTPPort,
		Logger: logger,
		Auth:   jwtManager,
		Ready:  stores.Ping,
	}, engine)
	grpcServer := server.NewGRPCServer(server.GRPCServerConfig{
		Port:   cfg.GRPCPort,
		Logger: logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpServer.Start)
	g.Go(grpcServer.Start)
	g.Go(func() error {
		grpcServer.WatchReadiness(gctx, stores.Ping, readinessInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(
			httpServer.Shutdown(shutdownCtx),
			grpcServer.Shutdown(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("servers stopped")
	return nil
}
