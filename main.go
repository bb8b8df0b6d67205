package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-estateportal/internal/pkg/config"
	"github.com/FACorreiaa/go-estateportal/internal/routes"
	"github.com/FACorreiaa/go-estateportal/internal/server"
	"github.com/FACorreiaa/go-estateportal/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Options{
		Level:    logger.ParseLevel(cfg.LogLevel),
		Encoding: cfg.LogFormat,
	}, zap.String("service", cfg.ServiceName)); err != nil {
		return err
	}
	defer func() { _ = logger.Log.Sync() }()
	lg := logger.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := server.InitObservability(cfg, lg)
	if err != nil {
		return err
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			lg.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	srv, err := server.New(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer srv.Close()

	srv.SetRouter(server.SetupRouter(cfg, srv.GetRegistry(), lg))

	if err := routes.StartRevalidation(ctx, srv.GetRegistry(), cfg.Guard.RevalidateSchedule, lg); err != nil {
		return err
	}

	// Start pprof server (on separate port, not exposed publicly)
	server.StartPprofServer(cfg.PprofAddr, lg)

	httpServer := srv.HTTPServer()

	done := make(chan struct{})
	go server.GracefulShutdown(ctx, httpServer, lg, done)
	go func() {
		<-ctx.Done()
		// A second signal kills the process.
		stop()
	}()

	lg.Info("Server starting",
		zap.String("port", cfg.ServerPort),
		zap.String("backend", cfg.Backend.URL),
		zap.String("snapshot_backend", cfg.Session.SnapshotBackend))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Error("Server error", zap.Error(err))
		stop()
	}

	<-done
	lg.Info("Graceful shutdown complete")
	return nil
}
