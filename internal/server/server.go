package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-estateportal/internal/app/domain/visitor"
	database "github.com/FACorreiaa/go-estateportal/internal/db"
	"github.com/FACorreiaa/go-estateportal/internal/pkg/config"
	"github.com/FACorreiaa/go-estateportal/internal/routes"
)

// Server holds the dependencies for the HTTP server
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	dbPool   *pgxpool.Pool
	registry *visitor.Registry
	router   http.Handler

	// baseCtx parents every request context and is cancelled on shutdown
	// so open watch streams return.
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// New creates a new Server instance with all dependencies. The database is
// only opened for the postgres snapshot backend.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
	}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())

	if cfg.Session.SnapshotBackend == config.SnapshotPostgres {
		s.logger.Info("Setting up database connection and migrations")
		pool, err := database.Setup(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to setup database: %w", err)
		}
		s.dbPool = pool
		s.logger.Info("Connected to Postgres",
			zap.String("host", cfg.Repositories.Postgres.Host),
			zap.String("port", cfg.Repositories.Postgres.Port),
			zap.String("database", cfg.Repositories.Postgres.DB))
	}

	storage, err := routes.NewSnapshotStorage(cfg, s.dbPool)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to setup snapshot storage: %w", err)
	}
	s.registry = visitor.NewRegistry(visitor.ConfigFrom(cfg), storage, logger)
	s.logger.Info("Snapshot storage ready", zap.String("backend", cfg.Session.SnapshotBackend))

	return s, nil
}

// HTTPServer creates and configures the HTTP server. There is no write
// timeout because session watch streams stay open.
func (s *Server) HTTPServer() *http.Server {
	srv := &http.Server{
		Addr:              ":" + s.cfg.ServerPort,
		Handler:           s.router,
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.baseCtx },
	}
	srv.RegisterOnShutdown(s.cancelBase)
	return srv
}

// SetRouter sets the HTTP router/handler
func (s *Server) SetRouter(router http.Handler) {
	s.router = router
}

func (s *Server) GetRegistry() *visitor.Registry {
	return s.registry
}

// Close closes all server resources
func (s *Server) Close() {
	s.cancelBase()
	if s.dbPool != nil {
		s.dbPool.Close()
	}
}
