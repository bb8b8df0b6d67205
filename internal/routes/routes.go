package routes

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-estateportal/internal/app/domain/guard"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/portal"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/proxy"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/session"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/visitor"
	"github.com/FACorreiaa/go-estateportal/internal/pkg/config"
)

type AppHandlers struct {
	Base  *portal.BaseHandler
	Pages *portal.PageHandlers
	Auth  *portal.AuthHandlers
	Proxy *proxy.Handler
}

// NewSnapshotStorage picks the snapshot backend named by SNAPSHOT_BACKEND.
// dbPool is only used for the postgres backend.
func NewSnapshotStorage(cfg *config.Config, dbPool *pgxpool.Pool) (session.SnapshotStorage, error) {
	ttl := cfg.Session.SnapshotTTL
	switch cfg.Session.SnapshotBackend {
	case config.SnapshotFile:
		fs, err := session.NewFileStorage(cfg.Session.SnapshotDir, ttl)
		if err != nil {
			return nil, fmt.Errorf("open snapshot dir: %w", err)
		}
		return fs, nil
	case config.SnapshotPostgres:
		if dbPool == nil {
			return nil, fmt.Errorf("postgres snapshot backend needs a database pool")
		}
		return session.NewPostgresStorage(dbPool, ttl), nil
	case config.SnapshotMemory, "":
		return session.NewMemoryStorage(ttl), nil
	}
	return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Session.SnapshotBackend)
}

func Setup(r *gin.Engine, reg *visitor.Registry, cfg *config.Config, log *zap.Logger) {
	base := portal.NewBaseHandler(log)
	handlers := &AppHandlers{
		Base:  base,
		Pages: portal.NewPageHandlers(base),
		Auth:  portal.NewAuthHandlers(base, cfg.Backend.DefaultRole),
		Proxy: proxy.NewHandler(log),
	}
	setupRouter(r, handlers, reg, log)
}

func setupRouter(r *gin.Engine, h *AppHandlers, reg *visitor.Registry, log *zap.Logger) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "viewers": reg.Len()})
	})

	viewer := visitor.Middleware(reg, log)
	app := r.Group("/", viewer)
	{
		app.GET("/", h.Pages.Home)
		app.GET("/session", h.Auth.Session)
		app.GET(portal.WatchPath, guard.WatchHandler(log))
	}

	authGroup := app.Group("/auth")
	{
		authGroup.GET("/login", h.Auth.LoginPage)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", h.Auth.Logout)
	}

	account := app.Group("/", guard.Protect(guard.RequireAuthenticated, h.Base.Pending))
	{
		account.GET("/account", h.Pages.Account)
	}

	customer := app.Group("/", guard.Protect(guard.RequireCustomer, h.Base.Pending))
	{
		customer.GET("/mypage", h.Pages.MyPage)
		customer.GET("/subscriptions", h.Pages.Subscriptions)
		customer.GET("/exchange", h.Pages.Exchange)
	}

	agent := app.Group("/agent", guard.Protect(guard.RequireAgent, h.Base.Pending))
	{
		agent.GET("", h.Pages.AgentDashboard)
		agent.GET("/properties", h.Pages.AgentProperties)
	}

	app.Any(proxy.Prefix+"/*path", h.Proxy.Forward)

	r.NoRoute(viewer, h.Pages.NotFound)
}

// StartRevalidation runs the periodic status sweep until ctx is done.
func StartRevalidation(ctx context.Context, reg *visitor.Registry, schedule string, log *zap.Logger) error {
	stop, err := reg.StartRevalidation(schedule)
	if err != nil {
		return fmt.Errorf("start revalidation: %w", err)
	}
	log.Info("Session revalidation scheduled", zap.String("schedule", schedule))
	go func() {
		<-ctx.Done()
		stop()
	}()
	return nil
}
