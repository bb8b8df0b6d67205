package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/FACorreiaa/go-estateportal/internal/app/domain/visitor"
	middleware2 "github.com/FACorreiaa/go-estateportal/internal/app/middleware"
	"github.com/FACorreiaa/go-estateportal/internal/pkg/config"
	"github.com/FACorreiaa/go-estateportal/internal/routes"
)

const visitorCookieMaxAge = 30 * 24 * 60 * 60

// SetupRouter configures and returns the Gin router with all middleware and routes
func SetupRouter(cfg *config.Config, reg *visitor.Registry, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(ginzap.GinzapWithConfig(logger, &ginzap.Config{
		UTC:        true,
		TimeFormat: time.RFC3339,
		Context:    zapContextFunc(),
		SkipPaths:  []string{"/healthz"},
	}))
	r.Use(ginzap.RecoveryWithZap(logger, true))
	r.Use(middleware2.OTELGinMiddleware(cfg.ServiceName))
	r.Use(middleware2.MetricsMiddleware())
	r.Use(middleware2.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware2.SecurityMiddleware())

	store := cookie.NewStore([]byte(cfg.Session.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   visitorCookieMaxAge,
		HttpOnly: true,
		Secure:   cfg.Session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(cfg.Session.CookieName, store))

	routes.Setup(r, reg, cfg, logger)

	return r
}

// zapContextFunc adds request and trace ids to request logs. Bodies are never
// logged since they carry passwords.
func zapContextFunc() ginzap.Fn {
	return func(c *gin.Context) []zapcore.Field {
		fields := []zapcore.Field{}

		if requestID := c.Writer.Header().Get("X-Request-Id"); requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}

		if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().IsValid() {
			fields = append(fields,
				zap.String("trace_id", span.SpanContext().TraceID().String()),
				zap.String("span_id", span.SpanContext().SpanID().String()),
			)
		}

		if c.GetHeader("HX-Request") == "true" {
			fields = append(fields, zap.Bool("htmx", true))
		}

		return fields
	}
}
