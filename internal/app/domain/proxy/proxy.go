// Package proxy forwards /api calls from pages to the backend through the
// viewer's own client, so its cookies and authorization handling apply.
package proxy

import (
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-estateportal/internal/app/domain/auth"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/guard"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/visitor"
	"github.com/FACorreiaa/go-estateportal/internal/app/observability/metrics"
)

const Prefix = "/api"

var forwardedRequestHeaders = []string{
	"Accept",
	"Accept-Language",
	"Content-Type",
	"If-None-Match",
	"If-Modified-Since",
}

var forwardedResponseHeaders = []string{
	"Cache-Control",
	"Content-Disposition",
	"ETag",
	"Last-Modified",
	"Location",
}

type Handler struct {
	logger  *zap.Logger
	blocked map[string]struct{}
}

func NewHandler(logger *zap.Logger) *Handler {
	blocked := make(map[string]struct{})
	for _, p := range auth.ExemptPaths() {
		blocked[p] = struct{}{}
	}
	return &Handler{logger: logger, blocked: blocked}
}

// reserved reports whether p is a login, logout or status endpoint. Those are
// only called by the auth gateway.
func (h *Handler) reserved(p string) bool {
	_, ok := h.blocked[strings.ToLower(path.Clean(p))]
	return ok
}

// Forward relays the request under /api/*path to the backend path *path.
// Authorization failures have already signed the viewer out by the time the
// response arrives; the browser is sent to the login page.
func (h *Handler) Forward(c *gin.Context) {
	v, ok := visitor.FromContext(c)
	if !ok {
		h.logger.Error("Proxy reached without a viewer", zap.String("path", c.Request.URL.Path))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	target := c.Param("path")
	if target == "" || target == "/" {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	target = "/" + strings.TrimLeft(target, "/")
	if h.reserved(target) {
		h.count(c, "reserved")
		h.logger.Warn("Refusing to proxy auth endpoint", zap.String("path", target))
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	header := http.Header{}
	for _, name := range forwardedRequestHeaders {
		if value := c.GetHeader(name); value != "" {
			header.Set(name, value)
		}
	}

	ctx := c.Request.Context()
	resp, err := v.Client.Forward(ctx, c.Request.Method, target, c.Request.URL.RawQuery, header, c.Request.Body)
	if err != nil {
		h.count(c, "network_error")
		h.logger.Warn("Backend request failed", zap.String("path", target), zap.Error(err))
		c.AbortWithStatus(http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		h.count(c, "unauthorized")
		// The watch stream may not be open, so the caller gets the redirect too.
		guard.Redirect(c, guard.LoginRedirect(refererPath(c)), true)
		return
	}

	h.count(c, strconv.Itoa(resp.StatusCode))
	extra := make(map[string]string, len(forwardedResponseHeaders))
	for _, name := range forwardedResponseHeaders {
		if value := resp.Header.Get(name); value != "" {
			extra[name] = value
		}
	}
	c.DataFromReader(resp.StatusCode, resp.ContentLength, resp.Header.Get("Content-Type"), resp.Body, extra)
}

func (h *Handler) count(c *gin.Context, outcome string) {
	metrics.Get().ProxyRequestsTotal.Add(c.Request.Context(), 1, metric.WithAttributes(
		attribute.String("method", c.Request.Method),
		attribute.String("outcome", outcome),
	))
}

// refererPath is the page that issued the call, used as the login next.
func refererPath(c *gin.Context) string {
	if current := c.GetHeader("HX-Current-URL"); current != "" {
		return pathOf(current)
	}
	return pathOf(c.Request.Referer())
}

func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return ""
	}
	return u.RequestURI()
}
