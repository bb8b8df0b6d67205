// Package portal serves the customer and agent pages.
package portal

import (
	"net/http"
	"net/url"
	"time"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-estateportal/internal/app/domain/guard"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/pages"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/visitor"
	"github.com/FACorreiaa/go-estateportal/internal/app/models"
	"github.com/FACorreiaa/go-estateportal/internal/app/observability/metrics"
)

const WatchPath = "/session/watch"

type BaseHandler struct {
	Logger *zap.Logger
}

func NewBaseHandler(logger *zap.Logger) *BaseHandler {
	return &BaseHandler{Logger: logger}
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// currentSession prefers the session the guard allowed, then the viewer's store.
func currentSession(c *gin.Context) models.Session {
	if v, ok := guard.VerdictFromContext(c); ok {
		return v.Session
	}
	if v, ok := visitor.FromContext(c); ok {
		return v.Store.Get()
	}
	return models.Anonymous()
}

func (h *BaseHandler) newLayoutData(c *gin.Context, title, activeNav, watch string, content templ.Component) models.LayoutTempl {
	sess := currentSession(c)
	return models.LayoutTempl{
		Title:     title,
		Session:   sess,
		Nav:       models.NavFor(sess),
		ActiveNav: activeNav,
		Content:   content,
		Watch:     watch,
	}
}

func (h *BaseHandler) render(c *gin.Context, status int, component templ.Component) {
	start := time.Now()
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := component.Render(c.Request.Context(), c.Writer); err != nil {
		h.Logger.Error("Failed to render component", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	metrics.Get().TemplateRenderDuration.Record(c.Request.Context(), time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("route", c.FullPath())))
}

// RenderPage writes only the content for HTMX requests and the full layout otherwise.
func (h *BaseHandler) RenderPage(c *gin.Context, title, activeNav string, content templ.Component) {
	h.renderPage(c, http.StatusOK, title, activeNav, "", content)
}

// RenderProtected is RenderPage for guarded routes. The full page subscribes
// to the session watch stream so it leaves as soon as req stops holding.
func (h *BaseHandler) RenderProtected(c *gin.Context, req guard.Requirement, title, activeNav string, content templ.Component) {
	h.renderPage(c, http.StatusOK, title, activeNav, WatchURL(req, c.Request.URL.RequestURI()), content)
}

func (h *BaseHandler) renderPage(c *gin.Context, status int, title, activeNav, watch string, content templ.Component) {
	if isHTMX(c) {
		h.render(c, status, content)
		return
	}
	h.render(c, status, pages.LayoutPage(h.newLayoutData(c, title, activeNav, watch, content)))
}

// WatchURL is the event stream a page mounted at next opens for req.
func WatchURL(req guard.Requirement, next string) string {
	q := url.Values{}
	q.Set("require", req.String())
	if guard.SafeNext(next) {
		q.Set("next", next)
	}
	return WatchPath + "?" + q.Encode()
}

// Pending renders the guard's waiting page. HTMX requests get a fragment that
// polls the route, full loads get the layout and a Refresh header.
func (h *BaseHandler) Pending(c *gin.Context, req guard.Requirement, v guard.Verdict) {
	uri := c.Request.URL.RequestURI()
	h.Logger.Debug("Route pending on status check",
		zap.String("path", uri),
		zap.String("requirement", req.String()),
		zap.Bool("tentative", v.Tentative))

	if isHTMX(c) {
		h.render(c, http.StatusOK, pages.Pending(pages.PendingProps{Tentative: v.Tentative, RetryURL: uri}))
		return
	}
	c.Header("Refresh", guard.RetryHeader(uri))
	layout := h.newLayoutData(c, "Loading", "", "", pages.Pending(pages.PendingProps{Tentative: v.Tentative}))
	layout.Session = v.Session
	layout.Nav = models.NavFor(v.Session)
	h.render(c, http.StatusOK, pages.LayoutPage(layout))
}
