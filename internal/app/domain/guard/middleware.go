package guard

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-estateportal/internal/app/observability/metrics"
)

const (
	contextKey = "portal.guard"
	verdictKey = "portal.verdict"
)

// Attach stores the viewer's guard on the request.
func Attach(c *gin.Context, g *Guard) {
	c.Set(contextKey, g)
}

// FromContext returns the guard stored by Attach.
func FromContext(c *gin.Context) (*Guard, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	g, ok := v.(*Guard)
	return g, ok && g != nil
}

// VerdictFromContext returns the ALLOWED verdict Protect let through.
func VerdictFromContext(c *gin.Context) (Verdict, bool) {
	v, ok := c.Get(verdictKey)
	if !ok {
		return Verdict{}, false
	}
	verdict, ok := v.(Verdict)
	return verdict, ok
}

// PendingRenderer writes the page shown while a verdict is PENDING.
type PendingRenderer func(c *gin.Context, req Requirement, v Verdict)

// Protect gates the rest of the chain on req. Handlers after it only run for
// ALLOWED verdicts.
func Protect(req Requirement, pending PendingRenderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		g, ok := FromContext(c)
		if !ok {
			zap.L().Error("Protected route reached without a guard", zap.String("path", c.FullPath()))
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		v := g.Evaluate(c.Request.Context(), req)
		metrics.Get().GuardVerdictsTotal.Add(c.Request.Context(), 1, metric.WithAttributes(
			attribute.String("state", v.State.String()),
			attribute.String("requirement", req.String()),
			attribute.Bool("tentative", v.Tentative),
		))

		switch v.State {
		case StateAllowed:
			c.Set(verdictKey, v)
			c.Next()
		case StateDenied:
			target := v.Redirect
			if target == LoginPath {
				target = LoginRedirect(c.Request.URL.RequestURI())
			}
			Redirect(c, target, v.Redirect == LoginPath)
		default:
			c.Header("Cache-Control", "no-store")
			pending(c, req, v)
			c.Abort()
		}
	}
}

// Redirect sends the browser to target. HTMX requests get HX-Redirect with
// 401 when unauthenticated or 403 for a role mismatch.
func Redirect(c *gin.Context, target string, unauthenticated bool) {
	if c.GetHeader("HX-Request") == "true" {
		c.Header("HX-Redirect", target)
		status := http.StatusForbidden
		if unauthenticated {
			status = http.StatusUnauthorized
		}
		c.AbortWithStatus(status)
		return
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

// RetryAfter is how soon the pending page asks for the route again.
const RetryAfter = time.Second

// RetryHeader is the Refresh header value for the pending page.
func RetryHeader(url string) string {
	return fmt.Sprintf("%d; url=%s", int(RetryAfter/time.Second), url)
}
