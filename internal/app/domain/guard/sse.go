package guard

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const heartbeatInterval = 25 * time.Second

// WatchHandler streams a single "redirect" event when the viewer's session no
// longer satisfies the requirement in ?require=. Pages open it with EventSource.
func WatchHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := ParseRequirement(c.Query("require"))
		if !ok {
			c.String(http.StatusBadRequest, "unknown requirement")
			return
		}
		g, ok := FromContext(c)
		if !ok {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		next := c.Query("next")

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			logger.Error("Response writer does not support flushing")
			c.String(http.StatusInternalServerError, "Streaming not supported")
			return
		}
		c.Status(http.StatusOK)
		fmt.Fprint(c.Writer, ": watching\n\n")
		flusher.Flush()

		ctx := c.Request.Context()
		verdicts := g.Watch(ctx, req)
		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case v, ok := <-verdicts:
				if !ok {
					return
				}
				target := v.Redirect
				if target == LoginPath {
					target = LoginRedirect(next)
				}
				logger.Info("Session no longer satisfies watched route",
					zap.String("requirement", req.String()),
					zap.String("redirect", target))
				fmt.Fprintf(c.Writer, "event: redirect\ndata: %s\n\n", target)
				flusher.Flush()
				return
			case <-heartbeat.C:
				fmt.Fprint(c.Writer, ": ping\n\n")
				flusher.Flush()
			case <-ctx.Done():
				return
			}
		}
	}
}
