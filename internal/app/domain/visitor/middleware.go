package visitor

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-estateportal/internal/app/domain/guard"
)

const (
	idKey      = "visitor_id"
	contextKey = "portal.viewer"
)

// Middleware resolves the visitor id from the signed session cookie, issuing
// a new one when it is missing, and attaches the viewer and its guard.
// It must run after sessions.Sessions.
func Middleware(reg *Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		id, _ := s.Get(idKey).(string)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			s.Set(idKey, id)
			if err := s.Save(); err != nil {
				logger.Error("Failed to save visitor cookie", zap.Error(err))
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		}

		v, err := reg.Get(c.Request.Context(), id)
		if err != nil {
			logger.Error("Failed to create viewer", zap.String("visitor_id", id), zap.Error(err))
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Set(contextKey, v)
		guard.Attach(c, v.Guard)
		c.Next()
	}
}

// FromContext returns the viewer attached by Middleware.
func FromContext(c *gin.Context) (*Viewer, bool) {
	item, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	v, ok := item.(*Viewer)
	return v, ok && v != nil
}
