package portal

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-estateportal/internal/app/domain/guard"
	"github.com/FACorreiaa/go-estateportal/internal/app/models"
)

func TestLandingPath(t *testing.T) {
	assert.Equal(t, "/mypage", LandingPath(models.RoleCustomer))
	assert.Equal(t, "/agent", LandingPath(models.RoleAgent))
	assert.Equal(t, "/", LandingPath(models.RoleNone))
}

func TestAfterLogin(t *testing.T) {
	h := NewAuthHandlers(NewBaseHandler(zap.NewNop()), models.RoleCustomer)

	tests := []struct {
		name string
		next string
		role models.Role
		want string
	}{
		{"local next wins", "/exchange?tab=buy", models.RoleCustomer, "/exchange?tab=buy"},
		{"empty next uses landing", "", models.RoleAgent, "/agent"},
		{"absolute url rejected", "https://evil.example.com/", models.RoleCustomer, "/mypage"},
		{"protocol relative rejected", "//evil.example.com", models.RoleCustomer, "/mypage"},
		{"login page is not a target", "/auth/login?next=/x", models.RoleCustomer, "/mypage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.afterLogin(tt.next, tt.role))
		})
	}
}

func TestWatchURL(t *testing.T) {
	raw := WatchURL(guard.RequireAgent, "/agent/properties")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, WatchPath, u.Path)
	assert.Equal(t, "agent", u.Query().Get("require"))
	assert.Equal(t, "/agent/properties", u.Query().Get("next"))

	u, err = url.Parse(WatchURL(guard.RequireCustomer, "https://evil.example.com"))
	require.NoError(t, err)
	assert.Empty(t, u.Query().Get("next"))
}

func TestNewSessionView(t *testing.T) {
	checked := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("KST", 9*3600))
	view := newSessionView(models.NewAuthenticated(models.RoleAgent,
		&models.Identity{Email: "max@agency.example"}, models.SourceFreshCheck, checked))

	assert.True(t, view.Authenticated)
	assert.Equal(t, models.RoleAgent, view.Role)
	assert.Equal(t, "max@agency.example", view.DisplayName)
	assert.Equal(t, "FRESH_CHECK", view.Source)
	require.NotNil(t, view.CheckedAt)
	assert.Equal(t, time.UTC, view.CheckedAt.Location())

	anon := newSessionView(models.Anonymous())
	assert.False(t, anon.Authenticated)
	assert.Equal(t, models.RoleNone, anon.Role)
	assert.Nil(t, anon.CheckedAt)
}

func TestRenderPageWithoutViewer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewPageHandlers(NewBaseHandler(zap.NewNop()))

	t.Run("full page gets the public layout", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		h.Home(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "<!DOCTYPE html>")
		assert.Contains(t, w.Body.String(), `href="/auth/login"`)
	})

	t.Run("htmx gets the fragment only", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("HX-Request", "true")
		h.Home(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "<!DOCTYPE html>")
		assert.Contains(t, w.Body.String(), `id="home"`)
	})

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/nope", nil)
		h.NotFound(c)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAuthHandlersNeedAViewer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandlers(NewBaseHandler(zap.NewNop()), models.RoleCustomer)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/session", nil)
	h.Session(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
