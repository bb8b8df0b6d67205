package proxy

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPathOf(t *testing.T) {
	tests := map[string]string{
		"":                                    "",
		"http://portal.example.com/mypage?x=1": "/mypage?x=1",
		"http://portal.example.com":           "/",
		"/exchange":                           "/exchange",
	}
	for in, want := range tests {
		assert.Equal(t, want, pathOf(in), in)
	}
}

func TestRefererPathPrefersHTMXHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/trade/orders", nil)
	c.Request.Header.Set("Referer", "http://portal.example.com/account")
	assert.Equal(t, "/account", refererPath(c))

	c.Request.Header.Set("HX-Current-URL", "http://portal.example.com/exchange")
	assert.Equal(t, "/exchange", refererPath(c))
}

func TestForwardWithoutViewer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Any(Prefix+"/*path", NewHandler(zap.NewNop()).Forward)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/trade/orders", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestReservedAuthEndpoints(t *testing.T) {
	h := NewHandler(zap.NewNop())

	tests := []struct {
		path string
		want bool
	}{
		{"/customer/login", true},
		{"/customer/logout", true},
		{"/customer/status", true},
		{"/agent/login", true},
		{"/agent/logout", true},
		{"/agent/status", true},
		{"/Customer/Logout", true},
		{"/customer/logout/", true},
		{"/trade/../customer/logout", true},
		{"/subscription/mine", false},
		{"/agent/properties", false},
		{"/customer/profile", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, h.reserved(tt.path))
		})
	}
}
