package visitor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-estateportal/internal/app/domain/auth"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/guard"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/session"
	"github.com/FACorreiaa/go-estateportal/internal/app/models"
)

func authCreds() auth.Credentials {
	return auth.Credentials{Email: "jane@example.com", Password: "s3cret"}
}

func newTestRegistry(t *testing.T, backendHandler http.HandlerFunc, storage session.SnapshotStorage) *Registry {
	t.Helper()
	srv := httptest.NewServer(backendHandler)
	t.Cleanup(srv.Close)
	return NewRegistry(Config{
		BackendURL:         srv.URL,
		BackendTimeout:     2 * time.Second,
		StatusCheckTimeout: time.Second,
		DefaultRole:        models.RoleCustomer,
		GuardWait:          500 * time.Millisecond,
		FreshWindow:        time.Minute,
		ViewerTTL:          time.Hour,
	}, storage, zap.NewNop())
}

func TestRegistryReturnsSameViewer(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, _ *http.Request) {}, session.NewMemoryStorage(time.Hour))
	ctx := context.Background()

	a, err := reg.Get(ctx, "9d1f0c1e-0000-4000-8000-000000000001")
	require.NoError(t, err)
	b, err := reg.Get(ctx, "9d1f0c1e-0000-4000-8000-000000000001")
	require.NoError(t, err)
	c, err := reg.Get(ctx, "9d1f0c1e-0000-4000-8000-000000000002")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.NotSame(t, a.Client, c.Client)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryRestoresSnapshot(t *testing.T) {
	storage := session.NewMemoryStorage(time.Hour)
	id := "9d1f0c1e-0000-4000-8000-000000000003"
	seed := session.NewStore(storage, session.SnapshotKey(id), zap.NewNop())
	require.NoError(t, seed.Set(context.Background(), models.NewAuthenticated(models.RoleAgent,
		&models.Identity{Email: "max@agency.example", DisplayName: "Max"}, models.SourceFreshCheck, time.Now())))

	reg := newTestRegistry(t, func(w http.ResponseWriter, _ *http.Request) {}, storage)
	v, err := reg.Get(context.Background(), id)
	require.NoError(t, err)

	got := v.Store.Get()
	assert.True(t, got.Authenticated)
	assert.Equal(t, models.RoleAgent, got.Role)
	assert.Equal(t, models.SourceCached, got.Source)
}

func TestRevalidateSignsOutExpiredViewers(t *testing.T) {
	var statusCalls atomic.Int32
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/customer/login":
			_, _ = io.WriteString(w, `{"status":200,"data":{"email":"jane@example.com"}}`)
		case "/customer/status":
			statusCalls.Add(1)
			_, _ = io.WriteString(w, `{"status":200,"data":{"authenticated":false}}`)
		}
	}, session.NewMemoryStorage(time.Hour))
	ctx := context.Background()

	signedIn, err := reg.Get(ctx, "9d1f0c1e-0000-4000-8000-000000000004")
	require.NoError(t, err)
	_, err = signedIn.Gateway.Login(ctx, authCreds(), models.RoleCustomer)
	require.NoError(t, err)
	_, err = reg.Get(ctx, "9d1f0c1e-0000-4000-8000-000000000005")
	require.NoError(t, err)

	watch := signedIn.Guard.Watch(ctx, guard.RequireCustomer)

	assert.Equal(t, 1, reg.Revalidate(ctx))
	assert.EqualValues(t, 1, statusCalls.Load())
	assert.False(t, signedIn.Store.Get().Authenticated)

	select {
	case v := <-watch:
		assert.Equal(t, guard.StateDenied, v.State)
	case <-time.After(time.Second):
		t.Fatal("watcher was not told about the expired session")
	}
}

func TestStartRevalidationRejectsBadSchedule(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, _ *http.Request) {}, session.NewMemoryStorage(time.Hour))
	_, err := reg.StartRevalidation("every now and then")
	assert.Error(t, err)

	stop, err := reg.StartRevalidation("@every 1h")
	require.NoError(t, err)
	stop()
}

func TestMiddlewareAssignsStableVisitor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := newTestRegistry(t, func(w http.ResponseWriter, _ *http.Request) {}, session.NewMemoryStorage(time.Hour))

	r := gin.New()
	store := cookie.NewStore([]byte("0123456789abcdef0123456789abcdef"))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions("portal_visitor", store))
	r.Use(Middleware(reg, zap.NewNop()))
	r.GET("/whoami", func(c *gin.Context) {
		v, ok := FromContext(c)
		require.True(t, ok)
		_, hasGuard := guard.FromContext(c)
		assert.True(t, hasGuard)
		c.String(http.StatusOK, v.ID)
	})

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, http.StatusOK, first.Code)
	cookies := first.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	second := httptest.NewRecorder()
	r.ServeHTTP(second, req)

	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, reg.Len())

	third := httptest.NewRecorder()
	r.ServeHTTP(third, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.NotEqual(t, first.Body.String(), third.Body.String())
	assert.Equal(t, 2, reg.Len())
}
