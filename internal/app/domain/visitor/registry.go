// Package visitor keeps one Viewer per browser visitor.
package visitor

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-estateportal/internal/app/domain/auth"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/guard"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/session"
	"github.com/FACorreiaa/go-estateportal/internal/app/models"
	"github.com/FACorreiaa/go-estateportal/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-estateportal/internal/pkg/backend"
	"github.com/FACorreiaa/go-estateportal/internal/pkg/config"
)

// Viewer is everything the portal holds for one visitor: a store, the
// gateway that writes it, the guard that reads it and a private backend
// client whose cookie jar carries the backend session.
type Viewer struct {
	ID      string
	Store   *session.Store
	Gateway *auth.Gateway
	Guard   *guard.Guard
	Client  *backend.Client
}

type Config struct {
	BackendURL         string
	BackendTimeout     time.Duration
	StatusCheckTimeout time.Duration
	DefaultRole        models.Role
	GuardWait          time.Duration
	FreshWindow        time.Duration
	ViewerTTL          time.Duration
	// Transport overrides the innermost backend transport.
	Transport http.RoundTripper
}

func ConfigFrom(cfg *config.Config) Config {
	return Config{
		BackendURL:         cfg.Backend.URL,
		BackendTimeout:     cfg.Backend.Timeout,
		StatusCheckTimeout: cfg.Backend.StatusCheckTimeout,
		DefaultRole:        cfg.Backend.DefaultRole,
		GuardWait:          cfg.Guard.Wait,
		FreshWindow:        cfg.Guard.FreshWindow,
		ViewerTTL:          cfg.Session.ViewerTTL,
	}
}

// Registry creates viewers on first sight and forgets them after ViewerTTL
// without a request.
type Registry struct {
	cfg     Config
	storage session.SnapshotStorage
	viewers *cache.Cache
	mu      sync.Mutex
	logger  *zap.Logger
}

func NewRegistry(cfg Config, storage session.SnapshotStorage, logger *zap.Logger) *Registry {
	if cfg.ViewerTTL <= 0 {
		cfg.ViewerTTL = 2 * time.Hour
	}
	r := &Registry{
		cfg:     cfg,
		storage: storage,
		viewers: cache.New(cfg.ViewerTTL, cfg.ViewerTTL/4+time.Second),
		logger:  logger,
	}
	r.viewers.OnEvicted(func(id string, _ interface{}) {
		metrics.Get().ActiveViewers.Add(context.Background(), -1)
		r.logger.Debug("Viewer evicted", zap.String("visitor_id", id))
	})
	return r
}

// Get returns the viewer for id, creating it and restoring its session
// snapshot when it is not known yet. Every call restarts the idle timer.
func (r *Registry) Get(ctx context.Context, id string) (*Viewer, error) {
	if v, ok := r.Lookup(id); ok {
		r.viewers.SetDefault(id, v)
		return v, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.Lookup(id); ok {
		return v, nil
	}

	v, err := r.newViewer(ctx, id)
	if err != nil {
		return nil, err
	}
	r.viewers.SetDefault(id, v)
	metrics.Get().ActiveViewers.Add(ctx, 1)
	return v, nil
}

// Lookup returns a known viewer without creating one.
func (r *Registry) Lookup(id string) (*Viewer, bool) {
	item, ok := r.viewers.Get(id)
	if !ok {
		return nil, false
	}
	v, ok := item.(*Viewer)
	return v, ok
}

// Len reports the number of live viewers.
func (r *Registry) Len() int {
	return r.viewers.ItemCount()
}

func (r *Registry) newViewer(ctx context.Context, id string) (*Viewer, error) {
	logger := r.logger.With(zap.String("visitor_id", id))

	client, err := backend.New(backend.Config{
		BaseURL:   r.cfg.BackendURL,
		Timeout:   r.cfg.BackendTimeout,
		Transport: r.cfg.Transport,
		Exempt:    auth.ExemptPaths(),
	})
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}

	store := session.NewStore(r.storage, session.SnapshotKey(id), logger)
	restored := store.Init(ctx)

	gateway := auth.NewGateway(client, store, auth.Config{
		DefaultRole:        r.cfg.DefaultRole,
		StatusCheckTimeout: r.cfg.StatusCheckTimeout,
	}, logger)
	client.SetAuthorizationHook(gateway)

	g := guard.New(store, gateway, guard.Config{
		Wait:        r.cfg.GuardWait,
		FreshWindow: r.cfg.FreshWindow,
	}, logger)

	logger.Debug("Viewer created",
		zap.Bool("restored", restored.Authenticated),
		zap.String("role", string(restored.Role)))
	return &Viewer{ID: id, Store: store, Gateway: gateway, Guard: g, Client: client}, nil
}

func (r *Registry) authenticated() []*Viewer {
	var out []*Viewer
	for _, item := range r.viewers.Items() {
		v, ok := item.Object.(*Viewer)
		if ok && v.Store.Get().Authenticated {
			out = append(out, v)
		}
	}
	return out
}

// Revalidate runs a status check for every signed-in viewer so sessions that
// expired on the backend reach open watchers. It returns how many were checked.
func (r *Registry) Revalidate(ctx context.Context) int {
	viewers := r.authenticated()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, v := range viewers {
		g.Go(func() error {
			if _, err := v.Gateway.CheckStatus(ctx); err != nil {
				r.logger.Debug("Revalidation signed viewer out", zap.String("visitor_id", v.ID), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return len(viewers)
}

// StartRevalidation runs Revalidate on the cron schedule until the returned
// func is called.
func (r *Registry) StartRevalidation(schedule string) (func(), error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		n := r.Revalidate(context.Background())
		if n > 0 {
			r.logger.Debug("Revalidated viewers", zap.Int("count", n))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid revalidation schedule %q: %w", schedule, err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
