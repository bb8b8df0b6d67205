// Package auth is the only code that calls the backend's login, logout and
// status endpoints.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-estateportal/internal/app/domain/session"
	"github.com/FACorreiaa/go-estateportal/internal/app/models"
	"github.com/FACorreiaa/go-estateportal/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-estateportal/internal/pkg/backend"
)

// Backend is the part of *backend.Client the gateway needs.
type Backend interface {
	Do(ctx context.Context, method, path string, body, out any) (*backend.Envelope, error)
	ResetSession()
}

const (
	opLogin  = "login"
	opLogout = "logout"
	opStatus = "status"
)

// Endpoint returns the backend path of op for role, e.g. /customer/login.
func Endpoint(role models.Role, op string) string {
	return "/" + role.Path() + "/" + op
}

// ExemptPaths are the auth endpoints whose 401/403 answers the gateway
// interprets itself instead of treating them as an implicit logout.
func ExemptPaths() []string {
	var paths []string
	for _, role := range []models.Role{models.RoleCustomer, models.RoleAgent} {
		for _, op := range []string{opLogin, opLogout, opStatus} {
			paths = append(paths, Endpoint(role, op))
		}
	}
	return paths
}

type Config struct {
	DefaultRole        models.Role
	StatusCheckTimeout time.Duration
}

// Gateway turns backend auth responses into Store updates for one viewer.
//
// Every call takes a ticket from a monotonic sequence. Login and logout mark
// their ticket as the latest action when issued and advance it again when they
// commit, so a request issued while they were in flight is also older. A
// result whose ticket is older than the latest action is dropped instead of
// written to the store.
type Gateway struct {
	client        Backend
	store         *session.Store
	defaultRole   models.Role
	statusTimeout time.Duration
	logger        *zap.Logger
	tracer        trace.Tracer
	now           func() time.Time

	flight singleflight.Group

	seqMu      sync.Mutex
	next       uint64
	lastAction uint64

	commitMu sync.Mutex
}

func NewGateway(client Backend, store *session.Store, cfg Config, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultRole != models.RoleAgent {
		cfg.DefaultRole = models.RoleCustomer
	}
	if cfg.StatusCheckTimeout <= 0 {
		cfg.StatusCheckTimeout = 5 * time.Second
	}
	return &Gateway{
		client:        client,
		store:         store,
		defaultRole:   cfg.DefaultRole,
		statusTimeout: cfg.StatusCheckTimeout,
		logger:        logger,
		tracer:        otel.Tracer("estate-portal/auth"),
		now:           time.Now,
	}
}

// Store returns the store the gateway writes to.
func (g *Gateway) Store() *session.Store { return g.store }

func (g *Gateway) issue(action bool) uint64 {
	g.seqMu.Lock()
	defer g.seqMu.Unlock()
	g.next++
	if action {
		g.lastAction = g.next
	}
	return g.next
}

func (g *Gateway) generation() uint64 {
	g.seqMu.Lock()
	defer g.seqMu.Unlock()
	return g.lastAction
}

// commit runs apply unless a newer login or logout was issued after ticket.
// An action commit starts a new generation once applied.
func (g *Gateway) commit(ctx context.Context, op string, ticket uint64, action bool, apply func()) bool {
	g.commitMu.Lock()
	defer g.commitMu.Unlock()

	if ticket < g.generation() {
		metrics.Get().StaleAuthResultsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
		g.logger.Debug("Dropping stale auth result", zap.String("operation", op), zap.Uint64("ticket", ticket))
		return false
	}
	apply()
	if action {
		g.issue(true)
	}
	return true
}

// Login sends creds to the role's login endpoint. On success the session is
// stored and returned; on failure the store is left as it was.
func (g *Gateway) Login(ctx context.Context, creds Credentials, role models.Role) (models.Session, error) {
	if role != models.RoleCustomer && role != models.RoleAgent {
		return models.Anonymous(), &AuthError{Reason: ReasonValidation, Message: "Please choose customer or agent"}
	}
	if err := creds.Validate(); err != nil {
		return models.Anonymous(), err
	}

	ctx, span := g.tracer.Start(ctx, "auth.Login", trace.WithAttributes(attribute.String("auth.role", string(role))))
	defer span.End()
	start := g.now()
	ticket := g.issue(true)

	var data loginData
	_, err := g.client.Do(ctx, http.MethodPost, Endpoint(role, opLogin), creds, &data)
	if err != nil {
		authErr := classify(err, "login failed")
		g.record(ctx, opLogin, authErr.Reason.String(), start)
		span.SetStatus(codes.Error, authErr.Error())
		g.logger.Warn("Login failed",
			zap.String("role", string(role)),
			zap.String("reason", authErr.Reason.String()),
			zap.Error(err))
		return models.Anonymous(), authErr
	}

	sess := models.NewAuthenticated(role, data.identity(), models.SourceFreshCheck, g.now())
	stored := g.commit(ctx, opLogin, ticket, true, func() {
		_ = g.store.Set(context.WithoutCancel(ctx), sess)
	})
	if !stored {
		g.record(ctx, opLogin, ReasonSuperseded.String(), start)
		return models.Anonymous(), &AuthError{Reason: ReasonSuperseded, Message: "login superseded by a newer auth action"}
	}

	g.record(ctx, opLogin, "success", start)
	g.logger.Info("Login succeeded", zap.String("role", string(role)), zap.String("email", sess.Email()))
	return sess, nil
}

// Logout calls the logout endpoint for the stored role, skipping the call when
// no role is known, and clears the store whatever the backend answered. The
// returned error is informational.
func (g *Gateway) Logout(ctx context.Context) error {
	ctx, span := g.tracer.Start(ctx, "auth.Logout")
	defer span.End()
	start := g.now()
	ticket := g.issue(true)
	role := g.store.Get().Role

	var callErr error
	if role != models.RoleNone {
		span.SetAttributes(attribute.String("auth.role", string(role)))
		if _, err := g.client.Do(ctx, http.MethodPost, Endpoint(role, opLogout), nil, nil); err != nil {
			callErr = classify(err, "logout request failed")
			span.SetStatus(codes.Error, callErr.Error())
			g.logger.Warn("Logout request failed, clearing local session anyway", zap.Error(err))
		}
	}

	g.commit(ctx, opLogout, ticket, true, func() {
		g.client.ResetSession()
		g.store.Clear(context.WithoutCancel(ctx))
	})

	outcome := "success"
	if callErr != nil {
		outcome = "cleared_offline"
	}
	g.record(ctx, opLogout, outcome, start)
	return callErr
}

// CheckStatus asks the backend whether the viewer is signed in. Concurrent
// callers share one request, which is not cancelled when a caller gives up and
// is bounded by the status check timeout. Any answer other than
// "authenticated" clears the store and yields the anonymous session; the error
// only says why.
func (g *Gateway) CheckStatus(ctx context.Context) (models.Session, error) {
	key := fmt.Sprintf("status:%d", g.generation())
	ch := g.flight.DoChan(key, func() (any, error) {
		sess, err := g.checkStatus(context.WithoutCancel(ctx))
		return sess, err
	})

	select {
	case res := <-ch:
		sess, _ := res.Val.(models.Session)
		return sess, res.Err
	case <-ctx.Done():
		return g.store.Get(), ctx.Err()
	}
}

func (g *Gateway) checkStatus(ctx context.Context) (models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, g.statusTimeout)
	defer cancel()

	role := g.store.Get().Role
	if role == models.RoleNone {
		role = g.defaultRole
	}
	ctx, span := g.tracer.Start(ctx, "auth.CheckStatus", trace.WithAttributes(attribute.String("auth.role", string(role))))
	defer span.End()
	start := g.now()
	ticket := g.issue(false)

	var data statusData
	_, err := g.client.Do(ctx, http.MethodGet, Endpoint(role, opStatus), nil, &data)
	writeCtx := context.WithoutCancel(ctx)

	if err == nil && data.Authenticated {
		sess := models.NewAuthenticated(data.User.role(role), data.User.identity(), models.SourceFreshCheck, g.now())
		if !g.commit(ctx, opStatus, ticket, false, func() { _ = g.store.Set(writeCtx, sess) }) {
			g.record(ctx, opStatus, ReasonSuperseded.String(), start)
			return g.store.Get(), nil
		}
		g.record(ctx, opStatus, "authenticated", start)
		return sess, nil
	}

	var authErr *AuthError
	outcome := "anonymous"
	if err != nil {
		authErr = classify(err, "status check failed")
		outcome = authErr.Reason.String()
		span.SetStatus(codes.Error, authErr.Error())
		if !backend.IsAuthorization(err) {
			g.logger.Warn("Status check failed, assuming signed out", zap.String("role", string(role)), zap.Error(err))
		}
	}
	if !g.commit(ctx, opStatus, ticket, false, func() { g.store.Clear(writeCtx) }) {
		g.record(ctx, opStatus, ReasonSuperseded.String(), start)
		return g.store.Get(), nil
	}
	g.record(ctx, opStatus, outcome, start)
	if authErr != nil {
		return models.Anonymous(), authErr
	}
	return models.Anonymous(), nil
}

// Invalidate clears the session after an authorization failure on an API
// call. A login or logout issued later is not undone.
func (g *Gateway) Invalidate(ctx context.Context) {
	g.AuthorizationFailed(ctx, "", g.RequestIssued())
}

// RequestIssued hands out a ticket for a backend request.
func (g *Gateway) RequestIssued() uint64 {
	return g.issue(false)
}

// AuthorizationFailed is called by the backend client for 401/403 answers.
func (g *Gateway) AuthorizationFailed(ctx context.Context, path string, ticket uint64) {
	metrics.Get().AuthzFailuresTotal.Add(ctx, 1)
	cleared := g.commit(ctx, "invalidate", ticket, false, func() {
		g.client.ResetSession()
		g.store.Clear(ctx)
	})
	if cleared {
		g.logger.Info("Backend rejected the session, signed out locally", zap.String("path", path))
	}
}

func (g *Gateway) record(ctx context.Context, op, outcome string, start time.Time) {
	attrs := metric.WithAttributes(attribute.String("operation", op), attribute.String("outcome", outcome))
	m := metrics.Get()
	m.AuthRequestsTotal.Add(ctx, 1, attrs)
	m.AuthRequestDuration.Record(ctx, g.now().Sub(start).Seconds(), metric.WithAttributes(attribute.String("operation", op)))
}

func classify(err error, message string) *AuthError {
	var be *backend.Error
	if errors.As(err, &be) {
		if be.ServerSide() {
			return &AuthError{Reason: ReasonNetwork, Message: message, Err: err}
		}
		return &AuthError{Reason: ReasonRejected, Message: message, Err: err}
	}
	return &AuthError{Reason: ReasonNetwork, Message: message, Err: err}
}
