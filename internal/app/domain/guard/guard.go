// Package guard decides whether a viewer may see a protected page.
package guard

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/FACorreiaa/go-estateportal/internal/app/domain/session"
	"github.com/FACorreiaa/go-estateportal/internal/app/models"
)

type State int

const (
	StatePending State = iota
	StateAllowed
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateAllowed:
		return "ALLOWED"
	case StateDenied:
		return "DENIED"
	}
	return "PENDING"
}

// Requirement is what a protected route asks of the session.
type Requirement int

const (
	RequireAuthenticated Requirement = iota
	RequireCustomer
	RequireAgent
)

func (r Requirement) String() string {
	switch r {
	case RequireCustomer:
		return "customer"
	case RequireAgent:
		return "agent"
	}
	return "any"
}

// ParseRequirement is the inverse of Requirement.String.
func ParseRequirement(raw string) (Requirement, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "customer":
		return RequireCustomer, true
	case "agent":
		return RequireAgent, true
	case "any", "":
		return RequireAuthenticated, true
	}
	return RequireAuthenticated, false
}

const (
	LoginPath = "/auth/login"
	HomePath  = "/"
)

// Verdict is the outcome of one evaluation.
type Verdict struct {
	State State
	// Tentative marks a PENDING verdict backed by a cached session.
	Tentative bool
	// Redirect is set for DENIED verdicts.
	Redirect string
	Session  models.Session
}

// Decide checks sess against req without any I/O.
func Decide(sess models.Session, req Requirement) Verdict {
	if !sess.Authenticated {
		return Verdict{State: StateDenied, Redirect: LoginPath, Session: sess}
	}
	switch {
	case req == RequireCustomer && sess.Role != models.RoleCustomer,
		req == RequireAgent && sess.Role != models.RoleAgent:
		return Verdict{State: StateDenied, Redirect: HomePath, Session: sess}
	}
	return Verdict{State: StateAllowed, Session: sess}
}

// LoginRedirect returns the login path carrying next, when next is a local path.
func LoginRedirect(next string) string {
	if !SafeNext(next) || next == LoginPath {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// SafeNext reports whether next is a same-origin absolute path.
func SafeNext(next string) bool {
	return strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, "/\\")
}

// StatusChecker is satisfied by *auth.Gateway.
type StatusChecker interface {
	CheckStatus(ctx context.Context) (models.Session, error)
}

type Config struct {
	// Wait bounds how long Evaluate blocks on a status check.
	Wait time.Duration
	// FreshWindow is how long a confirmed session is decided on without a new check.
	FreshWindow time.Duration
}

// Guard evaluates requirements against one viewer's store.
type Guard struct {
	store       *session.Store
	checker     StatusChecker
	wait        time.Duration
	freshWindow time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

func New(store *session.Store, checker StatusChecker, cfg Config, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		store:       store,
		checker:     checker,
		wait:        cfg.Wait,
		freshWindow: cfg.FreshWindow,
		now:         time.Now,
		logger:      logger,
	}
}

func (g *Guard) fresh(sess models.Session) bool {
	if !sess.Authenticated || sess.Source != models.SourceFreshCheck || sess.CheckedAt.IsZero() {
		return false
	}
	return g.now().Sub(sess.CheckedAt) <= g.freshWindow
}

// Evaluate returns ALLOWED or DENIED when the session was confirmed recently
// or a status check settles within the wait; otherwise PENDING, with the check
// left running so the next evaluation can use its result.
func (g *Guard) Evaluate(ctx context.Context, req Requirement) Verdict {
	sess := g.store.Get()
	if g.fresh(sess) {
		return Decide(sess, req)
	}

	tentative := sess.Authenticated && sess.Source == models.SourceCached
	result := make(chan models.Session, 1)
	go func() {
		checked, err := g.checker.CheckStatus(context.WithoutCancel(ctx))
		if err != nil {
			g.logger.Debug("Status check during guard evaluation failed", zap.Error(err))
		}
		result <- checked
	}()

	pending := Verdict{State: StatePending, Tentative: tentative, Session: sess}
	if g.wait <= 0 {
		return pending
	}
	timer := time.NewTimer(g.wait)
	defer timer.Stop()

	select {
	case checked := <-result:
		return Decide(checked, req)
	case <-timer.C:
		return pending
	case <-ctx.Done():
		return pending
	}
}

// Watch emits a DENIED verdict once the session stops satisfying req, then
// closes. It closes without a value when ctx ends.
func (g *Guard) Watch(ctx context.Context, req Requirement) <-chan Verdict {
	out := make(chan Verdict, 1)
	updates, cancel := g.store.Subscribe()

	go func() {
		defer close(out)
		defer cancel()

		if v := Decide(g.store.Get(), req); v.State == StateDenied {
			out <- v
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case sess, ok := <-updates:
				if !ok {
					return
				}
				if v := Decide(sess, req); v.State == StateDenied {
					out <- v
					return
				}
			}
		}
	}()
	return out
}
