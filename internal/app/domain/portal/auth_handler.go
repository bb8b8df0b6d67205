package portal

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-estateportal/internal/app/domain/auth"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/guard"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/pages"
	"github.com/FACorreiaa/go-estateportal/internal/app/domain/visitor"
	"github.com/FACorreiaa/go-estateportal/internal/app/models"
)

type loginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
	Role     string `form:"role"`
	Next     string `form:"next"`
}

// SessionView is the JSON shape of GET /session.
type SessionView struct {
	Authenticated bool        `json:"authenticated"`
	Role          models.Role `json:"role"`
	Email         string      `json:"email,omitempty"`
	DisplayName   string      `json:"displayName,omitempty"`
	Source        string      `json:"source"`
	CheckedAt     *time.Time  `json:"checkedAt,omitempty"`
}

func newSessionView(s models.Session) SessionView {
	view := SessionView{
		Authenticated: s.Authenticated,
		Role:          s.Role,
		Email:         s.Email(),
		DisplayName:   s.DisplayName(),
		Source:        s.Source.String(),
	}
	if !s.CheckedAt.IsZero() {
		at := s.CheckedAt.UTC()
		view.CheckedAt = &at
	}
	return view
}

// LandingPath is where a role goes after signing in.
func LandingPath(role models.Role) string {
	switch role {
	case models.RoleCustomer:
		return "/mypage"
	case models.RoleAgent:
		return "/agent"
	}
	return guard.HomePath
}

type AuthHandlers struct {
	*BaseHandler
	defaultRole models.Role
}

func NewAuthHandlers(base *BaseHandler, defaultRole models.Role) *AuthHandlers {
	return &AuthHandlers{BaseHandler: base, defaultRole: defaultRole}
}

func (h *AuthHandlers) viewer(c *gin.Context) (*visitor.Viewer, bool) {
	v, ok := visitor.FromContext(c)
	if !ok {
		h.Logger.Error("Auth route reached without a viewer", zap.String("path", c.Request.URL.Path))
		c.AbortWithStatus(http.StatusInternalServerError)
	}
	return v, ok
}

func (h *AuthHandlers) LoginPage(c *gin.Context) {
	v, ok := h.viewer(c)
	if !ok {
		return
	}
	next := c.Query("next")
	if sess := v.Store.Get(); sess.Authenticated && sess.Source == models.SourceFreshCheck {
		c.Redirect(http.StatusFound, h.afterLogin(next, sess.Role))
		return
	}

	role, ok := models.ParseRole(c.Query("role"))
	if !ok || role == models.RoleNone {
		role = h.defaultRole
	}
	if !guard.SafeNext(next) {
		next = ""
	}
	h.RenderPage(c, "Sign in", "Sign In", pages.LoginPage(pages.LoginProps{Next: next, Role: role}))
}

// Login handles the sign-in form. HTMX submissions get a banner swapped into
// #login-response on failure and an HX-Redirect on success.
func (h *AuthHandlers) Login(c *gin.Context) {
	v, ok := h.viewer(c)
	if !ok {
		return
	}

	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.Logger.Warn("Failed to bind login form", zap.Error(err))
	}
	role := h.defaultRole
	if strings.TrimSpace(form.Role) != "" {
		role, _ = models.ParseRole(form.Role)
	}

	h.Logger.Info("Login attempt",
		zap.String("role", string(role)),
		zap.String("remote_addr", c.ClientIP()))

	sess, err := v.Gateway.Login(c.Request.Context(), auth.Credentials{Email: form.Email, Password: form.Password}, role)
	if err != nil {
		h.loginFailed(c, form, role, err)
		return
	}

	target := h.afterLogin(form.Next, sess.Role)
	if isHTMX(c) {
		c.Header("HX-Redirect", target)
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (h *AuthHandlers) afterLogin(next string, role models.Role) string {
	if guard.SafeNext(next) && !strings.HasPrefix(next, guard.LoginPath) {
		return next
	}
	return LandingPath(role)
}

func (h *AuthHandlers) loginFailed(c *gin.Context, form loginForm, role models.Role, err error) {
	status := http.StatusBadGateway
	message := "We could not reach the server. Please try again in a moment."
	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		message = authErr.UserMessage()
		switch authErr.Reason {
		case auth.ReasonValidation:
			status = http.StatusBadRequest
		case auth.ReasonRejected:
			status = http.StatusUnauthorized
		case auth.ReasonSuperseded:
			status = http.StatusConflict
		}
	}
	notice := pages.BannerProps{ID: "login-error", Type: pages.BannerError, Message: message}

	if isHTMX(c) {
		// htmx only swaps 2xx responses.
		c.Header("HX-Retarget", "#login-response")
		c.Header("HX-Reswap", "innerHTML")
		h.render(c, http.StatusOK, pages.Banner(notice))
		return
	}
	if !guard.SafeNext(form.Next) {
		form.Next = ""
	}
	h.renderPage(c, status, "Sign in", "Sign In", "", pages.LoginPage(pages.LoginProps{
		Next:   form.Next,
		Role:   role,
		Email:  form.Email,
		Notice: &notice,
	}))
}

// Logout always signs the viewer out locally, even when the backend call fails.
func (h *AuthHandlers) Logout(c *gin.Context) {
	v, ok := h.viewer(c)
	if !ok {
		return
	}
	if err := v.Gateway.Logout(c.Request.Context()); err != nil {
		h.Logger.Warn("Backend logout failed", zap.String("visitor_id", v.ID), zap.Error(err))
	}
	if isHTMX(c) {
		c.Header("HX-Redirect", guard.HomePath)
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, guard.HomePath)
}

// Session reports the viewer's session. ?refresh=true asks the backend first.
func (h *AuthHandlers) Session(c *gin.Context) {
	v, ok := h.viewer(c)
	if !ok {
		return
	}
	sess := v.Store.Get()
	if c.Query("refresh") == "true" {
		var err error
		sess, err = v.Gateway.CheckStatus(c.Request.Context())
		if err != nil {
			h.Logger.Debug("Status check for session view failed", zap.Error(err))
		}
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, newSessionView(sess))
}
