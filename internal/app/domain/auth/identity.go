package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FACorreiaa/go-estateportal/internal/app/models"
)

type authority struct {
	Authority string `json:"authority"`
}

type backendUser struct {
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Nickname    string      `json:"nickname"`
	Username    string      `json:"username"`
	Authorities []authority `json:"authorities"`
}

// loginData is what the login endpoints echo back inside the envelope.
type loginData struct {
	backendUser
	User        *backendUser `json:"user"`
	AccessToken string       `json:"accessToken"`
	Token       string       `json:"token"`
}

type statusData struct {
	Authenticated bool         `json:"authenticated"`
	User          *backendUser `json:"user"`
}

func (u *backendUser) identity() *models.Identity {
	if u == nil {
		return nil
	}
	email := strings.TrimSpace(u.Email)
	name := firstNonEmpty(u.Name, u.Nickname, u.Username)
	if email == "" && name == "" {
		return nil
	}
	return &models.Identity{Email: email, DisplayName: name}
}

// role picks the backend-reported role, preferring the role of the endpoint
// that answered when the authorities include it.
func (u *backendUser) role(endpoint models.Role) models.Role {
	if u == nil || len(u.Authorities) == 0 {
		return endpoint
	}
	var first models.Role
	for _, a := range u.Authorities {
		r, ok := models.ParseRole(a.Authority)
		if !ok || r == models.RoleNone {
			continue
		}
		if r == endpoint {
			return r
		}
		if first == "" {
			first = r
		}
	}
	if first == "" {
		return endpoint
	}
	return first
}

func (d *loginData) identity() *models.Identity {
	if id := d.backendUser.identity(); id != nil {
		return id
	}
	if id := d.User.identity(); id != nil {
		return id
	}
	if tok := firstNonEmpty(d.AccessToken, d.Token); tok != "" {
		return identityFromToken(tok)
	}
	return nil
}

// identityFromToken reads identity claims from an access token the backend
// echoed. The signature is not checked: the backend is the only verifier and
// the claims are used for display only.
func identityFromToken(raw string) *models.Identity {
	token, _, err := jwt.NewParser().ParseUnverified(strings.TrimPrefix(raw, "Bearer "), jwt.MapClaims{})
	if err != nil {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	email := claimString(claims, "email")
	if email == "" {
		if sub, err := claims.GetSubject(); err == nil && strings.Contains(sub, "@") {
			email = sub
		}
	}
	name := firstNonEmpty(claimString(claims, "name"), claimString(claims, "nickname"), claimString(claims, "preferred_username"))
	if email == "" && name == "" {
		return nil
	}
	return &models.Identity{Email: email, DisplayName: name}
}

func claimString(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return strings.TrimSpace(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
