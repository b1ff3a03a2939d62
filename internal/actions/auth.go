package actions

import (
	"context"
	"net/http"

	"github.com/pharmalink/gateway/internal/session"
)

// Auth implements the authentication operations.
type Auth struct {
	api Caller
}

// NewAuth creates the auth action module.
func NewAuth(api Caller) *Auth {
	return &Auth{api: api}
}

// LoginInput is the credential payload for login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is the backend's answer to a successful login.
type LoginResult struct {
	Token string        `json:"token"`
	User  *session.User `json:"user,omitempty"`
}

// RegisterInput is the payload for account registration. Owner accounts are
// provisioned out of band, so self-registration only offers the two tenant
// roles.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone" validate:"omitempty,e164"`
	UserType string `json:"userType" validate:"required,oneof=Company Pharma"`
}

// ProfileInput is the payload for profile updates.
type ProfileInput struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,e164"`
}

// Login validates credentials locally and exchanges them for a token.
func (a *Auth) Login(ctx context.Context, in LoginInput) (Response[*LoginResult], error) {
	if resp := invalid[*LoginResult](in); resp != nil {
		return *resp, nil
	}
	return call[*LoginResult](ctx, a.api, http.MethodPost, "login", in, "")
}

// Register creates a new tenant account.
func (a *Auth) Register(ctx context.Context, in RegisterInput) (Response[*LoginResult], error) {
	if resp := invalid[*LoginResult](in); resp != nil {
		return *resp, nil
	}
	return call[*LoginResult](ctx, a.api, http.MethodPost, "register", in, "")
}

// Profile fetches the identity behind a token.
func (a *Auth) Profile(ctx context.Context, token string) (Response[*session.User], error) {
	return call[*session.User](ctx, a.api, http.MethodGet, "profile", nil, token)
}

// UpdateProfile changes the identity's own data. Callers invalidate the
// session cache entry afterwards; the profile is identity data.
func (a *Auth) UpdateProfile(ctx context.Context, token string, in ProfileInput) (Response[*session.User], error) {
	if resp := invalid[*session.User](in); resp != nil {
		return *resp, nil
	}
	return call[*session.User](ctx, a.api, http.MethodPut, "profile", in, token)
}

// Logout tells the backend to drop the token. Best-effort by contract: the
// caller clears local state regardless of the outcome.
func (a *Auth) Logout(ctx context.Context, token string) error {
	_, err := a.api.Do(ctx, http.MethodPost, "logout", nil, token)
	return err
}
