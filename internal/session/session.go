package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserType is the role a backend identity carries. It decides which side of
// the portal the user lands on.
type UserType string

const (
	TypeCompany  UserType = "Company"
	TypePharmacy UserType = "Pharma"
	TypeOwner    UserType = "Owner"
)

// User is the backend's representation of the authenticated identity.
type User struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone,omitempty"`
	UserType UserType `json:"userType"`
}

// Session pairs a bearer token with the identity the backend resolved for it.
// User is nil while unresolved.
type Session struct {
	Token string
	User  *User
}

// Authenticated reports whether the session carries a resolved identity.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != "" && s.User != nil
}

// tokenClaims is the subset of backend JWT claims the gateway inspects.
type tokenClaims struct {
	UserType string `json:"userType"`
	jwt.RegisteredClaims
}

// TokenExpired inspects the token's exp claim without verifying the
// signature. The gateway does not hold the backend's signing key; identity
// is always confirmed by the profile fetch. This check only short-circuits
// the obvious case of a cookie that outlived its token.
func TokenExpired(token string, now time.Time) bool {
	var claims tokenClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		// Opaque (non-JWT) tokens are passed through to the backend.
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return now.After(claims.ExpiresAt.Time)
}
