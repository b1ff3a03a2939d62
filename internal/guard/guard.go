package guard

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pharmalink/gateway/internal/session"
)

// Decision is the outcome of evaluating a navigation against the session.
type Decision int

const (
	// DecisionAllow renders the requested page unchanged.
	DecisionAllow Decision = iota
	// DecisionLogin redirects an unauthenticated navigation to the login page.
	DecisionLogin
	// DecisionDashboard redirects an authenticated user away from auth pages
	// to their role dashboard.
	DecisionDashboard
	// DecisionRoleRoot redirects a navigation whose path prefix does not
	// belong to the user's role.
	DecisionRoleRoot
)

// RoleRoutes describes where a role lives in the URL scheme.
type RoleRoutes struct {
	// Dashboard is the landing page after login.
	Dashboard string
	// Root is the role's home, target of cross-role redirects.
	Root string
	// Prefixes are the path prefixes this role may browse.
	Prefixes []string
}

// Policy is the authorization table the guard checks navigations against.
// Roles map explicitly to route prefixes; adding a role means adding a table
// row, not matching naming conventions.
type Policy struct {
	// AuthPrefix marks the unauthenticated area (login, register).
	AuthPrefix string
	// LoginPath is the redirect target for unauthenticated navigations.
	LoginPath string
	// Roles maps each user type to its routes.
	Roles map[session.UserType]RoleRoutes
}

// DefaultPolicy returns the portal's route table.
func DefaultPolicy() Policy {
	return Policy{
		AuthPrefix: "/auth",
		LoginPath:  "/auth/login",
		Roles: map[session.UserType]RoleRoutes{
			session.TypeCompany: {
				Dashboard: "/company/dashboard",
				Root:      "/company",
				Prefixes:  []string{"/company"},
			},
			session.TypePharmacy: {
				Dashboard: "/pharmacy/dashboard",
				Root:      "/pharmacy",
				Prefixes:  []string{"/pharmacy"},
			},
			session.TypeOwner: {
				Dashboard: "/owner/dashboard",
				Root:      "/owner",
				Prefixes:  []string{"/owner"},
			},
		},
	}
}

// SessionSource is the slice of the session store the guard reads through.
type SessionSource interface {
	Current(ctx context.Context, token string) *session.Session
	Revalidate(ctx context.Context, token string) *session.Session
}

// Guard enforces authentication and role-route matching on every page
// navigation, independent of what individual pages do.
type Guard struct {
	policy     Policy
	sessions   SessionSource
	cookieName string
	logger     *slog.Logger
}

// New creates a Guard using the given policy and session source.
func New(policy Policy, sessions SessionSource, cookieName string, logger *slog.Logger) *Guard {
	return &Guard{
		policy:     policy,
		sessions:   sessions,
		cookieName: cookieName,
		logger:     logger,
	}
}

// Evaluate runs the redirect matrix for one navigation and returns exactly
// one outcome: login redirect, dashboard redirect, role-root redirect, or
// allow.
func (g *Guard) Evaluate(ctx context.Context, token, path string) (Decision, string) {
	authPath := g.isAuthPath(path)

	var sess *session.Session
	if token != "" {
		if authPath {
			sess = g.sessions.Current(ctx, token)
		} else {
			// Navigation into a protected area revalidates identity, so a
			// token revoked or expired server-side while the tab sat idle is
			// caught here rather than on the next data fetch.
			sess = g.sessions.Revalidate(ctx, token)
		}
	}

	if !sess.Authenticated() {
		if authPath {
			return DecisionAllow, ""
		}
		return DecisionLogin, g.policy.LoginPath
	}

	routes, known := g.policy.Roles[sess.User.UserType]
	if !known {
		// A role the table does not know gets no access at all; logging in
		// again cannot make it worse and surfaces the misconfiguration.
		g.logger.WarnContext(ctx, "session carries unknown role, denying",
			slog.String("user_type", string(sess.User.UserType)),
			slog.String("user_id", sess.User.ID),
		)
		return DecisionLogin, g.policy.LoginPath
	}

	if authPath {
		return DecisionDashboard, routes.Dashboard
	}

	if !pathAllowed(path, routes.Prefixes) {
		return DecisionRoleRoot, routes.Root
	}

	return DecisionAllow, ""
}

// Middleware applies the guard to page navigations. Redirect decisions are
// only made from a settled session read; the store resolves synchronously so
// there is no loading state to render here.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromCookie(r, g.cookieName)

		decision, target := g.Evaluate(r.Context(), token, r.URL.Path)
		if decision == DecisionAllow {
			next.ServeHTTP(w, r)
			return
		}

		g.logger.DebugContext(r.Context(), "guard redirect",
			slog.String("path", r.URL.Path),
			slog.String("target", target),
		)
		http.Redirect(w, r, target, http.StatusFound)
	})
}

func (g *Guard) isAuthPath(path string) bool {
	return path == g.policy.AuthPrefix || strings.HasPrefix(path, g.policy.AuthPrefix+"/")
}

// pathAllowed checks the path against the role's prefixes on segment
// boundaries, so "/company-x" does not pass as "/company".
func pathAllowed(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func tokenFromCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	value, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return value
}
