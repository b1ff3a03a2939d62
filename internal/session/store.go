package session

import (
	"context"
	"log/slog"
	"time"
)

// Fetcher resolves a bearer token to the identity the backend knows for it.
type Fetcher interface {
	FetchUser(ctx context.Context, token string) (*User, error)
}

// Recorder receives auth lifecycle notifications (audit events). A nil
// Recorder disables auditing.
type Recorder interface {
	LoginSucceeded(ctx context.Context, u *User)
	LoggedOut(ctx context.Context, u *User)
}

// Store is the single authority on "who is logged in as what role". Every
// component that needs identity reads through it; nothing else calls the
// profile endpoint directly.
//
// Per token the store is a three-state machine: unknown (no entry),
// authenticated (entry with user), unauthenticated (entry marked failed or
// with no user). Resolution happens at most once per staleness window and a
// failed resolution is never retried implicitly.
type Store struct {
	cache     Cache
	fetcher   Fetcher
	staleness time.Duration
	audit     Recorder
	logger    *slog.Logger
	nowFunc   func() time.Time // injectable clock for testing
}

// NewStore creates a session store. audit may be nil.
func NewStore(cache Cache, fetcher Fetcher, staleness time.Duration, audit Recorder, logger *slog.Logger) *Store {
	return &Store{
		cache:     cache,
		fetcher:   fetcher,
		staleness: staleness,
		audit:     audit,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// Current returns the session for a token, resolving it against the backend
// when no fresh cached resolution exists. A nil return means
// unauthenticated; resolution failures are swallowed here, they are an
// expected branch, not an error.
func (s *Store) Current(ctx context.Context, token string) *Session {
	return s.resolve(ctx, token, false)
}

// Revalidate forces a fresh resolution regardless of cache freshness. The
// guard calls this when navigation enters a protected area, so a cookie that
// expired server-side while the tab was idle is caught.
func (s *Store) Revalidate(ctx context.Context, token string) *Session {
	return s.resolve(ctx, token, true)
}

func (s *Store) resolve(ctx context.Context, token string, force bool) *Session {
	if token == "" {
		return nil
	}

	if TokenExpired(token, s.nowFunc()) {
		_ = s.cache.Delete(ctx, token)
		return nil
	}

	if !force {
		if e, err := s.cache.Get(ctx, token); err == nil && e != nil {
			if s.nowFunc().Sub(e.FetchedAt) < s.staleness {
				if e.Failed || e.User == nil {
					return nil
				}
				return &Session{Token: token, User: e.User}
			}
		}
	}

	user, err := s.fetcher.FetchUser(ctx, token)
	if err != nil {
		s.logger.DebugContext(ctx, "session resolution failed",
			slog.String("error", err.Error()),
		)
		_ = s.cache.Set(ctx, token, &entry{FetchedAt: s.nowFunc(), Failed: true})
		return nil
	}

	_ = s.cache.Set(ctx, token, &entry{User: user, FetchedAt: s.nowFunc()})
	return &Session{Token: token, User: user}
}

// Login adopts a token returned by a successful login call: the previous
// cache entry is dropped and the token re-resolved. The refetch, not the
// login response, is the source of truth for the resulting state.
func (s *Store) Login(ctx context.Context, token string) *Session {
	_ = s.cache.Delete(ctx, token)
	sess := s.Revalidate(ctx, token)
	if sess.Authenticated() && s.audit != nil {
		s.audit.LoginSucceeded(ctx, sess.User)
	}
	return sess
}

// Logout runs the backend logout call best-effort (errors ignored) and then
// removes the cached entry. The caller is responsible for clearing the
// cookie and redirecting.
func (s *Store) Logout(ctx context.Context, token string, call func(context.Context) error) {
	if token == "" {
		return
	}

	var user *User
	if e, err := s.cache.Get(ctx, token); err == nil && e != nil {
		user = e.User
	}

	if call != nil {
		if err := call(ctx); err != nil {
			s.logger.DebugContext(ctx, "logout call failed, clearing session anyway",
				slog.String("error", err.Error()),
			)
		}
	}

	_ = s.cache.Delete(ctx, token)

	if user != nil && s.audit != nil {
		s.audit.LoggedOut(ctx, user)
	}
}

// Invalidate drops the cached resolution so the next read refetches.
// Mutations that change identity data call this; it is idempotent.
func (s *Store) Invalidate(ctx context.Context, token string) {
	_ = s.cache.Delete(ctx, token)
}

// Set primes the cache with a known identity, bypassing the fetch.
func (s *Store) Set(ctx context.Context, token string, user *User) {
	_ = s.cache.Set(ctx, token, &entry{User: user, FetchedAt: s.nowFunc()})
}

// Clear removes the cached entry without touching the backend.
func (s *Store) Clear(ctx context.Context, token string) {
	_ = s.cache.Delete(ctx, token)
}
