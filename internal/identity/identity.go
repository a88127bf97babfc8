// Package identity provides password accounts, cookie sessions and the
// caller identity carried in request contexts.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/ashureev/replycraft/internal/domain"
	"github.com/ashureev/replycraft/internal/store"
)

const (
	// CookieName holds the opaque session token.
	CookieName = "auth-token"

	// DefaultSessionTTL is the lifetime of a login session.
	DefaultSessionTTL = 7 * 24 * time.Hour
)

type contextKey int

const (
	userIDKey contextKey = iota
)

var tokenPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID returns a context carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func isValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}

// Sessions issues and resolves cookie-backed login sessions.
type Sessions struct {
	repo   store.Repository
	ttl    time.Duration
	isDev  bool
	now    func() time.Time
	logger *slog.Logger
}

// NewSessions creates a session manager. Cookies are marked Secure unless isDev.
func NewSessions(repo store.Repository, ttl time.Duration, isDev bool, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		repo:   repo,
		ttl:    ttl,
		isDev:  isDev,
		now:    time.Now,
		logger: logger.With("component", "identity"),
	}
}

// Start creates a session for userID and sets the session cookie.
func (s *Sessions) Start(ctx context.Context, w http.ResponseWriter, userID string) error {
	token, err := generateToken()
	if err != nil {
		return err
	}
	now := s.now()
	session := &domain.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	s.setCookie(w, token, session.ExpiresAt)
	return nil
}

// End deletes the caller's session, if any, and clears the cookie.
func (s *Sessions) End(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	defer s.clearCookie(w)
	c, err := r.Cookie(CookieName)
	if err != nil || !isValidToken(c.Value) {
		return nil
	}
	if err := s.repo.DeleteSession(ctx, c.Value); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Resolve returns the user ID of a live session token, or "".
func (s *Sessions) Resolve(ctx context.Context, token string) (string, error) {
	if !isValidToken(token) {
		return "", nil
	}
	session, err := s.repo.GetSession(ctx, token)
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return "", nil
	}
	if session.Expired(s.now()) {
		if err := s.repo.DeleteSession(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired session", "error", err)
		}
		return "", nil
	}
	return session.UserID, nil
}

// SweepExpired removes expired sessions from the store.
func (s *Sessions) SweepExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx, s.now())
}

func (s *Sessions) setCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !s.isDev,
	})
}

func (s *Sessions) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !s.isDev,
	})
}

// Middleware resolves the session cookie and injects the user ID into the
// request context. Requests without a valid session pass through anonymous.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(CookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := s.Resolve(r.Context(), c.Value)
		if err != nil {
			s.logger.Error("session lookup failed", "ip", IPFromRequest(r), "error", err)
			http.Error(w, `{"error":"failed to resolve session","kind":"server"}`, http.StatusInternalServerError)
			return
		}
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// RequireUser rejects requests that carry no identity.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserIDFromContext(r.Context()) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized","kind":"unauthorized"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IPFromRequest returns a normalized remote IP for request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
