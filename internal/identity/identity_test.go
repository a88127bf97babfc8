package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ashureev/replycraft/internal/apperr"
	"github.com/ashureev/replycraft/internal/store"
)

func newRepo(t *testing.T) store.Repository {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "identity.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newAccounts(repo store.Repository) *Accounts {
	a := NewAccounts(repo)
	a.cost = bcrypt.MinCost
	return a
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	accounts := newAccounts(newRepo(t))
	ctx := context.Background()

	user, err := accounts.Register(ctx, RegisterInput{Email: " Ada@Example.com ", Password: "correct horse", Name: "  Ada "})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "ada@example.com" || user.Name != "Ada" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "correct horse" {
		t.Fatal("password must be hashed")
	}

	if _, err := accounts.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "another pass", Name: "Dup"}); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	got, err := accounts.Login(ctx, "ADA@example.com", "correct horse")
	if err != nil || got.UserID != user.UserID {
		t.Fatalf("Login failed: %v, %v", got, err)
	}

	if _, err := accounts.Login(ctx, "ada@example.com", "wrong password"); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := accounts.Login(ctx, "nobody@example.com", "whatever1"); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	accounts := newAccounts(newRepo(t))

	cases := []struct {
		name string
		in   RegisterInput
		msg  string
	}{
		{"missing", RegisterInput{Email: "a@b.co", Password: "longenough"}, "Missing required fields"},
		{"email", RegisterInput{Email: "not-an-email", Password: "longenough", Name: "x"}, "Invalid email format"},
		{"short", RegisterInput{Email: "a@b.co", Password: "short", Name: "x"}, "Password must be at least 8 characters"},
	}
	for _, tc := range cases {
		_, err := accounts.Register(context.Background(), tc.in)
		e := apperr.As(err)
		if e.Kind != apperr.KindValidation || e.Message != tc.msg {
			t.Errorf("%s: expected validation %q, got %+v", tc.name, tc.msg, e)
		}
	}
}

func TestSessionCookieFlow(t *testing.T) {
	t.Parallel()
	repo := newRepo(t)
	accounts := newAccounts(repo)
	sessions := NewSessions(repo, time.Hour, true, nil)
	ctx := context.Background()

	user, err := accounts.Register(ctx, RegisterInput{Email: "a@example.com", Password: "password1", Name: "A"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	rec := httptest.NewRecorder()
	if err := sessions.Start(ctx, rec, user.UserID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
	if cookies[0].SameSite != http.SameSiteLaxMode || cookies[0].Secure {
		t.Fatalf("expected lax, non-secure cookie in dev: %+v", cookies[0])
	}

	var seen string
	handler := sessions.Middleware(RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen != user.UserID {
		t.Fatalf("expected authenticated request, got %d user=%q", rec.Code, seen)
	}

	logout := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	logout.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	if err := sessions.End(ctx, rec, logout); err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if cleared := rec.Result().Cookies(); len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cleared)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestResolveExpiredSession(t *testing.T) {
	t.Parallel()
	repo := newRepo(t)
	accounts := newAccounts(repo)
	sessions := NewSessions(repo, time.Hour, false, nil)
	ctx := context.Background()

	user, err := accounts.Register(ctx, RegisterInput{Email: "b@example.com", Password: "password1", Name: "B"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	rec := httptest.NewRecorder()
	if err := sessions.Start(ctx, rec, user.UserID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	token := rec.Result().Cookies()[0].Value
	if !rec.Result().Cookies()[0].Secure {
		t.Fatal("expected secure cookie outside development")
	}

	sessions.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	userID, err := sessions.Resolve(ctx, token)
	if err != nil || userID != "" {
		t.Fatalf("expected expired session to resolve to nobody, got %q, %v", userID, err)
	}
	if userID, _ := sessions.Resolve(ctx, "not-a-token"); userID != "" {
		t.Fatal("malformed tokens must not resolve")
	}
}

func TestSweeperRemovesExpiredSessions(t *testing.T) {
	t.Parallel()
	repo := newRepo(t)
	accounts := newAccounts(repo)
	sessions := NewSessions(repo, time.Millisecond, true, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user, err := accounts.Register(ctx, RegisterInput{Email: "c@example.com", Password: "password1", Name: "C"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := sessions.Start(ctx, httptest.NewRecorder(), user.UserID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	swept := make(chan struct{}, 1)
	sessions.StartSweeper(ctx, 10*time.Millisecond, func() {
		select {
		case swept <- struct{}{}:
		default:
		}
	})

	select {
	case <-swept:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper never ran")
	}

	n, err := sessions.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected sweeper to have removed the expired session already, %d left", n)
	}
}
