package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/replycraft/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo Repository, id, email string) *domain.User {
	t.Helper()
	now := time.Now()
	user := &domain.User{UserID: id, Email: email, Name: "Test", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func seedChat(t *testing.T, repo Repository, id, userID string, updated time.Time) *domain.Chat {
	t.Helper()
	chat := &domain.Chat{ID: id, UserID: userID, Title: "chat " + id, CreatedAt: updated, UpdatedAt: updated}
	if err := repo.CreateChat(context.Background(), chat); err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	return chat
}

func TestUsersRoundTripAndDuplicateEmail(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()

	seedUser(t, repo, "u1", "a@example.com")

	got, err := repo.GetUserByEmail(ctx, "a@example.com")
	if err != nil || got == nil {
		t.Fatalf("GetUserByEmail: user=%v err=%v", got, err)
	}
	if got.UserID != "u1" || got.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %+v", got)
	}

	missing, err := repo.GetUser(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil,nil for missing user, got %v, %v", missing, err)
	}

	dup := &domain.User{UserID: "u2", Email: "a@example.com", Name: "Dup", PasswordHash: "x", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestSessionsExpire(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "a@example.com")

	now := time.Now()
	live := &domain.Session{Token: "live", UserID: "u1", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	dead := &domain.Session{Token: "dead", UserID: "u1", ExpiresAt: now.Add(-time.Hour), CreatedAt: now}
	for _, s := range []*domain.Session{live, dead} {
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	n, err := repo.DeleteExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired session removed, got %d", n)
	}

	got, err := repo.GetSession(ctx, "live")
	if err != nil || got == nil || got.UserID != "u1" {
		t.Fatalf("expected live session, got %v, %v", got, err)
	}

	if err := repo.DeleteSession(ctx, "live"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	got, err = repo.GetSession(ctx, "live")
	if err != nil || got != nil {
		t.Fatalf("expected session to be gone, got %v, %v", got, err)
	}
}

func TestListChatsOrderedByUpdatedAt(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "a@example.com")
	seedUser(t, repo, "u2", "b@example.com")

	base := time.Now().Add(-time.Hour)
	seedChat(t, repo, "old", "u1", base)
	seedChat(t, repo, "new", "u1", base.Add(time.Minute))
	seedChat(t, repo, "other", "u2", base.Add(2*time.Minute))

	if err := repo.TouchChat(ctx, "old", base.Add(10*time.Minute)); err != nil {
		t.Fatalf("TouchChat failed: %v", err)
	}

	chats, err := repo.ListChats(ctx, "u1")
	if err != nil {
		t.Fatalf("ListChats failed: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("expected 2 chats for u1, got %d", len(chats))
	}
	if chats[0].ID != "old" || chats[1].ID != "new" {
		t.Fatalf("expected touched chat first, got %s, %s", chats[0].ID, chats[1].ID)
	}
}

func TestTurnsOrderingAndRecentWindow(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "a@example.com")
	seedChat(t, repo, "c1", "u1", time.Now())

	// Identical timestamps must still keep insertion order.
	at := time.Now()
	for i := 0; i < 25; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		turn := &domain.Turn{ID: fmt.Sprintf("t%02d", i), ChatID: "c1", Role: role, Content: fmt.Sprintf("m%d", i), CreatedAt: at}
		if err := repo.CreateTurn(ctx, turn); err != nil {
			t.Fatalf("CreateTurn failed: %v", err)
		}
	}

	all, err := repo.ListTurns(ctx, "c1")
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}
	if len(all) != 25 || all[0].ID != "t00" || all[24].ID != "t24" {
		t.Fatalf("unexpected full history ordering: len=%d first=%s", len(all), all[0].ID)
	}

	recent, err := repo.RecentTurns(ctx, "c1", 20)
	if err != nil {
		t.Fatalf("RecentTurns failed: %v", err)
	}
	if len(recent) != 20 {
		t.Fatalf("expected 20 recent turns, got %d", len(recent))
	}
	if recent[0].ID != "t24" || recent[19].ID != "t05" {
		t.Fatalf("expected newest-first t24..t05, got %s..%s", recent[0].ID, recent[19].ID)
	}

	chat, err := repo.GetChat(ctx, "c1")
	if err != nil || chat == nil {
		t.Fatalf("GetChat: %v, %v", chat, err)
	}
	if chat.MessageCount != 25 {
		t.Fatalf("expected message count 25, got %d", chat.MessageCount)
	}
}

func TestTurnImageDataRoundTrip(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "a@example.com")
	seedChat(t, repo, "c1", "u1", time.Now())

	img := "data:image/png;base64,iVBORw0KGgo="
	if err := repo.CreateTurn(ctx, &domain.Turn{ID: "t1", ChatID: "c1", Role: domain.RoleUser, Content: "look", ImageData: img, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateTurn failed: %v", err)
	}
	if err := repo.CreateTurn(ctx, &domain.Turn{ID: "t2", ChatID: "c1", Role: domain.RoleAssistant, Content: "nice", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateTurn failed: %v", err)
	}

	turns, err := repo.ListTurns(ctx, "c1")
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}
	if turns[0].ImageData != img {
		t.Fatalf("expected image data to round trip, got %q", turns[0].ImageData)
	}
	if turns[1].ImageData != "" {
		t.Fatalf("expected no image on assistant turn, got %q", turns[1].ImageData)
	}
}

func TestDeleteChatRemovesTurns(t *testing.T) {
	t.Parallel()
	repo := newTestStore(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "a@example.com")
	seedChat(t, repo, "c1", "u1", time.Now())

	if err := repo.CreateTurn(ctx, &domain.Turn{ID: "t1", ChatID: "c1", Role: domain.RoleUser, Content: "hi", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateTurn failed: %v", err)
	}
	if err := repo.DeleteChat(ctx, "c1"); err != nil {
		t.Fatalf("DeleteChat failed: %v", err)
	}

	chat, err := repo.GetChat(ctx, "c1")
	if err != nil || chat != nil {
		t.Fatalf("expected chat to be gone, got %v, %v", chat, err)
	}
	turns, err := repo.ListTurns(ctx, "c1")
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected no turns after delete, got %d", len(turns))
	}
}
