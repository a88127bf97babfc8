// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/replycraft/internal/domain"
)

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("store: conflict")

// Repository defines the interface for persisting users, sessions, chats and turns.
// Lookups of missing records return (nil, nil).
type Repository interface {
	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	// CreateUser inserts a new user. Returns ErrConflict if the email is taken.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// GetUserByEmail retrieves a user by email address.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// CreateSession stores a login session.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by token.
	GetSession(ctx context.Context, token string) (*domain.Session, error)

	// DeleteSession removes a session. Deleting a missing session is not an error.
	DeleteSession(ctx context.Context, token string) error

	// DeleteExpiredSessions removes sessions that expired before now.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	// CreateChat inserts a new chat.
	CreateChat(ctx context.Context, chat *domain.Chat) error

	// GetChat retrieves a chat by ID, including its message count.
	GetChat(ctx context.Context, chatID string) (*domain.Chat, error)

	// ListChats returns a user's chats, most recently updated first.
	ListChats(ctx context.Context, userID string) ([]*domain.Chat, error)

	// TouchChat sets a chat's updated_at marker.
	TouchChat(ctx context.Context, chatID string, at time.Time) error

	// DeleteChat removes a chat and all of its turns.
	DeleteChat(ctx context.Context, chatID string) error

	// CreateTurn appends a turn to a chat.
	CreateTurn(ctx context.Context, turn *domain.Turn) error

	// ListTurns returns the full history of a chat, oldest first.
	ListTurns(ctx context.Context, chatID string) ([]*domain.Turn, error)

	// RecentTurns returns at most limit turns of a chat, newest first.
	RecentTurns(ctx context.Context, chatID string, limit int) ([]*domain.Turn, error)
}
