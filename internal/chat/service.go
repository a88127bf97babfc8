// Package chat implements the chat and message use cases, including the
// reply-generation request flow.
package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/replycraft/internal/domain"
	"github.com/ashureev/replycraft/internal/reply"
	"github.com/ashureev/replycraft/internal/store"
)

// DefaultContextWindow is how many recent turns are sent to the model.
const DefaultContextWindow = 20

// Generator produces a reply for a context window.
type Generator interface {
	Generate(ctx context.Context, turns []reply.ContextTurn, freshness string) (string, error)
}

// Augmenter returns optional freshness context for a message. It never fails.
type Augmenter interface {
	Augment(ctx context.Context, message string) string
}

// Limiter gates how often one user may request a reply.
type Limiter interface {
	Allow(key string) bool
}

// Notifier is told about every turn persisted in a chat.
type Notifier interface {
	Publish(chatID string, turn *domain.Turn)
}

// Service coordinates the store, limiter, augmenter and generator.
type Service struct {
	repo      store.Repository
	generator Generator
	augmenter Augmenter
	limiter   Limiter
	notifier  Notifier
	window    int
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier registers a live-update notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithContextWindow overrides DefaultContextWindow.
func WithContextWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.window = n
		}
	}
}

// WithClock overrides the time source used for turn and chat timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service. augmenter may be nil to disable freshness.
func NewService(repo store.Repository, generator Generator, augmenter Augmenter, limiter Limiter, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:      repo,
		generator: generator,
		augmenter: augmenter,
		limiter:   limiter,
		window:    DefaultContextWindow,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    logger.With("component", "chat"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) notify(chatID string, turn *domain.Turn) {
	if s.notifier != nil {
		s.notifier.Publish(chatID, turn)
	}
}
