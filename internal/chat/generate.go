package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/replycraft/internal/apperr"
	"github.com/ashureev/replycraft/internal/domain"
	"github.com/ashureev/replycraft/internal/reply"
	"github.com/ashureev/replycraft/internal/shared"
)

// GenerateInput is one reply-generation request.
type GenerateInput struct {
	ChatID      string
	UserMessage string
	ImageData   string
}

// GenerateReply validates the request, stores the user turn, asks the
// generator for a reply and stores it as the assistant turn.
//
// The user turn is kept even when generation fails. On failure no assistant
// turn is written and the chat is not touched.
func (s *Service) GenerateReply(ctx context.Context, userID string, in GenerateInput) (*domain.Turn, error) {
	turn, err := s.generateReply(ctx, userID, in)
	if err != nil {
		e := apperr.As(err)
		s.logger.Error("reply generation failed",
			"user_id", userID,
			"chat_id", in.ChatID,
			"kind", e.Kind,
			"error", err,
			"at", s.now().UTC().Format(time.RFC3339),
		)
		return nil, e
	}
	return turn, nil
}

func (s *Service) generateReply(ctx context.Context, userID string, in GenerateInput) (*domain.Turn, error) {
	text := shared.SanitizeInput(in.UserMessage)
	image := strings.TrimSpace(in.ImageData)

	if userID == "" {
		return nil, apperr.New(apperr.KindUnauthorized, nil)
	}
	if in.ChatID == "" || text == "" {
		return nil, apperr.Newf(apperr.KindValidation, "Missing required fields")
	}
	if image != "" && !strings.HasPrefix(image, "data:image/") {
		return nil, apperr.Newf(apperr.KindValidation, "Image must be a data:image URI")
	}
	if _, err := s.ownedChat(ctx, userID, in.ChatID); err != nil {
		return nil, err
	}

	if s.limiter != nil && !s.limiter.Allow(userID) {
		return nil, apperr.New(apperr.KindRateLimit, nil)
	}

	userTurn, err := s.persistTurn(ctx, in.ChatID, domain.RoleUser, text, image)
	if err != nil {
		return nil, err
	}
	s.notify(in.ChatID, userTurn)

	window, err := s.BuildContext(ctx, in.ChatID)
	if err != nil {
		return nil, err
	}

	var freshness string
	if s.augmenter != nil {
		freshness = s.augmenter.Augment(ctx, text)
	}

	replyText, err := s.generator.Generate(ctx, window, freshness)
	if err != nil {
		return nil, err
	}

	assistant, err := s.persistTurn(ctx, in.ChatID, domain.RoleAssistant, replyText, "")
	if err != nil {
		return nil, err
	}
	if err := s.repo.TouchChat(ctx, in.ChatID, assistant.CreatedAt); err != nil {
		return nil, apperr.New(apperr.KindServer, fmt.Errorf("touch chat: %w", err))
	}
	s.notify(in.ChatID, assistant)

	return assistant, nil
}

// BuildContext returns the most recent turns of a chat, oldest first, bounded
// by the configured window. An empty chat yields an empty window.
func (s *Service) BuildContext(ctx context.Context, chatID string) ([]reply.ContextTurn, error) {
	recent, err := s.repo.RecentTurns(ctx, chatID, s.window)
	if err != nil {
		return nil, apperr.New(apperr.KindServer, fmt.Errorf("recent turns: %w", err))
	}

	window := make([]reply.ContextTurn, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		t := recent[i]
		ct := reply.ContextTurn{Role: t.Role, Content: t.Content}
		if t.HasImage() {
			ct.ImageData = t.ImageData
		}
		window = append(window, ct)
	}
	return window, nil
}
