package chat

import (
	"context"
	"fmt"

	"github.com/ashureev/replycraft/internal/apperr"
	"github.com/ashureev/replycraft/internal/domain"
	"github.com/ashureev/replycraft/internal/shared"
)

// ownedChat loads chatID and checks that userID owns it.
func (s *Service) ownedChat(ctx context.Context, userID, chatID string) (*domain.Chat, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindUnauthorized, nil)
	}
	if chatID == "" {
		return nil, apperr.Newf(apperr.KindValidation, "Missing required fields")
	}
	chat, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, apperr.New(apperr.KindServer, fmt.Errorf("get chat: %w", err))
	}
	if chat == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "Chat not found")
	}
	if !chat.OwnedBy(userID) {
		return nil, apperr.New(apperr.KindForbidden, nil)
	}
	return chat, nil
}

// CreateChat starts a new chat for userID.
func (s *Service) CreateChat(ctx context.Context, userID, title string) (*domain.Chat, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindUnauthorized, nil)
	}
	title = shared.SanitizeInput(title)
	if !shared.ValidChatTitle(title) {
		return nil, apperr.Newf(apperr.KindValidation, "Title must be between 1 and %d characters", shared.MaxChatTitleLength)
	}

	now := s.now()
	chat := &domain.Chat{
		ID:        s.newID(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateChat(ctx, chat); err != nil {
		return nil, apperr.New(apperr.KindServer, fmt.Errorf("create chat: %w", err))
	}
	return chat, nil
}

// ListChats returns the user's chats, most recently updated first.
func (s *Service) ListChats(ctx context.Context, userID string) ([]*domain.Chat, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindUnauthorized, nil)
	}
	chats, err := s.repo.ListChats(ctx, userID)
	if err != nil {
		return nil, apperr.New(apperr.KindServer, fmt.Errorf("list chats: %w", err))
	}
	if chats == nil {
		chats = []*domain.Chat{}
	}
	return chats, nil
}

// GetChat returns one chat owned by userID.
func (s *Service) GetChat(ctx context.Context, userID, chatID string) (*domain.Chat, error) {
	return s.ownedChat(ctx, userID, chatID)
}

// DeleteChat removes a chat and its turns.
func (s *Service) DeleteChat(ctx context.Context, userID, chatID string) error {
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return err
	}
	if err := s.repo.DeleteChat(ctx, chatID); err != nil {
		return apperr.New(apperr.KindServer, fmt.Errorf("delete chat: %w", err))
	}
	s.logger.Info("chat deleted", "user_id", userID, "chat_id", chatID)
	return nil
}

// ListTurns returns a chat's full history, oldest first.
func (s *Service) ListTurns(ctx context.Context, userID, chatID string) ([]*domain.Turn, error) {
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return nil, err
	}
	turns, err := s.repo.ListTurns(ctx, chatID)
	if err != nil {
		return nil, apperr.New(apperr.KindServer, fmt.Errorf("list turns: %w", err))
	}
	if turns == nil {
		turns = []*domain.Turn{}
	}
	return turns, nil
}

// AppendInput is a manually added turn.
type AppendInput struct {
	ChatID  string
	Content string
	Role    domain.Role
}

// AppendTurn stores a turn written by the client and touches the chat.
func (s *Service) AppendTurn(ctx context.Context, userID string, in AppendInput) (*domain.Turn, error) {
	if userID == "" {
		return nil, apperr.New(apperr.KindUnauthorized, nil)
	}
	content := shared.SanitizeInput(in.Content)
	if in.ChatID == "" || content == "" || in.Role == "" {
		return nil, apperr.Newf(apperr.KindValidation, "Missing required fields")
	}
	if !in.Role.Valid() {
		return nil, apperr.Newf(apperr.KindValidation, "Invalid role")
	}
	if _, err := s.ownedChat(ctx, userID, in.ChatID); err != nil {
		return nil, err
	}

	turn, err := s.persistTurn(ctx, in.ChatID, in.Role, content, "")
	if err != nil {
		return nil, err
	}
	if err := s.repo.TouchChat(ctx, in.ChatID, turn.CreatedAt); err != nil {
		return nil, apperr.New(apperr.KindServer, fmt.Errorf("touch chat: %w", err))
	}
	s.notify(in.ChatID, turn)
	return turn, nil
}

func (s *Service) persistTurn(ctx context.Context, chatID string, role domain.Role, content, image string) (*domain.Turn, error) {
	turn := &domain.Turn{
		ID:        s.newID(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		ImageData: image,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateTurn(ctx, turn); err != nil {
		return nil, apperr.New(apperr.KindServer, fmt.Errorf("create %s turn: %w", role, err))
	}
	return turn, nil
}
