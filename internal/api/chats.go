package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/replycraft/internal/chat"
	"github.com/ashureev/replycraft/internal/domain"
	"github.com/ashureev/replycraft/internal/identity"
)

type createChatRequest struct {
	Title string `json:"title"`
}

type createMessageRequest struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
	Role    string `json:"role"`
}

// ListChats returns the caller's chats.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chats.ListChats(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"chats": chats})
}

// CreateChat starts a new chat.
func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req createChatRequest
	if err := decode(w, r, &req); err != nil {
		h.Fail(w, r, err)
		return
	}
	c, err := h.chats.CreateChat(r.Context(), identity.UserIDFromContext(r.Context()), req.Title)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, map[string]any{"chat": c})
}

// GetChat returns one chat.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	c, err := h.chats.GetChat(r.Context(), identity.UserIDFromContext(r.Context()), chi.URLParam(r, "chatId"))
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"chat": c})
}

// DeleteChat removes a chat and disconnects its live subscribers.
func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if err := h.chats.DeleteChat(r.Context(), identity.UserIDFromContext(r.Context()), chatID); err != nil {
		h.Fail(w, r, err)
		return
	}
	if h.hub != nil {
		h.hub.CloseChat(chatID)
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListMessages returns a chat's full history.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	turns, err := h.chats.ListTurns(r.Context(), identity.UserIDFromContext(r.Context()), chi.URLParam(r, "chatId"))
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"messages": turns})
}

// CreateMessage appends a turn written by the client.
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if err := decode(w, r, &req); err != nil {
		h.Fail(w, r, err)
		return
	}
	turn, err := h.chats.AppendTurn(r.Context(), identity.UserIDFromContext(r.Context()), chat.AppendInput{
		ChatID:  req.ChatID,
		Content: req.Content,
		Role:    domain.Role(req.Role),
	})
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, map[string]any{"message": turn})
}
