package api

import (
	"net/http"

	"github.com/ashureev/replycraft/internal/chat"
	"github.com/ashureev/replycraft/internal/identity"
)

type generateRequest struct {
	ChatID      string `json:"chatId"`
	UserMessage string `json:"userMessage"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// Generate produces an assistant reply for the caller's message.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(w, r, &req); err != nil {
		h.Fail(w, r, err)
		return
	}

	turn, err := h.chats.GenerateReply(r.Context(), identity.UserIDFromContext(r.Context()), chat.GenerateInput{
		ChatID:      req.ChatID,
		UserMessage: req.UserMessage,
		ImageData:   req.ImageURL,
	})
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"message": turn})
}
