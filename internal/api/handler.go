// Package api provides HTTP handlers for the ReplyCraft API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/replycraft/internal/apperr"
	"github.com/ashureev/replycraft/internal/chat"
	"github.com/ashureev/replycraft/internal/identity"
	"github.com/ashureev/replycraft/internal/live"
)

// maxBodyBytes bounds JSON request bodies; inline images make generate
// requests the largest.
const maxBodyBytes = 12 << 20

// Handler serves the auth, chat, message and generation endpoints.
type Handler struct {
	accounts *identity.Accounts
	sessions *identity.Sessions
	chats    *chat.Service
	hub      *live.Hub
	logger   *slog.Logger
}

// NewHandler creates a new Handler. hub may be nil.
func NewHandler(accounts *identity.Accounts, sessions *identity.Sessions, chats *chat.Service, hub *live.Hub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		accounts: accounts,
		sessions: sessions,
		chats:    chats,
		hub:      hub,
		logger:   logger.With("component", "api"),
	}
}

// RegisterRoutes registers the API routes. The session middleware must
// already be installed on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(identity.RequireUser)

			r.Get("/auth/me", h.Me)

			r.Get("/chats", h.ListChats)
			r.Post("/chats", h.CreateChat)
			r.Get("/chats/{chatId}", h.GetChat)
			r.Delete("/chats/{chatId}", h.DeleteChat)

			r.Get("/messages/{chatId}", h.ListMessages)
			r.Post("/messages", h.CreateMessage)

			r.Post("/ai/generate", h.Generate)
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Fail writes err as {"error", "kind"} with the status of its kind. Only the
// stable caller-facing message is sent; the cause is logged.
func (h *Handler) Fail(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.As(err)
	if e.Kind == apperr.KindServer {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"user_id", identity.UserIDFromContext(r.Context()),
			"error", err,
		)
	}
	JSON(w, e.Kind.Status(), map[string]string{"error": e.Message, "kind": string(e.Kind)})
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Newf(apperr.KindValidation, "Request body too large")
		}
		if errors.Is(err, io.EOF) {
			return apperr.Newf(apperr.KindValidation, "Missing required fields")
		}
		return apperr.Newf(apperr.KindValidation, "Invalid JSON body")
	}
	return nil
}
