package live

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/ashureev/replycraft/internal/apperr"
	"github.com/ashureev/replycraft/internal/domain"
	"github.com/ashureev/replycraft/internal/identity"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// ChatLookup returns a chat the caller owns, or a classified error.
type ChatLookup interface {
	GetChat(ctx context.Context, userID, chatID string) (*domain.Chat, error)
}

// WebSocketHandler streams turn events of one chat to its owner.
type WebSocketHandler struct {
	hub           *Hub
	chats         ChatLookup
	allowedOrigin string
	isDev         bool
	logger        *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(hub *Hub, chats ChatLookup, allowedOrigin string, isDev bool, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		hub:           hub,
		chats:         chats,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		logger:        logger.With("component", "live"),
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	chatID := chi.URLParam(r, "chatId")

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}
	if _, err := h.chats.GetChat(r.Context(), userID, chatID); err != nil {
		e := apperr.As(err)
		http.Error(w, e.Message, e.Kind.Status())
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("failed to accept websocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "subscription ended"); closeErr != nil {
			h.logger.Debug("failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	sub, cancelSub := h.hub.Subscribe(chatID, userID)
	defer cancelSub()

	// Clients only listen; CloseRead handles control frames and cancels on disconnect.
	ctx := ws.CloseRead(r.Context())

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := h.write(ctx, ws, ev); err != nil {
				h.logger.Debug("websocket write failed", "error", err, "chat_id", chatID)
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := ws.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) write(ctx context.Context, ws *websocket.Conn, ev Event) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, ws, ev)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	h.logger.Warn("websocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
