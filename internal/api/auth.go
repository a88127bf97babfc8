package api

import (
	"net/http"

	"github.com/ashureev/replycraft/internal/apperr"
	"github.com/ashureev/replycraft/internal/identity"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and starts a session.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		h.Fail(w, r, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), identity.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		h.Fail(w, r, err)
		return
	}

	if err := h.sessions.Start(r.Context(), w, user.UserID); err != nil {
		h.Fail(w, r, apperr.New(apperr.KindServer, err))
		return
	}

	h.logger.Info("user registered", "user_id", user.UserID)
	JSON(w, http.StatusCreated, map[string]any{"user": user.Public()})
}

// Login verifies credentials and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		h.Fail(w, r, err)
		return
	}

	user, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnauthorized {
			h.logger.Warn("login rejected", "ip", identity.IPFromRequest(r))
		}
		h.Fail(w, r, err)
		return
	}

	if err := h.sessions.Start(r.Context(), w, user.UserID); err != nil {
		h.Fail(w, r, apperr.New(apperr.KindServer, err))
		return
	}

	JSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}

// Logout ends the caller's session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(r.Context(), w, r); err != nil {
		h.Fail(w, r, apperr.New(apperr.KindServer, err))
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.User(r.Context(), identity.UserIDFromContext(r.Context()))
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"user": user.Public()})
}
