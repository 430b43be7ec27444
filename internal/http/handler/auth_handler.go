package handler

import (
	"log/slog"
	"net/http"

	"github.com/pmstore/pmstore-api/internal/apperr"
	"github.com/pmstore/pmstore-api/internal/http/middleware"
	"github.com/pmstore/pmstore-api/internal/http/response"
	"github.com/pmstore/pmstore-api/internal/observability"
	"github.com/pmstore/pmstore-api/internal/service"
)

type AuthHandler struct {
	auth     *service.AuthService
	sessions *service.SessionService
}

func NewAuthHandler(auth *service.AuthService, sessions *service.SessionService) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		response.WriteError(w, r, err)
		return
	}
	user, err := h.auth.Register(r.Context(), in)
	if err != nil {
		observability.Audit(r, "auth.register.failed", "kind", string(apperr.As(err).Kind))
		response.WriteError(w, r, err)
		return
	}
	observability.Audit(r, "auth.register.succeeded", "user_id", user.ID.String())
	response.Created(w, r, "User registered successfully", map[string]any{"user": user.View()})
}

// Login replaces any session the caller already holds with a fresh one.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		response.WriteError(w, r, err)
		return
	}
	user, err := h.auth.Authenticate(r.Context(), in)
	if err != nil {
		observability.Audit(r, "auth.login.failed", "kind", string(apperr.As(err).Kind))
		response.WriteError(w, r, err)
		return
	}

	if sc, ok := middleware.SessionFromContext(r.Context()); ok && sc.ID != "" {
		if err := h.sessions.Destroy(r.Context(), w, sc.ID); err != nil {
			slog.WarnContext(r.Context(), "drop previous session failed", "error", err.Error())
		}
	}
	if _, err := h.sessions.Create(r.Context(), w, user.Identity()); err != nil {
		response.WriteError(w, r, apperr.Internal("Session error", err))
		return
	}
	observability.Audit(r, "auth.login.succeeded", "user_id", user.ID.String())
	response.OK(w, r, "Login successful", map[string]any{"user": user.Identity()})
}

// Logout always succeeds from the client's point of view; a failed delete is
// logged and the cookie is cleared regardless.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessions.SessionIDFromRequest(r)
	if err := h.sessions.Destroy(r.Context(), w, sessionID); err != nil {
		slog.ErrorContext(r.Context(), "destroy session failed", "error", err.Error())
	}
	observability.Audit(r, "auth.logout", "had_session", sessionID != "")
	response.OK(w, r, "Logged out successfully", nil)
}
