package handler

import (
	"net/http"
	"time"

	"github.com/pmstore/pmstore-api/internal/apperr"
	"github.com/pmstore/pmstore-api/internal/http/middleware"
	"github.com/pmstore/pmstore-api/internal/http/response"
	"github.com/pmstore/pmstore-api/internal/security"
)

type CSRFHandler struct {
	guard  *security.CSRF
	cookie security.CookieOptions
	ttl    time.Duration
}

func NewCSRFHandler(guard *security.CSRF, cookieName string, secure bool, ttl time.Duration) *CSRFHandler {
	return &CSRFHandler{
		guard: guard,
		// Readable by scripts so the client can echo it back.
		cookie: security.CookieOptions{Name: cookieName, Path: "/", Secure: secure, HTTPOnly: false},
		ttl:    ttl,
	}
}

// Token issues a token bound to the caller's current session, or to no
// session for anonymous callers.
func (h *CSRFHandler) Token(w http.ResponseWriter, r *http.Request) {
	binding := ""
	if sc, ok := middleware.SessionFromContext(r.Context()); ok {
		binding = sc.ID
	}
	token, err := h.guard.Issue(binding)
	if err != nil {
		response.WriteError(w, r, apperr.Internal("issue csrf token", err))
		return
	}
	security.SetCookie(w, h.cookie, token, h.ttl)
	response.OK(w, r, "CSRF token generated", map[string]string{"csrfToken": token})
}
