package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/pmstore/pmstore-api/internal/apperr"
	"github.com/pmstore/pmstore-api/internal/domain"
	"github.com/pmstore/pmstore-api/internal/http/response"
	"github.com/pmstore/pmstore-api/internal/service"
)

type contextKey string

const (
	SessionContextKey contextKey = "session"
	UserContextKey    contextKey = "user"
)

const msgLoginRequired = "Please log in to continue"

// SessionContext is what LoadSession resolved for the current request. ID is
// empty for anonymous requests.
type SessionContext struct {
	ID       string
	Identity domain.Identity
}

func (s SessionContext) Authenticated() bool {
	return s.ID != "" && !s.Identity.IsZero()
}

type SessionReader interface {
	SessionIDFromRequest(r *http.Request) string
	Read(ctx context.Context, sessionID string) (*domain.Identity, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// LoadSession resolves the session cookie once and stores the result in the
// request context. Unknown or expired ids are treated as anonymous.
func LoadSession(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sc SessionContext
			if id := sessions.SessionIDFromRequest(r); id != "" {
				identity, err := sessions.Read(r.Context(), id)
				switch {
				case err == nil:
					sc = SessionContext{ID: id, Identity: *identity}
				case errors.Is(err, service.ErrSessionNotFound):
				default:
					response.WriteError(w, r, apperr.Internal("load session", err))
					return
				}
			}
			ctx := context.WithValue(r.Context(), SessionContextKey, sc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession admits requests whose session carries an identity. It does
// not consult the credential store.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sc, ok := SessionFromContext(r.Context()); !ok || !sc.Authenticated() {
			response.WriteError(w, r, apperr.Unauthorized(msgLoginRequired))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireActiveUser is RequireSession plus a lookup that the user still
// exists. The loaded user is available through UserFromContext.
func RequireActiveUser(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc, ok := SessionFromContext(r.Context())
			if !ok || !sc.Authenticated() {
				response.WriteError(w, r, apperr.Unauthorized(msgLoginRequired))
				return
			}
			user, err := users.GetByID(r.Context(), sc.Identity.ID)
			if err != nil {
				if apperr.IsKind(err, apperr.KindNotFound) {
					response.WriteError(w, r, apperr.Unauthorized(msgLoginRequired))
					return
				}
				response.WriteError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionFromContext(ctx context.Context) (SessionContext, bool) {
	sc, ok := ctx.Value(SessionContextKey).(SessionContext)
	return sc, ok
}

func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(UserContextKey).(*domain.User)
	return u, ok
}
