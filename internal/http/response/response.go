package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync/atomic"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/pmstore/pmstore-api/internal/apperr"
)

const genericErrorMessage = "Something went wrong!"

// exposeInternals controls whether 500 responses carry the underlying
// message and a stack trace. It is off unless the router turns it on.
var exposeInternals atomic.Bool

func SetExposeInternals(v bool) { exposeInternals.Store(v) }

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
	Stack   string      `json:"stack,omitempty"`
	Meta    meta        `json:"meta"`
}

type meta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}) {
	write(w, status, envelope{Success: true, Message: message, Data: data, Meta: buildMeta(r)})
}

func OK(w http.ResponseWriter, r *http.Request, message string, data interface{}) {
	JSON(w, r, http.StatusOK, message, data)
}

func Created(w http.ResponseWriter, r *http.Request, message string, data interface{}) {
	JSON(w, r, http.StatusCreated, message, data)
}

// Error writes a failure envelope as is. Most callers want WriteError.
func Error(w http.ResponseWriter, r *http.Request, status int, message string, errs interface{}) {
	write(w, status, envelope{Success: false, Message: message, Errors: errs, Meta: buildMeta(r)})
}

// WriteError is the single place where errors turn into responses. The full
// error goes to the log; the client only sees what its kind allows.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err, nil)
}

// WritePanic reports a recovered panic with the stack captured at the
// recovery site.
func WritePanic(w http.ResponseWriter, r *http.Request, rec any, stack []byte) {
	err := apperr.Internal("panic", panicError{rec})
	writeError(w, r, err, stack)
}

func writeError(w http.ResponseWriter, r *http.Request, err error, stack []byte) {
	appErr := apperr.As(err)
	if appErr == nil {
		return
	}
	reqID := chimiddleware.GetReqID(r.Context())

	env := envelope{Success: false, Message: appErr.Message, Meta: buildMeta(r)}
	if len(appErr.Fields) > 0 {
		env.Errors = appErr.Fields
	}

	if appErr.Status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", appErr.Status,
			"error", err.Error(),
		)
		if exposeInternals.Load() {
			if stack == nil {
				stack = debug.Stack()
			}
			env.Stack = string(stack)
		} else {
			env.Message = genericErrorMessage
		}
	} else {
		slog.InfoContext(r.Context(), "request rejected",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", appErr.Status,
			"kind", string(appErr.Kind),
			"error", err.Error(),
		)
	}
	write(w, appErr.Status, env)
}

func write(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

type panicError struct{ v any }

func (p panicError) Error() string {
	if err, ok := p.v.(error); ok {
		return err.Error()
	}
	if s, ok := p.v.(string); ok {
		return s
	}
	return "unexpected panic"
}

func buildMeta(r *http.Request) meta {
	id := chimiddleware.GetReqID(r.Context())
	if id == "" {
		id = r.Header.Get("X-Request-Id")
	}
	if id == "" {
		id = "req-unknown"
	}
	return meta{RequestID: id, Timestamp: time.Now().UTC()}
}
