package observability

import (
	"log/slog"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

// Audit attribute keys that must never reach the log, whatever the caller
// passes.
var redactedAuditKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"session_id":    {},
	"csrf_token":    {},
}

// Audit writes one security event such as "auth.login.failed" at info level
// under the "audit" message.
func Audit(r *http.Request, event string, attrs ...any) {
	ctx := r.Context()
	base := []any{
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"request_id", chimiddleware.GetReqID(ctx),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		base = append(base, "trace_id", sc.TraceID().String())
	}
	base = append(base, redactAuditAttrs(attrs)...)
	slog.InfoContext(ctx, "audit", base...)
}

func redactAuditAttrs(attrs []any) []any {
	out := make([]any, 0, len(attrs))
	for i := 0; i < len(attrs); i++ {
		key, ok := attrs[i].(string)
		if !ok || i+1 >= len(attrs) {
			out = append(out, attrs[i])
			continue
		}
		if _, secret := redactedAuditKeys[strings.ToLower(key)]; secret {
			out = append(out, key, "[redacted]")
		} else {
			out = append(out, key, attrs[i+1])
		}
		i++
	}
	return out
}
