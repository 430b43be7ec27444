package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/pmstore/pmstore-api/internal/apperr"
	"github.com/pmstore/pmstore-api/internal/http/response"
	"github.com/pmstore/pmstore-api/internal/observability"
	"github.com/pmstore/pmstore-api/internal/security"
)

// ExemptFunc reports whether a route opted out of CSRF checks.
type ExemptFunc func(method, path string) bool

// CSRFMiddleware enforces the double-submit check on state-changing requests.
// The token must be present in the cookie and in the request, match exactly
// and carry a valid signature for the caller's current session.
func CSRFMiddleware(guard *security.CSRF, cookieName string, exempt ExemptFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			group := csrfPathGroup(r.URL.Path)
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if exempt != nil && exempt(r.Method, r.URL.Path) {
				observability.RecordCSRFDecision(r.Context(), "exempt", group)
				next.ServeHTTP(w, r)
				return
			}

			cookieToken := security.GetCookie(r, cookieName)
			submitted := submittedCSRFToken(r)
			binding := ""
			if sc, ok := SessionFromContext(r.Context()); ok {
				binding = sc.ID
			}

			outcome := "accepted"
			switch {
			case cookieToken == "":
				outcome = "missing_cookie"
			case submitted == "":
				outcome = "missing_token"
			case !guard.Match(cookieToken, submitted):
				outcome = "mismatch"
			case !guard.Valid(submitted, binding):
				outcome = "bad_signature"
			}
			observability.RecordCSRFDecision(r.Context(), outcome, group)
			if outcome != "accepted" {
				observability.Audit(r, "csrf.rejected", "reason", outcome)
				response.WriteError(w, r, apperr.CSRF())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// maxCSRFBodyScan caps how much of a body is buffered to look for _csrf.
// Larger bodies must send the token in a header.
const maxCSRFBodyScan = 1 << 20

// submittedCSRFToken reads the header first and falls back to the _csrf body
// field of a JSON or urlencoded body. Multipart bodies are never parsed. The
// body is restored so handlers can decode it again.
func submittedCSRFToken(r *http.Request) string {
	if v := r.Header.Get(security.CSRFHeader); v != "" {
		return v
	}
	if v := r.Header.Get(security.CSRFLegacyHeader); v != "" {
		return v
	}
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	switch mediaType {
	case "application/json":
		raw, ok := peekBody(r, maxCSRFBodyScan)
		if !ok {
			return ""
		}
		var payload struct {
			CSRF string `json:"_csrf"`
		}
		if json.Unmarshal(raw, &payload) != nil {
			return ""
		}
		return payload.CSRF
	case "application/x-www-form-urlencoded":
		raw, ok := peekBody(r, maxCSRFBodyScan)
		if !ok {
			return ""
		}
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return ""
		}
		return values.Get(security.CSRFFormField)
	}
	return ""
}

// peekBody buffers up to limit bytes and puts them back in front of the
// unread remainder. ok is false when the body is larger than limit or the
// read failed.
func peekBody(r *http.Request, limit int64) (raw []byte, ok bool) {
	orig := r.Body
	raw, err := io.ReadAll(io.LimitReader(orig, limit+1))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(raw), orig), orig}
	if err != nil || int64(len(raw)) > limit {
		return nil, false
	}
	return raw, true
}

func csrfPathGroup(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "root"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" || len(parts) < 2 {
		return parts[0]
	}
	return "api/" + parts[1]
}
