package router

import (
	"net/http"
	"strings"
)

// Route is one API endpoint. CSRF is false only for endpoints that must be
// callable before the client holds a token.
type Route struct {
	Method     string
	Pattern    string
	Handler    http.HandlerFunc
	Middleware []func(http.Handler) http.Handler
	CSRF       bool
}

type RouteTable []Route

// CSRFExempt reports whether the route matching method and path opted out of
// CSRF checks. Unknown routes are never exempt.
func (t RouteTable) CSRFExempt(method, path string) bool {
	for _, rt := range t {
		if rt.Method == method && matchPattern(rt.Pattern, path) {
			return !rt.CSRF
		}
	}
	return false
}

// matchPattern matches chi-style patterns where a {param} segment matches
// exactly one non-empty path segment.
func matchPattern(pattern, path string) bool {
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	xs := strings.Split(strings.Trim(path, "/"), "/")
	if len(ps) != len(xs) {
		return false
	}
	for i := range ps {
		if strings.HasPrefix(ps[i], "{") && strings.HasSuffix(ps[i], "}") {
			if xs[i] == "" {
				return false
			}
			continue
		}
		if ps[i] != xs[i] {
			return false
		}
	}
	return true
}
