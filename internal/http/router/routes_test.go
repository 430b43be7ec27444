package router

import (
	"net/http"
	"testing"
)

func TestRouteTableCSRFExempt(t *testing.T) {
	table := RouteTable{
		{Method: http.MethodPost, Pattern: "/api/users/login"},
		{Method: http.MethodPut, Pattern: "/api/products/update-product/{id}", CSRF: true},
	}
	cases := []struct {
		method, path string
		want         bool
	}{
		{http.MethodPost, "/api/users/login", true},
		{http.MethodPost, "/api/users/login/", true},
		{http.MethodGet, "/api/users/login", false},
		{http.MethodPut, "/api/products/update-product/42", false},
		{http.MethodPost, "/api/unknown", false},
	}
	for _, tc := range cases {
		if got := table.CSRFExempt(tc.method, tc.path); got != tc.want {
			t.Fatalf("CSRFExempt(%s %s)=%v want %v", tc.method, tc.path, got, tc.want)
		}
	}
}

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern, path string
		want          bool
	}{
		{"/api/products/delete-product/{id}", "/api/products/delete-product/abc", true},
		{"/api/products/delete-product/{id}", "/api/products/delete-product/", false},
		{"/api/products/delete-product/{id}", "/api/products/delete-product/a/b", false},
		{"/api/users", "/api/users", true},
		{"/api/users", "/api/users/me", false},
	}
	for _, tc := range cases {
		if got := matchPattern(tc.pattern, tc.path); got != tc.want {
			t.Fatalf("matchPattern(%q, %q)=%v want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}
