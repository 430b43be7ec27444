package security

import (
	"net/http"
	"time"
)

type CookieOptions struct {
	Name     string
	Path     string
	Secure   bool
	HTTPOnly bool
}

func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetCookie writes a SameSite=Strict cookie. A non-positive ttl produces a
// session cookie.
func SetCookie(w http.ResponseWriter, opts CookieOptions, value string, ttl time.Duration) {
	c := &http.Cookie{
		Name:     opts.Name,
		Value:    value,
		Path:     cookiePath(opts.Path),
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
		c.Expires = time.Now().Add(ttl).UTC()
	}
	http.SetCookie(w, c)
}

func ClearCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    "",
		Path:     cookiePath(opts.Path),
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
}

func cookiePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
