package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
)

const (
	CSRFHeader       = "X-CSRF-Token"
	CSRFLegacyHeader = "csrf-token"
	CSRFFormField    = "_csrf"

	csrfSeparator = "."
)

var ErrCSRFSecretTooShort = errors.New("csrf secret must be at least 16 bytes")

// CSRF mints and checks stateless double-submit tokens. A token is
// "<random>.<mac>" where mac = HMAC(secret, binding "!" random) and binding is
// the session id active when the token was issued ("" when anonymous).
type CSRF struct {
	secret []byte
	size   int
}

func NewCSRF(secret string, size int) (*CSRF, error) {
	if len(secret) < 16 {
		return nil, ErrCSRFSecretTooShort
	}
	if size <= 0 {
		size = 64
	}
	return &CSRF{secret: []byte(secret), size: size}, nil
}

func (c *CSRF) Issue(binding string) (string, error) {
	raw, err := RandomBytes(c.size)
	if err != nil {
		return "", err
	}
	random := hex.EncodeToString(raw)
	return random + csrfSeparator + c.sign(binding, random), nil
}

// Valid reports whether token was minted for binding.
func (c *CSRF) Valid(token, binding string) bool {
	random, mac, ok := strings.Cut(token, csrfSeparator)
	if !ok || random == "" || mac == "" {
		return false
	}
	if len(random) != hex.EncodedLen(c.size) {
		return false
	}
	expected := c.sign(binding, random)
	return subtle.ConstantTimeCompare([]byte(mac), []byte(expected)) == 1
}

// Match compares the cookie copy with the submitted copy in constant time.
func (c *CSRF) Match(cookieToken, submitted string) bool {
	if cookieToken == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(submitted)) == 1
}

func (c *CSRF) sign(binding, random string) string {
	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(binding))
	_, _ = mac.Write([]byte("!"))
	_, _ = mac.Write([]byte(random))
	return hex.EncodeToString(mac.Sum(nil))
}
