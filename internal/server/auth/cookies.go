package auth

import (
	"net/http"
	"time"
)

// CookieManager writes and clears one named token cookie. The upstream token
// pair never leaves the server, so a single cookie is the full set.
type CookieManager struct {
	name       string
	validity   time.Duration
	production bool
}

func NewCookieManager(name string, validity time.Duration, production bool) *CookieManager {
	return &CookieManager{name: name, validity: validity, production: production}
}

func (m *CookieManager) Name() string { return m.name }

// Issue sets the cookie to token, expiring at expiresAt.
func (m *CookieManager) Issue(w http.ResponseWriter, token string, expiresAt time.Time) {
	c := m.base()
	c.Value = token
	c.Expires = expiresAt.UTC()
	c.MaxAge = int(m.validity.Seconds())
	http.SetCookie(w, c)
}

// Clear overwrites the cookie with an already expired empty value.
func (m *CookieManager) Clear(w http.ResponseWriter) {
	c := m.base()
	c.Expires = time.Unix(0, 0).UTC()
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// Read returns the cookie value from r, or "" when absent.
func (m *CookieManager) Read(r *http.Request) string {
	c, err := r.Cookie(m.name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (m *CookieManager) base() *http.Cookie {
	c := &http.Cookie{
		Name:     m.name,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if m.production {
		c.Secure = true
		c.SameSite = http.SameSiteStrictMode
	}
	return c
}
