package auth

import (
	"net/http"
	"strings"
	"time"
)

// CookieName is the HttpOnly cookie that carries the token for browsers.
const CookieName = "token"

// TokenFromRequest returns the raw token a client presented, or "".
//
// TWO WAYS TO PRESENT A TOKEN:
//   - "Authorization: Bearer <jwt>": mobile apps and the shopctl CLI
//   - the HttpOnly "token" cookie: browsers, set by SetTokenCookie on sign-in
//
// The header wins when both are present.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value)
		}
		return ""
	}

	// http.ErrNoCookie means the cookie isn't present: not an error, just anonymous
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// SetTokenCookie stores the token in an HttpOnly cookie that expires with it.
//
// HttpOnly = JavaScript cannot read this cookie (XSS protection).
// SameSite=Lax = cookie is sent on top-level navigations but not cross-site POSTs.
// secure should be true in production (HTTPS only).
func SetTokenCookie(w http.ResponseWriter, token Token, secure bool) {
	maxAge := int(time.Until(token.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token.Value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie tells the browser to delete the token cookie.
func ClearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
