package api

import (
	"net/http"
	"time"
)

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	c := &http.Cookie{
		Name:     h.guard.CookieName(),
		Value:    token,
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	}
	if h.tokenTTL > 0 {
		c.MaxAge = int(h.tokenTTL.Seconds())
		c.Expires = time.Now().Add(h.tokenTTL).UTC()
	}
	http.SetCookie(w, c)
}

func (h *Handler) expireSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.guard.CookieName(),
		Value:    "",
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}
