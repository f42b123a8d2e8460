// Package auth contiene los controllers del flujo de autenticación. Traducen
// HTTP a llamadas de servicio; toda la lógica de flujo vive en los services.
package auth

import (
	"net/http"
	"time"
)

// FlowCookies define los cookies efímeros del flujo de login: el fallback de
// slug y el code_verifier PKCE sellado. Ambos se escriben antes del redirect
// al provider y se consumen (y limpian) en el callback.
type FlowCookies struct {
	SlugName string
	PKCEName string
	Secure   bool
	TTL      time.Duration
}

func (f FlowCookies) write(w http.ResponseWriter, name, value string) {
	ttl := f.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   f.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (f FlowCookies) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   f.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
