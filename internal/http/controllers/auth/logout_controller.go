package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	svc "github.com/dropDatabas3/storegate/internal/http/services/auth"
	"github.com/dropDatabas3/storegate/internal/identity"
)

// LogoutController maneja el cierre de sesión.
type LogoutController struct {
	service svc.LogoutService
	idp     *identity.Adapter
	cookies FlowCookies
}

// NewLogoutController crea el controller de logout.
func NewLogoutController(service svc.LogoutService, idp *identity.Adapter, cookies FlowCookies) *LogoutController {
	return &LogoutController{service: service, idp: idp, cookies: cookies}
}

// Logout maneja GET/POST /auth/logout?slug=<store> y la variante de vidriera
// /store/{slug}/auth/logout. Limpia el par de cookies de sesión más el cookie
// de slug y redirige a una página pública.
func (c *LogoutController) Logout(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		slug = r.URL.Query().Get("slug")
	}
	redirect := c.service.Logout(r.Context(), slug)

	c.idp.ClearCookies(w)
	c.cookies.clear(w, c.cookies.SlugName)
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, redirect, http.StatusFound)
}
