package auth

import (
	"net/http"
	"strings"

	svc "github.com/dropDatabas3/storegate/internal/http/services/auth"
	"github.com/dropDatabas3/storegate/internal/identity"
	"github.com/dropDatabas3/storegate/internal/observability/logger"
	"github.com/dropDatabas3/storegate/internal/security/secretbox"
	"github.com/dropDatabas3/storegate/internal/tenant"
)

// CallbackController maneja los retornos del identity provider.
type CallbackController struct {
	service  svc.CallbackService
	resolver *tenant.Resolver
	idp      *identity.Adapter
	box      *secretbox.Box
	cookies  FlowCookies
}

// NewCallbackController crea el controller de callbacks.
func NewCallbackController(service svc.CallbackService, resolver *tenant.Resolver, idp *identity.Adapter, box *secretbox.Box, cookies FlowCookies) *CallbackController {
	return &CallbackController{
		service:  service,
		resolver: resolver,
		idp:      idp,
		box:      box,
		cookies:  cookies,
	}
}

// Callback maneja GET /auth/callback, /store/{slug}/auth/callback y
// /admin/auth/callback. Siempre termina en exactamente un redirect.
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"))

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		http.Redirect(w, r, "/login?error="+svc.CodeInvalidCallback, http.StatusFound)
		return
	}

	q := r.URL.Query()
	req := svc.CallbackRequest{
		Flow:          flowFromPath(r.URL.Path),
		Code:          q.Get("code"),
		AccessToken:   q.Get("access_token"),
		RefreshToken:  q.Get("refresh_token"),
		ProviderError: q.Get("error"),
		Hints: svc.ReconcileHints{
			Name:    q.Get("name"),
			Phone:   q.Get("phone"),
			Address: q.Get("address"),
			City:    q.Get("city"),
		},
	}

	if slug, ok := c.resolver.Resolve(r); ok {
		req.Slug = slug
	}
	if env, ok := tenant.DecodeState(q.Get("state")); ok {
		req.RedirectHint = env.Redirect
	}
	req.PKCEVerifier = c.readVerifier(r)

	result := c.service.HandleCallback(ctx, req)

	// Los cookies efímeros del flujo se consumen acá, pase lo que pase.
	c.cookies.clear(w, c.cookies.PKCEName)
	c.cookies.clear(w, c.cookies.SlugName)

	if result.Session != nil {
		if err := c.idp.IssueCookies(w, result.Session); err != nil {
			log.Error("session cookie issuance failed", logger.Err(err))
			http.Redirect(w, r, "/login?error="+svc.CodeAuthFailed, http.StatusFound)
			return
		}
	}

	http.Redirect(w, r, result.Redirect, http.StatusFound)
}

// readVerifier recupera el code_verifier PKCE del cookie pre-redirect.
func (c *CallbackController) readVerifier(r *http.Request) string {
	ck, err := r.Cookie(c.cookies.PKCEName)
	if err != nil || ck.Value == "" {
		return ""
	}
	if c.box == nil {
		return ck.Value
	}
	v, err := c.box.Open(ck.Value)
	if err != nil {
		// Cookie corrupto o de otra key: el exchange sigue sin PKCE y el
		// provider decide si lo exige.
		logger.From(r.Context()).Debug("pkce cookie rejected", logger.Err(err))
		return ""
	}
	return v
}

func flowFromPath(path string) svc.Flow {
	switch {
	case path == "/admin/auth/callback":
		return svc.FlowAdmin
	case strings.HasPrefix(path, "/store/"):
		return svc.FlowStore
	default:
		return svc.FlowGeneric
	}
}
