package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/dropDatabas3/storegate/internal/http/errors"
	svc "github.com/dropDatabas3/storegate/internal/http/services/auth"
	"github.com/dropDatabas3/storegate/internal/observability/logger"
)

// StartController maneja el inicio del login.
type StartController struct {
	service svc.StartService
	cookies FlowCookies
}

// NewStartController crea el controller de inicio de login.
func NewStartController(service svc.StartService, cookies FlowCookies) *StartController {
	return &StartController{service: service, cookies: cookies}
}

// Start maneja GET /auth/start?slug=<store>&redirect=<path> y la variante de
// vidriera GET /store/{slug}/auth/start. Escribe los cookies efímeros del
// flujo y redirige al provider.
func (c *StartController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Start"))

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		slug = q.Get("slug")
	}
	result, err := c.service.Start(ctx, svc.StartRequest{
		Slug:     slug,
		Redirect: q.Get("redirect"),
	})
	if err != nil {
		if errors.Is(err, svc.ErrStartInvalidSlug) {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid slug"))
			return
		}
		log.Error("login start failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}

	if result.SlugCookieValue != "" {
		c.cookies.write(w, c.cookies.SlugName, result.SlugCookieValue)
	}
	c.cookies.write(w, c.cookies.PKCEName, result.VerifierCookieValue)

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}
