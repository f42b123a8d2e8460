// Package router arma el árbol de rutas del gateway sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authctrl "github.com/dropDatabas3/storegate/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/storegate/internal/http/controllers/health"
	mw "github.com/dropDatabas3/storegate/internal/http/middlewares"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Health   *healthctrl.Controller
	Start    *authctrl.StartController
	Logout   *authctrl.LogoutController
	Callback *authctrl.CallbackController

	// Gateway es el middleware de autorización por request.
	Gateway mw.Middleware

	// App es la aplicación detrás del gateway: recibe todo request que el
	// gateway decide dejar pasar.
	App http.Handler

	// Metrics es el handler de /metrics (nil lo deshabilita).
	Metrics http.Handler
}

// New construye el router. Los endpoints de infraestructura quedan fuera del
// pipeline de auth; todo lo demás atraviesa el gateway, incluido el callback
// (lo despacha el propio middleware).
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	base := []mw.Middleware{
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
	}

	// Infraestructura: sin gateway, sin cookies.
	r.Method(http.MethodGet, "/healthz", mw.ChainFunc(deps.Health.Healthz, mw.WithRecover()))
	r.Method(http.MethodGet, "/readyz", mw.ChainFunc(deps.Health.Readyz, mw.WithRecover()))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	// Flujo de login: entra y sale del origin, no necesita sesión previa.
	// Las variantes de vidriera llevan el slug en el path.
	r.Method(http.MethodGet, "/auth/start", mw.ChainFunc(deps.Start.Start, base...))
	r.Method(http.MethodGet, "/store/{slug}/auth/start", mw.ChainFunc(deps.Start.Start, base...))
	r.Handle("/auth/logout", mw.ChainFunc(deps.Logout.Logout, base...))
	r.Handle("/store/{slug}/auth/logout", mw.ChainFunc(deps.Logout.Logout, base...))

	// Todo lo demás pasa por el gateway. Los callbacks también llegan acá:
	// el middleware los clasifica y despacha al controller de callback.
	protected := append(base, deps.Gateway)
	r.NotFound(mw.Chain(deps.App, protected...).ServeHTTP)

	return r
}
