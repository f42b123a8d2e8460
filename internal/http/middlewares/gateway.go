package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/storegate/internal/gateway"
	"github.com/dropDatabas3/storegate/internal/http/errors"
	"github.com/dropDatabas3/storegate/internal/identity"
	"github.com/dropDatabas3/storegate/internal/metrics"
	"github.com/dropDatabas3/storegate/internal/observability/logger"
	"github.com/dropDatabas3/storegate/internal/tenant"
)

// WithGateway es el corazón del proxy: por cada request reconstruye la sesión
// desde el cookie, clasifica la ruta y ejecuta la decisión del engine.
// callback atiende los retornos del identity provider; el resto de las rutas
// permitidas sigue a next con la sesión (si hay) en el contexto.
func WithGateway(engine *gateway.Engine, idp *identity.Adapter, callback http.Handler) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sess := idp.CurrentSession(r)
			in := gateway.Input{
				Path:      r.URL.Path,
				Session:   sess,
				StoreSlug: tenant.SlugFromPath(r.URL.Path),
			}

			d := engine.Decide(ctx, in)
			metrics.ObserveDecision(d.Category.String(), d.Kind.String())

			if d.Category != gateway.CategoryStatic {
				log := logger.From(ctx).With(
					logger.Category(d.Category.String()),
					logger.Decision(d.Kind.String()),
				)
				if sess != nil {
					log = log.With(logger.Subject(sess.SubjectID))
				}
				ctx = logger.ToContext(ctx, log)
				r = r.WithContext(ctx)
			}

			switch d.Kind {
			case gateway.DecisionRedirect:
				http.Redirect(w, r, d.Location, http.StatusFound)

			case gateway.DecisionHandleCallback:
				callback.ServeHTTP(w, r.WithContext(WithSession(ctx, sess)))

			case gateway.DecisionError:
				logger.From(ctx).Error("authorization check failed", logger.Err(d.Err))
				errors.WriteError(w, errors.ErrServiceUnavailable.WithCause(d.Err))

			default:
				if sess != nil {
					r = r.WithContext(WithSession(ctx, sess))
				}
				next.ServeHTTP(w, r)
			}
		})
	}
}
