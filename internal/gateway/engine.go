package gateway

import (
	"context"
	"errors"
	"net/url"

	"github.com/dropDatabas3/storegate/internal/identity"
	"github.com/dropDatabas3/storegate/internal/observability/logger"
	"github.com/dropDatabas3/storegate/internal/principal"
)

// DecisionKind es el veredicto del engine para un request.
type DecisionKind int

const (
	// DecisionAllow: el request sigue al handler de la aplicación.
	DecisionAllow DecisionKind = iota

	// DecisionRedirect: 302 a Location.
	DecisionRedirect

	// DecisionHandleCallback: el request es un retorno del provider y debe
	// despacharse al handler de callback.
	DecisionHandleCallback

	// DecisionError: falla de infraestructura durante la autorización.
	// Se responde error, nunca se deja pasar.
	DecisionError
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionAllow:
		return "allow"
	case DecisionRedirect:
		return "redirect"
	case DecisionHandleCallback:
		return "handle_callback"
	case DecisionError:
		return "error"
	default:
		return "unknown"
	}
}

// Decision es el resultado de evaluar un request.
type Decision struct {
	Kind     DecisionKind
	Category Category
	Location string // sólo para DecisionRedirect
	Err      error  // sólo para DecisionError
}

// Input es lo que el engine necesita de un request, ya extraído. No toca el
// *http.Request: eso lo hace el middleware y mantiene al engine puro.
type Input struct {
	Path      string
	Session   *identity.Session // nil si no hay cookie válida
	StoreSlug string            // slug del path /store/{slug}, si aplica
}

// Engine evalúa requests contra las reglas de protección por categoría.
// La verificación de roles es autoritativa (datastore), nunca el claim scope.
type Engine struct {
	classifier *Classifier
	verifier   *principal.Verifier
}

// NewEngine construye el engine.
func NewEngine(c *Classifier, v *principal.Verifier) *Engine {
	return &Engine{classifier: c, verifier: v}
}

// Classifier expone el clasificador (lo usa el router para excluir estáticos).
func (e *Engine) Classifier() *Classifier { return e.classifier }

// Decide ejecuta la máquina por request: clasificar, y según categoría dejar
// pasar, exigir sesión, exigir super-admin o despachar el callback.
func (e *Engine) Decide(ctx context.Context, in Input) Decision {
	cat := e.classifier.Classify(in.Path)
	d := Decision{Kind: DecisionAllow, Category: cat}

	switch cat {
	case CategoryStatic:
		return d

	case CategoryStorefrontPublic:
		if in.Session != nil && e.classifier.IsAuthEntry(in.Path) {
			return e.bounceHome(ctx, in, d)
		}
		return d

	case CategoryAuthCallback:
		d.Kind = DecisionHandleCallback
		return d

	case CategoryPublic:
		if in.Session != nil && e.classifier.IsAuthEntry(in.Path) {
			return e.bounceHome(ctx, in, d)
		}
		return d

	case CategoryDashboard:
		if in.Session == nil {
			return redirectToLogin(d, in.Path)
		}
		// Un super-admin no opera dashboards de importadores.
		isAdmin, err := e.verifier.Derive(ctx, in.Session.SubjectID, in.Session.Email, "")
		if err != nil {
			d.Kind = DecisionError
			d.Err = err
			return d
		}
		if isAdmin.Kind == principal.KindSuperAdmin {
			d.Kind = DecisionRedirect
			d.Location = "/admin"
			return d
		}
		return d

	case CategoryAdmin:
		if in.Session == nil {
			return redirectToLogin(d, in.Path)
		}
		err := e.verifier.RequireSuperAdmin(ctx, in.Session.SubjectID)
		switch {
		case err == nil:
			return d
		case errors.Is(err, principal.ErrNotSuperAdmin):
			// Sin detalle: el redirect no revela qué existe detrás de /admin.
			logger.From(ctx).Warn("admin surface denied",
				logger.Subject(in.Session.SubjectID), logger.Path(in.Path))
			d.Kind = DecisionRedirect
			d.Location = "/dashboard"
			return d
		default:
			d.Kind = DecisionError
			d.Err = err
			return d
		}
	}

	return d
}

// bounceHome redirige un principal ya autenticado desde una página de entrada
// de auth hacia su superficie propia. Si el datastore falla, la página de
// entrada se muestra igual: es pública y no otorga privilegio.
func (e *Engine) bounceHome(ctx context.Context, in Input, d Decision) Decision {
	p, err := e.verifier.Derive(ctx, in.Session.SubjectID, in.Session.Email, "")
	if err != nil {
		logger.From(ctx).Warn("principal derivation failed on auth entry", logger.Err(err))
		return d
	}
	slug := in.StoreSlug
	if slug == "" {
		slug = customerSlugFromScope(in.Session.Scope)
	}
	if p.Kind == principal.KindNone {
		if slug == "" {
			// Sin clase resoluble: la página de entrada se muestra.
			return d
		}
		// Cliente de tienda: el vínculo vive bajo el tenant, no global.
		d.Kind = DecisionRedirect
		d.Location = "/store/" + slug + "/account"
		return d
	}
	d.Kind = DecisionRedirect
	d.Location = p.HomePath(slug)
	return d
}

func redirectToLogin(d Decision, path string) Decision {
	d.Kind = DecisionRedirect
	d.Location = "/login?redirect=" + url.QueryEscape(path)
	return d
}

// customerSlugFromScope extrae el slug de un claim "customer:<slug>".
func customerSlugFromScope(scope string) string {
	const prefix = "customer:"
	if len(scope) > len(prefix) && scope[:len(prefix)] == prefix {
		return scope[len(prefix):]
	}
	return ""
}
