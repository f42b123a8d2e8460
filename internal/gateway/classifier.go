// Package gateway clasifica rutas entrantes y decide, por request, entre
// dejar pasar, redirigir o ejecutar el callback de autenticación.
package gateway

import "strings"

// Category es la categoría de protección de una ruta.
type Category int

const (
	// CategoryPublic: páginas de marketing y entrada de auth. Sin sesión.
	CategoryPublic Category = iota

	// CategoryStorefrontPublic: vidriera de una tienda. Navegable sin sesión.
	CategoryStorefrontPublic

	// CategoryDashboard: superficie operativa del importador. Requiere sesión.
	CategoryDashboard

	// CategoryAdmin: superficie de plataforma. Requiere sesión + super-admin.
	CategoryAdmin

	// CategoryAuthCallback: retornos del identity provider. Se procesan, no
	// se protegen.
	CategoryAuthCallback

	// CategoryStatic: assets y endpoints de infraestructura. Fuera del
	// pipeline de auth.
	CategoryStatic
)

func (c Category) String() string {
	switch c {
	case CategoryPublic:
		return "public"
	case CategoryStorefrontPublic:
		return "storefront_public"
	case CategoryDashboard:
		return "dashboard"
	case CategoryAdmin:
		return "admin"
	case CategoryAuthCallback:
		return "auth_callback"
	case CategoryStatic:
		return "static"
	default:
		return "unknown"
	}
}

// publicExact: rutas públicas de match exacto.
var publicExact = map[string]struct{}{
	"/":         {},
	"/login":    {},
	"/register": {},
	"/pricing":  {},
	"/about":    {},
	"/contact":  {},
	"/terms":    {},
	"/privacy":  {},
}

// authEntry: páginas de entrada de auth. Públicas, pero un principal ya
// autenticado que las visita rebota a su superficie propia.
var authEntry = map[string]struct{}{
	"/login":    {},
	"/register": {},
}

// callbackPaths: retornos del provider con redirect URI fijo.
var callbackPaths = map[string]struct{}{
	"/auth/callback":       {},
	"/admin/auth/callback": {},
}

// dashboardPrefixes: superficie del importador. Cualquier subárbol nuevo que
// se agregue acá nace protegido.
var dashboardPrefixes = []string{
	"/dashboard",
	"/products",
	"/customers",
	"/orders",
	"/shipments",
	"/finances",
	"/settings",
}

// Classifier clasifica paths. Es puro: sin IO, sin estado de request.
type Classifier struct {
	// StaticPrefixes se evalúan primero y cortocircuitan el pipeline.
	StaticPrefixes []string
}

// NewClassifier crea el clasificador con los prefijos estáticos dados (nil
// usa los defaults de siempre).
func NewClassifier(staticPrefixes []string) *Classifier {
	if staticPrefixes == nil {
		staticPrefixes = []string{"/static/", "/assets/", "/favicon.ico", "/robots.txt", "/healthz", "/readyz", "/metrics"}
	}
	return &Classifier{StaticPrefixes: staticPrefixes}
}

// Classify asigna categoría a un path. El orden de evaluación es fijo y la
// primera regla que matchea gana:
//
//	estáticos, callbacks, público exacto + /auth/*, /store/*,
//	prefijos de dashboard, /admin.
//
// Un path que no matchea ninguna regla cae en Dashboard: una ruta olvidada
// exige sesión en vez de quedar expuesta.
func (c *Classifier) Classify(path string) Category {
	for _, p := range c.StaticPrefixes {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return CategoryStatic
			}
		} else if path == p {
			return CategoryStatic
		}
	}

	if _, ok := callbackPaths[path]; ok {
		return CategoryAuthCallback
	}
	if strings.HasPrefix(path, "/store/") && strings.HasSuffix(path, "/auth/callback") {
		return CategoryAuthCallback
	}

	if _, ok := publicExact[path]; ok {
		return CategoryPublic
	}
	if strings.HasPrefix(path, "/auth/") {
		return CategoryPublic
	}

	if path == "/store" || strings.HasPrefix(path, "/store/") {
		return CategoryStorefrontPublic
	}

	for _, p := range dashboardPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return CategoryDashboard
		}
	}

	if path == "/admin" || strings.HasPrefix(path, "/admin/") {
		return CategoryAdmin
	}

	return CategoryDashboard
}

// IsAuthEntry reporta si el path es una página de entrada de auth, genérica
// (/login, /register) o de vidriera (/store/{slug}/login, .../register).
func (c *Classifier) IsAuthEntry(path string) bool {
	if _, ok := authEntry[path]; ok {
		return true
	}
	if !strings.HasPrefix(path, "/store/") {
		return false
	}
	return strings.HasSuffix(path, "/login") || strings.HasSuffix(path, "/register")
}
