// Package principal modela las tres clases de principales de la plataforma y
// deriva la clase efectiva de un subject contra el datastore.
package principal

// Kind es la clase de principal.
type Kind int

const (
	// KindNone: subject autenticado sin vínculo con la plataforma.
	KindNone Kind = iota

	// KindSuperAdmin opera la plataforma completa. No está atado a un tenant.
	KindSuperAdmin

	// KindImporterStaff opera el dashboard de UN importador.
	KindImporterStaff

	// KindStoreCustomer compra en la vidriera de UN importador.
	KindStoreCustomer
)

func (k Kind) String() string {
	switch k {
	case KindSuperAdmin:
		return "super_admin"
	case KindImporterStaff:
		return "importer_staff"
	case KindStoreCustomer:
		return "store_customer"
	default:
		return "none"
	}
}

// Principal es la identidad efectiva de un request autenticado. Para staff y
// customers TenantID identifica el importador al que pertenecen; para el
// super-admin queda vacío.
type Principal struct {
	Kind      Kind
	SubjectID string
	Email     string
	TenantID  string

	// Role es el rol fino dentro del staff ("owner", "manager", ...).
	// Vacío para las otras clases.
	Role string
}

// HomePath es la superficie propia de la clase: donde aterriza un principal
// autenticado que visita una página de entrada de auth.
func (p Principal) HomePath(storeSlug string) string {
	switch p.Kind {
	case KindSuperAdmin:
		return "/admin"
	case KindImporterStaff:
		return "/dashboard"
	case KindStoreCustomer:
		if storeSlug != "" {
			return "/store/" + storeSlug + "/account"
		}
		return "/"
	default:
		return "/"
	}
}
