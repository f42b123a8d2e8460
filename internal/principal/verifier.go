package principal

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/storegate/internal/store/core"
)

// ErrNotSuperAdmin: el subject autenticó bien pero no figura como super-admin.
var ErrNotSuperAdmin = errors.New("principal: subject is not a super admin")

// Verifier deriva la clase de principal de un subject leyendo el datastore.
// Los claims del cookie de sesión son ADVISORY: cualquier decisión que otorga
// privilegio pasa por acá, nunca por el claim.
type Verifier struct {
	staff  core.StaffRepository
	admins core.AdminRepository
}

// NewVerifier construye el Verifier.
func NewVerifier(staff core.StaffRepository, admins core.AdminRepository) *Verifier {
	return &Verifier{staff: staff, admins: admins}
}

// RequireSuperAdmin verifica que el subject sea super-admin. Falla cerrado:
// error de datastore => error, nunca un falso positivo.
func (v *Verifier) RequireSuperAdmin(ctx context.Context, subjectID string) error {
	ok, err := v.admins.IsSuperAdmin(ctx, subjectID)
	if err != nil {
		return fmt.Errorf("principal: super admin check: %w", err)
	}
	if !ok {
		return ErrNotSuperAdmin
	}
	return nil
}

// Derive resuelve la clase efectiva del subject, en orden de privilegio:
// super-admin, luego staff, luego customer del tenant indicado (si hay),
// y si nada matchea, KindNone. Errores de datastore se propagan; el caller
// decide si degradar o rechazar.
func (v *Verifier) Derive(ctx context.Context, subjectID, email, tenantID string) (Principal, error) {
	p := Principal{Kind: KindNone, SubjectID: subjectID, Email: email}

	isAdmin, err := v.admins.IsSuperAdmin(ctx, subjectID)
	if err != nil {
		return p, fmt.Errorf("principal: super admin check: %w", err)
	}
	if isAdmin {
		p.Kind = KindSuperAdmin
		return p, nil
	}

	m, err := v.staff.FindBySubject(ctx, subjectID)
	switch {
	case err == nil:
		p.Kind = KindImporterStaff
		p.TenantID = m.TenantID
		p.Role = m.Role
		return p, nil
	case errors.Is(err, core.ErrNotFound):
		// Sigue la evaluación como customer.
	default:
		return p, fmt.Errorf("principal: staff lookup: %w", err)
	}

	if tenantID != "" {
		p.Kind = KindStoreCustomer
		p.TenantID = tenantID
	}
	return p, nil
}
