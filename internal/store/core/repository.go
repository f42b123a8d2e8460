package core

import "context"

// TenantRepository lee tenants. Read-only desde la perspectiva del gateway.
type TenantRepository interface {
	// GetBySlug retorna el tenant activo con ese slug, o ErrNotFound.
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
}

// CustomerRepository administra los vínculos customer↔subject.
type CustomerRepository interface {
	// Upsert crea o actualiza el vínculo de forma idempotente sobre la clave
	// (tenant_id, auth_subject_id). Concurrencia: la unicidad la garantiza el
	// datastore, no un read-then-write.
	Upsert(ctx context.Context, in UpsertCustomerInput) (*CustomerLink, error)
}

// StaffRepository lee membresías de staff.
type StaffRepository interface {
	// FindBySubject retorna la membresía del subject, o ErrNotFound.
	FindBySubject(ctx context.Context, authSubjectID string) (*StaffMembership, error)
}

// AdminRepository responde si un subject es super-admin de la plataforma.
// Es la lectura autoritativa detrás del verificador de roles: nunca se
// confía en claims del cliente para esta decisión.
type AdminRepository interface {
	IsSuperAdmin(ctx context.Context, authSubjectID string) (bool, error)
}

// Store agrupa los repositorios del gateway. Se construye una vez por proceso
// y se pasa por referencia; no hay singleton ambiente.
type Store interface {
	Tenants() TenantRepository
	Customers() CustomerRepository
	Staff() StaffRepository
	Admins() AdminRepository

	Ping(ctx context.Context) error
	Close()
}
