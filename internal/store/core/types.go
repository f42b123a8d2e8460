package core

import "time"

// Tenant es un importador/tienda de la plataforma.
// El slug es inmutable una vez creado y es la clave de resolución en callbacks.
type Tenant struct {
	ID           string
	Slug         string
	BusinessName string
	IsActive     bool
	CreatedAt    time.Time
}

// CustomerLink vincula un subject del identity provider con un cliente de la
// tienda. Clave natural canónica: (tenant_id, auth_subject_id).
// (tenant_id, email) se usa sólo para adoptar filas pre-creadas sin subject.
type CustomerLink struct {
	ID            string
	TenantID      string
	AuthSubjectID string
	Email         string
	Name          string
	Phone         string
	Address       string
	City          string
	AvatarURL     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StaffMembership vincula un subject con el staff de un importador.
type StaffMembership struct {
	ID            string
	TenantID      string
	AuthSubjectID string
	Email         string
	Name          string
	Role          string
	CreatedAt     time.Time
}

// UpsertCustomerInput es la entrada del upsert idempotente de CustomerLink.
// Los campos mutables vacíos NO pisan valores existentes.
type UpsertCustomerInput struct {
	TenantID      string
	AuthSubjectID string
	Email         string
	Name          string
	Phone         string
	Address       string
	City          string
	AvatarURL     string
}
