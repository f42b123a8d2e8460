// Package memory implementa core.Store en memoria para desarrollo y tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/storegate/internal/store/core"
)

type Store struct {
	mu        sync.Mutex
	tenants   map[string]*core.Tenant          // slug -> tenant
	customers map[string]*core.CustomerLink    // tenantID|subject -> link
	staff     map[string]*core.StaffMembership // subject -> membership
	admins    map[string]bool                  // subject -> true

	// FailUpserts fuerza fallos del reconciliador en tests.
	FailUpserts bool
}

func New() *Store {
	return &Store{
		tenants:   make(map[string]*core.Tenant),
		customers: make(map[string]*core.CustomerLink),
		staff:     make(map[string]*core.StaffMembership),
		admins:    make(map[string]bool),
	}
}

func (s *Store) Tenants() core.TenantRepository     { return (*tenantRepo)(s) }
func (s *Store) Customers() core.CustomerRepository { return (*customerRepo)(s) }
func (s *Store) Staff() core.StaffRepository        { return (*staffRepo)(s) }
func (s *Store) Admins() core.AdminRepository       { return (*adminRepo)(s) }

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

// ─── Seeding helpers ───

func (s *Store) SeedTenant(t core.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.tenants[t.Slug] = &t
}

func (s *Store) SeedStaff(m core.StaffMembership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	s.staff[m.AuthSubjectID] = &m
}

func (s *Store) SeedSuperAdmin(authSubjectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[authSubjectID] = true
}

// SeedCustomerByEmail pre-crea un cliente sin subject (importado antes de su
// primer login) para probar la adopción por email.
func (s *Store) SeedCustomerByEmail(tenantID, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link := &core.CustomerLink{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Email:     email,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.customers["email:"+tenantID+"|"+strings.ToLower(email)] = link
}

// CustomerCount retorna la cantidad de vínculos (para asserts de idempotencia).
func (s *Store) CustomerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.customers)
}

// ─── TenantRepository ───

type tenantRepo Store

func (r *tenantRepo) GetBySlug(_ context.Context, slug string) (*core.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[slug]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// ─── CustomerRepository ───

type customerRepo Store

func (r *customerRepo) Upsert(_ context.Context, in core.UpsertCustomerInput) (*core.CustomerLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailUpserts {
		return nil, core.ErrUnavailable
	}

	key := in.TenantID + "|" + in.AuthSubjectID

	// Adopción por email de una fila pre-creada sin subject. Sólo si el par
	// (tenant, subject) todavía no tiene vínculo: un import posterior al
	// primer login no reemplaza la identidad existente.
	emailKey := "email:" + in.TenantID + "|" + strings.ToLower(in.Email)
	if pre, ok := r.customers[emailKey]; ok && in.Email != "" {
		if _, linked := r.customers[key]; !linked {
			delete(r.customers, emailKey)
			pre.AuthSubjectID = in.AuthSubjectID
			r.customers[key] = pre
		}
	}

	link, ok := r.customers[key]
	if !ok {
		link = &core.CustomerLink{
			ID:            uuid.NewString(),
			TenantID:      in.TenantID,
			AuthSubjectID: in.AuthSubjectID,
			CreatedAt:     time.Now(),
		}
		r.customers[key] = link
	}

	link.Email = in.Email
	if in.Name != "" {
		link.Name = in.Name
	}
	if in.Phone != "" {
		link.Phone = in.Phone
	}
	if in.Address != "" {
		link.Address = in.Address
	}
	if in.City != "" {
		link.City = in.City
	}
	if in.AvatarURL != "" {
		link.AvatarURL = in.AvatarURL
	}
	link.UpdatedAt = time.Now()

	cp := *link
	return &cp, nil
}

// ─── StaffRepository ───

type staffRepo Store

func (r *staffRepo) FindBySubject(_ context.Context, authSubjectID string) (*core.StaffMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.staff[authSubjectID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

// ─── AdminRepository ───

type adminRepo Store

func (r *adminRepo) IsSuperAdmin(_ context.Context, authSubjectID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.admins[authSubjectID], nil
}
