// Package pg implementa core.Store sobre PostgreSQL con pgx.
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/storegate/internal/store/core"
)

// Config para el pool de conexiones.
type Config struct {
	DSN             string
	MaxConns        int
	ConnMaxLifetime time.Duration
}

type Store struct {
	pool *pgxpool.Pool

	tenants   *tenantRepo
	customers *customerRepo
	staff     *staffRepo
	admins    *adminRepo
}

// New crea el Store con un pool pgx. El handle se construye una vez por
// proceso y se pasa por referencia; "reset" es descartar y reconstruir.
func New(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	return &Store{
		pool:      pool,
		tenants:   &tenantRepo{pool: pool},
		customers: &customerRepo{pool: pool},
		staff:     &staffRepo{pool: pool},
		admins:    &adminRepo{pool: pool},
	}, nil
}

func (s *Store) Tenants() core.TenantRepository     { return s.tenants }
func (s *Store) Customers() core.CustomerRepository { return s.customers }
func (s *Store) Staff() core.StaffRepository        { return s.staff }
func (s *Store) Admins() core.AdminRepository       { return s.admins }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }
func (s *Store) Close()                         { s.pool.Close() }

// ─── TenantRepository ───

type tenantRepo struct{ pool *pgxpool.Pool }

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*core.Tenant, error) {
	const query = `
		SELECT id, slug, business_name, is_active, created_at
		FROM tenants
		WHERE slug = $1
	`
	var t core.Tenant
	err := r.pool.QueryRow(ctx, query, slug).Scan(
		&t.ID, &t.Slug, &t.BusinessName, &t.IsActive, &t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &t, nil
}

// ─── CustomerRepository ───

type customerRepo struct{ pool *pgxpool.Pool }

// Upsert es idempotente sobre (tenant_id, auth_subject_id). El ON CONFLICT lo
// resuelve el datastore de forma atómica: N llamadas concurrentes para el
// mismo par convergen en una sola fila.
//
// Antes del upsert se adopta (una sola vez) una fila pre-creada por email sin
// subject, para no duplicar clientes importados antes de su primer login. La
// adopción sólo corre si el par (tenant, subject) todavía no tiene fila: un
// import por email posterior al primer login no puede robar la identidad del
// vínculo existente ni chocar contra el índice único.
func (r *customerRepo) Upsert(ctx context.Context, in core.UpsertCustomerInput) (*core.CustomerLink, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer tx.Rollback(ctx)

	const adopt = `
		UPDATE store_customers
		SET auth_subject_id = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND auth_subject_id IS NULL AND lower(email) = lower($2)
		  AND NOT EXISTS (
			SELECT 1 FROM store_customers WHERE tenant_id = $1 AND auth_subject_id = $3
		  )
	`
	if _, err := tx.Exec(ctx, adopt, in.TenantID, in.Email, in.AuthSubjectID); err != nil {
		return nil, wrapErr(err)
	}

	// Campos mutables: EXCLUDED vacío no pisa valores existentes.
	const upsert = `
		INSERT INTO store_customers (
			tenant_id, auth_subject_id, email, name, phone, address, city, avatar_url,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (tenant_id, auth_subject_id) WHERE auth_subject_id IS NOT NULL
		DO UPDATE SET
			email      = EXCLUDED.email,
			name       = COALESCE(NULLIF(EXCLUDED.name, ''), store_customers.name),
			phone      = COALESCE(NULLIF(EXCLUDED.phone, ''), store_customers.phone),
			address    = COALESCE(NULLIF(EXCLUDED.address, ''), store_customers.address),
			city       = COALESCE(NULLIF(EXCLUDED.city, ''), store_customers.city),
			avatar_url = COALESCE(NULLIF(EXCLUDED.avatar_url, ''), store_customers.avatar_url),
			updated_at = NOW()
		RETURNING id, tenant_id, auth_subject_id, email, name, phone, address, city,
			avatar_url, created_at, updated_at
	`
	var link core.CustomerLink
	err = tx.QueryRow(ctx, upsert,
		in.TenantID, in.AuthSubjectID, in.Email,
		in.Name, in.Phone, in.Address, in.City, in.AvatarURL,
	).Scan(
		&link.ID, &link.TenantID, &link.AuthSubjectID, &link.Email, &link.Name,
		&link.Phone, &link.Address, &link.City, &link.AvatarURL,
		&link.CreatedAt, &link.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapErr(err)
	}
	return &link, nil
}

// ─── StaffRepository ───

type staffRepo struct{ pool *pgxpool.Pool }

func (r *staffRepo) FindBySubject(ctx context.Context, authSubjectID string) (*core.StaffMembership, error) {
	const query = `
		SELECT id, tenant_id, auth_subject_id, email, name, role, created_at
		FROM staff_members
		WHERE auth_subject_id = $1
	`
	var m core.StaffMembership
	err := r.pool.QueryRow(ctx, query, authSubjectID).Scan(
		&m.ID, &m.TenantID, &m.AuthSubjectID, &m.Email, &m.Name, &m.Role, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return &m, nil
}

// ─── AdminRepository ───

type adminRepo struct{ pool *pgxpool.Pool }

func (r *adminRepo) IsSuperAdmin(ctx context.Context, authSubjectID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM platform_admins WHERE auth_subject_id = $1
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, authSubjectID).Scan(&exists); err != nil {
		return false, wrapErr(err)
	}
	return exists, nil
}

// wrapErr mapea errores de pgx a los sentinelas de core.
func wrapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23xxx: integrity constraint violation
		if len(pgErr.Code) == 5 && pgErr.Code[:2] == "23" {
			return core.ErrConflict
		}
	}
	return err
}
