package principal

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/storegate/internal/store/core"
	"github.com/dropDatabas3/storegate/internal/store/memory"
)

func newTestVerifier() *Verifier {
	st := memory.New()
	st.SeedTenant(core.Tenant{ID: "t-1", Slug: "acme", IsActive: true})
	st.SeedStaff(core.StaffMembership{TenantID: "t-1", AuthSubjectID: "staff1", Role: "owner"})
	st.SeedSuperAdmin("root1")
	return NewVerifier(st.Staff(), st.Admins())
}

func TestRequireSuperAdmin(t *testing.T) {
	v := newTestVerifier()
	ctx := context.Background()

	if err := v.RequireSuperAdmin(ctx, "root1"); err != nil {
		t.Fatalf("root1: %v", err)
	}
	if err := v.RequireSuperAdmin(ctx, "staff1"); !errors.Is(err, ErrNotSuperAdmin) {
		t.Fatalf("staff1: want ErrNotSuperAdmin, got %v", err)
	}
	if err := v.RequireSuperAdmin(ctx, "nobody"); !errors.Is(err, ErrNotSuperAdmin) {
		t.Fatalf("nobody: want ErrNotSuperAdmin, got %v", err)
	}
}

func TestDerive_PrivilegeOrder(t *testing.T) {
	v := newTestVerifier()
	ctx := context.Background()

	p, err := v.Derive(ctx, "root1", "root@example.com", "")
	if err != nil || p.Kind != KindSuperAdmin {
		t.Fatalf("root1: (%+v, %v)", p, err)
	}

	p, err = v.Derive(ctx, "staff1", "staff@example.com", "")
	if err != nil || p.Kind != KindImporterStaff || p.TenantID != "t-1" || p.Role != "owner" {
		t.Fatalf("staff1: (%+v, %v)", p, err)
	}

	// Con tenant de contexto, un subject sin vínculos es customer del tenant.
	p, err = v.Derive(ctx, "someone", "x@example.com", "t-1")
	if err != nil || p.Kind != KindStoreCustomer || p.TenantID != "t-1" {
		t.Fatalf("customer: (%+v, %v)", p, err)
	}

	// Sin tenant de contexto no hay clase.
	p, err = v.Derive(ctx, "someone", "x@example.com", "")
	if err != nil || p.Kind != KindNone {
		t.Fatalf("none: (%+v, %v)", p, err)
	}
}

func TestHomePath(t *testing.T) {
	cases := []struct {
		p    Principal
		slug string
		want string
	}{
		{Principal{Kind: KindSuperAdmin}, "", "/admin"},
		{Principal{Kind: KindImporterStaff}, "", "/dashboard"},
		{Principal{Kind: KindStoreCustomer}, "acme", "/store/acme/account"},
		{Principal{Kind: KindStoreCustomer}, "", "/"},
		{Principal{Kind: KindNone}, "", "/"},
	}
	for _, tc := range cases {
		if got := tc.p.HomePath(tc.slug); got != tc.want {
			t.Fatalf("HomePath(%v, %q) = %q, want %q", tc.p.Kind, tc.slug, got, tc.want)
		}
	}
}
