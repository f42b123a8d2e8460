package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dropDatabas3/storegate/internal/identity"
	"github.com/dropDatabas3/storegate/internal/store/memory"
)

func testSession(subject string) *identity.Session {
	return &identity.Session{
		SubjectID: subject,
		Email:     subject + "@example.com",
		Name:      "Ana",
	}
}

func TestReconcile_CreatesLink(t *testing.T) {
	st := memory.New()
	svc := NewReconcileService(ReconcileDeps{Customers: st.Customers()})

	link, err := svc.Reconcile(context.Background(), "t-1", testSession("sub-1"), ReconcileHints{
		Phone: "555-1234",
		City:  "Rosario",
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if link.TenantID != "t-1" || link.AuthSubjectID != "sub-1" {
		t.Fatalf("unexpected link %+v", link)
	}
	if link.Phone != "555-1234" || link.City != "Rosario" {
		t.Fatalf("hints not applied: %+v", link)
	}
	if link.Email != "sub-1@example.com" {
		t.Fatalf("email = %q", link.Email)
	}
}

// N llamadas concurrentes para el mismo (tenant, subject) convergen a un
// único vínculo.
func TestReconcile_IdempotentUnderConcurrency(t *testing.T) {
	st := memory.New()
	svc := NewReconcileService(ReconcileDeps{Customers: st.Customers()})

	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.Reconcile(context.Background(), "t-1", testSession("sub-1"), ReconcileHints{}); err != nil {
				t.Errorf("Reconcile: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := st.CustomerCount(); got != 1 {
		t.Fatalf("customer count = %d, want 1", got)
	}
}

// Una fila importada antes del primer login (solo email) se adopta: gana el
// subject y no se duplica.
func TestReconcile_AdoptsPreCreatedRowByEmail(t *testing.T) {
	st := memory.New()
	st.SeedCustomerByEmail("t-1", "sub-1@example.com")
	svc := NewReconcileService(ReconcileDeps{Customers: st.Customers()})

	link, err := svc.Reconcile(context.Background(), "t-1", testSession("sub-1"), ReconcileHints{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if link.AuthSubjectID != "sub-1" {
		t.Fatalf("subject not adopted: %+v", link)
	}
	if got := st.CustomerCount(); got != 1 {
		t.Fatalf("customer count = %d, want 1 (adopted, not duplicated)", got)
	}
}

// Un import por email posterior al primer login no roba la identidad del
// vínculo existente: el reconcile sigue convergiendo a la misma fila.
func TestReconcile_ImportAfterFirstLoginKeepsLink(t *testing.T) {
	st := memory.New()
	svc := NewReconcileService(ReconcileDeps{Customers: st.Customers()})
	ctx := context.Background()

	first, err := svc.Reconcile(ctx, "t-1", testSession("sub-1"), ReconcileHints{})
	if err != nil {
		t.Fatalf("first reconcile: %v", err)
	}

	// El importador vuelve a cargar el mismo email después del login.
	st.SeedCustomerByEmail("t-1", "sub-1@example.com")

	second, err := svc.Reconcile(ctx, "t-1", testSession("sub-1"), ReconcileHints{})
	if err != nil {
		t.Fatalf("reconcile after import: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("link identity churned: first ID %s, second ID %s", first.ID, second.ID)
	}
	// La fila importada queda huérfana, no adoptada.
	if got := st.CustomerCount(); got != 2 {
		t.Fatalf("customer count = %d, want 2 (link + orphan import row)", got)
	}
}

func TestReconcile_HintsDoNotEraseExistingFields(t *testing.T) {
	st := memory.New()
	svc := NewReconcileService(ReconcileDeps{Customers: st.Customers()})
	ctx := context.Background()

	if _, err := svc.Reconcile(ctx, "t-1", testSession("sub-1"), ReconcileHints{Phone: "555-1234"}); err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	link, err := svc.Reconcile(ctx, "t-1", testSession("sub-1"), ReconcileHints{})
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if link.Phone != "555-1234" {
		t.Fatalf("phone erased by empty hint: %+v", link)
	}
}

func TestReconcile_InputValidation(t *testing.T) {
	st := memory.New()
	svc := NewReconcileService(ReconcileDeps{Customers: st.Customers()})
	ctx := context.Background()

	if _, err := svc.Reconcile(ctx, "", testSession("sub-1"), ReconcileHints{}); !errors.Is(err, ErrReconcileNoTenant) {
		t.Fatalf("want ErrReconcileNoTenant, got %v", err)
	}
	if _, err := svc.Reconcile(ctx, "t-1", &identity.Session{}, ReconcileHints{}); !errors.Is(err, ErrReconcileNoSubject) {
		t.Fatalf("want ErrReconcileNoSubject, got %v", err)
	}
	if _, err := svc.Reconcile(ctx, "t-1", nil, ReconcileHints{}); !errors.Is(err, ErrReconcileNoSubject) {
		t.Fatalf("want ErrReconcileNoSubject for nil session, got %v", err)
	}
}
