package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/storegate/internal/identity"
	"github.com/dropDatabas3/storegate/internal/observability/logger"
	"github.com/dropDatabas3/storegate/internal/store/core"
)

// ReconcileService links an established provider session to a local customer
// record, exactly once per (tenant, subject) pair.
type ReconcileService interface {
	// Reconcile upserts the linking record. Idempotent: N concurrent calls
	// for the same (tenant, subject) converge to one row. Errors are
	// non-fatal to authentication; the caller logs and proceeds.
	Reconcile(ctx context.Context, tenantID string, sess *identity.Session, hints ReconcileHints) (*core.CustomerLink, error)
}

// ReconcileDeps contains dependencies for the reconcile service.
type ReconcileDeps struct {
	Customers core.CustomerRepository
}

type reconcileService struct {
	customers core.CustomerRepository
}

// NewReconcileService creates a ReconcileService.
func NewReconcileService(deps ReconcileDeps) ReconcileService {
	return &reconcileService{customers: deps.Customers}
}

// Service errors
var (
	ErrReconcileNoSubject = fmt.Errorf("session has no subject")
	ErrReconcileNoTenant  = fmt.Errorf("tenant id is required")
)

func (s *reconcileService) Reconcile(ctx context.Context, tenantID string, sess *identity.Session, hints ReconcileHints) (*core.CustomerLink, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.reconcile"),
		logger.Op("Reconcile"),
		logger.TenantID(tenantID),
	)

	if tenantID == "" {
		return nil, ErrReconcileNoTenant
	}
	if sess == nil || sess.SubjectID == "" {
		return nil, ErrReconcileNoSubject
	}

	in := core.UpsertCustomerInput{
		TenantID:      tenantID,
		AuthSubjectID: sess.SubjectID,
		Email:         strings.TrimSpace(strings.ToLower(sess.Email)),
		Name:          firstNonEmpty(hints.Name, sess.Name),
		Phone:         strings.TrimSpace(hints.Phone),
		Address:       strings.TrimSpace(hints.Address),
		City:          strings.TrimSpace(hints.City),
		AvatarURL:     sess.AvatarURL,
	}

	link, err := s.customers.Upsert(ctx, in)
	if err != nil {
		log.Error("customer upsert failed",
			logger.Subject(sess.SubjectID),
			logger.Err(err),
		)
		return nil, err
	}

	log.Debug("customer link reconciled",
		logger.Subject(sess.SubjectID),
		logger.String("customer_id", link.ID),
	)
	return link, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
