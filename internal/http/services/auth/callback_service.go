package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/storegate/internal/identity"
	"github.com/dropDatabas3/storegate/internal/metrics"
	"github.com/dropDatabas3/storegate/internal/observability/logger"
	"github.com/dropDatabas3/storegate/internal/principal"
	"github.com/dropDatabas3/storegate/internal/store/core"
	"github.com/dropDatabas3/storegate/internal/tenant"
)

// CallbackService terminates provider callbacks for the three trust domains.
// Every call ends in exactly one redirect: the destination page on success,
// a login page with an opaque error code on any failure. Provider and
// datastore details are logged server-side only.
type CallbackService interface {
	HandleCallback(ctx context.Context, req CallbackRequest) *CallbackResult
}

// CallbackDeps contains dependencies for the callback service.
type CallbackDeps struct {
	IDP       *identity.Adapter
	Tenants   *tenant.Lookup
	Verifier  *principal.Verifier
	Reconcile ReconcileService
}

type callbackService struct {
	idp       *identity.Adapter
	tenants   *tenant.Lookup
	verifier  *principal.Verifier
	reconcile ReconcileService
}

// NewCallbackService creates a CallbackService.
func NewCallbackService(deps CallbackDeps) CallbackService {
	return &callbackService{
		idp:       deps.IDP,
		tenants:   deps.Tenants,
		verifier:  deps.Verifier,
		reconcile: deps.Reconcile,
	}
}

func (s *callbackService) HandleCallback(ctx context.Context, req CallbackRequest) *CallbackResult {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.callback"),
		logger.Op("HandleCallback"),
		logger.String("flow", string(req.Flow)),
	)
	if req.Slug != "" {
		log = log.With(logger.TenantSlug(req.Slug))
	}

	res := s.handle(ctx, log, req)

	outcome := "ok"
	if res.ErrorCode != "" {
		outcome = res.ErrorCode
	}
	metrics.ObserveCallback(string(req.Flow), outcome)
	return res
}

func (s *callbackService) handle(ctx context.Context, log *zap.Logger, req CallbackRequest) *CallbackResult {
	if req.ProviderError != "" {
		log.Warn("provider returned an error", logger.String("provider_error", req.ProviderError))
		return fail(req, CodeInvalidCallback)
	}

	sess, code, err := s.establishSession(ctx, req)
	if err != nil {
		log.Warn("session establishment failed", logger.Err(err))
		return fail(req, code)
	}
	if sess == nil {
		// Neither code nor tokens arrived.
		if req.Flow == FlowGeneric && req.Slug == "" {
			return &CallbackResult{Redirect: "/?error=" + CodeNoSlug, ErrorCode: CodeNoSlug}
		}
		return fail(req, CodeNoCode)
	}
	if sess.SubjectID == "" {
		log.Warn("provider session without subject")
		return fail(req, CodeNoUser)
	}
	log = log.With(logger.Subject(sess.SubjectID))

	switch {
	case req.Flow == FlowAdmin:
		return s.finishAdmin(ctx, log, req, sess)
	case req.Flow == FlowStore || req.Slug != "":
		return s.finishCustomer(ctx, log, req, sess)
	default:
		return s.finishStaff(ctx, log, req, sess)
	}
}

// establishSession turns the callback credentials into a provider session.
// Returns (nil, "", nil) when the request carried neither code nor tokens.
func (s *callbackService) establishSession(ctx context.Context, req CallbackRequest) (*identity.Session, string, error) {
	switch {
	case req.Code != "":
		start := time.Now()
		sess, err := s.idp.Exchange(ctx, req.Code, req.PKCEVerifier)
		metrics.ObserveExchange(time.Since(start).Seconds())
		if err != nil {
			return nil, CodeAuthFailed, err
		}
		return sess, "", nil

	case req.AccessToken != "":
		sess, err := s.idp.SetSession(ctx, req.AccessToken, req.RefreshToken)
		if err != nil {
			return nil, CodeAuthFailed, err
		}
		return sess, "", nil

	default:
		return nil, "", nil
	}
}

// finishCustomer completes a storefront login: the tenant must exist and be
// active; the customer link is reconciled best-effort.
func (s *callbackService) finishCustomer(ctx context.Context, log *zap.Logger, req CallbackRequest, sess *identity.Session) *CallbackResult {
	if req.Slug == "" {
		return fail(req, CodeNoSlug)
	}

	t, err := s.tenants.GetBySlug(ctx, req.Slug)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			log.Warn("store not found")
			return fail(req, CodeStoreNotFound)
		}
		log.Error("tenant lookup failed", logger.Err(err))
		return fail(req, CodeAuthFailed)
	}

	// Authentication already succeeded; a failed reconcile must not block
	// the customer. It is logged and counted for operational follow-up.
	if _, err := s.reconcile.Reconcile(ctx, t.ID, sess, req.Hints); err != nil {
		metrics.ObserveReconcileFailure()
		log.Error("reconciliation failed, proceeding", logger.Err(err))
	}

	sess.Scope = identity.CustomerScope(t.Slug)
	dest := safeRedirect(req.RedirectHint, "/store/"+t.Slug+"/account?success=true")
	return &CallbackResult{Session: sess, Redirect: dest}
}

// finishStaff completes an importer dashboard login. A subject with no staff
// membership and no admin grant has no user here.
func (s *callbackService) finishStaff(ctx context.Context, log *zap.Logger, req CallbackRequest, sess *identity.Session) *CallbackResult {
	p, err := s.verifier.Derive(ctx, sess.SubjectID, sess.Email, "")
	if err != nil {
		log.Error("principal derivation failed", logger.Err(err))
		return fail(req, CodeAuthFailed)
	}

	switch p.Kind {
	case principal.KindSuperAdmin:
		sess.Scope = identity.ScopeAdmin
		return &CallbackResult{Session: sess, Redirect: "/admin"}
	case principal.KindImporterStaff:
		sess.Scope = identity.ScopeStaff
		dest := safeRedirect(req.RedirectHint, "/dashboard")
		return &CallbackResult{Session: sess, Redirect: dest}
	default:
		log.Warn("no staff membership for subject")
		return fail(req, CodeNoUser)
	}
}

// finishAdmin completes a platform operator login. No cookie is issued unless
// the authoritative super-admin check passes.
func (s *callbackService) finishAdmin(ctx context.Context, log *zap.Logger, req CallbackRequest, sess *identity.Session) *CallbackResult {
	err := s.verifier.RequireSuperAdmin(ctx, sess.SubjectID)
	switch {
	case err == nil:
		sess.Scope = identity.ScopeAdmin
		return &CallbackResult{Session: sess, Redirect: "/admin"}
	case errors.Is(err, principal.ErrNotSuperAdmin):
		log.Warn("admin login denied")
		return fail(req, CodeNotSuperAdmin)
	default:
		log.Error("super admin check failed", logger.Err(err))
		return fail(req, CodeAuthFailed)
	}
}

// fail builds the error redirect for the flow's login page.
func fail(req CallbackRequest, code string) *CallbackResult {
	var target string
	switch {
	case req.Slug != "" && req.Flow != FlowAdmin:
		target = fmt.Sprintf("/store/%s/login?error=%s", req.Slug, code)
	default:
		target = "/login?error=" + code
	}
	return &CallbackResult{Redirect: target, ErrorCode: code}
}

// safeRedirect accepts only same-origin relative paths.
func safeRedirect(hint, fallback string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" || !strings.HasPrefix(hint, "/") || strings.HasPrefix(hint, "//") {
		return fallback
	}
	return hint
}
