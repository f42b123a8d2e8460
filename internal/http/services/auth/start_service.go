package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/dropDatabas3/storegate/internal/identity"
	"github.com/dropDatabas3/storegate/internal/observability/logger"
	"github.com/dropDatabas3/storegate/internal/security/secretbox"
	"github.com/dropDatabas3/storegate/internal/tenant"
)

// StartService begins a login: it builds the provider authorization URL with
// PKCE and the state envelope that lets the callback recover the tenant.
type StartService interface {
	Start(ctx context.Context, req StartRequest) (*StartResult, error)
}

// StartDeps contains dependencies for the start service.
type StartDeps struct {
	IDP *identity.Adapter

	// Box seals the PKCE verifier into its pre-redirect cookie. May be nil
	// in development.
	Box *secretbox.Box
}

type startService struct {
	idp *identity.Adapter
	box *secretbox.Box
}

// NewStartService creates a StartService.
func NewStartService(deps StartDeps) StartService {
	return &startService{idp: deps.IDP, box: deps.Box}
}

// Service errors
var ErrStartInvalidSlug = fmt.Errorf("slug is not a valid store slug")

func (s *startService) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.start"),
		logger.Op("Start"),
	)

	if req.Slug != "" && !tenant.ValidSlug(req.Slug) {
		return nil, ErrStartInvalidSlug
	}

	var nonce [8]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate state nonce: %w", err)
	}

	state := tenant.EncodeState(tenant.StateEnvelope{
		Slug:     req.Slug,
		Redirect: safeRedirect(req.Redirect, ""),
		Nonce:    hex.EncodeToString(nonce[:]),
	})

	verifier := s.idp.NewVerifier()
	sealedVerifier := verifier
	if s.box != nil {
		sealed, err := s.box.Seal(verifier)
		if err != nil {
			return nil, fmt.Errorf("seal pkce verifier: %w", err)
		}
		sealedVerifier = sealed
	}

	log.Debug("login started", logger.TenantSlug(req.Slug))

	return &StartResult{
		AuthURL:             s.idp.AuthCodeURL(state, verifier),
		SlugCookieValue:     req.Slug,
		VerifierCookieValue: sealedVerifier,
	}, nil
}
