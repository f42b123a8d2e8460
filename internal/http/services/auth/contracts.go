// Package auth implements the callback, login-start and logout flows of the
// gateway. Services hold the flow logic; controllers only translate HTTP.
package auth

import (
	"github.com/dropDatabas3/storegate/internal/identity"
)

// Flow identifies which trust domain a callback belongs to. It is decided by
// the callback path, before any signal from the request body or query.
type Flow string

const (
	// FlowGeneric: GET /auth/callback. Customer login when a store slug
	// resolves, importer staff login otherwise.
	FlowGeneric Flow = "generic"

	// FlowStore: GET /store/{slug}/auth/callback. Always a customer login.
	FlowStore Flow = "store"

	// FlowAdmin: GET /admin/auth/callback. Platform operator login.
	FlowAdmin Flow = "admin"
)

// Error codes carried back to login pages as ?error=<code>. Fixed vocabulary:
// raw provider or datastore details never reach the redirect URL.
const (
	CodeInvalidCallback = "invalid_callback"
	CodeNoCode          = "no_code"
	CodeNoSlug          = "no_slug"
	CodeAuthFailed      = "auth_failed"
	CodeNoUser          = "no_user"
	CodeStoreNotFound   = "store_not_found"
	CodeNotSuperAdmin   = "not_super_admin"
)

// ReconcileHints are optional profile fields accepted as query parameters on
// storefront callbacks. They seed the customer profile and are NEVER trust
// input for authorization.
type ReconcileHints struct {
	Name    string
	Phone   string
	Address string
	City    string
}

// CallbackRequest is the callback context: everything extracted from one
// inbound callback request. Transient, lives for the request only.
type CallbackRequest struct {
	Flow Flow

	// Code is the authorization code, if present.
	Code string

	// AccessToken/RefreshToken carry implicit-flow tokens, if present.
	AccessToken  string
	RefreshToken string

	// ProviderError is the provider's error query parameter, if present.
	ProviderError string

	// Slug is the resolved tenant slug ("" when unresolved).
	Slug string

	// RedirectHint is the post-login destination from the state envelope.
	RedirectHint string

	// PKCEVerifier is the code_verifier recovered from the pre-redirect
	// cookie ("" when the flow did not use PKCE).
	PKCEVerifier string

	Hints ReconcileHints
}

// CallbackResult is the single-redirect outcome of a callback. Session is
// non-nil only on success; ErrorCode is "" only on success.
type CallbackResult struct {
	Session   *identity.Session
	Redirect  string
	ErrorCode string
}

// StartRequest begins a login: build the provider authorization URL.
type StartRequest struct {
	// Slug is the store the customer is logging into ("" for staff/admin).
	Slug string

	// Redirect is the post-login destination carried through state.
	Redirect string
}

// StartResult carries the authorization URL plus the cookies that must be
// written before redirecting to the provider.
type StartResult struct {
	AuthURL string

	// SlugCookieValue is the oauth_slug fallback value ("" writes nothing).
	SlugCookieValue string

	// VerifierCookieValue is the sealed PKCE code_verifier.
	VerifierCookieValue string
}
