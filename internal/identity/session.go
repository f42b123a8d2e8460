// Package identity envuelve al identity provider externo: intercambio de
// código OAuth/PKCE, lectura de userinfo y emisión del par de cookies de
// sesión firmadas. Es la única pieza que habla con el provider.
package identity

import (
	"errors"
	"time"
)

// ProviderTokens son los tokens opacos del provider. Nunca se loguean y viajan
// cifrados dentro de las cookies.
type ProviderTokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Session es la sesión efímera reconstruida en cada request desde el cookie
// firmado. El gateway no la persiste.
type Session struct {
	SubjectID string
	Email     string
	Name      string
	AvatarURL string
	IssuedAt  time.Time

	// Scope es el claim tenant-scoped emitido al login
	// ("admin", "staff", "customer:<slug>"). Es ADVISORY: las decisiones
	// privilegiadas siempre se re-derivan contra el datastore.
	Scope string

	Tokens ProviderTokens
}

// Errores del adapter.
var (
	// ErrInvalidCode: código de autorización inválido, expirado o ya usado.
	// Fatal para el callback; nunca se reintenta (el code es single-use).
	ErrInvalidCode = errors.New("identity: invalid authorization code")

	// ErrExpiredToken: el access token ya no es válido.
	ErrExpiredToken = errors.New("identity: token expired")

	// ErrProviderUnavailable: el provider no respondió (incluye timeout).
	// Retryable sólo para GETs idempotentes; el exchange nunca se reintenta.
	ErrProviderUnavailable = errors.New("identity: provider unavailable")

	// ErrNoSession: no hay cookie de sesión válida en el request.
	ErrNoSession = errors.New("identity: no session")
)

// CustomerScope arma el claim scope para un cliente de tienda.
func CustomerScope(slug string) string { return "customer:" + slug }

// Claims scope fijos para los otros dominios de confianza.
const (
	ScopeStaff = "staff"
	ScopeAdmin = "admin"
)
