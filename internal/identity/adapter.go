package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/dropDatabas3/storegate/internal/observability/logger"
)

// Config del adapter.
type Config struct {
	// IssuerURL habilita discovery OIDC. Alternativamente, endpoints explícitos.
	IssuerURL   string
	AuthURL     string
	TokenURL    string
	UserInfoURL string

	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// ExchangeTimeout acota la llamada al token endpoint.
	ExchangeTimeout time.Duration
}

// Adapter implementa el contrato con el identity provider.
type Adapter struct {
	oauth           oauth2.Config
	provider        *oidc.Provider
	verifier        *oidc.IDTokenVerifier
	userInfoURL     string
	exchangeTimeout time.Duration

	cookies *CookieCodec
}

// New construye el Adapter. Si cfg.IssuerURL está seteado hace discovery OIDC
// (bloqueante, una vez al arranque); si no, usa los endpoints explícitos.
func New(ctx context.Context, cfg Config, cookies *CookieCodec) (*Adapter, error) {
	a := &Adapter{
		exchangeTimeout: cfg.ExchangeTimeout,
		userInfoURL:     cfg.UserInfoURL,
		cookies:         cookies,
	}
	if a.exchangeTimeout <= 0 {
		a.exchangeTimeout = 5 * time.Second
	}

	endpoint := oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL}
	if strings.TrimSpace(cfg.IssuerURL) != "" {
		provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("identity: oidc discovery: %w", err)
		}
		a.provider = provider
		a.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
		endpoint = provider.Endpoint()
	}

	a.oauth = oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint:     endpoint,
	}

	return a, nil
}

// AuthCodeURL arma la URL de autorización con PKCE (S256).
func (a *Adapter) AuthCodeURL(state, verifier string) string {
	return a.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// NewVerifier genera un code_verifier PKCE.
func (a *Adapter) NewVerifier() string { return oauth2.GenerateVerifier() }

// Exchange canjea el código de autorización por tokens y arma la Session.
// El código es single-use: un segundo canje del mismo code falla con
// ErrInvalidCode. Timeout => ErrProviderUnavailable; nunca se reintenta.
func (a *Adapter) Exchange(ctx context.Context, code, pkceVerifier string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, a.exchangeTimeout)
	defer cancel()

	opts := []oauth2.AuthCodeOption{}
	if pkceVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(pkceVerifier))
	}

	tok, err := a.oauth.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, mapExchangeError(err)
	}

	sess := &Session{
		IssuedAt: time.Now().UTC(),
		Tokens: ProviderTokens{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			Expiry:       tok.Expiry,
		},
	}

	// Identidad: preferir el id_token verificado; fallback a userinfo.
	if raw, ok := tok.Extra("id_token").(string); ok && raw != "" && a.verifier != nil {
		idt, err := a.verifier.Verify(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: id_token verification: %v", ErrInvalidCode, err)
		}
		var claims struct {
			Sub     string `json:"sub"`
			Email   string `json:"email"`
			Name    string `json:"name"`
			Picture string `json:"picture"`
		}
		if err := idt.Claims(&claims); err != nil {
			return nil, fmt.Errorf("%w: id_token claims: %v", ErrInvalidCode, err)
		}
		sess.SubjectID = claims.Sub
		sess.Email = claims.Email
		sess.Name = claims.Name
		sess.AvatarURL = claims.Picture
		return sess, nil
	}

	if err := a.fillFromUserInfo(ctx, sess, tok.AccessToken); err != nil {
		return nil, err
	}
	return sess, nil
}

// SetSession valida tokens recibidos por flujo implícito/magic-link y arma la
// Session consultando userinfo con el access token.
func (a *Adapter) SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, a.exchangeTimeout)
	defer cancel()

	sess := &Session{
		IssuedAt: time.Now().UTC(),
		Tokens: ProviderTokens{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		},
	}
	if err := a.fillFromUserInfo(ctx, sess, accessToken); err != nil {
		return nil, err
	}
	return sess, nil
}

// CurrentSession reconstruye la sesión desde las cookies del request.
// Retorna nil si no hay sesión o el cookie no valida; el gateway trata ambos
// casos igual (sin sesión).
func (a *Adapter) CurrentSession(r *http.Request) *Session {
	sess, err := a.cookies.ReadSession(r)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			logger.From(r.Context()).Debug("session cookie rejected", logger.Err(err))
		}
		return nil
	}
	return sess
}

// IssueCookies firma y escribe el par de cookies de sesión.
func (a *Adapter) IssueCookies(w http.ResponseWriter, sess *Session) error {
	return a.cookies.WriteSession(w, sess)
}

// ClearCookies invalida el par de cookies de sesión.
func (a *Adapter) ClearCookies(w http.ResponseWriter) {
	a.cookies.ClearSession(w)
}

// fillFromUserInfo completa identidad vía userinfo.
func (a *Adapter) fillFromUserInfo(ctx context.Context, sess *Session, accessToken string) error {
	if accessToken == "" {
		return ErrExpiredToken
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	if a.provider != nil {
		ui, err := a.provider.UserInfo(ctx, ts)
		if err != nil {
			return mapUserInfoError(err)
		}
		var claims struct {
			Name    string `json:"name"`
			Picture string `json:"picture"`
		}
		_ = ui.Claims(&claims)
		sess.SubjectID = ui.Subject
		sess.Email = ui.Email
		sess.Name = claims.Name
		sess.AvatarURL = claims.Picture
		return nil
	}

	// Sin discovery: userinfo endpoint explícito.
	if a.userInfoURL == "" {
		return fmt.Errorf("%w: userinfo endpoint not configured", ErrProviderUnavailable)
	}
	return fetchUserInfo(ctx, a.userInfoURL, ts, sess)
}

// mapExchangeError traduce errores de x/oauth2 a la taxonomía del adapter.
func mapExchangeError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil && re.Response.StatusCode >= 500 {
			return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		// 400/401: invalid_grant, code reusado o expirado.
		return fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

func mapUserInfoError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < 500 {
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
