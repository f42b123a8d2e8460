package identity

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/storegate/internal/security/secretbox"
)

// CookieConfig define nombres y atributos del par de cookies de sesión.
type CookieConfig struct {
	SessionName string
	RefreshName string
	Domain      string
	SameSite    string // "Lax" | "Strict" | "None"
	Secure      bool
	TTL         time.Duration
	RefreshTTL  time.Duration
}

// CookieCodec firma/verifica el par de cookies de sesión. El cookie de sesión
// es un JWT HS256 con la identidad y el access token sellado; el refresh va en
// un cookie separado, también firmado y sellado.
//
// Las cookies son origin-wide (los tres dominios de confianza comparten
// origin); el claim "scope" tenant-scoped evita confusión de roles transitoria.
type CookieCodec struct {
	cfg CookieConfig
	key []byte
	box *secretbox.Box // nil => tokens sin cifrar (sólo dev)
}

const sessionAudience = "storegate-session"

// NewCookieCodec crea el codec. signingKeyB64 es base64 (>= 32 bytes).
// box puede ser nil en desarrollo; en prod siempre se sella.
func NewCookieCodec(cfg CookieConfig, signingKeyB64 string, box *secretbox.Box) (*CookieCodec, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signingKeyB64))
	if err != nil {
		return nil, fmt.Errorf("identity: decode signing key: %w", err)
	}
	if len(key) < 32 {
		return nil, errors.New("identity: signing key must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	return &CookieCodec{cfg: cfg, key: key, box: box}, nil
}

// WriteSession firma y escribe ambas cookies.
func (c *CookieCodec) WriteSession(w http.ResponseWriter, sess *Session) error {
	now := time.Now().UTC()

	accessSealed, err := c.seal(sess.Tokens.AccessToken)
	if err != nil {
		return err
	}

	claims := jwtv5.MapClaims{
		"iss":   sessionAudience,
		"aud":   sessionAudience,
		"sub":   sess.SubjectID,
		"email": sess.Email,
		"name":  sess.Name,
		"iat":   now.Unix(),
		"exp":   now.Add(c.cfg.TTL).Unix(),
	}
	if sess.Scope != "" {
		claims["scope"] = sess.Scope
	}
	if sess.AvatarURL != "" {
		claims["picture"] = sess.AvatarURL
	}
	if accessSealed != "" {
		claims["pat"] = accessSealed
	}
	if !sess.Tokens.Expiry.IsZero() {
		claims["pexp"] = sess.Tokens.Expiry.Unix()
	}

	signed, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return fmt.Errorf("identity: sign session cookie: %w", err)
	}
	c.set(w, c.cfg.SessionName, signed, c.cfg.TTL)

	if sess.Tokens.RefreshToken != "" {
		refreshSealed, err := c.seal(sess.Tokens.RefreshToken)
		if err != nil {
			return err
		}
		rclaims := jwtv5.MapClaims{
			"iss": sessionAudience,
			"aud": sessionAudience,
			"sub": sess.SubjectID,
			"iat": now.Unix(),
			"exp": now.Add(c.cfg.RefreshTTL).Unix(),
			"prt": refreshSealed,
		}
		rsigned, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, rclaims).SignedString(c.key)
		if err != nil {
			return fmt.Errorf("identity: sign refresh cookie: %w", err)
		}
		c.set(w, c.cfg.RefreshName, rsigned, c.cfg.RefreshTTL)
	}

	return nil
}

// ReadSession reconstruye la Session desde el request.
func (c *CookieCodec) ReadSession(r *http.Request) (*Session, error) {
	ck, err := r.Cookie(c.cfg.SessionName)
	if err != nil || ck.Value == "" {
		return nil, ErrNoSession
	}

	claims, err := c.parse(ck.Value)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		SubjectID: str(claims, "sub"),
		Email:     str(claims, "email"),
		Name:      str(claims, "name"),
		AvatarURL: str(claims, "picture"),
		Scope:     str(claims, "scope"),
	}
	if sess.SubjectID == "" {
		return nil, ErrNoSession
	}
	if iat, ok := claims["iat"].(float64); ok {
		sess.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	if pat := str(claims, "pat"); pat != "" {
		if tok, err := c.open(pat); err == nil {
			sess.Tokens.AccessToken = tok
		}
	}
	if pexp, ok := claims["pexp"].(float64); ok {
		sess.Tokens.Expiry = time.Unix(int64(pexp), 0).UTC()
	}

	if rck, err := r.Cookie(c.cfg.RefreshName); err == nil && rck.Value != "" {
		if rclaims, err := c.parse(rck.Value); err == nil {
			if prt := str(rclaims, "prt"); prt != "" {
				if tok, err := c.open(prt); err == nil {
					sess.Tokens.RefreshToken = tok
				}
			}
		}
	}

	return sess, nil
}

// ClearSession expira ambas cookies.
func (c *CookieCodec) ClearSession(w http.ResponseWriter) {
	c.set(w, c.cfg.SessionName, "", -time.Hour)
	c.set(w, c.cfg.RefreshName, "", -time.Hour)
}

func (c *CookieCodec) parse(raw string) (jwtv5.MapClaims, error) {
	tk, err := jwtv5.Parse(raw,
		func(*jwtv5.Token) (any, error) { return c.key, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithAudience(sessionAudience),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil || !tk.Valid {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	claims, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrNoSession
	}
	return claims, nil
}

func (c *CookieCodec) set(w http.ResponseWriter, name, value string, ttl time.Duration) {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.cfg.Domain,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: parseSameSite(c.cfg.SameSite),
	}
	if ttl > 0 {
		ck.MaxAge = int(ttl.Seconds())
	} else {
		ck.MaxAge = -1
	}
	http.SetCookie(w, ck)
}

func (c *CookieCodec) seal(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	if c.box == nil {
		return v, nil
	}
	sealed, err := c.box.Seal(v)
	if err != nil {
		return "", fmt.Errorf("identity: seal token: %w", err)
	}
	return sealed, nil
}

func (c *CookieCodec) open(v string) (string, error) {
	if c.box == nil {
		return v, nil
	}
	return c.box.Open(v)
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func str(m jwtv5.MapClaims, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
