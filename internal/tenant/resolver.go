// Package tenant resuelve a qué tienda pertenece un request entrante y lee
// tenants del datastore con una capa de cache por slug.
package tenant

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
)

// slugPattern: slugs URL-safe, inmutables una vez creados.
var slugPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,62}[a-z0-9])?$`)

// ValidSlug reporta si s tiene forma de slug válido.
func ValidSlug(s string) bool { return slugPattern.MatchString(s) }

// StateEnvelope es el JSON embebido en el parámetro OAuth state.
// El redirect URI del provider es compartido entre tenants, así que el slug
// viaja en el state, que sobrevive la ida y vuelta al provider.
type StateEnvelope struct {
	Slug     string `json:"slug"`
	Redirect string `json:"redirect,omitempty"`
	Nonce    string `json:"nonce,omitempty"`
}

// EncodeState serializa el envelope para el parámetro state (base64url JSON).
func EncodeState(env StateEnvelope) string {
	b, _ := json.Marshal(env)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeState parsea un parámetro state: JSON directo o base64(url|std) JSON.
func DecodeState(state string) (*StateEnvelope, bool) {
	state = strings.TrimSpace(state)
	if state == "" {
		return nil, false
	}

	try := func(b []byte) (*StateEnvelope, bool) {
		var env StateEnvelope
		if err := json.Unmarshal(b, &env); err != nil {
			return nil, false
		}
		return &env, true
	}

	if strings.HasPrefix(state, "{") {
		return try([]byte(state))
	}
	for _, dec := range []*base64.Encoding{
		base64.RawURLEncoding, base64.URLEncoding, base64.StdEncoding,
	} {
		if b, err := dec.DecodeString(state); err == nil {
			if env, ok := try(b); ok {
				return env, true
			}
		}
	}
	return nil, false
}

// Resolver recupera el slug del tenant desde señales débilmente correlacionadas.
type Resolver struct {
	// SlugCookieName es el cookie same-origin escrito antes del redirect al
	// provider (fallback para flujos que no pueden llevar state propio).
	SlugCookieName string
}

// Resolve aplica el orden estricto de prioridad; la primera señal que matchea
// gana y no hay fallback después de eso:
//
//  1. state OAuth decodificado como JSON (autoritativo: resiste manipulación
//     y sobrevive redirects)
//  2. query param slug explícito
//  3. cookie same-origin escrito antes del redirect
//  4. segmento de path que sigue a /store/
//
// Si ninguna resuelve, ok=false y el caller DEBE rechazar el callback en vez
// de adivinar.
func (r *Resolver) Resolve(req *http.Request) (slug string, ok bool) {
	q := req.URL.Query()

	if env, found := DecodeState(q.Get("state")); found {
		if s := strings.TrimSpace(env.Slug); s != "" {
			if ValidSlug(s) {
				return s, true
			}
			return "", false
		}
	}

	if s := strings.TrimSpace(q.Get("slug")); s != "" {
		if ValidSlug(s) {
			return s, true
		}
		return "", false
	}

	if r.SlugCookieName != "" {
		if ck, err := req.Cookie(r.SlugCookieName); err == nil {
			if s := strings.TrimSpace(ck.Value); s != "" && ValidSlug(s) {
				return s, true
			}
		}
	}

	if s := SlugFromPath(req.URL.Path); s != "" && ValidSlug(s) {
		return s, true
	}

	return "", false
}

// SlugFromPath extrae el segmento estático que sigue a /store/.
func SlugFromPath(path string) string {
	const prefix = "/store/"
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
