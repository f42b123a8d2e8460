package tenant

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func newRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodGet, target, nil)
}

func TestResolve_StateBeatsQuery(t *testing.T) {
	r := &Resolver{SlugCookieName: "oauth_slug"}

	state := EncodeState(StateEnvelope{Slug: "acme"})
	req := newRequest(t, "/auth/callback?state="+url.QueryEscape(state)+"&slug=other")

	slug, ok := r.Resolve(req)
	if !ok || slug != "acme" {
		t.Fatalf("got (%q, %v), want (acme, true)", slug, ok)
	}
}

func TestResolve_QueryBeatsCookie(t *testing.T) {
	r := &Resolver{SlugCookieName: "oauth_slug"}

	req := newRequest(t, "/auth/callback?slug=acme")
	req.AddCookie(&http.Cookie{Name: "oauth_slug", Value: "other"})

	slug, ok := r.Resolve(req)
	if !ok || slug != "acme" {
		t.Fatalf("got (%q, %v), want (acme, true)", slug, ok)
	}
}

func TestResolve_CookieBeatsPath(t *testing.T) {
	r := &Resolver{SlugCookieName: "oauth_slug"}

	req := newRequest(t, "/store/other/auth/callback")
	req.AddCookie(&http.Cookie{Name: "oauth_slug", Value: "acme"})

	slug, ok := r.Resolve(req)
	if !ok || slug != "acme" {
		t.Fatalf("got (%q, %v), want (acme, true)", slug, ok)
	}
}

func TestResolve_PathFallback(t *testing.T) {
	r := &Resolver{SlugCookieName: "oauth_slug"}

	slug, ok := r.Resolve(newRequest(t, "/store/acme/auth/callback?code=abc"))
	if !ok || slug != "acme" {
		t.Fatalf("got (%q, %v), want (acme, true)", slug, ok)
	}
}

func TestResolve_Unresolved(t *testing.T) {
	r := &Resolver{SlugCookieName: "oauth_slug"}

	if slug, ok := r.Resolve(newRequest(t, "/auth/callback?code=abc")); ok {
		t.Fatalf("expected unresolved, got %q", slug)
	}
}

// Un slug presente pero malformado no habilita fallback: se rechaza.
func TestResolve_MalformedSlugNoFallback(t *testing.T) {
	r := &Resolver{SlugCookieName: "oauth_slug"}

	req := newRequest(t, "/store/acme/auth/callback?slug=NOT%20VALID")
	if slug, ok := r.Resolve(req); ok {
		t.Fatalf("expected rejection, got %q", slug)
	}
}

func TestDecodeState_Formats(t *testing.T) {
	// JSON directo
	if env, ok := DecodeState(`{"slug":"acme"}`); !ok || env.Slug != "acme" {
		t.Fatalf("plain JSON: got (%+v, %v)", env, ok)
	}

	// base64url JSON (el formato que emite EncodeState)
	enc := EncodeState(StateEnvelope{Slug: "acme", Redirect: "/store/acme/cart"})
	env, ok := DecodeState(enc)
	if !ok || env.Slug != "acme" || env.Redirect != "/store/acme/cart" {
		t.Fatalf("base64 JSON: got (%+v, %v)", env, ok)
	}

	// Basura opaca
	if _, ok := DecodeState("xyzzy-not-a-state"); ok {
		t.Fatalf("expected opaque state to fail decoding")
	}
	if _, ok := DecodeState(""); ok {
		t.Fatalf("expected empty state to fail decoding")
	}
}

func TestValidSlug(t *testing.T) {
	for _, s := range []string{"a", "acme", "acme-imports", "a1b2"} {
		if !ValidSlug(s) {
			t.Fatalf("expected valid: %q", s)
		}
	}
	for _, s := range []string{"", "-acme", "acme-", "ACME", "a b", "a/b", "a_b"} {
		if ValidSlug(s) {
			t.Fatalf("expected invalid: %q", s)
		}
	}
}

func TestSlugFromPath(t *testing.T) {
	cases := map[string]string{
		"/store/acme/auth/callback": "acme",
		"/store/acme":               "acme",
		"/store/":                   "",
		"/dashboard":                "",
	}
	for path, want := range cases {
		if got := SlugFromPath(path); got != want {
			t.Fatalf("SlugFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
