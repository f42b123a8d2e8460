package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/dropDatabas3/storegate/internal/identity"
	"github.com/dropDatabas3/storegate/internal/security/secretbox"
	"github.com/dropDatabas3/storegate/internal/tenant"
)

func newStartFixture(t *testing.T) (StartService, *secretbox.Box) {
	t.Helper()

	codec, err := identity.NewCookieCodec(identity.CookieConfig{
		SessionName: "sg_session",
		RefreshName: "sg_refresh",
		TTL:         time.Hour,
	}, base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")), nil)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	idp, err := identity.New(context.Background(), identity.Config{
		AuthURL:  "https://idp.example.com/authorize",
		TokenURL: "https://idp.example.com/token",
		ClientID: "test-client",
	}, codec)
	if err != nil {
		t.Fatalf("adapter: %v", err)
	}

	box, err := secretbox.New(base64.StdEncoding.EncodeToString([]byte("fedcba9876543210fedcba9876543210")))
	if err != nil {
		t.Fatalf("box: %v", err)
	}
	return NewStartService(StartDeps{IDP: idp, Box: box}), box
}

func TestStart_BuildsAuthURLWithStateAndPKCE(t *testing.T) {
	svc, box := newStartFixture(t)

	res, err := svc.Start(context.Background(), StartRequest{Slug: "acme", Redirect: "/store/acme/cart"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	u, err := url.Parse(res.AuthURL)
	if err != nil {
		t.Fatalf("auth url: %v", err)
	}
	q := u.Query()
	if q.Get("code_challenge") == "" || q.Get("code_challenge_method") != "S256" {
		t.Fatalf("missing PKCE challenge in %s", res.AuthURL)
	}

	env, ok := tenant.DecodeState(q.Get("state"))
	if !ok || env.Slug != "acme" || env.Redirect != "/store/acme/cart" {
		t.Fatalf("state envelope: (%+v, %v)", env, ok)
	}
	if env.Nonce == "" {
		t.Fatalf("state without nonce")
	}

	if res.SlugCookieValue != "acme" {
		t.Fatalf("slug cookie = %q", res.SlugCookieValue)
	}

	// El verifier viaja sellado y debe abrirse con la misma key.
	verifier, err := box.Open(res.VerifierCookieValue)
	if err != nil {
		t.Fatalf("verifier cookie not sealed correctly: %v", err)
	}
	if len(verifier) < 32 {
		t.Fatalf("verifier too short: %q", verifier)
	}
}

func TestStart_NoSlugForStaffFlow(t *testing.T) {
	svc, _ := newStartFixture(t)

	res, err := svc.Start(context.Background(), StartRequest{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.SlugCookieValue != "" {
		t.Fatalf("slug cookie should be empty, got %q", res.SlugCookieValue)
	}

	u, _ := url.Parse(res.AuthURL)
	env, ok := tenant.DecodeState(u.Query().Get("state"))
	if !ok || env.Slug != "" {
		t.Fatalf("state: (%+v, %v)", env, ok)
	}
}

func TestStart_RejectsInvalidSlug(t *testing.T) {
	svc, _ := newStartFixture(t)

	if _, err := svc.Start(context.Background(), StartRequest{Slug: "NOT VALID"}); !errors.Is(err, ErrStartInvalidSlug) {
		t.Fatalf("want ErrStartInvalidSlug, got %v", err)
	}
}

func TestStart_DropsUnsafeRedirect(t *testing.T) {
	svc, _ := newStartFixture(t)

	res, err := svc.Start(context.Background(), StartRequest{Slug: "acme", Redirect: "https://evil.example.com/"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	u, _ := url.Parse(res.AuthURL)
	env, _ := tenant.DecodeState(u.Query().Get("state"))
	if env.Redirect != "" {
		t.Fatalf("unsafe redirect kept: %q", env.Redirect)
	}
}
