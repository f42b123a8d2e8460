package identity

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/storegate/internal/security/secretbox"
)

func newTestCodec(t *testing.T, box *secretbox.Box) *CookieCodec {
	t.Helper()
	codec, err := NewCookieCodec(CookieConfig{
		SessionName: "sg_session",
		RefreshName: "sg_refresh",
		SameSite:    "Lax",
		TTL:         time.Hour,
		RefreshTTL:  24 * time.Hour,
	}, testKey(), box)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return codec
}

func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, ck := range rec.Result().Cookies() {
		req.AddCookie(ck)
	}
	return req
}

func TestCookieRoundTrip(t *testing.T) {
	codec := newTestCodec(t, nil)

	in := &Session{
		SubjectID: "sub-1",
		Email:     "ana@example.com",
		Name:      "Ana",
		Scope:     CustomerScope("acme"),
		Tokens: ProviderTokens{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			Expiry:       time.Now().Add(time.Hour).UTC(),
		},
	}

	rec := httptest.NewRecorder()
	if err := codec.WriteSession(rec, in); err != nil {
		t.Fatalf("WriteSession: %v", err)
	}

	out, err := codec.ReadSession(requestWithCookies(rec))
	if err != nil {
		t.Fatalf("ReadSession: %v", err)
	}
	if out.SubjectID != "sub-1" || out.Email != "ana@example.com" || out.Scope != "customer:acme" {
		t.Fatalf("unexpected session %+v", out)
	}
	if out.Tokens.AccessToken != "at-1" || out.Tokens.RefreshToken != "rt-1" {
		t.Fatalf("tokens lost in round trip: %+v", out.Tokens)
	}
}

// Con seal key, los tokens del provider no aparecen en claro en el cookie.
func TestCookie_SealedTokensAreOpaque(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte("fedcba9876543210fedcba9876543210"))
	box, err := secretbox.New(key)
	if err != nil {
		t.Fatalf("box: %v", err)
	}
	codec := newTestCodec(t, box)

	rec := httptest.NewRecorder()
	err = codec.WriteSession(rec, &Session{
		SubjectID: "sub-1",
		Tokens:    ProviderTokens{AccessToken: "super-secret-token", RefreshToken: "refresh-secret"},
	})
	if err != nil {
		t.Fatalf("WriteSession: %v", err)
	}

	for _, ck := range rec.Result().Cookies() {
		if strings.Contains(ck.Value, "super-secret-token") || strings.Contains(ck.Value, "refresh-secret") {
			t.Fatalf("provider token leaked in cookie %s", ck.Name)
		}
	}

	out, err := codec.ReadSession(requestWithCookies(rec))
	if err != nil {
		t.Fatalf("ReadSession: %v", err)
	}
	if out.Tokens.AccessToken != "super-secret-token" || out.Tokens.RefreshToken != "refresh-secret" {
		t.Fatalf("sealed tokens not recovered: %+v", out.Tokens)
	}
}

func TestCookie_TamperedSignatureRejected(t *testing.T) {
	codec := newTestCodec(t, nil)

	rec := httptest.NewRecorder()
	if err := codec.WriteSession(rec, &Session{SubjectID: "sub-1"}); err != nil {
		t.Fatalf("WriteSession: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "sg_session" {
			ck.Value = ck.Value[:len(ck.Value)-2] + "xx"
		}
		req.AddCookie(ck)
	}

	if _, err := codec.ReadSession(req); !errors.Is(err, ErrNoSession) {
		t.Fatalf("want ErrNoSession for tampered cookie, got %v", err)
	}
}

func TestCookie_MissingIsNoSession(t *testing.T) {
	codec := newTestCodec(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if _, err := codec.ReadSession(req); !errors.Is(err, ErrNoSession) {
		t.Fatalf("want ErrNoSession, got %v", err)
	}
}

func TestCookie_ClearSessionExpiresBoth(t *testing.T) {
	codec := newTestCodec(t, nil)

	rec := httptest.NewRecorder()
	codec.ClearSession(rec)

	cleared := map[string]bool{}
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			cleared[ck.Name] = true
		}
	}
	if !cleared["sg_session"] || !cleared["sg_refresh"] {
		t.Fatalf("both cookies must be expired, got %v", cleared)
	}
}
