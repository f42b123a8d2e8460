package router

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/storegate/internal/gateway"
	authctrl "github.com/dropDatabas3/storegate/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/storegate/internal/http/controllers/health"
	mw "github.com/dropDatabas3/storegate/internal/http/middlewares"
	authsvc "github.com/dropDatabas3/storegate/internal/http/services/auth"
	"github.com/dropDatabas3/storegate/internal/identity"
	"github.com/dropDatabas3/storegate/internal/principal"
	"github.com/dropDatabas3/storegate/internal/store/core"
	"github.com/dropDatabas3/storegate/internal/store/memory"
	"github.com/dropDatabas3/storegate/internal/tenant"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	st := memory.New()
	st.SeedTenant(core.Tenant{ID: "t-1", Slug: "acme", IsActive: true})

	codec, err := identity.NewCookieCodec(identity.CookieConfig{
		SessionName: "sg_session",
		RefreshName: "sg_refresh",
		TTL:         time.Hour,
	}, base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")), nil)
	require.NoError(t, err)

	idp, err := identity.New(context.Background(), identity.Config{
		AuthURL:  "https://idp.invalid/authorize",
		TokenURL: "https://idp.invalid/token",
		ClientID: "test-client",
	}, codec)
	require.NoError(t, err)

	verifier := principal.NewVerifier(st.Staff(), st.Admins())
	lookup := tenant.NewLookup(st.Tenants(), nil, 0)
	resolver := &tenant.Resolver{SlugCookieName: "oauth_slug"}

	reconcile := authsvc.NewReconcileService(authsvc.ReconcileDeps{Customers: st.Customers()})
	callbackSvc := authsvc.NewCallbackService(authsvc.CallbackDeps{
		IDP:       idp,
		Tenants:   lookup,
		Verifier:  verifier,
		Reconcile: reconcile,
	})
	startSvc := authsvc.NewStartService(authsvc.StartDeps{IDP: idp})
	logoutSvc := authsvc.NewLogoutService()

	cookies := authctrl.FlowCookies{SlugName: "oauth_slug", PKCEName: "sg_pkce", TTL: 10 * time.Minute}
	callbackCtrl := authctrl.NewCallbackController(callbackSvc, resolver, idp, nil, cookies)
	startCtrl := authctrl.NewStartController(startSvc, cookies)
	logoutCtrl := authctrl.NewLogoutController(logoutSvc, idp, cookies)

	engine := gateway.NewEngine(gateway.NewClassifier(nil), verifier)

	return New(Deps{
		Health:   healthctrl.NewController(st, nil),
		Start:    startCtrl,
		Logout:   logoutCtrl,
		Callback: callbackCtrl,
		Gateway:  mw.WithGateway(engine, idp, http.HandlerFunc(callbackCtrl.Callback)),
		App: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("app"))
		}),
	})
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

// El inicio de login de vidriera lleva el slug en el path, no en la query.
func TestRouter_StorefrontStartUsesPathSlug(t *testing.T) {
	h := newTestRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/store/acme/auth/start", nil))

	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "idp.invalid", loc.Host)
	require.NotEmpty(t, loc.Query().Get("code_challenge"))

	env, ok := tenant.DecodeState(loc.Query().Get("state"))
	require.True(t, ok)
	require.Equal(t, "acme", env.Slug)

	slugCk := cookieByName(t, rec, "oauth_slug")
	require.NotNil(t, slugCk)
	require.Equal(t, "acme", slugCk.Value)
	require.NotNil(t, cookieByName(t, rec, "sg_pkce"))
}

func TestRouter_GenericStartStillWorks(t *testing.T) {
	h := newTestRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/start?slug=acme", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	env, ok := tenant.DecodeState(loc.Query().Get("state"))
	require.True(t, ok)
	require.Equal(t, "acme", env.Slug)
}

// El logout de vidriera limpia sesión y slug, y vuelve a la tienda.
func TestRouter_StorefrontLogoutClearsCookies(t *testing.T) {
	h := newTestRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/store/acme/auth/logout", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/store/acme", rec.Header().Get("Location"))

	for _, name := range []string{"sg_session", "sg_refresh", "oauth_slug"} {
		ck := cookieByName(t, rec, name)
		require.NotNil(t, ck, "cookie %s should be expired", name)
		require.Negative(t, ck.MaxAge, "cookie %s should be expired", name)
	}
}

// Un request que ninguna ruta registra atraviesa el gateway hacia la app.
func TestRouter_UnroutedPathGoesThroughGateway(t *testing.T) {
	h := newTestRouter(t)

	// Público anónimo: pasa a la app.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/store/acme/products/7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "app", rec.Body.String())

	// Dashboard anónimo: redirect a login.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/login?redirect=%2Fdashboard", rec.Header().Get("Location"))
}
