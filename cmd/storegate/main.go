package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/storegate/internal/cache"
	"github.com/dropDatabas3/storegate/internal/config"
	"github.com/dropDatabas3/storegate/internal/gateway"
	authctrl "github.com/dropDatabas3/storegate/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/storegate/internal/http/controllers/health"
	mw "github.com/dropDatabas3/storegate/internal/http/middlewares"
	"github.com/dropDatabas3/storegate/internal/http/router"
	authsvc "github.com/dropDatabas3/storegate/internal/http/services/auth"
	"github.com/dropDatabas3/storegate/internal/identity"
	"github.com/dropDatabas3/storegate/internal/metrics"
	"github.com/dropDatabas3/storegate/internal/observability/logger"
	"github.com/dropDatabas3/storegate/internal/principal"
	"github.com/dropDatabas3/storegate/internal/security/secretbox"
	"github.com/dropDatabas3/storegate/internal/store/core"
	"github.com/dropDatabas3/storegate/internal/store/memory"
	"github.com/dropDatabas3/storegate/internal/store/pg"
	"github.com/dropDatabas3/storegate/internal/tenant"
	migrations "github.com/dropDatabas3/storegate/migrations/postgres"
)

const version = "0.3.0"

func main() {
	_ = godotenv.Load()

	cfgPath := getenv("CONFIG_PATH", "config.yaml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.Env(),
		Level:       getenv("LOG_LEVEL", ""),
		ServiceName: "storegate",
		Version:     version,
	})
	defer logger.Sync()

	lg := logger.L()
	ctx := context.Background()

	// ───────── Datastore ─────────
	var st core.Store
	if dsn := strings.TrimSpace(cfg.Storage.DSN); dsn != "" {
		pgStore, err := pg.New(ctx, pg.Config{
			DSN:             dsn,
			MaxConns:        cfg.Storage.Postgres.MaxOpenConns,
			ConnMaxLifetime: config.MustDuration(cfg.Storage.Postgres.ConnMaxLifetime),
		})
		if err != nil {
			lg.Fatal("postgres connect failed", logger.Err(err))
		}
		if cfg.Storage.AutoMigrate {
			if err := pgStore.Migrate(ctx, migrations.FS); err != nil {
				lg.Fatal("migrations failed", logger.Err(err))
			}
		}
		st = pgStore
	} else {
		lg.Warn("no dsn configured, using in-memory store")
		st = memory.New()
	}
	defer st.Close()

	// ───────── Cache ─────────
	cacheClient := cache.New(cache.Config{
		Kind:       cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: config.MustDuration(cfg.Cache.Memory.DefaultTTL),
	})
	defer cacheClient.Close()

	// ───────── Sellado y cookies de sesión ─────────
	var box *secretbox.Box
	if key := strings.TrimSpace(cfg.Session.SealKey); key != "" {
		box, err = secretbox.New(key)
		if err != nil {
			lg.Fatal("seal key invalid", logger.Err(err))
		}
	} else if cfg.Env() == "prod" {
		lg.Fatal("session.seal_key is required in prod")
	} else {
		lg.Warn("no seal key configured, provider tokens travel unencrypted (dev only)")
	}

	cookies, err := identity.NewCookieCodec(identity.CookieConfig{
		SessionName: cfg.Session.CookieName,
		RefreshName: cfg.Session.RefreshCookieName,
		Domain:      cfg.Session.Domain,
		SameSite:    cfg.Session.SameSite,
		Secure:      cfg.Session.Secure,
		TTL:         config.MustDuration(cfg.Session.TTL),
	}, cfg.Session.SigningKey, box)
	if err != nil {
		lg.Fatal("cookie codec init failed", logger.Err(err))
	}

	// ───────── Identity provider ─────────
	idp, err := identity.New(ctx, identity.Config{
		IssuerURL:       cfg.IDP.IssuerURL,
		AuthURL:         cfg.IDP.AuthURL,
		TokenURL:        cfg.IDP.TokenURL,
		UserInfoURL:     cfg.IDP.UserInfoURL,
		ClientID:        cfg.IDP.ClientID,
		ClientSecret:    cfg.IDP.ClientSecret,
		RedirectURL:     strings.TrimRight(cfg.Server.BaseURL, "/") + "/auth/callback",
		Scopes:          cfg.IDP.Scopes,
		ExchangeTimeout: config.MustDuration(cfg.IDP.ExchangeTimeout),
	}, cookies)
	if err != nil {
		lg.Fatal("identity provider init failed", logger.Err(err))
	}

	// ───────── Dominio ─────────
	tenants := tenant.NewLookup(st.Tenants(), cacheClient, 0)
	resolver := &tenant.Resolver{SlugCookieName: cfg.Session.SlugCookieName}
	verifier := principal.NewVerifier(st.Staff(), st.Admins())

	reconcile := authsvc.NewReconcileService(authsvc.ReconcileDeps{Customers: st.Customers()})
	callbackSvc := authsvc.NewCallbackService(authsvc.CallbackDeps{
		IDP:       idp,
		Tenants:   tenants,
		Verifier:  verifier,
		Reconcile: reconcile,
	})
	startSvc := authsvc.NewStartService(authsvc.StartDeps{IDP: idp, Box: box})
	logoutSvc := authsvc.NewLogoutService()

	flowCookies := authctrl.FlowCookies{
		SlugName: cfg.Session.SlugCookieName,
		PKCEName: "sg_pkce",
		Secure:   cfg.Session.Secure,
		TTL:      config.MustDuration(cfg.Session.SlugCookieTTL),
	}

	callbackCtrl := authctrl.NewCallbackController(callbackSvc, resolver, idp, box, flowCookies)
	startCtrl := authctrl.NewStartController(startSvc, flowCookies)
	logoutCtrl := authctrl.NewLogoutController(logoutSvc, idp, flowCookies)
	healthCtrl := healthctrl.NewController(st, cacheClient)

	engine := gateway.NewEngine(gateway.NewClassifier(cfg.Gateway.StaticPrefixes), verifier)

	handler := router.New(router.Deps{
		Health:   healthCtrl,
		Start:    startCtrl,
		Logout:   logoutCtrl,
		Callback: callbackCtrl,
		Gateway:  mw.WithGateway(engine, idp, http.HandlerFunc(callbackCtrl.Callback)),
		App:      upstreamHandler(cfg.Server.UpstreamURL),
		Metrics:  metrics.Register(nil),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		lg.Info("gateway listening",
			logger.String("addr", cfg.Server.Addr),
			logger.String("env", cfg.Env()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal("server failed", logger.Err(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown incomplete", logger.Err(err))
	}
}

// upstreamHandler es la aplicación detrás del gateway: reverse proxy si hay
// upstream configurado, placeholder JSON si no (dev).
func upstreamHandler(upstream string) http.Handler {
	upstream = strings.TrimSpace(upstream)
	if upstream == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status": "ok",
				"path":   r.URL.Path,
			})
		})
	}
	u, err := url.Parse(upstream)
	if err != nil {
		log.Fatalf("upstream url: %v", err)
	}
	return httputil.NewSingleHostReverseProxy(u)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
