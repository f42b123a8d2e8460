package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// BaseURL es el origin público del gateway (para construir redirect URIs).
		BaseURL string `yaml:"base_url"`
		// UpstreamURL es la aplicación detrás del gateway. Vacío en dev:
		// los requests permitidos reciben una respuesta placeholder.
		UpstreamURL string `yaml:"upstream_url"`
	} `yaml:"server"`

	Storage struct {
		DSN string `yaml:"dsn"`
		// AutoMigrate aplica las migraciones embebidas al arrancar.
		AutoMigrate bool `yaml:"auto_migrate"`
		Postgres    struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	// ───────── Identity Provider ─────────
	IDP struct {
		// IssuerURL habilita discovery OIDC. Si está vacío se usan los
		// endpoints explícitos de abajo.
		IssuerURL    string   `yaml:"issuer_url"`
		AuthURL      string   `yaml:"auth_url"`
		TokenURL     string   `yaml:"token_url"`
		UserInfoURL  string   `yaml:"userinfo_url"`
		ClientID     string   `yaml:"client_id"`
		ClientSecret string   `yaml:"client_secret"`
		Scopes       []string `yaml:"scopes"`
		// ExchangeTimeout acota la llamada de intercambio de código.
		// Timeout => ProviderUnavailable, nunca reintento (el code es single-use).
		ExchangeTimeout string `yaml:"exchange_timeout"`
	} `yaml:"idp"`

	Session struct {
		CookieName        string `yaml:"cookie_name"`
		RefreshCookieName string `yaml:"refresh_cookie_name"`
		SlugCookieName    string `yaml:"slug_cookie_name"`
		Domain            string `yaml:"domain"`
		SameSite          string `yaml:"samesite"`
		Secure            bool   `yaml:"secure"`
		TTL               string `yaml:"ttl"`
		SlugCookieTTL     string `yaml:"slug_cookie_ttl"`
		// SigningKey firma el JWT de sesión (HS256). Base64, 32 bytes mínimo.
		SigningKey string `yaml:"signing_key"`
		// SealKey cifra los tokens del provider dentro del cookie (AES-256-GCM).
		SealKey string `yaml:"seal_key"`
	} `yaml:"session"`

	Gateway struct {
		// StaticPrefixes son paths excluidos del gateway (assets, imágenes).
		StaticPrefixes []string `yaml:"static_prefixes"`
	} `yaml:"gateway"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if len(c.IDP.Scopes) == 0 {
		c.IDP.Scopes = []string{"openid", "email", "profile"}
	}
	if c.IDP.ExchangeTimeout == "" {
		c.IDP.ExchangeTimeout = "5s"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "sg_session"
	}
	if c.Session.RefreshCookieName == "" {
		c.Session.RefreshCookieName = "sg_refresh"
	}
	if c.Session.SlugCookieName == "" {
		c.Session.SlugCookieName = "oauth_slug"
	}
	if c.Session.SameSite == "" {
		c.Session.SameSite = "Lax"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "12h"
	}
	if c.Session.SlugCookieTTL == "" {
		c.Session.SlugCookieTTL = "10m"
	}
	if len(c.Gateway.StaticPrefixes) == 0 {
		c.Gateway.StaticPrefixes = []string{"/static/", "/assets/", "/_image", "/favicon.ico"}
	}

	// validate string durations
	for _, d := range []string{
		c.Storage.Postgres.ConnMaxLifetime,
		c.Cache.Memory.DefaultTTL,
		c.IDP.ExchangeTimeout,
		c.Session.TTL,
		c.Session.SlugCookieTTL,
	} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return nil, fmt.Errorf("config: invalid duration %q: %w", d, err)
		}
	}

	// Overrides por env + salvaguarda prod
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	// En prod las cookies siempre viajan con Secure.
	if strings.EqualFold(c.App.Env, "prod") {
		c.Session.Secure = true
	}

	return &c, nil
}

// Validate chequea la configuración mínima para arrancar el gateway.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.IDP.ClientID) == "" {
		return fmt.Errorf("config: idp.client_id is required")
	}
	if strings.TrimSpace(c.IDP.IssuerURL) == "" {
		if c.IDP.AuthURL == "" || c.IDP.TokenURL == "" {
			return fmt.Errorf("config: idp.issuer_url or explicit auth_url+token_url required")
		}
	}
	if strings.TrimSpace(c.Session.SigningKey) == "" {
		return fmt.Errorf("config: session.signing_key is required")
	}
	if strings.EqualFold(c.Cache.Kind, "redis") && strings.TrimSpace(c.Cache.Redis.Addr) == "" {
		return fmt.Errorf("config: cache.redis.addr required when cache.kind=redis")
	}
	return nil
}

// Env retorna el entorno normalizado ("dev" por defecto).
func (c *Config) Env() string {
	if e := strings.TrimSpace(c.App.Env); e != "" {
		return strings.ToLower(e)
	}
	return "dev"
}

// MustDuration parsea una duración ya validada en Load.
func MustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// applyEnvOverrides permite pisar valores del YAML con variables de entorno.
// Útil para secretos que no deben vivir en el archivo.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("BASE_URL"); ok {
		c.Server.BaseURL = v
	}
	if v, ok := getEnvStr("UPSTREAM_URL"); ok {
		c.Server.UpstreamURL = v
	}
	if v, ok := getEnvStr("DATABASE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvBool("AUTO_MIGRATE"); ok {
		c.Storage.AutoMigrate = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("IDP_ISSUER_URL"); ok {
		c.IDP.IssuerURL = v
	}
	if v, ok := getEnvStr("IDP_CLIENT_ID"); ok {
		c.IDP.ClientID = v
	}
	if v, ok := getEnvStr("IDP_CLIENT_SECRET"); ok {
		c.IDP.ClientSecret = v
	}
	if v, ok := getEnvStr("SESSION_SIGNING_KEY"); ok {
		c.Session.SigningKey = v
	}
	if v, ok := getEnvStr("SESSION_SEAL_KEY"); ok {
		c.Session.SealKey = v
	}
	if v, ok := getEnvBool("SESSION_SECURE"); ok {
		c.Session.Secure = v
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
