package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// DB
	DatabaseDriver string
	DatabaseURL    string
	AutoMigrate    bool
	LogSQL         bool

	// Tokens
	TokenAlg    string // HS256 or EdDSA
	SigningKey  string // HS256 secret or base64 ed25519 private key, generated per process when empty
	TokenKeyID  string
	Issuer      string
	IdleTimeout time.Duration

	// Devices / directory
	OnlineWindow time.Duration
	DefaultGroup string

	// HTTP
	Addr           string
	TrustProxy     bool
	CORSOrigins    []string
	LoginRateLimit int
	RequestTimeout time.Duration
	RecordDir      string

	// Logging
	LogLevel    string
	Environment string

	LDAP LDAPConfig
}

// LDAPConfig enables an optional directory bind before local password checks.
type LDAPConfig struct {
	URL          string
	BindDN       string
	BindPassword string
	BaseDN       string
	UserFilter   string // e.g. (uid=%s)
	StartTLS     bool
}

func (l LDAPConfig) Enabled() bool { return l.URL != "" }

// Load reads .env (when present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env", "error", err)
	}
	return Config{
		DatabaseDriver: getenv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getenv("DATABASE_URL", "data/db.sqlite3?_busy_timeout=10000"),
		AutoMigrate:    getbool("AUTO_MIGRATE", true),
		LogSQL:         getbool("LOG_SQL", false),

		TokenAlg:    getenv("TOKEN_ALG", "HS256"),
		SigningKey:  os.Getenv("TOKEN_SIGNING_KEY"),
		TokenKeyID:  os.Getenv("TOKEN_KEY_ID"),
		Issuer:      getenv("TOKEN_ISSUER", "rdapi"),
		IdleTimeout: getdur("TOKEN_IDLE_TIMEOUT", time.Hour),

		OnlineWindow: getdur("ONLINE_WINDOW", 60*time.Second),
		DefaultGroup: getenv("DEFAULT_GROUP", "Default"),

		Addr:           getenv("ADDR", ":21114"),
		TrustProxy:     getbool("TRUST_PROXY", true),
		CORSOrigins:    getlist("CORS_ORIGINS", []string{"*"}),
		LoginRateLimit: getint("LOGIN_RATE_LIMIT", 20),
		RequestTimeout: getdur("REQUEST_TIMEOUT", 30*time.Second),
		RecordDir:      getenv("RECORD_DIR", "data/records"),

		LogLevel:    getenv("LOG_LEVEL", "info"),
		Environment: getenv("ENVIRONMENT", "dev"),

		LDAP: LDAPConfig{
			URL:          os.Getenv("LDAP_URL"),
			BindDN:       os.Getenv("LDAP_BIND_DN"),
			BindPassword: os.Getenv("LDAP_BIND_PASSWORD"),
			BaseDN:       os.Getenv("LDAP_BASE_DN"),
			UserFilter:   getenv("LDAP_USER_FILTER", "(uid=%s)"),
			StartTLS:     getbool("LDAP_STARTTLS", false),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		slog.Warn("invalid bool, using default", "key", k, "value", v, "default", def)
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		slog.Warn("invalid int, using default", "key", k, "value", v, "default", def)
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		// plain seconds, as the client settings use them
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
		slog.Warn("invalid duration, using default", "key", k, "value", v, "default", def)
	}
	return def
}

func getlist(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
