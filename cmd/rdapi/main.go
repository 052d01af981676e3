package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rdapi/internal/config"
	"rdapi/internal/directory"
	"rdapi/internal/jwtsigner"
	"rdapi/internal/observability/logging"
	"rdapi/internal/observability/metrics"
	"rdapi/internal/service"
	impl "rdapi/internal/service/impl"
	"rdapi/internal/store"
	httpx "rdapi/internal/transport/http"
	"rdapi/pkg/db"
)

func main() {
	cfg := config.Load()

	logger := logging.NewLogger(logging.Config{
		ServiceName: "rdapi",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)
	logger.Info("starting service")

	if err := run(cfg); err != nil {
		logger.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	gdb, err := db.OpenGorm(db.Config{
		Driver: cfg.DatabaseDriver,
		DSN:    cfg.DatabaseURL,
		LogSQL: cfg.LogSQL,
	})
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}
	st := store.New(gdb)

	if cfg.AutoMigrate {
		if err := st.AutoMigrate(context.Background()); err != nil {
			return err
		}
		slog.Info("schema migrated", "driver", cfg.DatabaseDriver)
	}

	metrics.MustRegister("rdapi")

	secret := cfg.SigningKey
	if secret == "" && !strings.EqualFold(cfg.TokenAlg, "EdDSA") {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return err
		}
		secret = base64.StdEncoding.EncodeToString(key)
	}
	if cfg.SigningKey == "" {
		slog.Warn("TOKEN_SIGNING_KEY not set, using a random key; tokens will not survive a restart", "alg", cfg.TokenAlg)
	}
	signer, err := jwtsigner.New(cfg.TokenAlg, secret, cfg.TokenKeyID)
	if err != nil {
		return err
	}

	pw := impl.NewPasswordServiceArgon2id()
	ts, err := impl.NewTokenService(impl.TokenConfig{
		Issuer:      cfg.Issuer,
		IdleTimeout: cfg.IdleTimeout,
		Signer:      signer,
	}, st)
	if err != nil {
		return err
	}
	us := impl.NewUserServiceImpl(st, pw, ts, cfg.DefaultGroup)

	var dir service.Directory
	if cfg.LDAP.Enabled() {
		dir = directory.NewLDAP(cfg.LDAP)
		slog.Info("ldap directory enabled", "url", cfg.LDAP.URL, "base_dn", cfg.LDAP.BaseDN)
	}

	svc := httpx.Services{
		Auth:      impl.NewAuthServiceImpl(st, pw, ts, us, dir),
		Tokens:    ts,
		Users:     us,
		Devices:   impl.NewDeviceServiceImpl(st, ts, cfg.OnlineWindow),
		Personals: impl.NewPersonalServiceImpl(st, us),
		Tags:      impl.NewTagServiceImpl(st, us),
		Audit:     impl.NewAuditServiceImpl(st),
	}
	if cfg.RecordDir != "" {
		rs, err := impl.NewRecordServiceImpl(cfg.RecordDir)
		if err != nil {
			return err
		}
		svc.Records = rs
	}

	mux := httpx.NewRouter(svc, httpx.Options{
		TrustProxy:     cfg.TrustProxy,
		CORSOrigins:    cfg.CORSOrigins,
		LoginRateLimit: cfg.LoginRateLimit,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		slog.Info("rdapi listening", "addr", srv.Addr, "issuer", cfg.Issuer)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
