package impl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rdapi/internal/domain"
	"rdapi/internal/jwtsigner"
	"rdapi/internal/observability/metrics"
	"rdapi/internal/observability/middleware"
	"rdapi/internal/service"
	"rdapi/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenConfig struct {
	Issuer      string
	IdleTimeout time.Duration // sliding window, 1h by default
	SigningKey  []byte        // HS256 secret, used when Signer is nil
	Signer      *jwtsigner.Signer
}

// TokenClaims identify the token row; validity is decided by the row, not by exp.
type TokenClaims struct {
	UID string `json:"uid"`
	DID string `json:"did"`
	CT  int    `json:"ct"`
	jwt.RegisteredClaims
}

var _ service.TokenService = (*TokenServiceImpl)(nil)

type TokenServiceImpl struct {
	cfg   TokenConfig
	store *store.Store
	now   func() time.Time
}

func NewTokenService(cfg TokenConfig, st *store.Store) (*TokenServiceImpl, error) {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = time.Hour
	}
	if cfg.Signer == nil {
		key := cfg.SigningKey
		if len(key) == 0 {
			key = []byte(uuid.NewString())
		}
		signer, err := jwtsigner.NewHS256(key)
		if err != nil {
			return nil, fmt.Errorf("token signer: %w", err)
		}
		cfg.Signer = signer
	}
	return &TokenServiceImpl{
		cfg:   cfg,
		store: st,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// WithClock replaces the time source.
func (t *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	t.now = now
	return t
}

func (t *TokenServiceImpl) IdleTimeout() time.Duration { return t.cfg.IdleTimeout }

// Create issues a token for (user, device, client type). Any earlier token
// for the same triple stops resolving because its row is overwritten.
func (t *TokenServiceImpl) Create(ctx context.Context, user *domain.User, deviceUUID string, ct domain.ClientType) (string, error) {
	result := "success"
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues(ct.String(), result).Inc()
	}()
	deviceUUID = strings.TrimSpace(deviceUUID)
	if deviceUUID == "" {
		result = "failure"
		return "", ErrEmptyUUID
	}
	if !ct.Valid() {
		result = "failure"
		return "", fmt.Errorf("%w: client type %d", domain.ErrInvalidArgument, ct)
	}
	now := t.now()

	signed, err := t.sign(user, deviceUUID, ct, now)
	if err != nil {
		result = "failure"
		return "", err
	}
	row := &domain.Token{
		ID:         uuid.New(),
		UserID:     user.ID,
		UUID:       deviceUUID,
		ClientType: ct,
		Token:      signed,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	if err := t.store.Tokens().Upsert(ctx, row); err != nil {
		result = "failure"
		return "", err
	}

	slog.Info("issued token",
		"user", user.Username,
		"uuid", deviceUUID,
		"client_type", ct.String(),
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx),
	)
	return signed, nil
}

// Check reports whether the token exists and was used within timeout.
// Expired rows are removed.
func (t *TokenServiceImpl) Check(ctx context.Context, token string, timeout time.Duration) (bool, error) {
	_, ok, err := t.lookup(ctx, token, timeout)
	return ok, err
}

func (t *TokenServiceImpl) Touch(ctx context.Context, token string) error {
	_, err := t.store.Tokens().Touch(ctx, token, t.now())
	return err
}

func (t *TokenServiceImpl) TouchByUUID(ctx context.Context, deviceUUID string) error {
	if deviceUUID == "" {
		return nil
	}
	now := t.now()
	_, err := t.store.Tokens().TouchByUUID(ctx, deviceUUID, now, now.Add(-t.cfg.IdleTimeout))
	return err
}

// Authenticate verifies the signature, applies the sliding window, refreshes
// the token and loads its active owner.
func (t *TokenServiceImpl) Authenticate(ctx context.Context, token string) (*service.Principal, error) {
	reason := ""
	defer func() {
		if reason != "" {
			metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
			slog.Debug("rejected token", "reason", reason,
				"request_id", middleware.RequestIDFromContext(ctx),
				"trace_id", middleware.TraceIDFromContext(ctx),
			)
		}
	}()

	claims, err := t.parse(token)
	if err != nil {
		reason = "malformed"
		return nil, domain.ErrUnauthenticated
	}
	row, ok, err := t.lookup(ctx, token, t.cfg.IdleTimeout)
	if err != nil {
		return nil, err
	}
	if !ok {
		reason = "expired_or_revoked"
		return nil, domain.ErrUnauthenticated
	}
	if claims.UID != row.UserID.String() || claims.DID != row.UUID {
		reason = "mismatch"
		return nil, domain.ErrUnauthenticated
	}

	user, err := t.store.Users().GetByID(ctx, row.UserID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			reason = "unknown_user"
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	if !user.IsActive || user.DeletedAt != nil {
		reason = "inactive_user"
		return nil, domain.ErrUnauthenticated
	}

	now := t.now()
	if _, err := t.store.Tokens().Touch(ctx, token, now); err != nil {
		return nil, err
	}
	row.LastUsedAt = now
	return &service.Principal{User: user, Token: row}, nil
}

func (t *TokenServiceImpl) Revoke(ctx context.Context, token string) error {
	_, err := t.store.Tokens().Delete(ctx, token)
	return err
}

func (t *TokenServiceImpl) RevokeByUUID(ctx context.Context, deviceUUID string) error {
	_, err := t.store.Tokens().DeleteByUUID(ctx, deviceUUID)
	return err
}

func (t *TokenServiceImpl) RevokeByUser(ctx context.Context, userID domain.UserID) error {
	n, err := t.store.Tokens().DeleteByUser(ctx, userID)
	if err == nil && n > 0 {
		slog.Info("revoked tokens", "user_id", userID, "count", n,
			"request_id", middleware.RequestIDFromContext(ctx),
		)
	}
	return err
}

// PruneIdle deletes every token idle for longer than the timeout.
func (t *TokenServiceImpl) PruneIdle(ctx context.Context) (int64, error) {
	n, err := t.store.Tokens().DeleteIdle(ctx, t.now().Add(-t.cfg.IdleTimeout))
	if err == nil && n > 0 {
		slog.Info("pruned idle tokens", "count", n)
	}
	return n, err
}

// ====== Helpers ======

func (t *TokenServiceImpl) lookup(ctx context.Context, token string, timeout time.Duration) (*domain.Token, bool, error) {
	if token == "" {
		return nil, false, nil
	}
	row, err := t.store.Tokens().GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !row.Alive(t.now(), timeout) {
		if _, err := t.store.Tokens().Delete(ctx, token); err != nil {
			slog.Warn("could not reap expired token", "error", err, "user_id", row.UserID)
		}
		return nil, false, nil
	}
	return row, true, nil
}

func (t *TokenServiceImpl) sign(user *domain.User, deviceUUID string, ct domain.ClientType, now time.Time) (string, error) {
	claims := TokenClaims{
		UID: user.ID.String(),
		DID: deviceUUID,
		CT:  int(ct),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   t.cfg.Issuer,
			Subject:  user.Username,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
		},
	}
	return t.cfg.Signer.Sign(claims)
}

func (t *TokenServiceImpl) parse(tokenStr string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{t.cfg.Signer.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
	)
	tok, err := parser.ParseWithClaims(tokenStr, claims, t.cfg.Signer.Keyfunc)
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
