package impl

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"rdapi/internal/domain"
	"rdapi/internal/jwtsigner"
	"rdapi/internal/store"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenSlidingExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.mustUser(t, "alice")

	tok, err := f.tokens.Create(ctx, alice, "device-1", domain.ClientTypeClient)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// each use pushes the deadline forward
	for i := 0; i < 3; i++ {
		f.clock.Advance(59 * time.Minute)
		p, err := f.tokens.Authenticate(ctx, tok)
		if err != nil {
			t.Fatalf("authenticate after %d refreshes: %v", i, err)
		}
		if p.User.ID != alice.ID {
			t.Fatalf("principal user = %s, want %s", p.User.Username, alice.Username)
		}
	}

	f.clock.Advance(time.Hour + time.Second)
	if _, err := f.tokens.Authenticate(ctx, tok); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after idle timeout, got %v", err)
	}
	if _, err := f.store.Tokens().GetByToken(ctx, tok); !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("expired token row should be reaped, got %v", err)
	}
}

func TestTokenCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.mustUser(t, "alice")

	tok, err := f.tokens.Create(ctx, alice, "device-1", domain.ClientTypeWeb)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.clock.Advance(30 * time.Minute)
	if ok, err := f.tokens.Check(ctx, tok, time.Hour); err != nil || !ok {
		t.Fatalf("Check within window = %v, %v", ok, err)
	}
	if ok, _ := f.tokens.Check(ctx, tok, 10*time.Minute); ok {
		t.Fatalf("Check with a shorter timeout should fail")
	}
	if ok, _ := f.tokens.Check(ctx, "unknown", time.Hour); ok {
		t.Fatalf("unknown token should not check")
	}
}

func TestTokenRecreateInvalidatesPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.mustUser(t, "alice")

	first, err := f.tokens.Create(ctx, alice, "device-1", domain.ClientTypeClient)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := f.tokens.Create(ctx, alice, "device-1", domain.ClientTypeClient)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first == second {
		t.Fatalf("expected a fresh token")
	}
	if _, err := f.tokens.Authenticate(ctx, first); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("previous token should not resolve, got %v", err)
	}
	if _, err := f.tokens.Authenticate(ctx, second); err != nil {
		t.Fatalf("new token: %v", err)
	}

	// a different client type on the same device is a separate session
	web, err := f.tokens.Create(ctx, alice, "device-1", domain.ClientTypeWeb)
	if err != nil {
		t.Fatalf("create web: %v", err)
	}
	for _, tok := range []string{second, web} {
		if _, err := f.tokens.Authenticate(ctx, tok); err != nil {
			t.Fatalf("authenticate: %v", err)
		}
	}
}

func TestTokenRejectsForgedAndForeignTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.mustUser(t, "alice")

	tok, err := f.tokens.Create(ctx, alice, "device-1", domain.ClientTypeClient)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	other, err := NewTokenService(TokenConfig{Issuer: "rdapi-test", SigningKey: []byte("another-key")}, f.store)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	if _, err := other.Authenticate(ctx, tok); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("token signed with another key must fail, got %v", err)
	}

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{UID: alice.ID.String(), DID: "device-1", CT: 2,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"}})
	s, err := forged.SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := f.tokens.Authenticate(ctx, s); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("wrong issuer must fail, got %v", err)
	}

	for _, bad := range []string{"", "abc", strings.Repeat("x", 40) + "_alice"} {
		if _, err := f.tokens.Authenticate(ctx, bad); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("Authenticate(%q) = %v", bad, err)
		}
	}
}

func TestTokenEd25519Signer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.mustUser(t, "alice")

	signer, err := jwtsigner.NewEd25519FromBase64("", "k1")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	ed, err := NewTokenService(TokenConfig{Issuer: "rdapi-test", Signer: signer}, f.store)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	ed.WithClock(f.clock.Now)

	tok, err := ed.Create(ctx, alice, "device-1", domain.ClientTypeClient)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p, err := ed.Authenticate(ctx, tok); err != nil || p.User.ID != alice.ID {
		t.Fatalf("authenticate = %v, %v", p, err)
	}
	// HS256 services must not accept EdDSA tokens
	if _, err := f.tokens.Authenticate(ctx, tok); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated across algorithms, got %v", err)
	}
}

func TestTokenRevocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.mustUser(t, "alice")

	t1, _ := f.tokens.Create(ctx, alice, "device-1", domain.ClientTypeClient)
	t2, _ := f.tokens.Create(ctx, alice, "device-2", domain.ClientTypeClient)
	t3, _ := f.tokens.Create(ctx, alice, "device-3", domain.ClientTypeClient)

	if err := f.tokens.Revoke(ctx, t1); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := f.tokens.RevokeByUUID(ctx, "device-2"); err != nil {
		t.Fatalf("revoke by uuid: %v", err)
	}
	for _, tok := range []string{t1, t2} {
		if _, err := f.tokens.Authenticate(ctx, tok); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("revoked token still valid")
		}
	}
	if _, err := f.tokens.Authenticate(ctx, t3); err != nil {
		t.Fatalf("unrelated token revoked: %v", err)
	}
	if err := f.tokens.RevokeByUser(ctx, alice.ID); err != nil {
		t.Fatalf("revoke by user: %v", err)
	}
	if _, err := f.tokens.Authenticate(ctx, t3); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("token survived RevokeByUser")
	}
}

func TestTokenTouchByUUID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.mustUser(t, "alice")

	tok, _ := f.tokens.Create(ctx, alice, "device-1", domain.ClientTypeClient)
	f.clock.Advance(50 * time.Minute)
	if err := f.tokens.TouchByUUID(ctx, "device-1"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	f.clock.Advance(50 * time.Minute)
	if _, err := f.tokens.Authenticate(ctx, tok); err != nil {
		t.Fatalf("heartbeat refresh did not extend the token: %v", err)
	}

	// an already expired token is not revived by a heartbeat
	f.clock.Advance(2 * time.Hour)
	if err := f.tokens.TouchByUUID(ctx, "device-1"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if _, err := f.tokens.Authenticate(ctx, tok); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expired token revived by heartbeat")
	}
}

func TestTokenInactiveUserRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.mustUser(t, "bob")

	tok, _ := f.tokens.Create(ctx, bob, "device-1", domain.ClientTypeClient)
	// deactivate directly so the token row survives
	if err := f.store.Users().Update(ctx, bob.ID, map[string]any{"is_active": false}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := f.tokens.Authenticate(ctx, tok); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("inactive user authenticated")
	}
}

func TestTokenCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.mustUser(t, "alice")

	if _, err := f.tokens.Create(ctx, alice, " ", domain.ClientTypeClient); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("empty uuid: %v", err)
	}
	if _, err := f.tokens.Create(ctx, alice, "d", domain.ClientType(9)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("bad client type: %v", err)
	}
}

func TestTokenPruneIdle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.mustUser(t, "alice")

	stale, err := f.tokens.Create(ctx, alice, "device-1", domain.ClientTypeClient)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.clock.Advance(50 * time.Minute)
	fresh, err := f.tokens.Create(ctx, alice, "device-2", domain.ClientTypeClient)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.clock.Advance(20 * time.Minute)

	n, err := f.tokens.PruneIdle(ctx)
	if err != nil || n != 1 {
		t.Fatalf("PruneIdle = %d, %v", n, err)
	}
	if _, err := f.store.Tokens().GetByToken(ctx, stale); !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("stale token should be gone, got %v", err)
	}
	if _, err := f.tokens.Authenticate(ctx, fresh); err != nil {
		t.Fatalf("fresh token: %v", err)
	}
}

func TestNewTokenServiceWithoutKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.mustUser(t, "alice")

	ts, err := NewTokenService(TokenConfig{Issuer: "rdapi-test"}, f.store)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	tok, err := ts.Create(ctx, alice, "device-1", domain.ClientTypeClient)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ts.Authenticate(ctx, tok); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
}
