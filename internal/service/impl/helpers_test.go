package impl

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rdapi/internal/domain"
	"rdapi/internal/service"
	"rdapi/internal/store"
	"rdapi/pkg/db"

	"github.com/google/uuid"
)

// newTestStore opens a private in-memory database with the full schema.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	gdb, err := db.OpenGorm(db.Config{
		Driver:  "sqlite",
		DSN:     fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpen: 1,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	st := store.New(gdb)
	if err := st.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return st
}

type testClock struct{ t time.Time }

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func cheapPasswords() *PasswordServiceImpl {
	return NewPasswordServiceWithParams(Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
}

type fixture struct {
	store     *store.Store
	clock     *testClock
	passwords *PasswordServiceImpl
	tokens    *TokenServiceImpl
	users     *UserServiceImpl
	devices   *DeviceServiceImpl
	personals *PersonalServiceImpl
	tags      *TagServiceImpl
	audit     *AuditServiceImpl
	auth      *AuthServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newTestStore(t)
	clock := newTestClock()

	f := &fixture{store: st, clock: clock, passwords: cheapPasswords()}
	tokens, err := NewTokenService(TokenConfig{
		Issuer:      "rdapi-test",
		IdleTimeout: time.Hour,
		SigningKey:  []byte("test-signing-key"),
	}, st)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	f.tokens = tokens.WithClock(clock.Now)
	f.users = NewUserServiceImpl(st, f.passwords, f.tokens, "Default")
	f.users.now = clock.Now
	f.devices = NewDeviceServiceImpl(st, f.tokens, time.Minute).WithClock(clock.Now)
	f.personals = NewPersonalServiceImpl(st, f.users)
	f.tags = NewTagServiceImpl(st, f.users)
	f.audit = NewAuditServiceImpl(st)
	f.audit.now = clock.Now
	f.auth = NewAuthServiceImpl(st, f.passwords, f.tokens, f.users, nil)
	return f
}

func (f *fixture) mustUser(t *testing.T, username string) *domain.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), service.CreateUserInput{
		Username: username,
		Password: username + "-password",
	})
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func (f *fixture) mustPeer(t *testing.T, peerID, deviceUUID string) *domain.Peer {
	t.Helper()
	p, err := f.devices.Upsert(context.Background(), service.PeerFacts{
		UUID:     deviceUUID,
		PeerID:   peerID,
		Hostname: "host-" + peerID,
		OS:       "linux / Ubuntu 24.04",
		Username: "root",
		Version:  "1.3.0",
	})
	if err != nil {
		t.Fatalf("upsert peer %s: %v", peerID, err)
	}
	return p
}

func (f *fixture) mustPersonal(t *testing.T, owner *domain.User, name string) *domain.Personal {
	t.Helper()
	p, err := f.personals.Create(context.Background(), owner, name, domain.PersonalPublic)
	if err != nil {
		t.Fatalf("create personal %s: %v", name, err)
	}
	return p
}
