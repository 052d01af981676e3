package impl

import (
	"context"
	"errors"
	"testing"

	"rdapi/internal/domain"
	"rdapi/internal/dto"
	"rdapi/internal/service"

	"golang.org/x/crypto/bcrypt"
)

func loginRequest(username, password, deviceUUID string) dto.LoginRequest {
	return dto.LoginRequest{
		Username: username,
		Password: password,
		ID:       "123456789",
		UUID:     deviceUUID,
		DeviceInfo: dto.DeviceInfo{
			OS:   "windows / Windows 11",
			Type: "client",
			Name: "desk-1",
		},
	}
}

func TestLoginAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.mustUser(t, "alice")

	res, err := f.auth.Login(ctx, loginRequest("alice", "alice-password", "uuid-1"), "192.0.2.10", "RustDesk/1.3")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.User.ID != alice.ID || res.AccessToken == "" {
		t.Fatalf("unexpected result: %+v", res)
	}

	p, err := f.tokens.Authenticate(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if p.Token.ClientType != domain.ClientTypeClient || p.Token.UUID != "uuid-1" {
		t.Fatalf("unexpected token row: %+v", p.Token)
	}

	clients, err := f.store.LoginClients().ListByUser(ctx, alice.ID)
	if err != nil || len(clients) != 1 {
		t.Fatalf("login clients = %v, %v", clients, err)
	}
	if !clients[0].LoginStatus || clients[0].Platform != "Windows" || clients[0].PeerID != "123456789" {
		t.Fatalf("unexpected login client: %+v", clients[0])
	}

	if err := f.auth.Logout(ctx, p, ""); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.tokens.Authenticate(ctx, res.AccessToken); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("token valid after logout")
	}
	clients, _ = f.store.LoginClients().ListByUser(ctx, alice.ID)
	if clients[0].LoginStatus {
		t.Fatalf("login client still marked logged in")
	}

	logs, total, err := f.store.LoginLogs().List(ctx, &alice.ID, 1, 10)
	if err != nil || total != 2 {
		t.Fatalf("login logs = %d, %v", total, err)
	}
	var sawLogout bool
	for _, l := range logs {
		if !l.LoginStatus {
			sawLogout = true
			if l.IP != "192.0.2.10" || l.PeerID != "123456789" {
				t.Fatalf("logout entry not copied from login: %+v", l)
			}
		}
	}
	if !sawLogout {
		t.Fatalf("no logout entry")
	}
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.mustUser(t, "admin")
	f.mustUser(t, "bob")

	if _, err := f.auth.Login(ctx, loginRequest("bob", "wrong", "u"), "", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("bad password: %v", err)
	}
	if _, err := f.auth.Login(ctx, loginRequest("nobody", "whatever", "u"), "", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}
	if _, err := f.auth.Login(ctx, loginRequest("bob", "bob-password", ""), "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("missing uuid: %v", err)
	}

	if err := f.users.Delete(ctx, admin, "bob"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.auth.Login(ctx, loginRequest("bob", "bob-password", "u"), "", ""); !errors.Is(err, domain.ErrUserDisabled) {
		t.Fatalf("deleted user: %v", err)
	}
}

func TestLoginRehashesBcrypt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.mustUser(t, "legacy")

	h, _ := bcrypt.GenerateFromPassword([]byte("imported-pass"), bcrypt.MinCost)
	cred, err := f.store.Credentials().GetPasswordByUserID(ctx, u.ID)
	if err != nil {
		t.Fatalf("credential: %v", err)
	}
	cred.Algo, cred.Hash, cred.Salt, cred.ParamsJSON = "bcrypt", h, []byte{}, []byte("{}")
	if err := f.store.Credentials().UpsertPassword(ctx, cred); err != nil {
		t.Fatalf("store bcrypt: %v", err)
	}

	if _, err := f.auth.Login(ctx, loginRequest("legacy", "imported-pass", "u"), "", ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	cred, _ = f.store.Credentials().GetPasswordByUserID(ctx, u.ID)
	if cred.Algo != algoArgon2id {
		t.Fatalf("credential not upgraded: %s", cred.Algo)
	}
	if _, err := f.auth.Login(ctx, loginRequest("legacy", "imported-pass", "u"), "", ""); err != nil {
		t.Fatalf("login after rehash: %v", err)
	}
}

type stubDirectory struct {
	ident *service.DirectoryIdentity
	err   error
}

func (s stubDirectory) Authenticate(context.Context, string, string) (*service.DirectoryIdentity, error) {
	return s.ident, s.err
}

func TestLoginDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.auth.Directory = stubDirectory{ident: &service.DirectoryIdentity{Username: "dana", Email: "dana@example.com"}}
	res, err := f.auth.Login(ctx, loginRequest("dana", "directory-pass", "u"), "", "")
	if err != nil {
		t.Fatalf("directory login: %v", err)
	}
	if res.User.Email != "dana@example.com" {
		t.Fatalf("provisioned user = %+v", res.User)
	}
	if _, err := f.store.Personals().GetDefault(ctx, res.User.ID); err != nil {
		t.Fatalf("provisioned user lacks default personal: %v", err)
	}

	// unknown to the directory: local accounts still work
	f.mustUser(t, "local")
	f.auth.Directory = stubDirectory{err: service.ErrDirectoryUserUnknown}
	if _, err := f.auth.Login(ctx, loginRequest("local", "local-password", "u"), "", ""); err != nil {
		t.Fatalf("local fallback: %v", err)
	}

	f.auth.Directory = stubDirectory{err: domain.ErrInvalidCredentials}
	if _, err := f.auth.Login(ctx, loginRequest("dana", "bad", "u"), "", ""); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("directory rejection: %v", err)
	}
}
