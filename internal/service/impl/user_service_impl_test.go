package impl

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rdapi/internal/domain"
	"rdapi/internal/service"
)

func TestCreateUserProvisionsEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice, err := f.users.Create(ctx, service.CreateUserInput{
		Username: "alice",
		Password: "alice-password",
		Email:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !alice.IsActive || alice.IsStaff {
		t.Fatalf("unexpected flags: %+v", alice)
	}

	def, err := f.store.Personals().GetDefault(ctx, alice.ID)
	if err != nil {
		t.Fatalf("default personal: %v", err)
	}
	if def.Name != "alice_personal" || def.Type != domain.PersonalPrivate {
		t.Fatalf("unexpected default personal: %+v", def)
	}
	n, err := f.store.Personals().CountByOwnerType(ctx, alice.ID, domain.PersonalPrivate)
	if err != nil || n != 1 {
		t.Fatalf("private personals = %d, %v; want 1", n, err)
	}

	grp, err := f.users.GroupOf(ctx, alice)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if grp.Name != "Default" {
		t.Fatalf("group = %q", grp.Name)
	}
	if _, err := f.store.Credentials().GetPasswordByUserID(ctx, alice.ID); err != nil {
		t.Fatalf("credential: %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mustUser(t, "alice")

	cases := []struct {
		name string
		in   service.CreateUserInput
		want error
	}{
		{"duplicate", service.CreateUserInput{Username: "alice", Password: "password1"}, domain.ErrUserExists},
		{"bad username", service.CreateUserInput{Username: "al ice", Password: "password1"}, domain.ErrInvalidArgument},
		{"empty username", service.CreateUserInput{Username: "", Password: "password1"}, domain.ErrInvalidArgument},
		{"long username", service.CreateUserInput{Username: strings.Repeat("b", 151), Password: "password1"}, domain.ErrInvalidArgument},
		{"short password", service.CreateUserInput{Username: "bob", Password: "12345"}, domain.ErrInvalidArgument},
		{"unknown group", service.CreateUserInput{Username: "bob", Password: "password1", Group: "ops"}, domain.ErrGroupNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.users.Create(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}

	// a failed creation leaves nothing behind
	if _, err := f.users.Get(ctx, "bob"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("bob should not exist: %v", err)
	}
}

func TestCreateUserLongestUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	name := strings.Repeat("a", 150)
	u := f.mustUser(t, name)
	p, err := f.personals.Default(ctx, u)
	if err != nil {
		t.Fatalf("default personal: %v", err)
	}
	if p.Name != name+"_personal" {
		t.Fatalf("default personal name = %q", p.Name)
	}
}

func TestCreateUserInCustomGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.users.CreateGroup(ctx, "ops"); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := f.users.CreateGroup(ctx, "ops"); !errors.Is(err, domain.ErrGroupExists) {
		t.Fatalf("duplicate group: %v", err)
	}
	u, err := f.users.Create(ctx, service.CreateUserInput{Username: "carol", Password: "password1", Group: "ops"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	grp, err := f.users.GroupOf(ctx, u)
	if err != nil || grp.Name != "ops" {
		t.Fatalf("group = %v, %v", grp, err)
	}

	groups, err := f.users.ListGroups(ctx)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	for _, g := range groups {
		if g.Group.Name == "ops" && g.Members != 1 {
			t.Fatalf("ops members = %d", g.Members)
		}
	}
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.mustUser(t, "admin")
	bob := f.mustUser(t, "bob")

	tok, err := f.tokens.Create(ctx, bob, "device-1", domain.ClientTypeClient)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	if err := f.users.Delete(ctx, admin, "admin"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("self delete: %v", err)
	}
	if err := f.users.Delete(ctx, admin, "bob"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.tokens.Authenticate(ctx, tok); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("deleted user's token still valid")
	}

	users, total, err := f.users.List(ctx, service.StatusAll, 1, 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || users[0].Username != "admin" {
		t.Fatalf("list after delete = %d %+v", total, users)
	}

	// the name stays reserved
	if _, err := f.users.Create(ctx, service.CreateUserInput{Username: "bob", Password: "password1"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("recreate deleted username: %v", err)
	}
}

func TestSetPasswordRevokesTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.mustUser(t, "bob")

	tok, _ := f.tokens.Create(ctx, bob, "device-1", domain.ClientTypeClient)
	if err := f.users.SetPassword(ctx, "bob", "123"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("short password: %v", err)
	}
	if err := f.users.SetPassword(ctx, "bob", "new-password"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if _, err := f.tokens.Authenticate(ctx, tok); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("token survived password change")
	}

	cred, err := f.store.Credentials().GetPasswordByUserID(ctx, bob.ID)
	if err != nil {
		t.Fatalf("credential: %v", err)
	}
	if _, ok := f.passwords.Verify("new-password", cred); !ok {
		t.Fatalf("new password does not verify")
	}
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.mustUser(t, "admin")
	bob := f.mustUser(t, "bob")
	tok, _ := f.tokens.Create(ctx, bob, "device-1", domain.ClientTypeClient)

	yes, no := true, false
	if _, err := f.users.Update(ctx, admin, "admin", service.UpdateUserInput{IsStaff: &yes}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("self staff change: %v", err)
	}
	if _, err := f.users.Update(ctx, admin, "admin", service.UpdateUserInput{IsActive: &no}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("self deactivate: %v", err)
	}

	email := "bob@example.com"
	got, err := f.users.Update(ctx, admin, "bob", service.UpdateUserInput{Email: &email, IsStaff: &yes, IsActive: &no})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Email != email || !got.IsStaff || got.IsActive {
		t.Fatalf("unexpected user: %+v", got)
	}
	if _, err := f.tokens.Authenticate(ctx, tok); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("deactivated user's token still valid")
	}

	active, total, err := f.users.List(ctx, service.StatusInactive, 1, 10)
	if err != nil || total != 1 || active[0].Username != "bob" {
		t.Fatalf("inactive list = %v %d %v", active, total, err)
	}
}

func TestGroupOfProvisionsMissingMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.mustUser(t, "dave")

	// drop the membership to mimic an account created before groups existed
	if err := f.store.DB.Where("user_id = ?", u.ID).Delete(&domain.UserProfile{}).Error; err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	grp, err := f.users.GroupOf(ctx, u)
	if err != nil || grp.Name != "Default" {
		t.Fatalf("GroupOf = %v, %v", grp, err)
	}
	if _, err := f.store.Profiles().Get(ctx, u.ID); err != nil {
		t.Fatalf("membership not stored: %v", err)
	}
}

func TestUserConfig(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.mustUser(t, "erin")

	if err := f.users.SetConfig(ctx, u, "language", "en"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := f.users.SetConfig(ctx, u, "language", "de"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	cfg, err := f.users.Config(ctx, u)
	if err != nil || cfg["language"] != "de" {
		t.Fatalf("config = %v, %v", cfg, err)
	}
}
