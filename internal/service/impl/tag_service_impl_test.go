package impl

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"rdapi/internal/domain"
)

func TestTagLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.mustUser(t, "alice")
	f.mustPeer(t, "111", "uuid-1")
	def, _ := f.personals.Default(ctx, alice)
	_ = f.personals.AddPeer(ctx, alice, def.GUID, "111", "")

	for _, n := range []string{"prod", "db"} {
		if _, err := f.tags.Create(ctx, alice, def.GUID, n, 0); err != nil {
			t.Fatalf("create %s: %v", n, err)
		}
	}
	if _, err := f.tags.Create(ctx, alice, def.GUID, "prod", 1); !errors.Is(err, domain.ErrTagExists) {
		t.Fatalf("duplicate tag: %v", err)
	}
	if err := f.tags.SetForDevice(ctx, alice, def.GUID, "111", []string{"prod", "db", "nope"}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	// renaming keeps the attachment
	name, color := "production", int64(0x00ff00)
	if err := f.tags.Update(ctx, alice, def.GUID, "prod", &name, &color); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := f.tags.Update(ctx, alice, def.GUID, "db", &name, nil); !errors.Is(err, domain.ErrTagExists) {
		t.Fatalf("rename onto existing: %v", err)
	}
	if err := f.tags.Update(ctx, alice, def.GUID, "gone", &name, nil); !errors.Is(err, domain.ErrTagNotFound) {
		t.Fatalf("update unknown: %v", err)
	}
	m, err := f.tags.TagsMap(ctx, alice, def.GUID, []string{"111"})
	if err != nil || !reflect.DeepEqual(m["111"], []string{"db", "production"}) {
		t.Fatalf("tags = %v, %v", m, err)
	}

	if err := f.tags.Delete(ctx, alice, def.GUID, "db", "unknown"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	m, _ = f.tags.TagsMap(ctx, alice, def.GUID, []string{"111"})
	if !reflect.DeepEqual(m["111"], []string{"production"}) {
		t.Fatalf("tags after delete = %v", m)
	}
	tags, err := f.tags.List(ctx, alice, def.GUID)
	if err != nil || len(tags) != 1 || tags[0].Color != color {
		t.Fatalf("list = %+v, %v", tags, err)
	}
}

func TestPeerTagsArePerUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.mustUser(t, "alice")
	bob := f.mustUser(t, "bob")
	f.mustPeer(t, "111", "uuid-1")

	team := f.mustPersonal(t, alice, "team")
	_ = f.personals.AddPeer(ctx, alice, team.GUID, "111", "")
	for _, n := range []string{"mine", "theirs"} {
		if _, err := f.tags.Create(ctx, alice, team.GUID, n, 0); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	if err := f.tags.SetForDevice(ctx, bob, team.GUID, "111", []string{"theirs"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("tag without a share: %v", err)
	}
	if err := f.personals.Share(ctx, alice, team.GUID, domain.ShareTargetUser, "bob", domain.RuleReadWrite); err != nil {
		t.Fatalf("share: %v", err)
	}

	if err := f.tags.SetForDevice(ctx, alice, team.GUID, "111", []string{"mine"}); err != nil {
		t.Fatalf("alice attach: %v", err)
	}
	if err := f.tags.SetForDevice(ctx, bob, team.GUID, "111", []string{"theirs"}); err != nil {
		t.Fatalf("bob attach: %v", err)
	}
	am, _ := f.tags.TagsMap(ctx, alice, team.GUID, []string{"111"})
	bm, _ := f.tags.TagsMap(ctx, bob, team.GUID, []string{"111"})
	if !reflect.DeepEqual(am["111"], []string{"mine"}) || !reflect.DeepEqual(bm["111"], []string{"theirs"}) {
		t.Fatalf("alice %v bob %v", am, bm)
	}

	// clearing is an empty set
	if err := f.tags.SetForDevice(ctx, bob, team.GUID, "111", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	bm, _ = f.tags.TagsMap(ctx, bob, team.GUID, []string{"111"})
	am, _ = f.tags.TagsMap(ctx, alice, team.GUID, []string{"111"})
	if len(bm["111"]) != 0 || len(am["111"]) != 1 {
		t.Fatalf("after clear: alice %v bob %v", am, bm)
	}
}

func TestDeleteTagStaysInItsPersonal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.mustUser(t, "alice")
	f.mustPeer(t, "111", "uuid-1")
	f.mustPeer(t, "222", "uuid-2")
	peers := []string{"111", "222"}

	p1 := f.mustPersonal(t, alice, "one")
	p2 := f.mustPersonal(t, alice, "two")
	for _, p := range []*domain.Personal{p1, p2} {
		if _, err := f.tags.Create(ctx, alice, p.GUID, "t", 0); err != nil {
			t.Fatalf("create: %v", err)
		}
		for _, id := range peers {
			if err := f.personals.AddPeer(ctx, alice, p.GUID, id, ""); err != nil {
				t.Fatalf("add %s: %v", id, err)
			}
			if err := f.tags.SetForDevice(ctx, alice, p.GUID, id, []string{"t"}); err != nil {
				t.Fatalf("attach %s: %v", id, err)
			}
		}
	}

	if err := f.tags.Delete(ctx, alice, p1.GUID, "t"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	m1, err := f.tags.TagsMap(ctx, alice, p1.GUID, peers)
	if err != nil || len(m1["111"]) != 0 || len(m1["222"]) != 0 {
		t.Fatalf("p1 tags = %v, %v", m1, err)
	}
	if l, _ := f.tags.List(ctx, alice, p1.GUID); len(l) != 0 {
		t.Fatalf("p1 list = %+v", l)
	}

	m2, err := f.tags.TagsMap(ctx, alice, p2.GUID, peers)
	want := map[string][]string{"111": {"t"}, "222": {"t"}}
	if err != nil || !reflect.DeepEqual(m2, want) {
		t.Fatalf("p2 tags = %v, %v", m2, err)
	}
	if l, _ := f.tags.List(ctx, alice, p2.GUID); len(l) != 1 {
		t.Fatalf("p2 list = %+v", l)
	}
}
