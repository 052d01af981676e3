package impl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"rdapi/internal/domain"
	"rdapi/internal/observability/middleware"
	"rdapi/internal/service"
	"rdapi/internal/store"

	"github.com/google/uuid"
)

var _ service.PersonalService = (*PersonalServiceImpl)(nil)

type PersonalServiceImpl struct {
	store  *store.Store
	users  service.UserService
	access accessResolver
}

func NewPersonalServiceImpl(st *store.Store, users service.UserService) *PersonalServiceImpl {
	return &PersonalServiceImpl{
		store:  st,
		users:  users,
		access: accessResolver{store: st, users: users},
	}
}

// Create adds a public personal. The private one is created with the account.
func (p *PersonalServiceImpl) Create(ctx context.Context, owner *domain.User, name string, t domain.PersonalType) (*domain.Personal, error) {
	if t == "" {
		t = domain.PersonalPublic
	}
	if t != domain.PersonalPublic {
		return nil, fmt.Errorf("%w: only public address books can be created", domain.ErrInvalidArgument)
	}
	name, err := cleanName(name, 100)
	if err != nil {
		return nil, err
	}
	out := &domain.Personal{OwnerID: owner.ID, Name: name, Type: t}
	if err := p.store.Personals().Create(ctx, out); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domain.ErrPersonalExists
		}
		return nil, err
	}
	slog.Info("created address book",
		"user", owner.Username,
		"guid", out.GUID,
		"name", out.Name,
		"request_id", middleware.RequestIDFromContext(ctx),
	)
	return out, nil
}

// Default returns the user's private personal, recreating it if it went missing.
func (p *PersonalServiceImpl) Default(ctx context.Context, user *domain.User) (*domain.Personal, error) {
	out, err := p.store.Personals().GetDefault(ctx, user.ID)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, err
	}
	if err := createSelfPersonal(ctx, p.store, user); err != nil && !errors.Is(err, store.ErrDuplicate) {
		return nil, err
	}
	slog.Warn("recreated default address book", "user", user.Username)
	out, err = p.store.Personals().GetDefault(ctx, user.ID)
	return out, notFound(err, domain.ErrPersonalNotFound)
}

func (p *PersonalServiceImpl) Rename(ctx context.Context, actor *domain.User, guid domain.GUID, name string) error {
	acc, err := p.access.requireOwner(ctx, actor, guid)
	if err != nil {
		return err
	}
	if acc.Personal.IsDefault() {
		return domain.ErrDefaultPersonal
	}
	name, err = cleanName(name, 100)
	if err != nil {
		return err
	}
	if name == acc.Personal.Name {
		return nil
	}
	if err := p.store.Personals().Rename(ctx, guid, name); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.ErrPersonalExists
		}
		return err
	}
	return nil
}

// Delete removes the personal together with its aliases, tags and shares.
func (p *PersonalServiceImpl) Delete(ctx context.Context, actor *domain.User, guid domain.GUID) error {
	acc, err := p.access.requireOwner(ctx, actor, guid)
	if err != nil {
		return err
	}
	if acc.Personal.IsDefault() {
		return domain.ErrDefaultPersonal
	}
	err = p.store.WithTx(ctx, func(tx *store.Store) error {
		if _, err := tx.Personals().GetForUpdate(ctx, guid); err != nil {
			return notFound(err, domain.ErrPersonalNotFound)
		}
		return tx.Personals().Delete(ctx, guid)
	})
	if err != nil {
		return err
	}
	slog.Info("deleted address book",
		"user", actor.Username,
		"guid", guid,
		"request_id", middleware.RequestIDFromContext(ctx),
	)
	return nil
}

func (p *PersonalServiceImpl) Access(ctx context.Context, user *domain.User, guid domain.GUID) (*service.PersonalAccess, error) {
	return p.access.resolve(ctx, user, guid)
}

// AddPeer puts a registered peer into the personal. An empty alias falls
// back to the peer id.
func (p *PersonalServiceImpl) AddPeer(ctx context.Context, actor *domain.User, guid domain.GUID, peerID, alias string) error {
	if _, err := p.access.require(ctx, actor, guid, domain.RuleReadWrite); err != nil {
		return err
	}
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return ErrEmptyPeerID
	}
	if _, err := p.store.Peers().GetByPeerID(ctx, peerID); err != nil {
		return notFound(err, domain.ErrPeerNotFound)
	}
	return p.store.Aliases().Upsert(ctx, &domain.Alias{GUID: guid, PeerID: peerID, Alias: aliasOrID(alias, peerID)})
}

func aliasOrID(alias, peerID string) string {
	if alias = strings.TrimSpace(alias); alias == "" {
		return peerID
	}
	return alias
}

// UpdatePeer changes the alias and/or the caller's tags of a member peer.
// An empty alias resets it to the peer id.
func (p *PersonalServiceImpl) UpdatePeer(ctx context.Context, actor *domain.User, guid domain.GUID, peerID string, alias *string, tags *[]string) error {
	if _, err := p.access.require(ctx, actor, guid, domain.RuleReadWrite); err != nil {
		return err
	}
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return ErrEmptyPeerID
	}
	ok, err := p.store.Aliases().Exists(ctx, guid, peerID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrPeerNotFound
	}
	return p.store.WithTx(ctx, func(tx *store.Store) error {
		if alias != nil {
			a := &domain.Alias{GUID: guid, PeerID: peerID, Alias: aliasOrID(*alias, peerID)}
			if err := tx.Aliases().Upsert(ctx, a); err != nil {
				return err
			}
		}
		if tags != nil {
			return setPeerTags(ctx, tx, actor.ID, guid, peerID, *tags)
		}
		return nil
	})
}

// RemovePeers drops the peers from the personal with every user's tags on them.
func (p *PersonalServiceImpl) RemovePeers(ctx context.Context, actor *domain.User, guid domain.GUID, peerIDs []string) error {
	if _, err := p.access.require(ctx, actor, guid, domain.RuleReadWrite); err != nil {
		return err
	}
	ids := dedupe(peerIDs)
	if len(ids) == 0 {
		return nil
	}
	var removed int64
	err := p.store.WithTx(ctx, func(tx *store.Store) error {
		if _, err := tx.PeerTags().DeleteByPeers(ctx, guid, ids); err != nil {
			return err
		}
		n, err := tx.Aliases().DeleteByPeers(ctx, guid, ids)
		removed = n
		return err
	})
	if err != nil {
		return err
	}
	slog.Info("removed peers from address book",
		"user", actor.Username,
		"guid", guid,
		"peer_ids", ids,
		"removed", removed,
		"request_id", middleware.RequestIDFromContext(ctx),
	)
	return nil
}

func (p *PersonalServiceImpl) ListPeers(ctx context.Context, user *domain.User, guid domain.GUID, page, pageSize int) ([]service.AbPeer, int64, error) {
	if _, err := p.access.require(ctx, user, guid, domain.RuleRead); err != nil {
		return nil, 0, err
	}
	aliases, total, err := p.store.Aliases().List(ctx, guid, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]string, 0, len(aliases))
	for _, a := range aliases {
		ids = append(ids, a.PeerID)
	}
	peers, err := p.store.Peers().ListByPeerIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[string]*domain.Peer, len(peers))
	for i := range peers {
		byID[peers[i].PeerID] = &peers[i]
	}
	tags, err := p.store.PeerTags().NamesByPeer(ctx, guid, user.ID, ids)
	if err != nil {
		return nil, 0, err
	}

	out := make([]service.AbPeer, 0, len(aliases))
	for _, a := range aliases {
		t := tags[a.PeerID]
		if t == nil {
			t = []string{}
		}
		out = append(out, service.AbPeer{Alias: a, Peer: byID[a.PeerID], Tags: t})
	}
	return out, total, nil
}

// Share grants a public personal to a user or a group. Granting twice is a no-op.
func (p *PersonalServiceImpl) Share(ctx context.Context, actor *domain.User, guid domain.GUID, targetType domain.ShareTargetType, target string, rule domain.ShareRule) error {
	acc, err := p.access.requireOwner(ctx, actor, guid)
	if err != nil {
		return err
	}
	if acc.Personal.IsDefault() {
		return domain.ErrPrivatePersonal
	}
	if rule == 0 {
		rule = domain.RuleRead
	}
	if !rule.Valid() {
		return fmt.Errorf("%w: rule %d", domain.ErrInvalidArgument, rule)
	}
	targetID, err := p.resolveTarget(ctx, targetType, target)
	if err != nil {
		return err
	}
	if targetType == domain.ShareTargetUser && targetID == actor.ID {
		return fmt.Errorf("%w: cannot share with yourself", domain.ErrInvalidArgument)
	}

	created, err := p.store.Shares().Create(ctx, &domain.SharePersonal{
		GUID:       guid,
		TargetID:   targetID,
		TargetType: targetType,
		SourceID:   actor.ID,
		SourceType: domain.ShareTargetUser,
		Rule:       rule,
	})
	if err != nil {
		return err
	}
	if created {
		slog.Info("shared address book",
			"user", actor.Username,
			"guid", guid,
			"target", target,
			"target_type", int(targetType),
			"rule", int(rule),
			"request_id", middleware.RequestIDFromContext(ctx),
		)
	}
	return nil
}

func (p *PersonalServiceImpl) Unshare(ctx context.Context, actor *domain.User, guid domain.GUID, targetType domain.ShareTargetType, target string) error {
	if _, err := p.access.requireOwner(ctx, actor, guid); err != nil {
		return err
	}
	targetID, err := p.resolveTarget(ctx, targetType, target)
	if err != nil {
		return err
	}
	_, err = p.store.Shares().Delete(ctx, guid, targetID, targetType)
	return err
}

func (p *PersonalServiceImpl) Shares(ctx context.Context, actor *domain.User, guid domain.GUID) ([]service.ShareGrant, error) {
	if _, err := p.access.requireOwner(ctx, actor, guid); err != nil {
		return nil, err
	}
	shares, err := p.store.Shares().ListByGUID(ctx, guid)
	if err != nil {
		return nil, err
	}
	var userIDs []domain.UserID
	for _, s := range shares {
		if s.TargetType == domain.ShareTargetUser {
			userIDs = append(userIDs, s.TargetID)
		}
	}
	users, err := p.store.Users().ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	groups, err := p.store.Groups().List(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		names[g.ID] = g.Name
	}

	out := make([]service.ShareGrant, 0, len(shares))
	for _, s := range shares {
		out = append(out, service.ShareGrant{Share: s, TargetName: names[s.TargetID]})
	}
	return out, nil
}

func (p *PersonalServiceImpl) resolveTarget(ctx context.Context, t domain.ShareTargetType, name string) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil, ErrEmptyName
	}
	switch t {
	case domain.ShareTargetUser:
		u, err := p.store.Users().GetByUsername(ctx, name)
		if err != nil {
			return uuid.Nil, notFound(err, domain.ErrUserNotFound)
		}
		if u.DeletedAt != nil {
			return uuid.Nil, domain.ErrUserNotFound
		}
		return u.ID, nil
	case domain.ShareTargetGroup:
		g, err := p.store.Groups().GetByName(ctx, name)
		if err != nil {
			return uuid.Nil, notFound(err, domain.ErrGroupNotFound)
		}
		return g.ID, nil
	default:
		return uuid.Nil, fmt.Errorf("%w: share target type %d", domain.ErrInvalidArgument, t)
	}
}

func (p *PersonalServiceImpl) ListOwned(ctx context.Context, user *domain.User) ([]service.PersonalAccess, error) {
	owned, err := p.store.Personals().ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	out := make([]service.PersonalAccess, 0, len(owned))
	for _, o := range owned {
		out = append(out, service.PersonalAccess{Personal: o, Owner: user.Username, Rule: domain.RuleFull})
	}
	return out, nil
}

// ListSharedTo returns personals of other users shared to the user or the
// user's group, with the strongest applicable rule.
func (p *PersonalServiceImpl) ListSharedTo(ctx context.Context, user *domain.User) ([]service.PersonalAccess, error) {
	rules, err := p.access.grants(ctx, user)
	if err != nil {
		return nil, err
	}
	guids := make([]domain.GUID, 0, len(rules))
	for g := range rules {
		guids = append(guids, g)
	}
	personals, err := p.store.Personals().ListByGUIDs(ctx, guids)
	if err != nil {
		return nil, err
	}

	var ownerIDs []domain.UserID
	for _, ps := range personals {
		if ps.OwnerID != user.ID {
			ownerIDs = append(ownerIDs, ps.OwnerID)
		}
	}
	owners, err := p.store.Users().ListByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}
	names := make(map[domain.UserID]string, len(owners))
	for _, o := range owners {
		names[o.ID] = o.Username
	}

	out := make([]service.PersonalAccess, 0, len(personals))
	for _, ps := range personals {
		if ps.OwnerID == user.ID {
			continue
		}
		out = append(out, service.PersonalAccess{Personal: ps, Owner: names[ps.OwnerID], Rule: rules[ps.GUID]})
	}
	return out, nil
}

// ListProfiles lists the public personals the user can open: owned first,
// then shared.
func (p *PersonalServiceImpl) ListProfiles(ctx context.Context, user *domain.User) ([]service.PersonalAccess, error) {
	owned, err := p.ListOwned(ctx, user)
	if err != nil {
		return nil, err
	}
	shared, err := p.ListSharedTo(ctx, user)
	if err != nil {
		return nil, err
	}
	out := make([]service.PersonalAccess, 0, len(owned)+len(shared))
	for _, o := range owned {
		if o.Personal.Type == domain.PersonalPublic {
			out = append(out, o)
		}
	}
	return append(out, shared...), nil
}

func (p *PersonalServiceImpl) DeviceCounts(ctx context.Context, guids []domain.GUID) (map[domain.GUID]int64, error) {
	return p.store.Aliases().CountByGUIDs(ctx, guids)
}
