package impl

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"rdapi/internal/domain"
	"rdapi/internal/observability/middleware"
	"rdapi/internal/service"
	"rdapi/internal/store"

	"github.com/google/uuid"
)

var _ service.TagService = (*TagServiceImpl)(nil)

// TagServiceImpl manages tag definitions of a personal and the tags each
// user attaches to the personal's peers.
type TagServiceImpl struct {
	store  *store.Store
	access accessResolver
}

func NewTagServiceImpl(st *store.Store, users service.UserService) *TagServiceImpl {
	return &TagServiceImpl{store: st, access: accessResolver{store: st, users: users}}
}

func (t *TagServiceImpl) List(ctx context.Context, user *domain.User, guid domain.GUID) ([]domain.Tag, error) {
	if _, err := t.access.require(ctx, user, guid, domain.RuleRead); err != nil {
		return nil, err
	}
	return t.store.Tags().List(ctx, guid)
}

func (t *TagServiceImpl) Create(ctx context.Context, user *domain.User, guid domain.GUID, name string, color int64) (*domain.Tag, error) {
	if _, err := t.access.require(ctx, user, guid, domain.RuleReadWrite); err != nil {
		return nil, err
	}
	name, err := cleanName(name, 64)
	if err != nil {
		return nil, err
	}
	tag := &domain.Tag{GUID: guid, Name: name, Color: color}
	if err := t.store.Tags().Create(ctx, tag); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domain.ErrTagExists
		}
		return nil, err
	}
	return tag, nil
}

// Update renames and/or recolours a tag. Attached peers follow the rename
// because they reference the tag by id.
func (t *TagServiceImpl) Update(ctx context.Context, user *domain.User, guid domain.GUID, name string, newName *string, color *int64) error {
	if _, err := t.access.require(ctx, user, guid, domain.RuleReadWrite); err != nil {
		return err
	}
	tag, err := t.store.Tags().GetByName(ctx, guid, strings.TrimSpace(name))
	if err != nil {
		return notFound(err, domain.ErrTagNotFound)
	}
	fields := map[string]any{}
	if newName != nil {
		n, err := cleanName(*newName, 64)
		if err != nil {
			return err
		}
		if n != tag.Name {
			fields["name"] = n
		}
	}
	if color != nil {
		fields["color"] = *color
	}
	if len(fields) == 0 {
		return nil
	}
	if err := t.store.Tags().Update(ctx, tag.ID, fields); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.ErrTagExists
		}
		return err
	}
	return nil
}

// Delete removes the named tags of the personal and their peer attachments.
// Unknown names are ignored.
func (t *TagServiceImpl) Delete(ctx context.Context, user *domain.User, guid domain.GUID, names ...string) error {
	if _, err := t.access.require(ctx, user, guid, domain.RuleReadWrite); err != nil {
		return err
	}
	names = dedupe(names)
	if len(names) == 0 {
		return nil
	}
	var deleted int64
	err := t.store.WithTx(ctx, func(tx *store.Store) error {
		tags, err := tx.Tags().ListByNames(ctx, guid, names)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(tags))
		for _, tg := range tags {
			ids = append(ids, tg.ID)
		}
		if _, err := tx.PeerTags().DeleteByTags(ctx, ids); err != nil {
			return err
		}
		deleted, err = tx.Tags().DeleteByIDs(ctx, ids)
		return err
	})
	if err != nil {
		return err
	}
	slog.Info("deleted tags",
		"user", user.Username,
		"guid", guid,
		"names", names,
		"deleted", deleted,
		"request_id", middleware.RequestIDFromContext(ctx),
	)
	return nil
}

// SetForDevice replaces the user's tags on the peer.
func (t *TagServiceImpl) SetForDevice(ctx context.Context, user *domain.User, guid domain.GUID, peerID string, names []string) error {
	if _, err := t.access.require(ctx, user, guid, domain.RuleReadWrite); err != nil {
		return err
	}
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return ErrEmptyPeerID
	}
	return t.store.WithTx(ctx, func(tx *store.Store) error {
		return setPeerTags(ctx, tx, user.ID, guid, peerID, names)
	})
}

func (t *TagServiceImpl) TagsMap(ctx context.Context, user *domain.User, guid domain.GUID, peerIDs []string) (map[string][]string, error) {
	if _, err := t.access.require(ctx, user, guid, domain.RuleRead); err != nil {
		return nil, err
	}
	return t.store.PeerTags().NamesByPeer(ctx, guid, user.ID, dedupe(peerIDs))
}

// setPeerTags overwrites the (user, guid, peer) tag set. Names without a tag
// definition in the personal are skipped. Must run inside a transaction.
func setPeerTags(ctx context.Context, tx *store.Store, userID domain.UserID, guid domain.GUID, peerID string, names []string) error {
	if err := tx.PeerTags().DeleteForPeer(ctx, guid, userID, peerID); err != nil {
		return err
	}
	tags, err := tx.Tags().ListByNames(ctx, guid, dedupe(names))
	if err != nil {
		return err
	}
	rows := make([]domain.PeerTag, 0, len(tags))
	for _, tg := range tags {
		rows = append(rows, domain.PeerTag{GUID: guid, UserID: userID, PeerID: peerID, TagID: tg.ID})
	}
	return tx.PeerTags().CreateBatch(ctx, rows)
}
