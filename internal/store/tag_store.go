package store

import (
	"context"
	"time"

	"rdapi/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TagStore struct{ db *gorm.DB }

func (s *Store) Tags() *TagStore { return &TagStore{s.DB} }

func (ts *TagStore) Create(ctx context.Context, t *domain.Tag) error {
	now := time.Now().UTC()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt, t.UpdatedAt = now, now
	return translate(ts.db.WithContext(ctx).Create(t).Error)
}

func (ts *TagStore) List(ctx context.Context, guid domain.GUID) ([]domain.Tag, error) {
	var out []domain.Tag
	err := ts.db.WithContext(ctx).Where("guid = ?", guid).Order("name").Find(&out).Error
	return out, err
}

func (ts *TagStore) GetByName(ctx context.Context, guid domain.GUID, name string) (*domain.Tag, error) {
	var out domain.Tag
	if err := ts.db.WithContext(ctx).First(&out, "guid = ? AND name = ?", guid, name).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (ts *TagStore) ListByNames(ctx context.Context, guid domain.GUID, names []string) ([]domain.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var out []domain.Tag
	err := ts.db.WithContext(ctx).Where("guid = ? AND name IN ?", guid, names).Find(&out).Error
	return out, err
}

func (ts *TagStore) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	return translate(ts.db.WithContext(ctx).Model(&domain.Tag{}).Where("id = ?", id).Updates(fields).Error)
}

func (ts *TagStore) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx := ts.db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.Tag{})
	return tx.RowsAffected, tx.Error
}

type PeerTagStore struct{ db *gorm.DB }

func (s *Store) PeerTags() *PeerTagStore { return &PeerTagStore{s.DB} }

func (ps *PeerTagStore) CreateBatch(ctx context.Context, rows []domain.PeerTag) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range rows {
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
		rows[i].CreatedAt = now
	}
	return translate(ps.db.WithContext(ctx).Create(&rows).Error)
}

// DeleteForPeer clears the tags one user attached to a peer inside a personal.
func (ps *PeerTagStore) DeleteForPeer(ctx context.Context, guid domain.GUID, userID domain.UserID, peerID string) error {
	return ps.db.WithContext(ctx).
		Where("guid = ? AND user_id = ? AND peer_id = ?", guid, userID, peerID).
		Delete(&domain.PeerTag{}).Error
}

// DeleteByPeers clears the tags of the peers inside a personal for every user.
func (ps *PeerTagStore) DeleteByPeers(ctx context.Context, guid domain.GUID, peerIDs []string) (int64, error) {
	if len(peerIDs) == 0 {
		return 0, nil
	}
	tx := ps.db.WithContext(ctx).Where("guid = ? AND peer_id IN ?", guid, peerIDs).Delete(&domain.PeerTag{})
	return tx.RowsAffected, tx.Error
}

func (ps *PeerTagStore) DeleteByTags(ctx context.Context, tagIDs []uuid.UUID) (int64, error) {
	if len(tagIDs) == 0 {
		return 0, nil
	}
	tx := ps.db.WithContext(ctx).Where("tag_id IN ?", tagIDs).Delete(&domain.PeerTag{})
	return tx.RowsAffected, tx.Error
}

// NamesByPeer resolves tag names for the peers in one query.
func (ps *PeerTagStore) NamesByPeer(ctx context.Context, guid domain.GUID, userID domain.UserID, peerIDs []string) (map[string][]string, error) {
	out := map[string][]string{}
	if len(peerIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		PeerID string
		Name   string
	}
	err := ps.db.WithContext(ctx).
		Table("peer_tags").
		Select("peer_tags.peer_id AS peer_id, tags.name AS name").
		Joins("JOIN tags ON tags.id = peer_tags.tag_id").
		Where("peer_tags.guid = ? AND peer_tags.user_id = ? AND peer_tags.peer_id IN ?", guid, userID, peerIDs).
		Order("tags.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.PeerID] = append(out[r.PeerID], r.Name)
	}
	return out, nil
}
