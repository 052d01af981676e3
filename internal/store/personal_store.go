package store

import (
	"context"
	"time"

	"rdapi/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PersonalStore struct{ db *gorm.DB }

func (s *Store) Personals() *PersonalStore { return &PersonalStore{s.DB} }

func (ps *PersonalStore) Create(ctx context.Context, p *domain.Personal) error {
	now := time.Now().UTC()
	if p.GUID == uuid.Nil {
		p.GUID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return translate(ps.db.WithContext(ctx).Create(p).Error)
}

func (ps *PersonalStore) Get(ctx context.Context, guid domain.GUID) (*domain.Personal, error) {
	var out domain.Personal
	if err := ps.db.WithContext(ctx).First(&out, "guid = ?", guid).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (ps *PersonalStore) GetForUpdate(ctx context.Context, guid domain.GUID) (*domain.Personal, error) {
	var out domain.Personal
	if err := forUpdate(ps.db.WithContext(ctx)).First(&out, "guid = ?", guid).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (ps *PersonalStore) GetDefault(ctx context.Context, owner domain.UserID) (*domain.Personal, error) {
	var out domain.Personal
	err := ps.db.WithContext(ctx).
		Where("owner_id = ? AND type = ?", owner, domain.PersonalPrivate).
		Order("created_at").
		First(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (ps *PersonalStore) CountByOwnerType(ctx context.Context, owner domain.UserID, t domain.PersonalType) (int64, error) {
	var n int64
	err := ps.db.WithContext(ctx).Model(&domain.Personal{}).
		Where("owner_id = ? AND type = ?", owner, t).
		Count(&n).Error
	return n, err
}

func (ps *PersonalStore) ListByOwner(ctx context.Context, owner domain.UserID) ([]domain.Personal, error) {
	var out []domain.Personal
	err := ps.db.WithContext(ctx).Where("owner_id = ?", owner).Order("created_at").Find(&out).Error
	return out, err
}

func (ps *PersonalStore) ListByGUIDs(ctx context.Context, guids []domain.GUID) ([]domain.Personal, error) {
	if len(guids) == 0 {
		return nil, nil
	}
	var out []domain.Personal
	err := ps.db.WithContext(ctx).Where("guid IN ?", guids).Order("created_at").Find(&out).Error
	return out, err
}

func (ps *PersonalStore) Rename(ctx context.Context, guid domain.GUID, name string) error {
	return translate(ps.db.WithContext(ctx).Model(&domain.Personal{}).
		Where("guid = ?", guid).
		Updates(map[string]any{"name": name, "updated_at": time.Now().UTC()}).Error)
}

// Delete removes the personal together with every row scoped to its guid.
func (ps *PersonalStore) Delete(ctx context.Context, guid domain.GUID) error {
	db := ps.db.WithContext(ctx)
	for _, m := range []any{&domain.PeerTag{}, &domain.Tag{}, &domain.Alias{}, &domain.SharePersonal{}} {
		if err := db.Where("guid = ?", guid).Delete(m).Error; err != nil {
			return err
		}
	}
	return db.Where("guid = ?", guid).Delete(&domain.Personal{}).Error
}

type AliasStore struct{ db *gorm.DB }

func (s *Store) Aliases() *AliasStore { return &AliasStore{s.DB} }

// Upsert adds the peer to the personal or updates its alias.
func (as *AliasStore) Upsert(ctx context.Context, a *domain.Alias) error {
	now := time.Now().UTC()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	return as.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guid"}, {Name: "peer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"alias", "updated_at"}),
	}).Create(a).Error
}

func (as *AliasStore) Exists(ctx context.Context, guid domain.GUID, peerID string) (bool, error) {
	var n int64
	err := as.db.WithContext(ctx).Model(&domain.Alias{}).
		Where("guid = ? AND peer_id = ?", guid, peerID).
		Count(&n).Error
	return n > 0, err
}

func (as *AliasStore) DeleteByPeers(ctx context.Context, guid domain.GUID, peerIDs []string) (int64, error) {
	if len(peerIDs) == 0 {
		return 0, nil
	}
	tx := as.db.WithContext(ctx).Where("guid = ? AND peer_id IN ?", guid, peerIDs).Delete(&domain.Alias{})
	return tx.RowsAffected, tx.Error
}

func (as *AliasStore) List(ctx context.Context, guid domain.GUID, page, pageSize int) ([]domain.Alias, int64, error) {
	q := as.db.WithContext(ctx).Model(&domain.Alias{}).Where("guid = ?", guid)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Alias
	if err := paginate(q, page, pageSize).Order("created_at, peer_id").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (as *AliasStore) CountByGUIDs(ctx context.Context, guids []domain.GUID) (map[domain.GUID]int64, error) {
	out := map[domain.GUID]int64{}
	if len(guids) == 0 {
		return out, nil
	}
	var rows []struct {
		GUID domain.GUID
		N    int64
	}
	err := as.db.WithContext(ctx).Model(&domain.Alias{}).
		Select("guid, COUNT(*) AS n").
		Where("guid IN ?", guids).
		Group("guid").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.GUID] = r.N
	}
	return out, nil
}

type ShareStore struct{ db *gorm.DB }

func (s *Store) Shares() *ShareStore { return &ShareStore{s.DB} }

// Create inserts the grant; an existing grant for the same target is left as is.
func (ss *ShareStore) Create(ctx context.Context, sp *domain.SharePersonal) (bool, error) {
	if sp.ID == uuid.Nil {
		sp.ID = uuid.New()
	}
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = time.Now().UTC()
	}
	tx := ss.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guid"}, {Name: "target_id"}, {Name: "target_type"}},
		DoNothing: true,
	}).Create(sp)
	return tx.RowsAffected > 0, tx.Error
}

func (ss *ShareStore) Delete(ctx context.Context, guid domain.GUID, targetID uuid.UUID, targetType domain.ShareTargetType) (int64, error) {
	tx := ss.db.WithContext(ctx).
		Where("guid = ? AND target_id = ? AND target_type = ?", guid, targetID, targetType).
		Delete(&domain.SharePersonal{})
	return tx.RowsAffected, tx.Error
}

func (ss *ShareStore) ListByGUID(ctx context.Context, guid domain.GUID) ([]domain.SharePersonal, error) {
	var out []domain.SharePersonal
	err := ss.db.WithContext(ctx).Where("guid = ?", guid).Order("created_at").Find(&out).Error
	return out, err
}

// ListForTargets returns grants made to the user or to the group.
func (ss *ShareStore) ListForTargets(ctx context.Context, userID domain.UserID, groupID *domain.GroupID) ([]domain.SharePersonal, error) {
	q := ss.db.WithContext(ctx).Where("target_id = ? AND target_type = ?", userID, domain.ShareTargetUser)
	if groupID != nil {
		q = q.Or("target_id = ? AND target_type = ?", *groupID, domain.ShareTargetGroup)
	}
	var out []domain.SharePersonal
	err := q.Order("created_at").Find(&out).Error
	return out, err
}

func (ss *ShareStore) Count(ctx context.Context, guid domain.GUID) (int64, error) {
	var n int64
	err := ss.db.WithContext(ctx).Model(&domain.SharePersonal{}).Where("guid = ?", guid).Count(&n).Error
	return n, err
}
