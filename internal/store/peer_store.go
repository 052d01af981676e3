package store

import (
	"context"
	"time"

	"rdapi/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PeerStore struct{ db *gorm.DB }

func (s *Store) Peers() *PeerStore { return &PeerStore{s.DB} }

func (ps *PeerStore) Create(ctx context.Context, p *domain.Peer) error {
	now := time.Now().UTC()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return translate(ps.db.WithContext(ctx).Create(p).Error)
}

func (ps *PeerStore) Save(ctx context.Context, p *domain.Peer) error {
	p.UpdatedAt = time.Now().UTC()
	return translate(ps.db.WithContext(ctx).Save(p).Error)
}

func (ps *PeerStore) GetByUUIDForUpdate(ctx context.Context, deviceUUID string) (*domain.Peer, error) {
	var out domain.Peer
	if err := forUpdate(ps.db.WithContext(ctx)).First(&out, "uuid = ?", deviceUUID).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (ps *PeerStore) GetByPeerIDForUpdate(ctx context.Context, peerID string) (*domain.Peer, error) {
	var out domain.Peer
	if err := forUpdate(ps.db.WithContext(ctx)).First(&out, "peer_id = ?", peerID).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (ps *PeerStore) GetByUUID(ctx context.Context, deviceUUID string) (*domain.Peer, error) {
	var out domain.Peer
	if err := ps.db.WithContext(ctx).First(&out, "uuid = ?", deviceUUID).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (ps *PeerStore) GetByPeerID(ctx context.Context, peerID string) (*domain.Peer, error) {
	var out domain.Peer
	if err := ps.db.WithContext(ctx).First(&out, "peer_id = ?", peerID).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (ps *PeerStore) ListByPeerIDs(ctx context.Context, peerIDs []string) ([]domain.Peer, error) {
	if len(peerIDs) == 0 {
		return nil, nil
	}
	var out []domain.Peer
	err := ps.db.WithContext(ctx).Where("peer_id IN ?", peerIDs).Find(&out).Error
	return out, err
}

func (ps *PeerStore) ListByUUIDs(ctx context.Context, uuids []string) ([]domain.Peer, error) {
	if len(uuids) == 0 {
		return nil, nil
	}
	var out []domain.Peer
	err := ps.db.WithContext(ctx).Where("uuid IN ?", uuids).Find(&out).Error
	return out, err
}

func (ps *PeerStore) List(ctx context.Context, page, pageSize int) ([]domain.Peer, int64, error) {
	q := ps.db.WithContext(ctx).Model(&domain.Peer{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.Peer
	if err := paginate(q, page, pageSize).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

type HeartBeatStore struct{ db *gorm.DB }

func (s *Store) HeartBeats() *HeartBeatStore { return &HeartBeatStore{s.DB} }

// Upsert records a heartbeat; the row for the uuid is created on first contact.
func (hs *HeartBeatStore) Upsert(ctx context.Context, hb *domain.HeartBeat) error {
	if hb.ID == uuid.Nil {
		hb.ID = uuid.New()
	}
	if hb.CreatedAt.IsZero() {
		hb.CreatedAt = hb.Timestamp
	}
	return translate(hs.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{"peer_id", "version", "modified_at", "timestamp"}),
	}).Create(hb).Error)
}

func (hs *HeartBeatStore) GetByUUID(ctx context.Context, deviceUUID string) (*domain.HeartBeat, error) {
	var out domain.HeartBeat
	if err := hs.db.WithContext(ctx).First(&out, "uuid = ?", deviceUUID).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

// LatestByPeerIDs returns the newest heartbeat time per peer id.
func (hs *HeartBeatStore) LatestByPeerIDs(ctx context.Context, peerIDs []string) (map[string]time.Time, error) {
	out := map[string]time.Time{}
	if len(peerIDs) == 0 {
		return out, nil
	}
	var rows []domain.HeartBeat
	err := hs.db.WithContext(ctx).
		Select("peer_id", "modified_at").
		Where("peer_id IN ?", peerIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if cur, ok := out[r.PeerID]; !ok || r.ModifiedAt.After(cur) {
			out[r.PeerID] = r.ModifiedAt
		}
	}
	return out, nil
}

func (hs *HeartBeatStore) Count(ctx context.Context, deviceUUID string) (int64, error) {
	var n int64
	err := hs.db.WithContext(ctx).Model(&domain.HeartBeat{}).Where("uuid = ?", deviceUUID).Count(&n).Error
	return n, err
}
