package store

import (
	"context"
	"time"

	"rdapi/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditStore struct{ db *gorm.DB }

func (s *Store) Audit() *AuditStore { return &AuditStore{s.DB} }

func (as *AuditStore) CreateConn(ctx context.Context, l *domain.AuditConnLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return as.db.WithContext(ctx).Create(l).Error
}

func (as *AuditStore) GetConn(ctx context.Context, connID int64, action string) (*domain.AuditConnLog, error) {
	var out domain.AuditConnLog
	err := as.db.WithContext(ctx).
		Where("conn_id = ? AND action = ?", connID, action).
		Order("created_at").
		First(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

// UpdateConn applies fields to every row of the connection.
func (as *AuditStore) UpdateConn(ctx context.Context, connID int64, fields map[string]any) (int64, error) {
	tx := as.db.WithContext(ctx).Model(&domain.AuditConnLog{}).Where("conn_id = ?", connID).Updates(fields)
	return tx.RowsAffected, tx.Error
}

// LatestOpenConn returns the newest "new" event targeting the uuid.
func (as *AuditStore) LatestOpenConn(ctx context.Context, controlledUUID string) (*domain.AuditConnLog, error) {
	var out domain.AuditConnLog
	err := as.db.WithContext(ctx).
		Where("controlled_uuid = ? AND action = ?", controlledUUID, domain.ConnActionNew).
		Order("created_at DESC").
		First(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (as *AuditStore) ListConn(ctx context.Context, page, pageSize int) ([]domain.AuditConnLog, int64, error) {
	q := as.db.WithContext(ctx).Model(&domain.AuditConnLog{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.AuditConnLog
	if err := paginate(q, page, pageSize).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (as *AuditStore) CreateFile(ctx context.Context, l *domain.AuditFileLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return as.db.WithContext(ctx).Create(l).Error
}

func (as *AuditStore) ListFile(ctx context.Context, page, pageSize int) ([]domain.AuditFileLog, int64, error) {
	q := as.db.WithContext(ctx).Model(&domain.AuditFileLog{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.AuditFileLog
	if err := paginate(q, page, pageSize).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
