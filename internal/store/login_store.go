package store

import (
	"context"
	"time"

	"rdapi/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoginClientStore struct{ db *gorm.DB }

func (s *Store) LoginClients() *LoginClientStore { return &LoginClientStore{s.DB} }

func (ls *LoginClientStore) Upsert(ctx context.Context, c *domain.LoginClient) error {
	now := time.Now().UTC()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return ls.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{"peer_id", "client_type", "platform", "client_name", "login_status", "updated_at"}),
	}).Create(c).Error
}

func (ls *LoginClientStore) SetStatus(ctx context.Context, userID domain.UserID, deviceUUID string, loggedIn bool) (int64, error) {
	tx := ls.db.WithContext(ctx).Model(&domain.LoginClient{}).
		Where("user_id = ? AND uuid = ?", userID, deviceUUID).
		Updates(map[string]any{"login_status": loggedIn, "updated_at": time.Now().UTC()})
	return tx.RowsAffected, tx.Error
}

func (ls *LoginClientStore) ListByUser(ctx context.Context, userID domain.UserID) ([]domain.LoginClient, error) {
	var out []domain.LoginClient
	err := ls.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC").Find(&out).Error
	return out, err
}

type LoginLogStore struct{ db *gorm.DB }

func (s *Store) LoginLogs() *LoginLogStore { return &LoginLogStore{s.DB} }

func (ls *LoginLogStore) Create(ctx context.Context, l *domain.LoginLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return ls.db.WithContext(ctx).Create(l).Error
}

// LastLogin returns the newest successful login of the user on the device.
func (ls *LoginLogStore) LastLogin(ctx context.Context, userID domain.UserID, deviceUUID string) (*domain.LoginLog, error) {
	var out domain.LoginLog
	err := ls.db.WithContext(ctx).
		Where("user_id = ? AND uuid = ? AND login_status = ?", userID, deviceUUID, true).
		Order("created_at DESC").
		First(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (ls *LoginLogStore) List(ctx context.Context, userID *domain.UserID, page, pageSize int) ([]domain.LoginLog, int64, error) {
	q := ls.db.WithContext(ctx).Model(&domain.LoginLog{})
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.LoginLog
	if err := paginate(q, page, pageSize).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
