package store

import (
	"context"
	"time"

	"rdapi/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStore struct{ db *gorm.DB }

func (s *Store) Users() *UserStore { return &UserStore{db: s.DB} }

func (u *UserStore) Create(ctx context.Context, usr *domain.User) error {
	now := time.Now().UTC()
	if usr.ID == uuid.Nil {
		usr.ID = uuid.New()
	}
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = now
	}
	usr.UpdatedAt = now
	return translate(u.db.WithContext(ctx).Create(usr).Error)
}

func (u *UserStore) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (u *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// List returns one page of users. active filters on is_active when non-nil.
func (u *UserStore) List(ctx context.Context, active *bool, page, pageSize int) ([]domain.User, int64, error) {
	q := u.db.WithContext(ctx).Model(&domain.User{}).Where("deleted_at IS NULL")
	if active != nil {
		q = q.Where("is_active = ?", *active)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []domain.User
	if err := paginate(q, page, pageSize).Order("username").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (u *UserStore) Update(ctx context.Context, id domain.UserID, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	tx := u.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// SoftDelete deactivates the user and stamps deleted_at. The username stays reserved.
func (u *UserStore) SoftDelete(ctx context.Context, id domain.UserID, at time.Time) error {
	return u.Update(ctx, id, map[string]any{
		"is_active":  false,
		"deleted_at": at,
	})
}

func (u *UserStore) ListByIDs(ctx context.Context, ids []domain.UserID) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.User
	err := u.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}
