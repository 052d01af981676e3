package store

import (
	"context"
	"time"

	"rdapi/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenStore struct{ db *gorm.DB }

func (s *Store) Tokens() *TokenStore { return &TokenStore{s.DB} }

// Upsert writes the token for (user, uuid, client type), replacing the token
// string and both timestamps of any existing row.
func (ts *TokenStore) Upsert(ctx context.Context, t *domain.Token) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return translate(ts.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "uuid"}, {Name: "client_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "created_at", "last_used_at"}),
	}).Create(t).Error)
}

func (ts *TokenStore) GetByToken(ctx context.Context, token string) (*domain.Token, error) {
	var out domain.Token
	if err := ts.db.WithContext(ctx).First(&out, "token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (ts *TokenStore) Touch(ctx context.Context, token string, at time.Time) (int64, error) {
	tx := ts.db.WithContext(ctx).Model(&domain.Token{}).
		Where("token = ?", token).
		Update("last_used_at", at)
	return tx.RowsAffected, tx.Error
}

// TouchByUUID refreshes the device's tokens that were still alive at since.
func (ts *TokenStore) TouchByUUID(ctx context.Context, deviceUUID string, at, since time.Time) (int64, error) {
	tx := ts.db.WithContext(ctx).Model(&domain.Token{}).
		Where("uuid = ? AND last_used_at > ?", deviceUUID, since).
		Update("last_used_at", at)
	return tx.RowsAffected, tx.Error
}

func (ts *TokenStore) Delete(ctx context.Context, token string) (int64, error) {
	tx := ts.db.WithContext(ctx).Where("token = ?", token).Delete(&domain.Token{})
	return tx.RowsAffected, tx.Error
}

func (ts *TokenStore) DeleteByUUID(ctx context.Context, deviceUUID string) (int64, error) {
	tx := ts.db.WithContext(ctx).Where("uuid = ?", deviceUUID).Delete(&domain.Token{})
	return tx.RowsAffected, tx.Error
}

func (ts *TokenStore) DeleteByUser(ctx context.Context, userID domain.UserID) (int64, error) {
	tx := ts.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.Token{})
	return tx.RowsAffected, tx.Error
}

// DeleteIdle removes tokens unused since before cutoff.
func (ts *TokenStore) DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := ts.db.WithContext(ctx).Where("last_used_at < ?", cutoff).Delete(&domain.Token{})
	return tx.RowsAffected, tx.Error
}
