package store

import (
	"context"
	"time"

	"rdapi/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GroupStore struct{ db *gorm.DB }

func (s *Store) Groups() *GroupStore { return &GroupStore{s.DB} }

func (g *GroupStore) Create(ctx context.Context, grp *domain.Group) error {
	if grp.ID == uuid.Nil {
		grp.ID = uuid.New()
	}
	if grp.CreatedAt.IsZero() {
		grp.CreatedAt = time.Now().UTC()
	}
	return translate(g.db.WithContext(ctx).Create(grp).Error)
}

func (g *GroupStore) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	var out domain.Group
	if err := g.db.WithContext(ctx).First(&out, "name = ?", name).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (g *GroupStore) GetByID(ctx context.Context, id domain.GroupID) (*domain.Group, error) {
	var out domain.Group
	if err := g.db.WithContext(ctx).First(&out, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

// Ensure returns the named group, creating it when missing.
func (g *GroupStore) Ensure(ctx context.Context, name string) (*domain.Group, error) {
	grp := &domain.Group{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(grp).Error
	if err != nil {
		return nil, translate(err)
	}
	return g.GetByName(ctx, name)
}

func (g *GroupStore) List(ctx context.Context) ([]domain.Group, error) {
	var out []domain.Group
	err := g.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, err
}

// MemberCounts returns the number of profiles per group id.
func (g *GroupStore) MemberCounts(ctx context.Context) (map[domain.GroupID]int64, error) {
	var rows []struct {
		GroupID domain.GroupID
		N       int64
	}
	err := g.db.WithContext(ctx).Model(&domain.UserProfile{}).
		Select("group_id, COUNT(*) AS n").
		Group("group_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.GroupID]int64, len(rows))
	for _, r := range rows {
		out[r.GroupID] = r.N
	}
	return out, nil
}

type ProfileStore struct{ db *gorm.DB }

func (s *Store) Profiles() *ProfileStore { return &ProfileStore{s.DB} }

func (p *ProfileStore) Get(ctx context.Context, userID domain.UserID) (*domain.UserProfile, error) {
	var out domain.UserProfile
	if err := p.db.WithContext(ctx).First(&out, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

// Assign sets the group of a user, replacing any previous membership.
func (p *ProfileStore) Assign(ctx context.Context, userID domain.UserID, groupID domain.GroupID) error {
	now := time.Now().UTC()
	prof := &domain.UserProfile{UserID: userID, GroupID: groupID, CreatedAt: now, UpdatedAt: now}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"group_id", "updated_at"}),
	}).Create(prof).Error
}

// AssignIfMissing creates a membership only when the user has none.
func (p *ProfileStore) AssignIfMissing(ctx context.Context, userID domain.UserID, groupID domain.GroupID) error {
	now := time.Now().UTC()
	prof := &domain.UserProfile{UserID: userID, GroupID: groupID, CreatedAt: now, UpdatedAt: now}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(prof).Error
}

func (p *ProfileStore) ListByUsers(ctx context.Context, ids []domain.UserID) (map[domain.UserID]domain.GroupID, error) {
	out := map[domain.UserID]domain.GroupID{}
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.UserProfile
	if err := p.db.WithContext(ctx).Where("user_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.UserID] = r.GroupID
	}
	return out, nil
}

type UserConfigStore struct{ db *gorm.DB }

func (s *Store) UserConfigs() *UserConfigStore { return &UserConfigStore{s.DB} }

func (c *UserConfigStore) Set(ctx context.Context, userID domain.UserID, name, value string) error {
	row := &domain.UserConfig{UserID: userID, Name: name, Value: value, UpdatedAt: time.Now().UTC()}
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(row).Error
}

func (c *UserConfigStore) All(ctx context.Context, userID domain.UserID) (map[string]string, error) {
	var rows []domain.UserConfig
	if err := c.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Name] = r.Value
	}
	return out, nil
}
