package store

import (
	"context"

	"rdapi/internal/domain"
)

func (s *Store) AutoMigrate(ctx context.Context) error {
	return s.DB.WithContext(ctx).AutoMigrate(domain.Models()...)
}
