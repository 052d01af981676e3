package service

import (
	"context"
	"fmt"

	"rdapi/internal/domain"
)

// ErrPasswordConfirm is returned when a password and its confirmation differ.
var ErrPasswordConfirm = fmt.Errorf("%w: passwords do not match", domain.ErrInvalidArgument)

type CreateUserInput struct {
	Username    string
	Password    string
	Email       string
	FullName    string
	IsStaff     bool
	IsSuperuser bool
	Group       string // default group when empty
}

type UpdateUserInput struct {
	Email    *string
	FullName *string
	IsStaff  *bool
	IsActive *bool
	Group    *string
}

// User list status filters.
const (
	StatusInactive = 0
	StatusActive   = 1
	StatusAll      = -1
)

type GroupSummary struct {
	Group   domain.Group
	Members int64
}

type UserService interface {
	Create(ctx context.Context, in CreateUserInput) (*domain.User, error)
	Get(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, status, page, pageSize int) ([]domain.User, int64, error)
	Update(ctx context.Context, actor *domain.User, username string, in UpdateUserInput) (*domain.User, error)
	SetPassword(ctx context.Context, username, password string) error
	Delete(ctx context.Context, actor *domain.User, username string) error

	GroupOf(ctx context.Context, user *domain.User) (*domain.Group, error)
	GroupNames(ctx context.Context, users []domain.User) (map[domain.UserID]string, error)
	CreateGroup(ctx context.Context, name string) (*domain.Group, error)
	ListGroups(ctx context.Context) ([]GroupSummary, error)
	AssignGroup(ctx context.Context, username, group string) error

	Config(ctx context.Context, user *domain.User) (map[string]string, error)
	SetConfig(ctx context.Context, user *domain.User, name, value string) error
}
