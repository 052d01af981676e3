package service

import (
	"context"
	"time"

	"rdapi/internal/domain"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	User  *domain.User
	Token *domain.Token
}

type TokenService interface {
	Create(ctx context.Context, user *domain.User, deviceUUID string, ct domain.ClientType) (string, error)
	Check(ctx context.Context, token string, timeout time.Duration) (bool, error)
	Touch(ctx context.Context, token string) error
	TouchByUUID(ctx context.Context, deviceUUID string) error
	Authenticate(ctx context.Context, token string) (*Principal, error)
	Revoke(ctx context.Context, token string) error
	RevokeByUUID(ctx context.Context, deviceUUID string) error
	RevokeByUser(ctx context.Context, userID domain.UserID) error
}
