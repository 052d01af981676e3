package service

import (
	"context"
	"errors"

	"rdapi/internal/dto"
)

type LoginResult struct {
	Principal
	AccessToken string
}

type AuthService interface {
	Login(ctx context.Context, r dto.LoginRequest, ip, ua string) (*LoginResult, error)
	Logout(ctx context.Context, p *Principal, deviceUUID string) error
}

// ErrDirectoryUserUnknown tells the caller to fall back to local credentials.
var ErrDirectoryUserUnknown = errors.New("user not present in directory")

type DirectoryIdentity struct {
	Username string
	Email    string
	FullName string
}

// Directory authenticates against an external user directory such as LDAP.
type Directory interface {
	Authenticate(ctx context.Context, username, password string) (*DirectoryIdentity, error)
}
