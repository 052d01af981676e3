package domain

import "errors"

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrUserDisabled       = errors.New("user disabled")

	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user already exists")
	ErrGroupNotFound = errors.New("group not found")
	ErrGroupExists   = errors.New("group already exists")

	ErrPeerNotFound         = errors.New("peer not found")
	ErrPeerIdentityConflict = errors.New("uuid and peer id belong to different devices")

	ErrPersonalNotFound = errors.New("address book not found")
	ErrPersonalExists   = errors.New("address book name already used")
	ErrDefaultPersonal  = errors.New("default address book cannot be renamed, deleted or shared")
	ErrPrivatePersonal  = errors.New("private address book cannot be shared")

	ErrTagNotFound = errors.New("tag not found")
	ErrTagExists   = errors.New("tag already exists")

	ErrConnNotFound   = errors.New("connection not found")
	ErrRecordNotFound = errors.New("record file not found")
)
