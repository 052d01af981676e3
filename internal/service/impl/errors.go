package impl

import (
	"errors"
	"fmt"

	"rdapi/internal/domain"
	"rdapi/internal/store"
)

var (
	ErrEmptyPassword   = fmt.Errorf("%w: empty password", domain.ErrInvalidArgument)
	ErrPasswordLength  = fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidArgument, minPasswordLength)
	ErrInvalidUsername = fmt.Errorf("%w: username must be 1-150 letters, digits or @.+-_", domain.ErrInvalidArgument)
	ErrEmptyUUID       = fmt.Errorf("%w: uuid is required", domain.ErrInvalidArgument)
	ErrEmptyPeerID     = fmt.Errorf("%w: peer id is required", domain.ErrInvalidArgument)
	ErrEmptyName       = fmt.Errorf("%w: name is required", domain.ErrInvalidArgument)
	ErrNameTooLong     = fmt.Errorf("%w: name is too long", domain.ErrInvalidArgument)
	ErrSelfDelete      = fmt.Errorf("%w: cannot delete your own account", domain.ErrForbidden)
	ErrSelfStaff       = fmt.Errorf("%w: cannot change your own staff flag", domain.ErrForbidden)
	ErrSelfDeactivate  = fmt.Errorf("%w: cannot deactivate your own account", domain.ErrForbidden)
	ErrTooManyIDs      = fmt.Errorf("%w: too many ids", domain.ErrInvalidArgument)
	ErrBadRecordChunk  = fmt.Errorf("%w: bad record chunk", domain.ErrInvalidArgument)
	ErrBadFileInfo     = fmt.Errorf("%w: file info is not a JSON object", domain.ErrInvalidArgument)

	errNilStore = errors.New("nil store")
)

// notFound replaces the store sentinel with a domain error.
func notFound(err, target error) error {
	if errors.Is(err, store.ErrRecordNotFound) {
		return target
	}
	return err
}

const minPasswordLength = 6
