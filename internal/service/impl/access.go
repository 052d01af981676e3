package impl

import (
	"context"

	"rdapi/internal/domain"
	"rdapi/internal/service"
	"rdapi/internal/store"
)

// accessResolver decides what a user may do with a personal: owners have
// full access, share grants carry their own rule, everyone else is refused.
type accessResolver struct {
	store *store.Store
	users service.UserService
}

func (r accessResolver) resolve(ctx context.Context, user *domain.User, guid domain.GUID) (*service.PersonalAccess, error) {
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	p, err := r.store.Personals().Get(ctx, guid)
	if err != nil {
		return nil, notFound(err, domain.ErrPersonalNotFound)
	}
	if p.OwnerID == user.ID {
		return &service.PersonalAccess{Personal: *p, Owner: user.Username, Rule: domain.RuleFull}, nil
	}

	rules, err := r.grants(ctx, user)
	if err != nil {
		return nil, err
	}
	rule, ok := rules[guid]
	if !ok {
		return nil, domain.ErrForbidden
	}
	owner, err := r.store.Users().GetByID(ctx, p.OwnerID)
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return &service.PersonalAccess{Personal: *p, Owner: owner.Username, Rule: rule}, nil
}

// require resolves access and fails with ErrForbidden below min.
func (r accessResolver) require(ctx context.Context, user *domain.User, guid domain.GUID, min domain.ShareRule) (*service.PersonalAccess, error) {
	acc, err := r.resolve(ctx, user, guid)
	if err != nil {
		return nil, err
	}
	if acc.Rule < min {
		return nil, domain.ErrForbidden
	}
	return acc, nil
}

// requireOwner resolves access for operations only the owner may perform.
func (r accessResolver) requireOwner(ctx context.Context, user *domain.User, guid domain.GUID) (*service.PersonalAccess, error) {
	acc, err := r.resolve(ctx, user, guid)
	if err != nil {
		return nil, err
	}
	if acc.Personal.OwnerID != user.ID {
		return nil, domain.ErrForbidden
	}
	return acc, nil
}

// grants returns the strongest rule shared to the user, directly or through
// the user's group, per personal.
func (r accessResolver) grants(ctx context.Context, user *domain.User) (map[domain.GUID]domain.ShareRule, error) {
	var groupID *domain.GroupID
	if r.users != nil {
		grp, err := r.users.GroupOf(ctx, user)
		if err != nil {
			return nil, err
		}
		groupID = &grp.ID
	}
	shares, err := r.store.Shares().ListForTargets(ctx, user.ID, groupID)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.GUID]domain.ShareRule, len(shares))
	for _, s := range shares {
		if s.Rule > out[s.GUID] {
			out[s.GUID] = s.Rule
		}
	}
	return out, nil
}
