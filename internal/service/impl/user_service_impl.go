package impl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"rdapi/internal/domain"
	"rdapi/internal/observability/middleware"
	"rdapi/internal/service"
	"rdapi/internal/store"

	"github.com/google/uuid"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.@+-]{1,150}$`)

var _ service.UserService = (*UserServiceImpl)(nil)

type UserServiceImpl struct {
	store        *store.Store
	passwords    service.PasswordService
	tokens       service.TokenService
	defaultGroup string
	now          func() time.Time
}

func NewUserServiceImpl(st *store.Store, passwords service.PasswordService, tokens service.TokenService, defaultGroup string) *UserServiceImpl {
	if defaultGroup == "" {
		defaultGroup = "Default"
	}
	return &UserServiceImpl{
		store:        st,
		passwords:    passwords,
		tokens:       tokens,
		defaultGroup: defaultGroup,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Create stores the user, its password, its group membership and its private
// default address book in one transaction.
func (u *UserServiceImpl) Create(ctx context.Context, in service.CreateUserInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if !usernameRe.MatchString(in.Username) {
		return nil, ErrInvalidUsername
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	hash, salt, params, algo, ver, err := u.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	groupName := strings.TrimSpace(in.Group)
	if groupName == "" {
		groupName = u.defaultGroup
	}

	now := u.now()
	usr := &domain.User{
		ID:          uuid.New(),
		Username:    in.Username,
		Email:       strings.TrimSpace(in.Email),
		FullName:    strings.TrimSpace(in.FullName),
		IsActive:    true,
		IsStaff:     in.IsStaff || in.IsSuperuser,
		IsSuperuser: in.IsSuperuser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = u.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Users().Create(ctx, usr); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return domain.ErrUserExists
			}
			return err
		}
		cred := &domain.PasswordCredential{
			UserID:      usr.ID,
			Algo:        algo,
			Hash:        hash,
			Salt:        salt,
			ParamsJSON:  params,
			PasswordVer: ver,
		}
		if err := tx.Credentials().UpsertPassword(ctx, cred); err != nil {
			return err
		}
		grp, err := u.resolveGroup(ctx, tx, groupName)
		if err != nil {
			return err
		}
		if err := tx.Profiles().Assign(ctx, usr.ID, grp.ID); err != nil {
			return err
		}
		return createSelfPersonal(ctx, tx, usr)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created user",
		"user", usr.Username,
		"group", groupName,
		"staff", usr.IsStaff,
		"request_id", middleware.RequestIDFromContext(ctx),
	)
	return usr, nil
}

// createSelfPersonal creates the permanent private address book of a new user.
func createSelfPersonal(ctx context.Context, tx *store.Store, usr *domain.User) error {
	p := &domain.Personal{
		OwnerID: usr.ID,
		Name:    domain.DefaultPersonalName(usr.Username),
		Type:    domain.PersonalPrivate,
	}
	if err := tx.Personals().Create(ctx, p); err != nil {
		return fmt.Errorf("create default address book: %w", err)
	}
	return nil
}

func (u *UserServiceImpl) resolveGroup(ctx context.Context, tx *store.Store, name string) (*domain.Group, error) {
	if name == u.defaultGroup {
		return tx.Groups().Ensure(ctx, name)
	}
	grp, err := tx.Groups().GetByName(ctx, name)
	if err != nil {
		return nil, notFound(err, domain.ErrGroupNotFound)
	}
	return grp, nil
}

func (u *UserServiceImpl) Get(ctx context.Context, username string) (*domain.User, error) {
	usr, err := u.store.Users().GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return usr, nil
}

func (u *UserServiceImpl) List(ctx context.Context, status, page, pageSize int) ([]domain.User, int64, error) {
	var active *bool
	switch status {
	case service.StatusActive:
		v := true
		active = &v
	case service.StatusInactive:
		v := false
		active = &v
	}
	return u.store.Users().List(ctx, active, page, pageSize)
}

func (u *UserServiceImpl) Update(ctx context.Context, actor *domain.User, username string, in service.UpdateUserInput) (*domain.User, error) {
	target, err := u.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	self := actor != nil && actor.ID == target.ID
	if self && in.IsStaff != nil && *in.IsStaff != target.IsStaff {
		return nil, ErrSelfStaff
	}
	if self && in.IsActive != nil && !*in.IsActive {
		return nil, ErrSelfDeactivate
	}

	fields := map[string]any{}
	if in.Email != nil {
		fields["email"] = strings.TrimSpace(*in.Email)
	}
	if in.FullName != nil {
		fields["full_name"] = strings.TrimSpace(*in.FullName)
	}
	if in.IsStaff != nil {
		fields["is_staff"] = *in.IsStaff
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}

	err = u.store.WithTx(ctx, func(tx *store.Store) error {
		if len(fields) > 0 {
			if err := tx.Users().Update(ctx, target.ID, fields); err != nil {
				return notFound(err, domain.ErrUserNotFound)
			}
		}
		if in.Group != nil {
			grp, err := u.resolveGroup(ctx, tx, strings.TrimSpace(*in.Group))
			if err != nil {
				return err
			}
			return tx.Profiles().Assign(ctx, target.ID, grp.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if in.IsActive != nil && !*in.IsActive {
		if err := u.tokens.RevokeByUser(ctx, target.ID); err != nil {
			return nil, err
		}
	}
	return u.store.Users().GetByID(ctx, target.ID)
}

// SetPassword replaces the password and signs the user out everywhere.
func (u *UserServiceImpl) SetPassword(ctx context.Context, username, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	target, err := u.Get(ctx, username)
	if err != nil {
		return err
	}
	hash, salt, params, algo, ver, err := u.passwords.Hash(password)
	if err != nil {
		return err
	}
	cred := &domain.PasswordCredential{
		UserID:      target.ID,
		Algo:        algo,
		Hash:        hash,
		Salt:        salt,
		ParamsJSON:  params,
		PasswordVer: ver,
	}
	if err := u.store.Credentials().UpsertPassword(ctx, cred); err != nil {
		return err
	}
	slog.Info("password changed", "user", target.Username, "request_id", middleware.RequestIDFromContext(ctx))
	return u.tokens.RevokeByUser(ctx, target.ID)
}

// Delete deactivates and tombstones the account. Rows referencing the user
// are kept and the username stays reserved.
func (u *UserServiceImpl) Delete(ctx context.Context, actor *domain.User, username string) error {
	target, err := u.Get(ctx, username)
	if err != nil {
		return err
	}
	if actor != nil && actor.ID == target.ID {
		return ErrSelfDelete
	}
	if target.DeletedAt != nil {
		return nil
	}
	if err := u.store.Users().SoftDelete(ctx, target.ID, u.now()); err != nil {
		return notFound(err, domain.ErrUserNotFound)
	}
	slog.Info("deleted user", "user", target.Username, "request_id", middleware.RequestIDFromContext(ctx))
	return u.tokens.RevokeByUser(ctx, target.ID)
}

// GroupOf returns the user's group, enrolling the user in the default group
// when no membership exists yet.
func (u *UserServiceImpl) GroupOf(ctx context.Context, user *domain.User) (*domain.Group, error) {
	prof, err := u.store.Profiles().Get(ctx, user.ID)
	if err == nil {
		grp, err := u.store.Groups().GetByID(ctx, prof.GroupID)
		return grp, notFound(err, domain.ErrGroupNotFound)
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, err
	}

	var out *domain.Group
	err = u.store.WithTx(ctx, func(tx *store.Store) error {
		grp, err := tx.Groups().Ensure(ctx, u.defaultGroup)
		if err != nil {
			return err
		}
		if err := tx.Profiles().AssignIfMissing(ctx, user.ID, grp.ID); err != nil {
			return err
		}
		prof, err := tx.Profiles().Get(ctx, user.ID)
		if err != nil {
			return err
		}
		if prof.GroupID == grp.ID {
			out = grp
			return nil
		}
		out, err = tx.Groups().GetByID(ctx, prof.GroupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("enrolled user in group", "user", user.Username, "group", out.Name)
	return out, nil
}

func (u *UserServiceImpl) GroupNames(ctx context.Context, users []domain.User) (map[domain.UserID]string, error) {
	ids := make([]domain.UserID, 0, len(users))
	for _, usr := range users {
		ids = append(ids, usr.ID)
	}
	memberships, err := u.store.Profiles().ListByUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	groups, err := u.store.Groups().List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[domain.GroupID]string, len(groups))
	for _, g := range groups {
		names[g.ID] = g.Name
	}
	out := make(map[domain.UserID]string, len(memberships))
	for uid, gid := range memberships {
		out[uid] = names[gid]
	}
	return out, nil
}

func (u *UserServiceImpl) CreateGroup(ctx context.Context, name string) (*domain.Group, error) {
	name, err := cleanName(name, 150)
	if err != nil {
		return nil, err
	}
	grp := &domain.Group{Name: name}
	if err := u.store.Groups().Create(ctx, grp); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domain.ErrGroupExists
		}
		return nil, err
	}
	return grp, nil
}

func (u *UserServiceImpl) ListGroups(ctx context.Context) ([]service.GroupSummary, error) {
	groups, err := u.store.Groups().List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := u.store.Groups().MemberCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]service.GroupSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, service.GroupSummary{Group: g, Members: counts[g.ID]})
	}
	return out, nil
}

func (u *UserServiceImpl) AssignGroup(ctx context.Context, username, group string) error {
	target, err := u.Get(ctx, username)
	if err != nil {
		return err
	}
	return u.store.WithTx(ctx, func(tx *store.Store) error {
		grp, err := u.resolveGroup(ctx, tx, strings.TrimSpace(group))
		if err != nil {
			return err
		}
		return tx.Profiles().Assign(ctx, target.ID, grp.ID)
	})
}

func (u *UserServiceImpl) Config(ctx context.Context, user *domain.User) (map[string]string, error) {
	return u.store.UserConfigs().All(ctx, user.ID)
}

func (u *UserServiceImpl) SetConfig(ctx context.Context, user *domain.User, name, value string) error {
	name, err := cleanName(name, 64)
	if err != nil {
		return err
	}
	if len(value) > 255 {
		return fmt.Errorf("%w: config value is too long", domain.ErrInvalidArgument)
	}
	return u.store.UserConfigs().Set(ctx, user.ID, name, value)
}

func validatePassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if len([]rune(password)) < minPasswordLength {
		return ErrPasswordLength
	}
	return nil
}

func cleanName(name string, max int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if len([]rune(name)) > max {
		return "", ErrNameTooLong
	}
	return name, nil
}
