package impl

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rdapi/internal/domain"
	"rdapi/internal/dto"
	"rdapi/internal/netutil"
	"rdapi/internal/observability/metrics"
	"rdapi/internal/observability/middleware"
	"rdapi/internal/service"
	"rdapi/internal/store"

	"github.com/google/uuid"
)

var _ service.AuthService = (*AuthServiceImpl)(nil)

type AuthServiceImpl struct {
	Store           dataStore
	PasswordService service.PasswordService
	TService        service.TokenService
	Users           service.UserService
	Directory       service.Directory // optional
}

func NewAuthServiceImpl(st *store.Store, passwords service.PasswordService, tokens service.TokenService, users service.UserService, dir service.Directory) *AuthServiceImpl {
	return &AuthServiceImpl{
		Store:           gormStoreAdapter{store: st},
		PasswordService: passwords,
		TService:        tokens,
		Users:           users,
		Directory:       dir,
	}
}

type dataStore interface {
	WithTx(ctx context.Context, fn func(tx storeTx) error) error
	Users() userStore
	LoginClients() loginClientStore
	LoginLogs() loginLogStore
}

type storeTx interface {
	Users() userStore
	Credentials() credentialStore
}

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type credentialStore interface {
	UpsertPassword(ctx context.Context, c *domain.PasswordCredential) error
	GetPasswordByUserID(ctx context.Context, userID uuid.UUID) (*domain.PasswordCredential, error)
}

type loginClientStore interface {
	Upsert(ctx context.Context, c *domain.LoginClient) error
	SetStatus(ctx context.Context, userID domain.UserID, deviceUUID string, loggedIn bool) (int64, error)
}

type loginLogStore interface {
	Create(ctx context.Context, l *domain.LoginLog) error
	LastLogin(ctx context.Context, userID domain.UserID, deviceUUID string) (*domain.LoginLog, error)
}

type gormStoreAdapter struct {
	store *store.Store
}

func (g gormStoreAdapter) WithTx(ctx context.Context, fn func(tx storeTx) error) error {
	if g.store == nil {
		return errNilStore
	}
	return g.store.WithTx(ctx, func(tx *store.Store) error {
		return fn(gormTxAdapter{tx: tx})
	})
}

func (g gormStoreAdapter) Users() userStore               { return g.store.Users() }
func (g gormStoreAdapter) LoginClients() loginClientStore { return g.store.LoginClients() }
func (g gormStoreAdapter) LoginLogs() loginLogStore       { return g.store.LoginLogs() }

type gormTxAdapter struct {
	tx *store.Store
}

func (g gormTxAdapter) Users() userStore { return g.tx.Users() }

func (g gormTxAdapter) Credentials() credentialStore { return g.tx.Credentials() }

// Login verifies the credentials, issues a token for the device and records
// the login against the device.
func (a *AuthServiceImpl) Login(ctx context.Context, r dto.LoginRequest, ip, ua string) (res *service.LoginResult, err error) {
	defer func() {
		result := "success"
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrInvalidCredentials):
			result = "bad_credentials"
		case errors.Is(err, domain.ErrUserDisabled):
			result = "disabled"
		default:
			result = "error"
		}
		metrics.LoginsTotal.WithLabelValues(result).Inc()
	}()

	r.Username = strings.TrimSpace(r.Username)
	r.UUID = strings.TrimSpace(r.UUID)
	if r.Username == "" || r.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if r.UUID == "" {
		return nil, ErrEmptyUUID
	}

	user, err := a.authenticate(ctx, r.Username, r.Password)
	if err != nil {
		slog.Info("login rejected",
			"user", r.Username,
			"uuid", r.UUID,
			"ip", ip,
			"error", err,
			"request_id", middleware.RequestIDFromContext(ctx),
		)
		return nil, err
	}

	ct := domain.ClientTypeFromDevice(r.DeviceInfo.Type)
	token, err := a.TService.Create(ctx, user, r.UUID, ct)
	if err != nil {
		return nil, err
	}

	client := &domain.LoginClient{
		UserID:      user.ID,
		UUID:        r.UUID,
		PeerID:      strings.TrimSpace(r.ID),
		ClientType:  ct,
		Platform:    domain.Platform(r.DeviceInfo.OS),
		ClientName:  strings.TrimSpace(r.DeviceInfo.Name),
		LoginStatus: true,
	}
	if err := a.Store.LoginClients().Upsert(ctx, client); err != nil {
		return nil, err
	}
	entry := &domain.LoginLog{
		UserID:      user.ID,
		Username:    user.Username,
		UUID:        r.UUID,
		PeerID:      client.PeerID,
		LoginType:   loginType(r),
		LoginStatus: true,
		OS:          r.DeviceInfo.OS,
		DeviceType:  ct.String(),
		DeviceName:  client.ClientName,
		IP:          ip,
		UserAgent:   netutil.TruncateUserAgent(ua),
	}
	if err := a.Store.LoginLogs().Create(ctx, entry); err != nil {
		return nil, err
	}

	slog.Info("user logged in",
		"user", user.Username,
		"uuid", r.UUID,
		"peer_id", client.PeerID,
		"client_type", ct.String(),
		"ip", ip,
		"request_id", middleware.RequestIDFromContext(ctx),
	)
	return &service.LoginResult{
		Principal:   service.Principal{User: user},
		AccessToken: token,
	}, nil
}

// authenticate tries the directory first when one is configured and falls
// back to the local credential.
func (a *AuthServiceImpl) authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	if a.Directory != nil {
		ident, err := a.Directory.Authenticate(ctx, username, password)
		switch {
		case err == nil:
			return a.provision(ctx, ident, password)
		case errors.Is(err, service.ErrDirectoryUserUnknown):
		default:
			return nil, err
		}
	}

	var user *domain.User
	err := a.Store.WithTx(ctx, func(tx storeTx) error {
		var err error
		user, err = tx.Users().GetByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrInvalidCredentials
			}
			return err
		}
		if !user.IsActive || user.DeletedAt != nil {
			return domain.ErrUserDisabled
		}

		cred, err := tx.Credentials().GetPasswordByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrInvalidCredentials
			}
			return err
		}
		rehashNeeded, ok := a.PasswordService.Verify(password, cred)
		if !ok {
			return domain.ErrInvalidCredentials
		}
		if !rehashNeeded {
			return nil
		}

		hash, salt, params, algo, ver, err := a.PasswordService.Hash(password)
		if err != nil {
			return err
		}
		cred.Algo = algo
		cred.Hash = hash
		cred.Salt = salt
		cred.ParamsJSON = params
		cred.PasswordVer = ver
		cred.UpdatedAt = time.Now().UTC()
		if err := tx.Credentials().UpsertPassword(ctx, cred); err != nil {
			return err
		}
		slog.Info("rehashed password", "user", user.Username)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// provision returns the local user for a directory identity, creating it on
// first login.
func (a *AuthServiceImpl) provision(ctx context.Context, ident *service.DirectoryIdentity, password string) (*domain.User, error) {
	user, err := a.Store.Users().GetByUsername(ctx, ident.Username)
	if err == nil {
		if !user.IsActive || user.DeletedAt != nil {
			return nil, domain.ErrUserDisabled
		}
		return user, nil
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, err
	}
	if a.Users == nil {
		return nil, domain.ErrInvalidCredentials
	}

	user, err = a.Users.Create(ctx, service.CreateUserInput{
		Username: ident.Username,
		Password: password,
		Email:    ident.Email,
		FullName: ident.FullName,
	})
	if errors.Is(err, domain.ErrUserExists) {
		return a.Store.Users().GetByUsername(ctx, ident.Username)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("provisioned directory user", "user", user.Username)
	return user, nil
}

// Logout revokes the caller's token and marks the device logged out.
func (a *AuthServiceImpl) Logout(ctx context.Context, p *service.Principal, deviceUUID string) error {
	if p == nil || p.User == nil || p.Token == nil {
		return domain.ErrUnauthenticated
	}
	deviceUUID = strings.TrimSpace(deviceUUID)
	if deviceUUID == "" {
		deviceUUID = p.Token.UUID
	}
	if err := a.TService.Revoke(ctx, p.Token.Token); err != nil {
		return err
	}
	if _, err := a.Store.LoginClients().SetStatus(ctx, p.User.ID, deviceUUID, false); err != nil {
		return err
	}

	entry := &domain.LoginLog{
		UserID:   p.User.ID,
		Username: p.User.Username,
		UUID:     deviceUUID,
	}
	last, err := a.Store.LoginLogs().LastLogin(ctx, p.User.ID, deviceUUID)
	switch {
	case err == nil:
		entry.PeerID = last.PeerID
		entry.LoginType = last.LoginType
		entry.OS = last.OS
		entry.DeviceType = last.DeviceType
		entry.DeviceName = last.DeviceName
		entry.IP = last.IP
		entry.UserAgent = last.UserAgent
	case errors.Is(err, store.ErrRecordNotFound):
	default:
		return err
	}
	if err := a.Store.LoginLogs().Create(ctx, entry); err != nil {
		return err
	}

	slog.Info("user logged out",
		"user", p.User.Username,
		"uuid", deviceUUID,
		"request_id", middleware.RequestIDFromContext(ctx),
	)
	return nil
}

func loginType(r dto.LoginRequest) string {
	if t := strings.TrimSpace(r.Type); t != "" {
		return t
	}
	if r.AutoLogin {
		return "auto"
	}
	return "account"
}
