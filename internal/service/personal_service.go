package service

import (
	"context"

	"rdapi/internal/domain"
)

// PersonalAccess is a personal as seen by one user.
type PersonalAccess struct {
	Personal domain.Personal
	Owner    string
	Rule     domain.ShareRule
}

type AbPeer struct {
	Alias domain.Alias
	Peer  *domain.Peer // nil when the peer row has been removed
	Tags  []string
}

type ShareGrant struct {
	Share      domain.SharePersonal
	TargetName string
}

type PersonalService interface {
	Create(ctx context.Context, owner *domain.User, name string, t domain.PersonalType) (*domain.Personal, error)
	Default(ctx context.Context, user *domain.User) (*domain.Personal, error)
	Rename(ctx context.Context, actor *domain.User, guid domain.GUID, name string) error
	Delete(ctx context.Context, actor *domain.User, guid domain.GUID) error
	Access(ctx context.Context, user *domain.User, guid domain.GUID) (*PersonalAccess, error)

	AddPeer(ctx context.Context, actor *domain.User, guid domain.GUID, peerID, alias string) error
	UpdatePeer(ctx context.Context, actor *domain.User, guid domain.GUID, peerID string, alias *string, tags *[]string) error
	RemovePeers(ctx context.Context, actor *domain.User, guid domain.GUID, peerIDs []string) error
	ListPeers(ctx context.Context, user *domain.User, guid domain.GUID, page, pageSize int) ([]AbPeer, int64, error)

	Share(ctx context.Context, actor *domain.User, guid domain.GUID, targetType domain.ShareTargetType, target string, rule domain.ShareRule) error
	Unshare(ctx context.Context, actor *domain.User, guid domain.GUID, targetType domain.ShareTargetType, target string) error
	Shares(ctx context.Context, actor *domain.User, guid domain.GUID) ([]ShareGrant, error)

	ListOwned(ctx context.Context, user *domain.User) ([]PersonalAccess, error)
	ListSharedTo(ctx context.Context, user *domain.User) ([]PersonalAccess, error)
	ListProfiles(ctx context.Context, user *domain.User) ([]PersonalAccess, error)
	DeviceCounts(ctx context.Context, guids []domain.GUID) (map[domain.GUID]int64, error)
}

type TagService interface {
	List(ctx context.Context, user *domain.User, guid domain.GUID) ([]domain.Tag, error)
	Create(ctx context.Context, user *domain.User, guid domain.GUID, name string, color int64) (*domain.Tag, error)
	Update(ctx context.Context, user *domain.User, guid domain.GUID, name string, newName *string, color *int64) error
	Delete(ctx context.Context, user *domain.User, guid domain.GUID, names ...string) error
	SetForDevice(ctx context.Context, user *domain.User, guid domain.GUID, peerID string, names []string) error
	TagsMap(ctx context.Context, user *domain.User, guid domain.GUID, peerIDs []string) (map[string][]string, error)
}
