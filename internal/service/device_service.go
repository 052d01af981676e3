package service

import (
	"context"
	"time"

	"rdapi/internal/domain"
)

// MaxStatusBatch bounds the ids accepted by one online status lookup.
const MaxStatusBatch = 500

type PeerFacts struct {
	UUID     string
	PeerID   string
	CPU      string
	Hostname string
	Memory   string
	OS       string
	Username string
	Version  string
}

type HeartbeatResult struct {
	At          time.Time
	NeedSysinfo bool
}

type DeviceService interface {
	Upsert(ctx context.Context, f PeerFacts) (*domain.Peer, error)
	Heartbeat(ctx context.Context, deviceUUID, peerID, version string) (*HeartbeatResult, error)
	IsOnline(ctx context.Context, peerIDOrUUID string) (bool, error)
	OnlineStatuses(ctx context.Context, peerIDs []string) (map[string]bool, error)
	LastSeen(ctx context.Context, peerIDs []string) (map[string]time.Time, error)
	Get(ctx context.Context, peerID string) (*domain.Peer, error)
	List(ctx context.Context, page, pageSize int) ([]domain.Peer, int64, error)
	ListForUser(ctx context.Context, user *domain.User, excludeUUID string) ([]domain.Peer, error)
}
