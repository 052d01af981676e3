package impl

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"rdapi/internal/domain"
	"rdapi/internal/observability/metrics"
	"rdapi/internal/observability/middleware"
	"rdapi/internal/service"
	"rdapi/internal/store"
)

var _ service.DeviceService = (*DeviceServiceImpl)(nil)

type DeviceServiceImpl struct {
	store        *store.Store
	tokens       service.TokenService
	onlineWindow time.Duration
	now          func() time.Time
}

func NewDeviceServiceImpl(st *store.Store, tokens service.TokenService, onlineWindow time.Duration) *DeviceServiceImpl {
	if onlineWindow <= 0 {
		onlineWindow = time.Minute
	}
	return &DeviceServiceImpl{
		store:        st,
		tokens:       tokens,
		onlineWindow: onlineWindow,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// WithClock replaces the time source.
func (d *DeviceServiceImpl) WithClock(now func() time.Time) *DeviceServiceImpl {
	d.now = now
	return d
}

// Upsert stores the facts a client reports about itself. The uuid identifies
// the installation; a known peer id reported from a new uuid is rebound to it.
func (d *DeviceServiceImpl) Upsert(ctx context.Context, f service.PeerFacts) (*domain.Peer, error) {
	if err := d.ensureStore(); err != nil {
		return nil, err
	}
	f.UUID = strings.TrimSpace(f.UUID)
	f.PeerID = strings.TrimSpace(f.PeerID)
	if f.UUID == "" {
		return nil, ErrEmptyUUID
	}
	if f.PeerID == "" {
		return nil, ErrEmptyPeerID
	}

	// Two first contacts for one device can both miss the lookup; the loser
	// hits the unique index and sees the winner's row on the second pass.
	out, err := d.upsert(ctx, f)
	if errors.Is(err, store.ErrDuplicate) {
		out, err = d.upsert(ctx, f)
	}
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, domain.ErrPeerIdentityConflict
		}
		return nil, err
	}
	return out, nil
}

func (d *DeviceServiceImpl) upsert(ctx context.Context, f service.PeerFacts) (*domain.Peer, error) {
	var out *domain.Peer
	err := d.store.WithTx(ctx, func(tx *store.Store) error {
		byUUID, err := tx.Peers().GetByUUIDForUpdate(ctx, f.UUID)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}
		byPeerID, err := tx.Peers().GetByPeerIDForUpdate(ctx, f.PeerID)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}

		switch {
		case byUUID != nil && byPeerID != nil && byUUID.ID != byPeerID.ID:
			slog.Warn("device identity conflict",
				"uuid", f.UUID,
				"peer_id", f.PeerID,
				"peer_id_of_uuid", byUUID.PeerID,
				"uuid_of_peer_id", byPeerID.UUID,
				"request_id", middleware.RequestIDFromContext(ctx),
			)
			return domain.ErrPeerIdentityConflict
		case byUUID != nil:
			if byUUID.PeerID != f.PeerID {
				slog.Info("device changed peer id", "uuid", f.UUID, "old", byUUID.PeerID, "new", f.PeerID)
			}
			out = byUUID
		case byPeerID != nil:
			slog.Warn("peer id moved to new uuid", "peer_id", f.PeerID, "old", byPeerID.UUID, "new", f.UUID)
			out = byPeerID
		default:
			out = &domain.Peer{}
			applyFacts(out, f)
			return tx.Peers().Create(ctx, out)
		}
		applyFacts(out, f)
		return tx.Peers().Save(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func applyFacts(p *domain.Peer, f service.PeerFacts) {
	p.UUID = f.UUID
	p.PeerID = f.PeerID
	p.DeviceName = strings.TrimSpace(f.Hostname)
	p.OS = strings.TrimSpace(f.OS)
	p.CPU = strings.TrimSpace(f.CPU)
	p.Memory = strings.TrimSpace(f.Memory)
	p.Username = strings.TrimSpace(f.Username)
	p.Version = strings.TrimSpace(f.Version)
}

// Heartbeat records that the device is alive and keeps its tokens fresh.
// NeedSysinfo asks the client to resend its facts.
func (d *DeviceServiceImpl) Heartbeat(ctx context.Context, deviceUUID, peerID, version string) (*service.HeartbeatResult, error) {
	if err := d.ensureStore(); err != nil {
		return nil, err
	}
	deviceUUID = strings.TrimSpace(deviceUUID)
	peerID = strings.TrimSpace(peerID)
	version = strings.TrimSpace(version)
	if deviceUUID == "" {
		return nil, ErrEmptyUUID
	}

	now := d.now()
	hb := &domain.HeartBeat{
		UUID:       deviceUUID,
		PeerID:     peerID,
		Version:    version,
		ModifiedAt: now,
		Timestamp:  now,
	}
	if err := d.store.HeartBeats().Upsert(ctx, hb); err != nil {
		return nil, err
	}
	if d.tokens != nil {
		if err := d.tokens.TouchByUUID(ctx, deviceUUID); err != nil {
			return nil, err
		}
	}

	need := false
	peer, err := d.store.Peers().GetByUUID(ctx, deviceUUID)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		need = true
	case err != nil:
		return nil, err
	default:
		need = (version != "" && peer.Version != version) || (peerID != "" && peer.PeerID != peerID)
	}
	metrics.HeartbeatsTotal.WithLabelValues(strconv.FormatBool(need)).Inc()
	return &service.HeartbeatResult{At: now, NeedSysinfo: need}, nil
}

// IsOnline accepts either a uuid or a peer id.
func (d *DeviceServiceImpl) IsOnline(ctx context.Context, peerIDOrUUID string) (bool, error) {
	key := strings.TrimSpace(peerIDOrUUID)
	if key == "" {
		return false, nil
	}
	hb, err := d.store.HeartBeats().GetByUUID(ctx, key)
	if err == nil {
		return d.alive(hb.ModifiedAt), nil
	}
	if !errors.Is(err, store.ErrRecordNotFound) {
		return false, err
	}
	seen, err := d.store.HeartBeats().LatestByPeerIDs(ctx, []string{key})
	if err != nil {
		return false, err
	}
	at, ok := seen[key]
	return ok && d.alive(at), nil
}

func (d *DeviceServiceImpl) OnlineStatuses(ctx context.Context, peerIDs []string) (map[string]bool, error) {
	if len(peerIDs) > service.MaxStatusBatch {
		return nil, ErrTooManyIDs
	}
	seen, err := d.LastSeen(ctx, peerIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(peerIDs))
	for _, id := range peerIDs {
		at, ok := seen[id]
		out[id] = ok && d.alive(at)
	}
	return out, nil
}

func (d *DeviceServiceImpl) LastSeen(ctx context.Context, peerIDs []string) (map[string]time.Time, error) {
	return d.store.HeartBeats().LatestByPeerIDs(ctx, dedupe(peerIDs))
}

func (d *DeviceServiceImpl) alive(at time.Time) bool {
	return d.now().Sub(at) < d.onlineWindow
}

func (d *DeviceServiceImpl) Get(ctx context.Context, peerID string) (*domain.Peer, error) {
	p, err := d.store.Peers().GetByPeerID(ctx, strings.TrimSpace(peerID))
	if err != nil {
		return nil, notFound(err, domain.ErrPeerNotFound)
	}
	return p, nil
}

func (d *DeviceServiceImpl) List(ctx context.Context, page, pageSize int) ([]domain.Peer, int64, error) {
	return d.store.Peers().List(ctx, page, pageSize)
}

// ListForUser returns the devices the user has logged in on.
func (d *DeviceServiceImpl) ListForUser(ctx context.Context, user *domain.User, excludeUUID string) ([]domain.Peer, error) {
	clients, err := d.store.LoginClients().ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	uuids := make([]string, 0, len(clients))
	for _, c := range clients {
		if c.UUID != excludeUUID {
			uuids = append(uuids, c.UUID)
		}
	}
	return d.store.Peers().ListByUUIDs(ctx, uuids)
}

func (d *DeviceServiceImpl) ensureStore() error {
	if d.store == nil {
		return errNilStore
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
