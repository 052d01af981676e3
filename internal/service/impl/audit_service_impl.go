package impl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"rdapi/internal/domain"
	"rdapi/internal/netutil"
	"rdapi/internal/observability/metrics"
	"rdapi/internal/service"
	"rdapi/internal/store"

	"gorm.io/datatypes"
)

var _ service.AuditService = (*AuditServiceImpl)(nil)

type AuditServiceImpl struct {
	store *store.Store
	now   func() time.Time
}

func NewAuditServiceImpl(st *store.Store) *AuditServiceImpl {
	return &AuditServiceImpl{
		store: st,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// RecordConn stores a connection event. "new" opens the connection; an empty
// action carries the controller side and is applied to every row of the
// connection; any other action is appended with the fields of the "new" row.
func (a *AuditServiceImpl) RecordConn(ctx context.Context, e service.ConnEvent) error {
	e.Action = strings.TrimSpace(e.Action)
	e.Username = strings.ToLower(strings.TrimSpace(e.Username))
	defer metrics.AuditEventsTotal.WithLabelValues("conn", actionLabel(e.Action)).Inc()

	switch e.Action {
	case domain.ConnActionNew:
		err := a.store.Audit().CreateConn(ctx, &domain.AuditConnLog{
			ConnID:         e.ConnID,
			Action:         e.Action,
			ControlledUUID: e.ControlledUUID,
			InitiatingIP:   cleanIP(e.IP),
			SessionID:      e.SessionID,
			Type:           e.Type,
			CreatedAt:      a.now(),
		})
		if err != nil {
			return err
		}
	case "":
		if err := a.updateController(ctx, e); err != nil {
			return err
		}
	default:
		row := &domain.AuditConnLog{
			ConnID:         e.ConnID,
			Action:         e.Action,
			ControlledUUID: e.ControlledUUID,
			InitiatingIP:   cleanIP(e.IP),
			SessionID:      e.SessionID,
			Type:           e.Type,
			CreatedAt:      a.now(),
		}
		opened, err := a.store.Audit().GetConn(ctx, e.ConnID, domain.ConnActionNew)
		switch {
		case err == nil:
			row.ControllerUUID = opened.ControllerUUID
			row.ControllerPeerID = opened.ControllerPeerID
			row.InitiatingIP = opened.InitiatingIP
			row.UserID = opened.UserID
			row.Username = opened.Username
			row.Type = opened.Type
			if row.ControlledUUID == "" {
				row.ControlledUUID = opened.ControlledUUID
			}
		case errors.Is(err, store.ErrRecordNotFound):
			slog.Warn("connection event without open event", "conn_id", e.ConnID, "action", e.Action)
		default:
			return err
		}
		if err := a.store.Audit().CreateConn(ctx, row); err != nil {
			return err
		}
	}

	slog.Info("connection audit",
		"conn_id", e.ConnID,
		"action", e.Action,
		"controlled_uuid", e.ControlledUUID,
		"ip", e.IP,
		"session_id", e.SessionID,
	)
	return nil
}

func (a *AuditServiceImpl) updateController(ctx context.Context, e service.ConnEvent) error {
	fields := map[string]any{
		"session_id":         e.SessionID,
		"controller_peer_id": e.ControllerPeerID,
		"type":               e.Type,
		"username":           e.Username,
		"user_id":            nil,
	}
	if e.ControllerPeerID != "" {
		peer, err := a.store.Peers().GetByPeerID(ctx, e.ControllerPeerID)
		switch {
		case err == nil:
			fields["controller_uuid"] = peer.UUID
		case !errors.Is(err, store.ErrRecordNotFound):
			return err
		}
	}
	if e.Username != "" {
		u, err := a.store.Users().GetByUsername(ctx, e.Username)
		switch {
		case err == nil:
			fields["user_id"] = u.ID
		case !errors.Is(err, store.ErrRecordNotFound):
			return err
		}
	}
	n, err := a.store.Audit().UpdateConn(ctx, e.ConnID, fields)
	if err != nil {
		return err
	}
	if n == 0 {
		slog.Warn("controller update for unknown connection", "conn_id", e.ConnID)
	}
	return nil
}

// fileInfo is the metadata clients attach to file transfer events.
type fileInfo struct {
	IP   string `json:"ip"`
	Name string `json:"name"`
	Num  int    `json:"num"`
}

// RecordFile appends a file transfer event, correlated with the newest open
// connection to the target.
func (a *AuditServiceImpl) RecordFile(ctx context.Context, e service.FileEvent) (*domain.AuditFileLog, error) {
	defer metrics.AuditEventsTotal.WithLabelValues("file", strconv.Itoa(e.OperationType)).Inc()

	raw, err := decodeInfo(e.Info)
	if err != nil {
		return nil, err
	}
	var info fileInfo
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &info); err != nil {
			return nil, ErrBadFileInfo
		}
	}

	row := &domain.AuditFileLog{
		SourceID:      strings.TrimSpace(e.SourceID),
		TargetID:      strings.TrimSpace(e.TargetID),
		TargetUUID:    strings.TrimSpace(e.TargetUUID),
		TargetIP:      cleanIP(info.IP),
		OperationType: e.OperationType,
		IsFile:        e.IsFile,
		RemotePath:    e.Path,
		Info:          datatypes.JSON(raw),
		FileNum:       info.Num,
		Username:      strings.ToLower(strings.TrimSpace(info.Name)),
		CreatedAt:     a.now(),
	}
	if row.TargetUUID != "" {
		opened, err := a.store.Audit().LatestOpenConn(ctx, row.TargetUUID)
		switch {
		case err == nil:
			id := opened.ConnID
			row.ConnID = &id
		case !errors.Is(err, store.ErrRecordNotFound):
			return nil, err
		}
	}
	if err := a.store.Audit().CreateFile(ctx, row); err != nil {
		return nil, err
	}

	slog.Info("file audit",
		"source_id", row.SourceID,
		"target_id", row.TargetID,
		"target_uuid", row.TargetUUID,
		"operation_type", row.OperationType,
		"is_file", row.IsFile,
		"path", row.RemotePath,
		"file_num", row.FileNum,
	)
	return row, nil
}

// decodeInfo accepts the info object either inline or encoded as a JSON string.
func decodeInfo(in json.RawMessage) ([]byte, error) {
	b := bytes.TrimSpace(in)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil, nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, ErrBadFileInfo
		}
		b = bytes.TrimSpace([]byte(s))
		if len(b) == 0 {
			return nil, nil
		}
	}
	if !json.Valid(b) {
		return nil, ErrBadFileInfo
	}
	return b, nil
}

func (a *AuditServiceImpl) GetConn(ctx context.Context, connID int64, action string) (*domain.AuditConnLog, error) {
	if action == "" {
		action = domain.ConnActionNew
	}
	row, err := a.store.Audit().GetConn(ctx, connID, action)
	if err != nil {
		return nil, notFound(err, domain.ErrConnNotFound)
	}
	return row, nil
}

func (a *AuditServiceImpl) ListConn(ctx context.Context, page, pageSize int) ([]domain.AuditConnLog, int64, error) {
	return a.store.Audit().ListConn(ctx, page, pageSize)
}

func (a *AuditServiceImpl) ListFile(ctx context.Context, page, pageSize int) ([]domain.AuditFileLog, int64, error) {
	return a.store.Audit().ListFile(ctx, page, pageSize)
}

// cleanIP canonicalises the address when it parses and keeps it verbatim otherwise.
func cleanIP(raw string) string {
	if ip, ok := netutil.NormalizeIP(raw); ok {
		return ip
	}
	return strings.TrimSpace(raw)
}

func actionLabel(action string) string {
	switch action {
	case domain.ConnActionNew, domain.ConnActionClose:
		return action
	case "":
		return "update"
	default:
		return "other"
	}
}
