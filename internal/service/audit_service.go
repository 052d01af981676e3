package service

import (
	"context"
	"encoding/json"
	"io"

	"rdapi/internal/domain"
)

type ConnEvent struct {
	ConnID           int64
	Action           string
	ControlledUUID   string
	IP               string
	SessionID        string
	ControllerPeerID string
	Username         string
	Type             int
}

type FileEvent struct {
	SourceID      string // controlling peer id
	TargetID      string
	TargetUUID    string
	OperationType int
	IsFile        bool
	Path          string
	Info          json.RawMessage
}

type AuditService interface {
	RecordConn(ctx context.Context, e ConnEvent) error
	RecordFile(ctx context.Context, e FileEvent) (*domain.AuditFileLog, error)
	GetConn(ctx context.Context, connID int64, action string) (*domain.AuditConnLog, error)
	ListConn(ctx context.Context, page, pageSize int) ([]domain.AuditConnLog, int64, error)
	ListFile(ctx context.Context, page, pageSize int) ([]domain.AuditFileLog, int64, error)
}

// Recording chunk kinds.
const (
	RecordNew    = "new"
	RecordPart   = "part"
	RecordTail   = "tail"
	RecordRemove = "remove"
)

type RecordChunk struct {
	Type   string
	File   string
	Offset int64
	Length int64
	Data   io.Reader
}

type RecordService interface {
	Write(ctx context.Context, c RecordChunk) error
}
