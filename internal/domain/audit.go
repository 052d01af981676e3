package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ConnActionNew   = "new"
	ConnActionClose = "close"
)

type AuditConnLog struct {
	ID               uuid.UUID `gorm:"size:36;primaryKey" json:"id"`
	ConnID           int64     `gorm:"not null;index:ix_audit_conn_conn" json:"connId"`
	Action           string    `gorm:"size:32;not null" json:"action"`
	ControlledUUID   string    `gorm:"size:100;index:ix_audit_conn_controlled" json:"controlledUuid"`
	ControllerUUID   string    `gorm:"size:100" json:"controllerUuid"`
	ControllerPeerID string    `gorm:"size:100" json:"controllerPeerId"`
	InitiatingIP     string    `gorm:"size:64" json:"initiatingIp"`
	SessionID        string    `gorm:"size:100" json:"sessionId"`
	UserID           *UserID   `gorm:"size:36" json:"userId,omitempty"`
	Username         string    `gorm:"size:150" json:"username"`
	Type             int       `gorm:"not null" json:"type"`
	CreatedAt        time.Time `gorm:"not null;index:ix_audit_conn_created" json:"createdAt"`
}

func (AuditConnLog) TableName() string { return "audit_conn_logs" }

type AuditFileLog struct {
	ID            uuid.UUID      `gorm:"size:36;primaryKey" json:"id"`
	ConnID        *int64         `gorm:"index:ix_audit_file_conn" json:"connId,omitempty"`
	SourceID      string         `gorm:"size:100" json:"sourceId"`
	TargetID      string         `gorm:"size:100" json:"targetId"`
	TargetUUID    string         `gorm:"size:100;index:ix_audit_file_target" json:"targetUuid"`
	TargetIP      string         `gorm:"size:64" json:"targetIp"`
	OperationType int            `gorm:"not null" json:"operationType"`
	IsFile        bool           `gorm:"not null" json:"isFile"`
	RemotePath    string         `gorm:"size:1024" json:"remotePath"`
	Info          datatypes.JSON `json:"info"`
	FileNum       int            `gorm:"not null" json:"fileNum"`
	Username      string         `gorm:"size:150" json:"username"`
	CreatedAt     time.Time      `gorm:"not null;index:ix_audit_file_created" json:"createdAt"`
}

func (AuditFileLog) TableName() string { return "audit_file_logs" }
