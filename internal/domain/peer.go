package domain

import (
	"time"

	"github.com/google/uuid"
)

// Peer is the last-known facts of one client installation. UUID is the
// identity key; PeerID is a mutable attribute that follows the installation.
type Peer struct {
	ID         uuid.UUID `gorm:"size:36;primaryKey" json:"-"`
	PeerID     string    `gorm:"size:100;not null;uniqueIndex:ux_peers_peer_id" json:"id"`
	UUID       string    `gorm:"column:uuid;size:100;not null;uniqueIndex:ux_peers_uuid" json:"uuid"`
	DeviceName string    `gorm:"size:150" json:"hostname"`
	OS         string    `gorm:"size:150" json:"os"`
	CPU        string    `gorm:"size:255" json:"cpu"`
	Memory     string    `gorm:"size:64" json:"memory"`
	Username   string    `gorm:"size:150" json:"username"`
	Version    string    `gorm:"size:64" json:"version"`
	CreatedAt  time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"not null" json:"updatedAt"`
}

func (Peer) TableName() string { return "peers" }

type HeartBeat struct {
	ID         uuid.UUID `gorm:"size:36;primaryKey"`
	UUID       string    `gorm:"column:uuid;size:100;not null;uniqueIndex:ux_heartbeats_uuid"`
	PeerID     string    `gorm:"size:100;not null;index:ix_heartbeats_peer_id"`
	Version    string    `gorm:"size:64"`
	ModifiedAt time.Time `gorm:"not null"`
	Timestamp  time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (HeartBeat) TableName() string { return "heartbeats" }

// LoginClient tracks the login state of a user on one installation.
type LoginClient struct {
	ID          uuid.UUID  `gorm:"size:36;primaryKey"`
	UserID      UserID     `gorm:"size:36;not null;uniqueIndex:ux_login_clients_user_uuid,priority:1"`
	UUID        string     `gorm:"column:uuid;size:100;not null;uniqueIndex:ux_login_clients_user_uuid,priority:2"`
	PeerID      string     `gorm:"size:100"`
	ClientType  ClientType `gorm:"not null"`
	Platform    string     `gorm:"size:32"`
	ClientName  string     `gorm:"size:150"`
	LoginStatus bool       `gorm:"not null"`
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
}

func (LoginClient) TableName() string { return "login_clients" }

type LoginLog struct {
	ID          uuid.UUID `gorm:"size:36;primaryKey"`
	UserID      UserID    `gorm:"size:36;not null;index:ix_login_logs_user"`
	Username    string    `gorm:"size:150;not null"`
	UUID        string    `gorm:"column:uuid;size:100"`
	PeerID      string    `gorm:"size:100"`
	LoginType   string    `gorm:"size:32"`
	LoginStatus bool      `gorm:"not null"`
	OS          string    `gorm:"size:150"`
	DeviceType  string    `gorm:"size:32"`
	DeviceName  string    `gorm:"size:150"`
	IP          string    `gorm:"size:64"`
	UserAgent   string    `gorm:"size:512"`
	CreatedAt   time.Time `gorm:"not null;index:ix_login_logs_created"`
}

func (LoginLog) TableName() string { return "login_logs" }
