package domain

import (
	"time"

	"github.com/google/uuid"
)

type Tag struct {
	ID        uuid.UUID `gorm:"size:36;primaryKey" json:"-"`
	GUID      GUID      `gorm:"size:36;not null;uniqueIndex:ux_tags_guid_name,priority:1" json:"-"`
	Name      string    `gorm:"size:64;not null;uniqueIndex:ux_tags_guid_name,priority:2" json:"name"`
	Color     int64     `gorm:"not null" json:"color"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`
}

func (Tag) TableName() string { return "tags" }

// PeerTag attaches a tag to a peer inside a personal, as seen by one user.
type PeerTag struct {
	ID        uuid.UUID `gorm:"size:36;primaryKey"`
	GUID      GUID      `gorm:"size:36;not null;uniqueIndex:ux_peer_tags,priority:1"`
	UserID    UserID    `gorm:"size:36;not null;uniqueIndex:ux_peer_tags,priority:2"`
	PeerID    string    `gorm:"size:100;not null;uniqueIndex:ux_peer_tags,priority:3"`
	TagID     uuid.UUID `gorm:"size:36;not null;uniqueIndex:ux_peer_tags,priority:4;index:ix_peer_tags_tag"`
	CreatedAt time.Time `gorm:"not null"`
}

func (PeerTag) TableName() string { return "peer_tags" }
