package domain

import (
	"time"

	"github.com/google/uuid"
)

// Personal is an address book. Each user owns exactly one private personal
// created together with the account.
type Personal struct {
	GUID      GUID         `gorm:"size:36;primaryKey" json:"guid"`
	OwnerID   UserID       `gorm:"size:36;not null;uniqueIndex:ux_personals_owner_name,priority:1" json:"ownerId"`
	Name      string       `gorm:"size:160;not null;uniqueIndex:ux_personals_owner_name,priority:2" json:"name"`
	Type      PersonalType `gorm:"size:16;not null" json:"type"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time    `gorm:"not null" json:"updatedAt"`
}

func (Personal) TableName() string { return "personals" }

func (p *Personal) IsDefault() bool { return p.Type == PersonalPrivate }

// DefaultPersonalName is the name of the private personal created for username.
// The name column is sized for the longest username plus the suffix.
func DefaultPersonalName(username string) string { return username + "_personal" }

// Alias is the membership of a peer in a personal together with its display name.
type Alias struct {
	ID        uuid.UUID `gorm:"size:36;primaryKey"`
	GUID      GUID      `gorm:"size:36;not null;uniqueIndex:ux_aliases_guid_peer,priority:1"`
	PeerID    string    `gorm:"size:100;not null;uniqueIndex:ux_aliases_guid_peer,priority:2;index:ix_aliases_peer"`
	Alias     string    `gorm:"size:150;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Alias) TableName() string { return "aliases" }

type SharePersonal struct {
	ID         uuid.UUID       `gorm:"size:36;primaryKey"`
	GUID       GUID            `gorm:"size:36;not null;uniqueIndex:ux_shares_target,priority:1"`
	TargetID   uuid.UUID       `gorm:"size:36;not null;uniqueIndex:ux_shares_target,priority:2;index:ix_shares_target_id"`
	TargetType ShareTargetType `gorm:"not null;uniqueIndex:ux_shares_target,priority:3"`
	SourceID   uuid.UUID       `gorm:"size:36;not null"`
	SourceType ShareTargetType `gorm:"not null"`
	Rule       ShareRule       `gorm:"not null"`
	CreatedAt  time.Time       `gorm:"not null"`
}

func (SharePersonal) TableName() string { return "share_personals" }
