package domain

import (
	"time"

	"github.com/google/uuid"
)

// Token is the server side record of a bearer token. At most one row exists
// per (user, device uuid, client type).
type Token struct {
	ID         uuid.UUID  `gorm:"size:36;primaryKey"`
	UserID     UserID     `gorm:"size:36;not null;uniqueIndex:ux_tokens_owner,priority:1"`
	UUID       string     `gorm:"column:uuid;size:100;not null;uniqueIndex:ux_tokens_owner,priority:2;index:ix_tokens_uuid"`
	ClientType ClientType `gorm:"not null;uniqueIndex:ux_tokens_owner,priority:3"`
	Token      string     `gorm:"size:512;not null;uniqueIndex:ux_tokens_token"`
	CreatedAt  time.Time  `gorm:"not null"`
	LastUsedAt time.Time  `gorm:"not null"`
}

func (Token) TableName() string { return "tokens" }

// Alive reports whether the token was used within timeout of now.
func (t *Token) Alive(now time.Time, timeout time.Duration) bool {
	return now.Sub(t.LastUsedAt) < timeout
}
