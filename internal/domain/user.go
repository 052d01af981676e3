package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID          UserID     `gorm:"size:36;primaryKey" json:"id"`
	Username    string     `gorm:"size:150;not null;uniqueIndex:ux_users_username" json:"username"`
	Email       string     `gorm:"size:254" json:"email"`
	FullName    string     `gorm:"size:150" json:"fullName"`
	IsActive    bool       `gorm:"not null" json:"isActive"`
	IsStaff     bool       `gorm:"not null" json:"isStaff"`
	IsSuperuser bool       `gorm:"not null" json:"isSuperuser"`
	CreatedAt   time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updatedAt"`
	DeletedAt   *time.Time `gorm:"index" json:"deletedAt,omitempty"`
}

func (User) TableName() string { return "users" }

// IsAdmin reports whether the user may manage other users.
func (u *User) IsAdmin() bool { return u.IsStaff || u.IsSuperuser }

type Group struct {
	ID        GroupID   `gorm:"size:36;primaryKey" json:"id"`
	Name      string    `gorm:"size:150;not null;uniqueIndex:ux_groups_name" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}

func (Group) TableName() string { return "groups" }

// UserProfile holds the zero-or-one group membership of a user.
type UserProfile struct {
	UserID    UserID    `gorm:"size:36;primaryKey"`
	GroupID   GroupID   `gorm:"size:36;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (UserProfile) TableName() string { return "user_profiles" }

type UserConfig struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    UserID    `gorm:"size:36;not null;uniqueIndex:ux_user_configs_name,priority:1"`
	Name      string    `gorm:"size:64;not null;uniqueIndex:ux_user_configs_name,priority:2"`
	Value     string    `gorm:"size:255;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (UserConfig) TableName() string { return "user_configs" }

type PasswordCredential struct {
	ID          uuid.UUID `gorm:"size:36;primaryKey"`
	UserID      UserID    `gorm:"size:36;not null;uniqueIndex:ux_pwd_user"`
	Algo        string    `gorm:"size:32;not null"`
	Hash        []byte    `gorm:"not null"`
	Salt        []byte    `gorm:"not null"`
	ParamsJSON  []byte    `gorm:"not null"`
	PasswordVer int       `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (PasswordCredential) TableName() string { return "password_credentials" }

func (p *PasswordCredential) GetAlgo() string       { return p.Algo }
func (p *PasswordCredential) GetHash() []byte       { return p.Hash }
func (p *PasswordCredential) GetSalt() []byte       { return p.Salt }
func (p *PasswordCredential) GetParamsJSON() []byte { return p.ParamsJSON }
func (p *PasswordCredential) GetPasswordVer() int   { return p.PasswordVer }
