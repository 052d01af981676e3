package dto

import "time"

type CreatePersonalRequest struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type RenamePersonalRequest struct {
	Name string `json:"name"`
}

type PersonalView struct {
	GUID      string    `json:"guid"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Owner     string    `json:"owner"`
	Rule      int       `json:"rule"`
	Devices   int64     `json:"devices"`
	CreatedAt time.Time `json:"createdAt"`
}

type ShareRequest struct {
	TargetType string `json:"targetType"` // "user" or "group"
	Target     string `json:"target"`
	Rule       int    `json:"rule,omitempty"`
}

type ShareView struct {
	TargetType string    `json:"targetType"`
	Target     string    `json:"target"`
	Rule       int       `json:"rule"`
	CreatedAt  time.Time `json:"createdAt"`
}

type PersonalDevice struct {
	PeerID     string   `json:"peerId"`
	Alias      string   `json:"alias"`
	Hostname   string   `json:"hostname"`
	Username   string   `json:"username"`
	Platform   string   `json:"platform"`
	OS         string   `json:"os"`
	Version    string   `json:"version"`
	Tags       []string `json:"tags"`
	Online     bool     `json:"online"`
	LastSeenAt *int64   `json:"lastSeenAt,omitempty"`
}

type PersonalDetail struct {
	Personal PersonalView     `json:"personal"`
	Devices  []PersonalDevice `json:"devices"`
	Total    int64            `json:"total"`
	Tags     []TagPayload     `json:"tags"`
	Shares   []ShareView      `json:"shares"`
}

type DeviceStatusRequest struct {
	IDs []string `json:"ids"`
}

type CreateUserRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Email           string `json:"email"`
	FullName        string `json:"fullName"`
	IsStaff         bool   `json:"isStaff"`
	IsSuperuser     bool   `json:"isSuperuser"`
	Group           string `json:"group,omitempty"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"fullName,omitempty"`
	IsStaff  *bool   `json:"isStaff,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
	Group    *string `json:"group,omitempty"`
}

type SetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type UserView struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FullName    string     `json:"fullName"`
	IsActive    bool       `json:"isActive"`
	IsStaff     bool       `json:"isStaff"`
	IsSuperuser bool       `json:"isSuperuser"`
	Group       string     `json:"group,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

type GroupRequest struct {
	Name string `json:"name"`
}

type GroupView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Members int64  `json:"members"`
}

type ConfigRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Envelope is the single response schema of the console API and of every error.
type Envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}
