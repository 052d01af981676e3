package dto

import "encoding/json"

type HeartbeatRequest struct {
	UUID       string `json:"uuid"`
	ID         string `json:"id"`
	ModifiedAt int64  `json:"modified_at,omitempty"`
	Ver        any    `json:"ver,omitempty"`
	Conns      []int  `json:"conns,omitempty"`
}

type HeartbeatResponse struct {
	Status     string `json:"status"`
	ModifiedAt int64  `json:"modified_at"`
	Sysinfo    bool   `json:"sysinfo,omitempty"`
}

type SysinfoRequest struct {
	UUID     string `json:"uuid"`
	ID       string `json:"id"`
	CPU      string `json:"cpu"`
	Hostname string `json:"hostname"`
	Memory   string `json:"memory"`
	OS       string `json:"os"`
	Username string `json:"username"`
	Version  string `json:"version"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type DeviceInfo struct {
	OS   string `json:"os"`
	Type string `json:"type"`
	Name string `json:"name"`
}

type LoginRequest struct {
	Username   string     `json:"username"`
	Password   string     `json:"password"`
	ID         string     `json:"id"`
	UUID       string     `json:"uuid"`
	AutoLogin  bool       `json:"autoLogin,omitempty"`
	Type       string     `json:"type,omitempty"`
	DeviceInfo DeviceInfo `json:"deviceInfo"`
}

type UserPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Note    string `json:"note,omitempty"`
	IsAdmin bool   `json:"is_admin"`
	Status  int    `json:"status"`
	Info    any    `json:"info,omitempty"`
}

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	Type        string      `json:"type"`
	User        UserPayload `json:"user"`
}

type LogoutRequest struct {
	UUID string `json:"uuid"`
	ID   string `json:"id,omitempty"`
}

type CodeResponse struct {
	Code int `json:"code"`
}

type CurrentUserResponse struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	IsAdmin     bool   `json:"is_admin"`
	AccessToken string `json:"access_token"`
	Type        string `json:"type"`
}

// Page is the list shape the desktop client parses.
type Page[T any] struct {
	Total int64 `json:"total"`
	Data  []T   `json:"data"`
}

type UserListItem struct {
	Name    string         `json:"name"`
	Email   string         `json:"email"`
	Note    string         `json:"note"`
	IsAdmin bool           `json:"is_admin"`
	Status  int            `json:"status"`
	Info    map[string]any `json:"info"`
}

type PeerInfo struct {
	DeviceName string `json:"device_name"`
	OS         string `json:"os"`
	Username   string `json:"username"`
}

type PeerListItem struct {
	ID     string   `json:"id"`
	Status int      `json:"status,omitempty"`
	Info   PeerInfo `json:"info"`
}

type GroupItem struct {
	Name string `json:"name"`
}

// AuditConnRequest is posted by the relay for every connection event.
// Peer carries [peer id, username] of the controlling side. SessionID is
// a u64 that may arrive as a number or a string.
type AuditConnRequest struct {
	Action    string          `json:"action"`
	ConnID    int64           `json:"conn_id"`
	IP        string          `json:"ip"`
	UUID      string          `json:"uuid"`
	SessionID json.RawMessage `json:"session_id"`
	Type      int             `json:"type"`
	Peer      []string        `json:"peer"`
}

type AuditFileRequest struct {
	ID     string          `json:"id"`
	Info   json.RawMessage `json:"info"`
	IsFile bool            `json:"is_file"`
	Path   string          `json:"path"`
	PeerID string          `json:"peer_id"`
	Type   int             `json:"type"`
	UUID   string          `json:"uuid"`
}
