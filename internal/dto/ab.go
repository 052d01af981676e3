package dto

import (
	"bytes"
	"encoding/json"
)

type PersonalResponse struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

type SharedProfile struct {
	GUID  string `json:"guid"`
	Name  string `json:"name"`
	Owner string `json:"owner"`
	Note  string `json:"note,omitempty"`
	Rule  int    `json:"rule"`
}

type AbPeer struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Hostname string   `json:"hostname"`
	Alias    string   `json:"alias"`
	Platform string   `json:"platform"`
	Tags     []string `json:"tags"`
}

type AbPeerRequest struct {
	ID       string    `json:"id"`
	Alias    *string   `json:"alias,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
	Note     string    `json:"note,omitempty"`
	Hostname string    `json:"hostname,omitempty"`
	Username string    `json:"username,omitempty"`
	Platform string    `json:"platform,omitempty"`
}

type TagPayload struct {
	Name  string `json:"name"`
	Color int64  `json:"color"`
}

type TagRenameRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

type AbSettingsResponse struct {
	MaxPeerOneAb int `json:"max_peer_one_ab"`
}

// StringList accepts either a JSON array of strings or a single string.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*l = out
	return nil
}
