package domain

import (
	"strings"

	"github.com/google/uuid"
)

type (
	UserID  = uuid.UUID
	GroupID = uuid.UUID
	GUID    = uuid.UUID
)

// ClientType distinguishes tokens issued to the same user on the same device.
type ClientType int

const (
	ClientTypeWeb    ClientType = 1
	ClientTypeClient ClientType = 2
	ClientTypeAPI    ClientType = 3
)

func (c ClientType) Valid() bool {
	return c >= ClientTypeWeb && c <= ClientTypeAPI
}

func (c ClientType) String() string {
	switch c {
	case ClientTypeWeb:
		return "web"
	case ClientTypeClient:
		return "client"
	case ClientTypeAPI:
		return "api"
	default:
		return "unknown"
	}
}

// ClientTypeFromDevice maps the deviceInfo.type reported at login.
func ClientTypeFromDevice(kind string) ClientType {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "web", "browser":
		return ClientTypeWeb
	case "client":
		return ClientTypeClient
	default:
		return ClientTypeAPI
	}
}

type PersonalType string

const (
	PersonalPublic  PersonalType = "public"
	PersonalPrivate PersonalType = "private"
)

func (t PersonalType) Valid() bool {
	return t == PersonalPublic || t == PersonalPrivate
}

type ShareTargetType int

const (
	ShareTargetUser  ShareTargetType = 1
	ShareTargetGroup ShareTargetType = 2
)

func (t ShareTargetType) Valid() bool {
	return t == ShareTargetUser || t == ShareTargetGroup
}

// ShareRule is the access level a share grant carries. Owners always have RuleFull.
type ShareRule int

const (
	RuleRead      ShareRule = 1
	RuleReadWrite ShareRule = 2
	RuleFull      ShareRule = 3
)

func (r ShareRule) Valid() bool {
	return r >= RuleRead && r <= RuleFull
}

// Platform returns the display platform for an os string such as "windows / Windows 10".
func Platform(os string) string {
	head := strings.ToLower(strings.TrimSpace(strings.SplitN(os, " / ", 2)[0]))
	switch {
	case strings.HasPrefix(head, "windows"):
		return "Windows"
	case strings.HasPrefix(head, "linux"):
		return "Linux"
	case strings.HasPrefix(head, "mac"):
		return "Mac OS"
	case strings.HasPrefix(head, "android"):
		return "Android"
	case strings.HasPrefix(head, "ios"):
		return "iOS"
	default:
		return ""
	}
}
