// Package directory authenticates users against an LDAP server.
package directory

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"rdapi/internal/config"
	"rdapi/internal/domain"
	"rdapi/internal/service"

	"github.com/go-ldap/ldap/v3"
)

var _ service.Directory = (*LDAP)(nil)

type LDAP struct {
	cfg  config.LDAPConfig
	dial func(ctx context.Context) (conn, error)
}

// conn is the part of *ldap.Conn used here.
type conn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

func NewLDAP(cfg config.LDAPConfig) *LDAP {
	l := &LDAP{cfg: cfg}
	l.dial = l.connect
	return l
}

func (l *LDAP) connect(ctx context.Context) (conn, error) {
	c, err := ldap.DialURL(l.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ldap dial: %w", err)
	}
	if l.cfg.StartTLS {
		host := ""
		if u, err := url.Parse(l.cfg.URL); err == nil {
			host = u.Hostname()
		}
		if err := c.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
			c.Close()
			return nil, fmt.Errorf("ldap starttls: %w", err)
		}
	}
	return c, nil
}

// Authenticate looks the user up with the service account and binds as the
// user. Users missing from the directory, and an unreachable directory,
// yield service.ErrDirectoryUserUnknown so local accounts keep working.
func (l *LDAP) Authenticate(ctx context.Context, username, password string) (*service.DirectoryIdentity, error) {
	c, err := l.dial(ctx)
	if err != nil {
		slog.Warn("ldap unavailable, using local accounts", "error", err)
		return nil, service.ErrDirectoryUserUnknown
	}
	defer c.Close()

	if err := c.Bind(l.cfg.BindDN, l.cfg.BindPassword); err != nil {
		slog.Warn("ldap service bind failed", "error", err)
		return nil, service.ErrDirectoryUserUnknown
	}

	req := ldap.NewSearchRequest(
		l.cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 2, 0, false,
		fmt.Sprintf(l.cfg.UserFilter, ldap.EscapeFilter(username)),
		[]string{"dn", "cn", "displayName", "mail"},
		nil,
	)
	sr, err := c.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, service.ErrDirectoryUserUnknown
		}
		slog.Warn("ldap search failed", "error", err)
		return nil, service.ErrDirectoryUserUnknown
	}
	if len(sr.Entries) != 1 {
		return nil, service.ErrDirectoryUserUnknown
	}
	entry := sr.Entries[0]

	if err := c.Bind(entry.DN, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, errors.Join(domain.ErrInvalidCredentials, err)
	}

	name := entry.GetAttributeValue("displayName")
	if name == "" {
		name = entry.GetAttributeValue("cn")
	}
	return &service.DirectoryIdentity{
		Username: strings.TrimSpace(username),
		Email:    entry.GetAttributeValue("mail"),
		FullName: name,
	}, nil
}
