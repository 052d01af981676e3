package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"rdapi/internal/domain"
	"rdapi/internal/service"

	"gopkg.in/yaml.v3"
)

// seedFile is the bootstrap document loaded by `rdctl seed`. Objects that
// already exist are left alone, so a file can be applied repeatedly.
type seedFile struct {
	Groups    []string       `yaml:"groups"`
	Users     []seedUser     `yaml:"users"`
	Personals []seedPersonal `yaml:"personals"`
}

type seedUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Email    string `yaml:"email"`
	FullName string `yaml:"full_name"`
	Staff    bool   `yaml:"staff"`
	Group    string `yaml:"group"`
}

type seedPersonal struct {
	Owner  string      `yaml:"owner"`
	Name   string      `yaml:"name"`
	Shares []seedShare `yaml:"shares"`
}

type seedShare struct {
	Target string `yaml:"target"`
	Type   string `yaml:"type"` // user (default) or group
	Rule   int    `yaml:"rule"`
}

func parseSeed(r io.Reader) (*seedFile, error) {
	var s seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	for i, u := range s.Users {
		if u.Username == "" || u.Password == "" {
			return nil, fmt.Errorf("users[%d]: username and password are required", i)
		}
	}
	for i, p := range s.Personals {
		if p.Owner == "" || p.Name == "" {
			return nil, fmt.Errorf("personals[%d]: owner and name are required", i)
		}
		for j, sh := range p.Shares {
			if _, err := shareType(sh.Type); err != nil {
				return nil, fmt.Errorf("personals[%d].shares[%d]: %w", i, j, err)
			}
		}
	}
	return &s, nil
}

func shareType(s string) (domain.ShareTargetType, error) {
	switch s {
	case "", "user":
		return domain.ShareTargetUser, nil
	case "group":
		return domain.ShareTargetGroup, nil
	default:
		return 0, fmt.Errorf("unknown share type %q", s)
	}
}

// apply creates groups, then users, then address books and their shares.
// It returns the number of objects created.
func (s *seedFile) apply(ctx context.Context, users service.UserService, personals service.PersonalService) (int, error) {
	created := 0
	for _, g := range s.Groups {
		_, err := users.CreateGroup(ctx, g)
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrGroupExists):
		default:
			return created, fmt.Errorf("group %s: %w", g, err)
		}
	}

	for _, u := range s.Users {
		_, err := users.Create(ctx, service.CreateUserInput{
			Username: u.Username,
			Password: u.Password,
			Email:    u.Email,
			FullName: u.FullName,
			IsStaff:  u.Staff,
			Group:    u.Group,
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrUserExists):
			slog.Info("seed: user exists", "user", u.Username)
		default:
			return created, fmt.Errorf("user %s: %w", u.Username, err)
		}
	}

	for _, p := range s.Personals {
		owner, err := users.Get(ctx, p.Owner)
		if err != nil {
			return created, fmt.Errorf("personal %s: owner %s: %w", p.Name, p.Owner, err)
		}
		ps, err := personals.Create(ctx, owner, p.Name, domain.PersonalPublic)
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrPersonalExists):
			ps, err = findOwned(ctx, personals, owner, p.Name)
			if err != nil {
				return created, err
			}
		default:
			return created, fmt.Errorf("personal %s: %w", p.Name, err)
		}

		for _, sh := range p.Shares {
			tt, _ := shareType(sh.Type)
			if err := personals.Share(ctx, owner, ps.GUID, tt, sh.Target, domain.ShareRule(sh.Rule)); err != nil {
				return created, fmt.Errorf("personal %s: share with %s: %w", p.Name, sh.Target, err)
			}
		}
	}
	return created, nil
}

func findOwned(ctx context.Context, personals service.PersonalService, owner *domain.User, name string) (*domain.Personal, error) {
	owned, err := personals.ListOwned(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, a := range owned {
		if a.Personal.Name == name {
			return &a.Personal, nil
		}
	}
	return nil, fmt.Errorf("personal %s: %w", name, domain.ErrPersonalNotFound)
}
