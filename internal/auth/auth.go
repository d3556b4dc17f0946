// Package auth is the role oracle: a user is an admin while a matching
// record exists in the admins collection. There is no authentication
// here; identity arrives as a trusted caller-supplied user ID.
package auth

import (
	"context"
	"errors"
	"fmt"

	"bachat/internal/core"
	"bachat/internal/store"
)

// ErrUnauthorized rejects a mutation attempt by a non-admin before any
// storage call is made.
var ErrUnauthorized = errors.New("administrator role required")

type Service struct {
	admins store.AdminStore
}

func New(admins store.AdminStore) *Service {
	return &Service{admins: admins}
}

// IsAdmin reports whether the user has the admin role.
func (s *Service) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	admins, err := s.admins.ListAdmins(ctx)
	if err != nil {
		return false, fmt.Errorf("list admins: %w", err)
	}
	for _, a := range admins {
		if a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// RequireAdmin returns ErrUnauthorized unless the user is an admin.
func (s *Service) RequireAdmin(ctx context.Context, userID string) error {
	ok, err := s.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// Grant adds the admin role for a user unless already granted.
func (s *Service) Grant(ctx context.Context, userID, email string) (string, error) {
	admins, err := s.admins.ListAdmins(ctx)
	if err != nil {
		return "", fmt.Errorf("list admins: %w", err)
	}
	for _, a := range admins {
		if a.UserID == userID {
			return a.ID, nil
		}
	}
	id, err := s.admins.AddAdmin(ctx, core.Admin{UserID: userID, Email: email})
	if err != nil {
		return "", fmt.Errorf("add admin: %w", err)
	}
	return id, nil
}

// Revoke removes the admin role record for a user.
func (s *Service) Revoke(ctx context.Context, userID string) error {
	admins, err := s.admins.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	for _, a := range admins {
		if a.UserID == userID {
			return s.admins.DeleteAdmin(ctx, a.ID)
		}
	}
	return store.ErrNotFound
}
