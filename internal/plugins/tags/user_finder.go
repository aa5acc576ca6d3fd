package tags

import (
	"context"
	"strings"

	"github.com/keyxmakerx/tally/internal/plugins/auth"
)

// UserFinder resolves a share recipient by email. Defined here so the tags
// plugin does not depend on the whole auth service.
type UserFinder interface {
	FindUserByEmail(ctx context.Context, email string) (*UserRef, error)
}

// userFinderAdapter adapts auth.UserRepository to UserFinder.
type userFinderAdapter struct {
	repo auth.UserRepository
}

// NewUserFinderAdapter wraps an auth user repository.
func NewUserFinderAdapter(repo auth.UserRepository) UserFinder {
	return &userFinderAdapter{repo: repo}
}

// FindUserByEmail looks the user up case-insensitively. An unknown email
// surfaces as the repository's 404.
func (a *userFinderAdapter) FindUserByEmail(ctx context.Context, email string) (*UserRef, error) {
	u, err := a.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	ref := u.Public()
	return &ref, nil
}
