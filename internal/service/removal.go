package service

import (
	"context"

	"github.com/shinker1002/seb40-main-019/internal/domain"
	"github.com/shinker1002/seb40-main-019/internal/repository"
)

// RemovalStrategy is the terminal outcome of deleting an account.
type RemovalStrategy interface {
	Remove(ctx context.Context, users repository.UserRepository, u *domain.User) error
	// Hard reports whether the account row is destroyed.
	Hard() bool
}

// softRemoval deactivates password accounts so the email can be reclaimed.
type softRemoval struct{}

func (softRemoval) Remove(ctx context.Context, users repository.UserRepository, u *domain.User) error {
	return users.Deactivate(ctx, u.ID)
}

func (softRemoval) Hard() bool { return false }

// hardRemoval destroys external-provider accounts and their point history.
type hardRemoval struct{}

func (hardRemoval) Remove(ctx context.Context, users repository.UserRepository, u *domain.User) error {
	return users.HardDelete(ctx, u.ID)
}

func (hardRemoval) Hard() bool { return true }

func removalFor(u *domain.User) RemovalStrategy {
	if u.IsOriginal() {
		return softRemoval{}
	}
	return hardRemoval{}
}
