package repository

import (
	"context"

	"github.com/shinker1002/seb40-main-019/internal/domain"
)

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	// Create inserts u, assigns u.ID and records the signup bonus in the
	// same transaction. A taken email or nickname yields
	// domain.ErrEmailDuplication or domain.ErrNicknameDuplication.
	Create(ctx context.Context, u *domain.User, signupBonus int64) error

	// Reactivate overwrites a deactivated account with u's profile, marks it
	// ACTIVE and records the signup bonus.
	Reactivate(ctx context.Context, u *domain.User, signupBonus int64) error

	// GetByID returns the account regardless of status.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetActiveOriginalByEmail finds the ACTIVE password account for email.
	GetActiveOriginalByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetDeactivatedOriginalByEmail finds a reclaimable account for email.
	GetDeactivatedOriginalByEmail(ctx context.Context, email string) (*domain.User, error)

	// EmailInUse and NicknameInUse only consider ACTIVE password accounts.
	EmailInUse(ctx context.Context, email string) (bool, error)
	NicknameInUse(ctx context.Context, nickname string) (bool, error)

	// Deactivate soft-deletes the account.
	Deactivate(ctx context.Context, id int64) error

	// HardDelete removes the account and its point history.
	HardDelete(ctx context.Context, id int64) error

	// CountByRole counts accounts of any status with role.
	CountByRole(ctx context.Context, role string) (int64, error)

	// PurgeByRoles deletes every account with one of roles together with its
	// reviews and point history, in one transaction, and returns the ids.
	PurgeByRoles(ctx context.Context, roles []string) ([]int64, error)
}

// ProductRepository reads products owned by the catalogue.
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

// OrderLineRepository reads order lines owned by the order system.
type OrderLineRepository interface {
	// GetByUserAndProduct returns the most recent line in which userID
	// bought productID.
	GetByUserAndProduct(ctx context.Context, userID, productID int64) (*domain.OrderLine, error)
}

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	// CreateForOrderLine flips review.OrderLineID from NOT_WRITTEN to WRITTEN
	// and inserts review in one transaction. If the flip matches no row the
	// transaction is rolled back and domain.ErrReviewDuplication is returned.
	CreateForOrderLine(ctx context.Context, review *domain.Review) error

	GetByID(ctx context.Context, id int64) (*domain.Review, error)

	// Update persists content, star and image.
	Update(ctx context.Context, review *domain.Review) error

	Delete(ctx context.Context, id int64) error

	// The list methods return one page ordered by id descending and the
	// total number of matching reviews.
	ListByUser(ctx context.Context, userID int64, page, size int) ([]domain.Review, int, error)
	ListByProduct(ctx context.Context, productID int64, page, size int) ([]domain.Review, int, error)
	ListBySeller(ctx context.Context, sellerID int64, page, size int) ([]domain.Review, int, error)
}

// RefreshTokenStore keeps at most one refresh token record per user.
type RefreshTokenStore interface {
	// Save replaces any existing record for rec.UserID.
	Save(ctx context.Context, rec *domain.RefreshTokenRecord) error

	// Delete removes the record and reports whether one existed.
	Delete(ctx context.Context, userID int64) (bool, error)

	// DeleteMany removes the records of all userIDs.
	DeleteMany(ctx context.Context, userIDs []int64) error
}
