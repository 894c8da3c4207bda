package domain

import (
	"time"
)

// Role tags carried in access tokens.
const (
	RoleUser      = "ROLE_USER"
	RoleAdmin     = "ROLE_ADMIN"
	RoleUserTest  = "ROLE_USER_TEST"
	RoleAdminTest = "ROLE_ADMIN_TEST"
)

// TestRoles are the roles of disposable accounts removed by the purge.
var TestRoles = []string{RoleUserTest, RoleAdminTest}

// IsAdminRole reports whether role may use admin endpoints.
func IsAdminRole(role string) bool {
	return role == RoleAdmin || role == RoleAdminTest
}

// TestAccountPrefix returns the email/nickname prefix for a test role.
func TestAccountPrefix(role string) (string, bool) {
	switch role {
	case RoleUserTest:
		return "guest", true
	case RoleAdminTest:
		return "admin", true
	default:
		return "", false
	}
}

// Account status.
const (
	StatusActive      = "ACTIVE"
	StatusDeactivated = "DEACTIVATED"
)

// OriginOriginal marks password accounts created through signup. Any other
// origin names an external identity provider.
const OriginOriginal = "original"

// User is a marketplace account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Nickname     string    `json:"nickname"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	Origin       string    `json:"origin"`
	ProfileImage string    `json:"profile_image,omitempty"`
	Points       int64     `json:"points"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsActive reports whether the account can authenticate.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// IsOriginal reports whether the account was created through signup.
func (u *User) IsOriginal() bool {
	return u.Origin == OriginOriginal
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshTokenRecord is the single stored refresh token of a user. Only the
// token's hash is kept.
type RefreshTokenRecord struct {
	UserID    int64     `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the record is past its expiry at now.
func (r *RefreshTokenRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// TestAccountCredentials is returned once when a test account is issued;
// the password cannot be recovered afterwards.
type TestAccountCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PointHistory records a change to a user's points.
type PointHistory struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// PointReasonSignupBonus is recorded for the bonus granted on account creation.
const PointReasonSignupBonus = "SIGNUP_BONUS"
