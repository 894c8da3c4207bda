package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shinker1002/seb40-main-019/internal/auth"
	"github.com/shinker1002/seb40-main-019/internal/domain"
	"github.com/shinker1002/seb40-main-019/internal/event"
	"github.com/shinker1002/seb40-main-019/internal/repository"
	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
	"github.com/shinker1002/seb40-main-019/pkg/middleware"
)

// defaultBcryptCost is used when AccountOptions leaves the cost unset.
const defaultBcryptCost = 12

// AccountOptions tunes an AccountService.
type AccountOptions struct {
	SignupBonus int64
	BcryptCost  int
}

// AccountService manages credentials and account lifecycle: token issue,
// refresh, logout, signup, removal and disposable test accounts.
type AccountService struct {
	users    repository.UserRepository
	tokens   repository.RefreshTokenStore
	jwt      *auth.TokenManager
	producer *event.Producer
	logger   *slog.Logger

	signupBonus int64
	bcryptCost  int
	counters    map[string]*roleCounter
	now         func() time.Time
}

// NewAccountService creates a new account service.
func NewAccountService(
	users repository.UserRepository,
	tokens repository.RefreshTokenStore,
	jwt *auth.TokenManager,
	producer *event.Producer,
	logger *slog.Logger,
	opts AccountOptions,
) *AccountService {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = defaultBcryptCost
	}
	counters := make(map[string]*roleCounter, len(domain.TestRoles))
	for _, role := range domain.TestRoles {
		counters[role] = &roleCounter{}
	}
	return &AccountService{
		users:       users,
		tokens:      tokens,
		jwt:         jwt,
		producer:    producer,
		logger:      logger,
		signupBonus: opts.SignupBonus,
		bcryptCost:  cost,
		counters:    counters,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SignupInput holds the parameters of a password signup.
type SignupInput struct {
	Email    string
	Nickname string
	Password string
	Phone    string
	Address  string
}

// --- Token lifecycle ---

// IssueTokenPair signs an access and a refresh token for u and stores the
// refresh token's hash, replacing any previous record.
func (s *AccountService) IssueTokenPair(ctx context.Context, u *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, expiresAt, err := s.jwt.GenerateRefreshToken(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	rec := &domain.RefreshTokenRecord{
		UserID:    u.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: expiresAt,
	}
	if err := s.tokens.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	tokensIssued.WithLabelValues("access").Inc()
	tokensIssued.WithLabelValues("refresh").Inc()

	return &domain.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// RefreshAccessToken signs a new access token from a valid refresh token.
// The refresh token itself is not rotated and the stored record is not
// consulted.
func (s *AccountService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, *domain.User, error) {
	if refreshToken == "" {
		return "", nil, domain.ErrTokenInvalid
	}

	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", nil, err
	}

	u, err := s.loadActiveUser(ctx, claims.UserID)
	if err != nil {
		return "", nil, err
	}

	accessToken, err := s.jwt.GenerateAccessToken(u.ID, u.Role)
	if err != nil {
		return "", nil, fmt.Errorf("generate access token: %w", err)
	}
	tokensIssued.WithLabelValues("access").Inc()

	s.logger.InfoContext(ctx, "access token refreshed", slog.Int64("user_id", u.ID))

	return accessToken, u, nil
}

// ResolveCurrentUser returns the account of the authenticated principal.
func (s *AccountService) ResolveCurrentUser(ctx context.Context) (*domain.User, error) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrAuthenticationRequired
	}
	return s.loadActiveUser(ctx, userID)
}

// GetMe returns the profile of the authenticated principal.
func (s *AccountService) GetMe(ctx context.Context) (*domain.User, error) {
	return s.ResolveCurrentUser(ctx)
}

// Logout drops the refresh token record of userID.
func (s *AccountService) Logout(ctx context.Context, userID int64) error {
	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}

	existed, err := s.tokens.Delete(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	if !existed {
		return domain.ErrAlreadyLoggedOut
	}

	s.logger.InfoContext(ctx, "user logged out", slog.Int64("user_id", userID))
	return nil
}

// Login authenticates an active password account.
func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.TokenPair, *domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, domain.ErrInvalidCredentials
	}

	u, err := s.users.GetActiveOriginalByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	tokens, err := s.IssueTokenPair(ctx, u)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.Int64("user_id", u.ID))
	return tokens, u, nil
}

// --- Account lifecycle ---

// Signup creates a password account, or reclaims a deactivated one with the
// same email, and grants the signup bonus.
func (s *AccountService) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	email := normalizeEmail(input.Email)
	nickname := strings.TrimSpace(input.Nickname)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if nickname == "" {
		return nil, apperrors.InvalidInput("nickname is required")
	}
	if input.Password == "" {
		return nil, apperrors.InvalidInput("password is required")
	}

	inUse, err := s.users.EmailInUse(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if inUse {
		return nil, domain.ErrEmailDuplication
	}
	inUse, err = s.users.NicknameInUse(ctx, nickname)
	if err != nil {
		return nil, fmt.Errorf("check nickname: %w", err)
	}
	if inUse {
		return nil, domain.ErrNicknameDuplication
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	reclaimed := false

	u, err := s.users.GetDeactivatedOriginalByEmail(ctx, email)
	switch {
	case err == nil:
		u.Nickname = nickname
		u.PasswordHash = string(hash)
		u.Phone = input.Phone
		u.Address = input.Address
		u.Role = domain.RoleUser
		u.UpdatedAt = now
		if err := s.users.Reactivate(ctx, u, s.signupBonus); err != nil {
			return nil, fmt.Errorf("reactivate user: %w", err)
		}
		reclaimed = true
	case errors.Is(err, apperrors.ErrNotFound):
		u = &domain.User{
			Email:        email,
			Nickname:     nickname,
			PasswordHash: string(hash),
			Phone:        input.Phone,
			Address:      input.Address,
			Role:         domain.RoleUser,
			Status:       domain.StatusActive,
			Origin:       domain.OriginOriginal,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.Create(ctx, u, s.signupBonus); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	default:
		return nil, fmt.Errorf("find deactivated account: %w", err)
	}

	if err := s.producer.PublishUserSignedUp(ctx, u, reclaimed, s.signupBonus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.signed_up event",
			slog.Int64("user_id", u.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user signed up",
		slog.Int64("user_id", u.ID),
		slog.Bool("reclaimed", reclaimed),
	)
	return u, nil
}

// DeleteAccount removes the account of userID with the strategy its origin
// calls for and drops its refresh token.
func (s *AccountService) DeleteAccount(ctx context.Context, userID int64) error {
	u, err := s.loadActiveUser(ctx, userID)
	if err != nil {
		return err
	}

	strategy := removalFor(u)
	if err := strategy.Remove(ctx, s.users, u); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("remove account: %w", err)
	}

	if _, err := s.tokens.Delete(ctx, u.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to drop refresh token of removed account",
			slog.Int64("user_id", u.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishUserDeleted(ctx, u, strategy.Hard()); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deleted event",
			slog.Int64("user_id", u.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account removed",
		slog.Int64("user_id", u.ID),
		slog.String("origin", u.Origin),
		slog.Bool("hard", strategy.Hard()),
	)
	return nil
}

// --- helpers ---

// getUser loads a user of any status.
func (s *AccountService) getUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// loadActiveUser treats a deactivated account as missing.
func (s *AccountService) loadActiveUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsActive() {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

// hashToken returns the SHA256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
