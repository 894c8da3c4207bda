package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/shinker1002/seb40-main-019/internal/auth"
	"github.com/shinker1002/seb40-main-019/internal/domain"
	"github.com/shinker1002/seb40-main-019/internal/event"
	pkgkafka "github.com/shinker1002/seb40-main-019/pkg/kafka"
	"github.com/shinker1002/seb40-main-019/pkg/logger"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, u *domain.User, signupBonus int64) error {
	args := m.Called(ctx, u, signupBonus)
	return args.Error(0)
}

func (m *mockUserRepository) Reactivate(ctx context.Context, u *domain.User, signupBonus int64) error {
	args := m.Called(ctx, u, signupBonus)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetActiveOriginalByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetDeactivatedOriginalByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) EmailInUse(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) NicknameInUse(ctx context.Context, nickname string) (bool, error) {
	args := m.Called(ctx, nickname)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepository) HardDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	args := m.Called(ctx, role)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUserRepository) PurgeByRoles(ctx context.Context, roles []string) ([]int64, error) {
	args := m.Called(ctx, roles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// --- Mock Refresh Token Store ---

type mockTokenStore struct {
	mock.Mock
}

func (m *mockTokenStore) Save(ctx context.Context, rec *domain.RefreshTokenRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockTokenStore) Delete(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockTokenStore) DeleteMany(ctx context.Context, userIDs []int64) error {
	args := m.Called(ctx, userIDs)
	return args.Error(0)
}

// --- Test Helpers ---

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

const testSignupBonus = int64(1_000_000)

func newTestLogger() *slog.Logger {
	return logger.New("test", "error")
}

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager(
		"test-access-secret-that-is-long-enough",
		"test-refresh-secret-that-is-long-enough",
		15*time.Minute,
		time.Hour,
	)
}

func newTestProducer() *event.Producer {
	return event.NewProducer(nopPublisher{}, newTestLogger())
}

func newTestAccountService(users *mockUserRepository, tokens *mockTokenStore) *AccountService {
	return NewAccountService(users, tokens, newTestTokenManager(), newTestProducer(), newTestLogger(),
		AccountOptions{SignupBonus: testSignupBonus, BcryptCost: bcrypt.MinCost})
}

// hashForTest creates a bcrypt hash with the minimum cost for fast tests.
func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func activeUser(id int64) *domain.User {
	return &domain.User{
		ID:       id,
		Email:    "user@example.com",
		Nickname: "user",
		Role:     domain.RoleUser,
		Status:   domain.StatusActive,
		Origin:   domain.OriginOriginal,
	}
}
