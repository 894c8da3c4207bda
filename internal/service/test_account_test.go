package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shinker1002/seb40-main-019/internal/domain"
	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
)

func TestIssueEphemeralTestAccount_RejectsRole(t *testing.T) {
	svc := newTestAccountService(new(mockUserRepository), new(mockTokenStore))

	for _, role := range []string{domain.RoleUser, domain.RoleAdmin, ""} {
		_, err := svc.IssueEphemeralTestAccount(context.Background(), role)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, role)
	}
}

func TestIssueEphemeralTestAccount_Success(t *testing.T) {
	users, tokens := new(mockUserRepository), new(mockTokenStore)
	svc := newTestAccountService(users, tokens)
	ctx := context.Background()

	var created *domain.User
	users.On("CountByRole", ctx, domain.RoleAdminTest).Return(int64(3), nil).Once()
	users.On("Create", ctx, mock.AnythingOfType("*domain.User"), testSignupBonus).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.User) }).
		Return(nil)

	creds, err := svc.IssueEphemeralTestAccount(ctx, domain.RoleAdminTest)
	require.NoError(t, err)

	assert.Equal(t, "admin4@test.com", creds.Email)
	assert.Equal(t, "admin4", created.Nickname)
	assert.Equal(t, domain.RoleAdminTest, created.Role)
	assert.Equal(t, domain.StatusActive, created.Status)
	assert.Equal(t, domain.OriginOriginal, created.Origin)
	assert.Len(t, creds.Password, testPasswordLength)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte(creds.Password)))

	creds, err = svc.IssueEphemeralTestAccount(ctx, domain.RoleAdminTest)
	require.NoError(t, err)
	assert.Equal(t, "admin5@test.com", creds.Email)

	// The counter is seeded only once.
	users.AssertNumberOfCalls(t, "CountByRole", 1)
}

func TestIssueEphemeralTestAccount_RetriesOnConflict(t *testing.T) {
	users, tokens := new(mockUserRepository), new(mockTokenStore)
	svc := newTestAccountService(users, tokens)
	ctx := context.Background()

	users.On("CountByRole", ctx, domain.RoleUserTest).Return(int64(0), nil)
	users.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool { return u.Nickname == "guest1" }), testSignupBonus).
		Return(domain.ErrEmailDuplication)
	users.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool { return u.Nickname == "guest2" }), testSignupBonus).
		Return(nil)

	creds, err := svc.IssueEphemeralTestAccount(ctx, domain.RoleUserTest)
	require.NoError(t, err)
	assert.Equal(t, "guest2@test.com", creds.Email)
}

func TestIssueEphemeralTestAccount_GivesUp(t *testing.T) {
	users, tokens := new(mockUserRepository), new(mockTokenStore)
	svc := newTestAccountService(users, tokens)
	ctx := context.Background()

	users.On("CountByRole", ctx, domain.RoleUserTest).Return(int64(0), nil)
	users.On("Create", ctx, mock.Anything, testSignupBonus).Return(domain.ErrNicknameDuplication)

	_, err := svc.IssueEphemeralTestAccount(ctx, domain.RoleUserTest)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	users.AssertNumberOfCalls(t, "Create", maxTestAccountAttempts)
}

func TestIssueEphemeralTestAccount_ConcurrentCallsGetDistinctNumbers(t *testing.T) {
	users, tokens := new(mockUserRepository), new(mockTokenStore)
	svc := newTestAccountService(users, tokens)
	ctx := context.Background()

	var nextID atomic.Int64
	users.On("CountByRole", ctx, domain.RoleUserTest).Return(int64(10), nil)
	users.On("Create", ctx, mock.Anything, testSignupBonus).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.User).ID = nextID.Add(1) }).
		Return(nil)

	const workers = 32
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		emails = make(map[string]struct{}, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			creds, err := svc.IssueEphemeralTestAccount(ctx, domain.RoleUserTest)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			emails[creds.Email] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, emails, workers)
	for email := range emails {
		assert.True(t, strings.HasPrefix(email, "guest"))
		assert.NotEqual(t, "guest10@test.com", email)
	}
	users.AssertNumberOfCalls(t, "CountByRole", 1)
}

func TestSeedTestAccountCounters(t *testing.T) {
	users, tokens := new(mockUserRepository), new(mockTokenStore)
	svc := newTestAccountService(users, tokens)
	ctx := context.Background()

	users.On("CountByRole", ctx, domain.RoleUserTest).Return(int64(2), nil).Once()
	users.On("CountByRole", ctx, domain.RoleAdminTest).Return(int64(0), nil).Once()
	require.NoError(t, svc.SeedTestAccountCounters(ctx))

	users.On("Create", ctx, mock.Anything, testSignupBonus).Return(nil)
	creds, err := svc.IssueEphemeralTestAccount(ctx, domain.RoleUserTest)
	require.NoError(t, err)
	assert.Equal(t, "guest3@test.com", creds.Email)

	creds, err = svc.IssueEphemeralTestAccount(ctx, domain.RoleAdminTest)
	require.NoError(t, err)
	assert.Equal(t, "admin1@test.com", creds.Email)
	users.AssertExpectations(t)
}

func TestPurgeTestAccounts(t *testing.T) {
	users, tokens := new(mockUserRepository), new(mockTokenStore)
	svc := newTestAccountService(users, tokens)
	ctx := context.Background()

	users.On("CountByRole", ctx, domain.RoleUserTest).Return(int64(0), nil)
	users.On("Create", ctx, mock.Anything, testSignupBonus).Return(nil)
	users.On("PurgeByRoles", ctx, domain.TestRoles).Return([]int64{4, 5}, nil)
	tokens.On("DeleteMany", ctx, []int64{4, 5}).Return(nil)

	_, err := svc.IssueEphemeralTestAccount(ctx, domain.RoleUserTest)
	require.NoError(t, err)

	n, err := svc.PurgeTestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	tokens.AssertExpectations(t)

	// Numbering continues after a purge.
	creds, err := svc.IssueEphemeralTestAccount(ctx, domain.RoleUserTest)
	require.NoError(t, err)
	assert.Equal(t, "guest2@test.com", creds.Email)
}

func TestPurgeTestAccounts_NothingToPurge(t *testing.T) {
	users, tokens := new(mockUserRepository), new(mockTokenStore)
	svc := newTestAccountService(users, tokens)
	ctx := context.Background()

	users.On("PurgeByRoles", ctx, domain.TestRoles).Return([]int64{}, nil)

	n, err := svc.PurgeTestAccounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	tokens.AssertNotCalled(t, "DeleteMany", mock.Anything, mock.Anything)
}

func TestRandomPassword(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		p, err := randomPassword(testPasswordLength)
		require.NoError(t, err)
		assert.Len(t, p, testPasswordLength)
		for _, c := range p {
			assert.True(t, strings.ContainsRune(passwordAlphabet, c))
		}
		seen[p] = struct{}{}
	}
	assert.Greater(t, len(seen), 45)
}
