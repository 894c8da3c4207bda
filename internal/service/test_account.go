package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/bcrypt"

	"github.com/shinker1002/seb40-main-019/internal/domain"
	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
)

const (
	testAccountDomain      = "test.com"
	testPasswordLength     = 8
	maxTestAccountAttempts = 5
	passwordAlphabet       = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// roleCounter hands out test account numbers for one role. It is seeded
// once from the database and then only moves forward, purges included.
type roleCounter struct {
	mu     sync.Mutex
	seeded atomic.Bool
	next   atomic.Int64
}

func (c *roleCounter) ensureSeeded(ctx context.Context, count func(context.Context) (int64, error)) error {
	if c.seeded.Load() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seeded.Load() {
		return nil
	}
	n, err := count(ctx)
	if err != nil {
		return err
	}
	c.next.Store(n + 1)
	c.seeded.Store(true)
	return nil
}

func (c *roleCounter) allocate(ctx context.Context, count func(context.Context) (int64, error)) (int64, error) {
	if err := c.ensureSeeded(ctx, count); err != nil {
		return 0, err
	}
	return c.next.Add(1) - 1, nil
}

// SeedTestAccountCounters primes every role counter with the number of
// existing accounts of that role. Counters seed lazily when this is skipped.
func (s *AccountService) SeedTestAccountCounters(ctx context.Context) error {
	for role, c := range s.counters {
		if err := c.ensureSeeded(ctx, s.countRole(role)); err != nil {
			return fmt.Errorf("seed %s counter: %w", role, err)
		}
	}
	return nil
}

func (s *AccountService) countRole(role string) func(context.Context) (int64, error) {
	return func(ctx context.Context) (int64, error) {
		return s.users.CountByRole(ctx, role)
	}
}

// IssueEphemeralTestAccount creates a disposable account for role and
// returns its one-time credentials.
func (s *AccountService) IssueEphemeralTestAccount(ctx context.Context, role string) (*domain.TestAccountCredentials, error) {
	prefix, ok := domain.TestAccountPrefix(role)
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("role %q is not a test role", role))
	}
	counter := s.counters[role]

	password, err := randomPassword(testPasswordLength)
	if err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	for attempt := 1; ; attempt++ {
		n, err := counter.allocate(ctx, s.countRole(role))
		if err != nil {
			return nil, fmt.Errorf("allocate test account number: %w", err)
		}

		now := s.now()
		u := &domain.User{
			Email:        fmt.Sprintf("%s%d@%s", prefix, n, testAccountDomain),
			Nickname:     fmt.Sprintf("%s%d", prefix, n),
			PasswordHash: string(hash),
			Role:         role,
			Status:       domain.StatusActive,
			Origin:       domain.OriginOriginal,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		err = s.users.Create(ctx, u, s.signupBonus)
		if err == nil {
			testAccountsIssued.WithLabelValues(role).Inc()
			s.logger.InfoContext(ctx, "test account issued",
				slog.Int64("user_id", u.ID),
				slog.String("role", role),
				slog.String("email", u.Email),
			)
			return &domain.TestAccountCredentials{Email: u.Email, Password: password}, nil
		}

		if !errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, fmt.Errorf("create test account: %w", err)
		}
		if attempt == maxTestAccountAttempts {
			return nil, fmt.Errorf("create test account after %d attempts: %w", attempt, err)
		}
		s.logger.WarnContext(ctx, "test account identifier taken, retrying",
			slog.String("email", u.Email),
			slog.Int("attempt", attempt),
		)
	}
}

// PurgeTestAccounts removes every test account with its reviews and point
// history and drops their refresh tokens. Counters keep their position.
func (s *AccountService) PurgeTestAccounts(ctx context.Context) (int, error) {
	ids, err := s.users.PurgeByRoles(ctx, domain.TestRoles)
	if err != nil {
		return 0, fmt.Errorf("purge test accounts: %w", err)
	}

	if len(ids) > 0 {
		if err := s.tokens.DeleteMany(ctx, ids); err != nil {
			s.logger.WarnContext(ctx, "failed to drop refresh tokens of purged accounts",
				slog.Int("count", len(ids)),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishTestAccountsPurged(ctx, ids); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.test_accounts_purged event",
			slog.String("error", err.Error()),
		)
	}

	testAccountsPurged.Add(float64(len(ids)))
	s.logger.InfoContext(ctx, "test accounts purged", slog.Int("count", len(ids)))
	return len(ids), nil
}

// randomPassword returns n characters drawn uniformly from passwordAlphabet.
func randomPassword(n int) (string, error) {
	const limit = 256 - 256%len(passwordAlphabet)

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, passwordAlphabet[int(b)%len(passwordAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
