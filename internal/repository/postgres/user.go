package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/shinker1002/seb40-main-019/internal/domain"
	"github.com/shinker1002/seb40-main-019/pkg/database"
	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
)

// constraintActiveNickname is the partial unique index on active nicknames.
const constraintActiveNickname = "users_active_nickname_key"

const userColumns = `id, email, nickname, password_hash, phone, address, role, status, origin, profile_image, points, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	pool database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new account and its signup bonus.
func (r *UserRepository) Create(ctx context.Context, u *domain.User, signupBonus int64) error {
	query := `
		INSERT INTO users (email, nickname, password_hash, phone, address, role, status, origin, profile_image, points, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	return database.WithTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query,
			u.Email,
			u.Nickname,
			u.PasswordHash,
			u.Phone,
			u.Address,
			u.Role,
			u.Status,
			u.Origin,
			u.ProfileImage,
			signupBonus,
			u.CreatedAt,
			u.UpdatedAt,
		).Scan(&u.ID)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return duplicationError(err)
			}
			return fmt.Errorf("insert user: %w", err)
		}
		u.Points = signupBonus

		return insertPointHistory(ctx, tx, u.ID, signupBonus, domain.PointReasonSignupBonus)
	})
}

// Reactivate reclaims a deactivated account for a new signup.
func (r *UserRepository) Reactivate(ctx context.Context, u *domain.User, signupBonus int64) error {
	query := `
		UPDATE users
		SET nickname = $1, password_hash = $2, phone = $3, address = $4, role = $5,
		    status = 'ACTIVE', points = points + $6, updated_at = $7
		WHERE id = $8 AND status = 'DEACTIVATED'
		RETURNING points`

	return database.WithTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, query,
			u.Nickname,
			u.PasswordHash,
			u.Phone,
			u.Address,
			u.Role,
			signupBonus,
			u.UpdatedAt,
			u.ID,
		).Scan(&u.Points)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("user", strconv.FormatInt(u.ID, 10))
			}
			if database.IsUniqueViolation(err) {
				return duplicationError(err)
			}
			return fmt.Errorf("reactivate user: %w", err)
		}
		u.Status = domain.StatusActive

		return insertPointHistory(ctx, tx, u.ID, signupBonus, domain.PointReasonSignupBonus)
	})
}

// GetByID retrieves an account by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, strconv.FormatInt(id, 10), query, id)
}

// GetActiveOriginalByEmail retrieves the active password account for email.
func (r *UserRepository) GetActiveOriginalByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1) AND status = 'ACTIVE' AND origin = 'original'`
	return r.scanUser(ctx, email, query, email)
}

// GetDeactivatedOriginalByEmail retrieves the newest deactivated password
// account for email.
func (r *UserRepository) GetDeactivatedOriginalByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1) AND status = 'DEACTIVATED' AND origin = 'original'
		ORDER BY id DESC
		LIMIT 1`
	return r.scanUser(ctx, email, query, email)
}

// EmailInUse reports whether an active password account uses email.
func (r *UserRepository) EmailInUse(ctx context.Context, email string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM users
			WHERE lower(email) = lower($1) AND status = 'ACTIVE' AND origin = 'original'
		)`
	return r.exists(ctx, "email", query, email)
}

// NicknameInUse reports whether an active password account uses nickname.
func (r *UserRepository) NicknameInUse(ctx context.Context, nickname string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM users
			WHERE nickname = $1 AND status = 'ACTIVE' AND origin = 'original'
		)`
	return r.exists(ctx, "nickname", query, nickname)
}

// Deactivate marks the account DEACTIVATED.
func (r *UserRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE users SET status = 'DEACTIVATED', updated_at = now() WHERE id = $1`

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

// HardDelete removes the account row and its point history. Reviews are
// removed by the foreign key cascade.
func (r *UserRepository) HardDelete(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM point_histories WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("delete point history: %w", err)
		}
		ct, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil
	})
}

// CountByRole counts accounts with role.
func (r *UserRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE role = $1`, role).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return n, nil
}

// PurgeByRoles deletes accounts with any of roles and everything they own.
func (r *UserRepository) PurgeByRoles(ctx context.Context, roles []string) ([]int64, error) {
	var ids []int64

	err := database.WithTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id FROM users WHERE role = ANY($1) FOR UPDATE`, roles)
		if err != nil {
			return fmt.Errorf("select purge targets: %w", err)
		}
		ids, err = pgx.CollectRows(rows, pgx.RowTo[int64])
		if err != nil {
			return fmt.Errorf("scan purge targets: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		for _, stmt := range []struct{ name, query string }{
			{"reviews", `DELETE FROM reviews WHERE user_id = ANY($1)`},
			{"point history", `DELETE FROM point_histories WHERE user_id = ANY($1)`},
			{"users", `DELETE FROM users WHERE id = ANY($1)`},
		} {
			if _, err := tx.Exec(ctx, stmt.query, ids); err != nil {
				return fmt.Errorf("purge %s: %w", stmt.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *UserRepository) exists(ctx context.Context, field, query string, arg any) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("check user %s: %w", field, err)
	}
	return ok, nil
}

// scanUser executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, key, query string, args ...any) (*domain.User, error) {
	var u domain.User

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.Nickname,
		&u.PasswordHash,
		&u.Phone,
		&u.Address,
		&u.Role,
		&u.Status,
		&u.Origin,
		&u.ProfileImage,
		&u.Points,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", key)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func insertPointHistory(ctx context.Context, tx pgx.Tx, userID, amount int64, reason string) error {
	if amount == 0 {
		return nil
	}
	query := `INSERT INTO point_histories (user_id, amount, reason) VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, query, userID, amount, reason); err != nil {
		return fmt.Errorf("insert point history: %w", err)
	}
	return nil
}

func duplicationError(err error) error {
	name := database.ConstraintName(err)
	if name == constraintActiveNickname || strings.Contains(err.Error(), constraintActiveNickname) {
		return domain.ErrNicknameDuplication
	}
	return domain.ErrEmailDuplication
}
