package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/shinker1002/seb40-main-019/internal/domain"
	"github.com/shinker1002/seb40-main-019/pkg/database"
	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
)

const reviewColumns = `r.id, r.user_id, r.product_id, r.order_product_id, r.writer_nickname, r.product_name,
		       r.title_image, r.content, r.star, r.image_url, r.created_at, r.updated_at`

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// CreateForOrderLine marks the order line WRITTEN and inserts the review in
// one READ COMMITTED transaction. Every line of the (user, product) pair is
// locked first, so a pair reviewed through any of its lines is rejected and
// of two concurrent callers the second blocks until the first commits, then
// sees the WRITTEN status.
func (r *ReviewRepository) CreateForOrderLine(ctx context.Context, rv *domain.Review) (err error) {
	lock := `
		SELECT op.review_status
		FROM order_products op
		JOIN orders o ON o.id = op.order_id
		WHERE o.user_id = $1 AND op.product_id = $2
		ORDER BY op.id
		FOR UPDATE OF op`

	flip := `
		UPDATE order_products
		SET review_status = 'WRITTEN'
		WHERE id = $1 AND review_status = 'NOT_WRITTEN'`

	insert := `
		INSERT INTO reviews (user_id, product_id, order_product_id, writer_nickname, product_name,
		                     title_image, content, star, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	ctx, end := database.TraceQuery(ctx, "CreateReview", insert)
	defer func() { end(err) }()

	return database.WithTx(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		reviewed, err := pairReviewed(ctx, tx, lock, rv.UserID, rv.ProductID)
		if err != nil {
			return err
		}
		if reviewed {
			return domain.ErrReviewDuplication
		}

		ct, err := tx.Exec(ctx, flip, rv.OrderLineID)
		if err != nil {
			return fmt.Errorf("mark order line written: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return domain.ErrReviewDuplication
		}

		err = tx.QueryRow(ctx, insert,
			rv.UserID,
			rv.ProductID,
			rv.OrderLineID,
			rv.WriterNickname,
			rv.ProductName,
			rv.TitleImage,
			rv.Content,
			rv.Star,
			rv.ImageURL,
			rv.CreatedAt,
			rv.UpdatedAt,
		).Scan(&rv.ID)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return domain.ErrReviewDuplication
			}
			return fmt.Errorf("insert review: %w", err)
		}
		return nil
	})
}

func pairReviewed(ctx context.Context, tx pgx.Tx, query string, userID, productID int64) (bool, error) {
	rows, err := tx.Query(ctx, query, userID, productID)
	if err != nil {
		return false, fmt.Errorf("lock order lines: %w", err)
	}
	defer rows.Close()

	reviewed := false
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return false, fmt.Errorf("scan order line status: %w", err)
		}
		if status == domain.ReviewWritten {
			reviewed = true
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterate order lines: %w", err)
	}
	return reviewed, nil
}

// GetByID retrieves a review by id.
func (r *ReviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews r WHERE r.id = $1`

	rv, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return rv, nil
}

// Update persists the mutable fields of a review.
func (r *ReviewRepository) Update(ctx context.Context, rv *domain.Review) error {
	query := `
		UPDATE reviews
		SET content = $1, star = $2, image_url = $3, updated_at = $4
		WHERE id = $5`

	ct, err := r.pool.Exec(ctx, query, rv.Content, rv.Star, rv.ImageURL, rv.UpdatedAt, rv.ID)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", strconv.FormatInt(rv.ID, 10))
	}
	return nil
}

// Delete removes a review. The order line keeps its WRITTEN status.
func (r *ReviewRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", strconv.FormatInt(id, 10))
	}
	return nil
}

// ListByUser returns reviews written by userID.
func (r *ReviewRepository) ListByUser(ctx context.Context, userID int64, page, size int) ([]domain.Review, int, error) {
	query := `
		SELECT ` + reviewColumns + `, count(*) OVER() AS total_count
		FROM reviews r
		WHERE r.user_id = $1
		ORDER BY r.id DESC
		LIMIT $2 OFFSET $3`
	count := `SELECT count(*) FROM reviews r WHERE r.user_id = $1`
	return r.list(ctx, query, count, userID, page, size)
}

// ListByProduct returns reviews of productID.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID int64, page, size int) ([]domain.Review, int, error) {
	query := `
		SELECT ` + reviewColumns + `, count(*) OVER() AS total_count
		FROM reviews r
		WHERE r.product_id = $1
		ORDER BY r.id DESC
		LIMIT $2 OFFSET $3`
	count := `SELECT count(*) FROM reviews r WHERE r.product_id = $1`
	return r.list(ctx, query, count, productID, page, size)
}

// ListBySeller returns reviews of every product sold by sellerID.
func (r *ReviewRepository) ListBySeller(ctx context.Context, sellerID int64, page, size int) ([]domain.Review, int, error) {
	query := `
		SELECT ` + reviewColumns + `, count(*) OVER() AS total_count
		FROM reviews r
		JOIN products p ON p.id = r.product_id
		WHERE p.seller_id = $1
		ORDER BY r.id DESC
		LIMIT $2 OFFSET $3`
	count := `SELECT count(*) FROM reviews r JOIN products p ON p.id = r.product_id WHERE p.seller_id = $1`
	return r.list(ctx, query, count, sellerID, page, size)
}

// list runs query for one page. The window count is absent when the page
// lies past the end, so countQuery supplies the total in that case.
func (r *ReviewRepository) list(ctx context.Context, query, countQuery string, key int64, page, size int) ([]domain.Review, int, error) {
	offset := (page - 1) * size
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, query, key, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.UserID,
			&rv.ProductID,
			&rv.OrderLineID,
			&rv.WriterNickname,
			&rv.ProductName,
			&rv.TitleImage,
			&rv.Content,
			&rv.Star,
			&rv.ImageURL,
			&rv.CreatedAt,
			&rv.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
		if offset > 0 {
			if err := r.pool.QueryRow(ctx, countQuery, key).Scan(&totalCount); err != nil {
				return nil, 0, fmt.Errorf("count reviews: %w", err)
			}
		}
	}
	return reviews, totalCount, nil
}

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rv domain.Review
	err := row.Scan(
		&rv.ID,
		&rv.UserID,
		&rv.ProductID,
		&rv.OrderLineID,
		&rv.WriterNickname,
		&rv.ProductName,
		&rv.TitleImage,
		&rv.Content,
		&rv.Star,
		&rv.ImageURL,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}
