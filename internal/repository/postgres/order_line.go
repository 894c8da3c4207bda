package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shinker1002/seb40-main-019/internal/domain"
	"github.com/shinker1002/seb40-main-019/pkg/database"
	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
)

// OrderLineRepository reads order lines using PostgreSQL.
type OrderLineRepository struct {
	pool database.DBTX
}

// NewOrderLineRepository creates a new PostgreSQL-backed order line repository.
func NewOrderLineRepository(pool database.DBTX) *OrderLineRepository {
	return &OrderLineRepository{pool: pool}
}

// GetByUserAndProduct returns the line that decides whether userID may still
// review productID: a WRITTEN line if the pair has one, otherwise the newest.
func (r *OrderLineRepository) GetByUserAndProduct(ctx context.Context, userID, productID int64) (*domain.OrderLine, error) {
	query := `
		SELECT op.id, op.order_id, op.product_id, o.user_id, op.review_status
		FROM order_products op
		JOIN orders o ON o.id = op.order_id
		WHERE o.user_id = $1 AND op.product_id = $2
		ORDER BY (op.review_status = 'WRITTEN') DESC, op.id DESC
		LIMIT 1`

	var l domain.OrderLine
	err := r.pool.QueryRow(ctx, query, userID, productID).Scan(
		&l.ID,
		&l.OrderID,
		&l.ProductID,
		&l.UserID,
		&l.ReviewStatus,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order line", fmt.Sprintf("user=%d product=%d", userID, productID))
		}
		return nil, fmt.Errorf("get order line: %w", err)
	}
	return &l, nil
}
