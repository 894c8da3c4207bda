package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinker1002/seb40-main-019/internal/domain"
	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
)

func TestProductRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery("FROM products WHERE id").WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "seller_id", "name", "title_image"}).
			AddRow(int64(7), int64(3), "Used bicycle", "bike.png"))
	mock.ExpectQuery("FROM products WHERE id").WithArgs(int64(8)).WillReturnError(pgx.ErrNoRows)

	p, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, &domain.Product{ID: 7, SellerID: 3, Name: "Used bicycle", TitleImage: "bike.png"}, p)

	_, err = repo.GetByID(context.Background(), 8)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderLineRepository_GetByUserAndProduct(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewOrderLineRepository(mock)

	mock.ExpectQuery("FROM order_products op").WithArgs(int64(11), int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "order_id", "product_id", "user_id", "review_status"}).
			AddRow(int64(31), int64(2), int64(7), int64(11), domain.ReviewNotWritten))
	mock.ExpectQuery("FROM order_products op").WithArgs(int64(11), int64(8)).WillReturnError(pgx.ErrNoRows)

	line, err := repo.GetByUserAndProduct(context.Background(), 11, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(31), line.ID)
	assert.False(t, line.Reviewed())

	_, err = repo.GetByUserAndProduct(context.Background(), 11, 8)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderLineRepository_GetByUserAndProduct_WrittenLineFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewOrderLineRepository(mock)

	mock.ExpectQuery(`ORDER BY \(op.review_status = 'WRITTEN'\) DESC`).WithArgs(int64(11), int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "order_id", "product_id", "user_id", "review_status"}).
			AddRow(int64(30), int64(1), int64(7), int64(11), domain.ReviewWritten))

	line, err := repo.GetByUserAndProduct(context.Background(), 11, 7)
	require.NoError(t, err)
	assert.True(t, line.Reviewed())
	assert.NoError(t, mock.ExpectationsWereMet())
}
