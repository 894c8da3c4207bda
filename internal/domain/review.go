package domain

import (
	"time"
)

// Product is the read-only view of a listed product.
type Product struct {
	ID         int64  `json:"id"`
	SellerID   int64  `json:"seller_id"`
	Name       string `json:"name"`
	TitleImage string `json:"title_image"`
}

// Review status of an order line. A line only moves NOT_WRITTEN -> WRITTEN.
const (
	ReviewNotWritten = "NOT_WRITTEN"
	ReviewWritten    = "WRITTEN"
)

// OrderLine is one purchased product within an order.
type OrderLine struct {
	ID           int64  `json:"id"`
	OrderID      int64  `json:"order_id"`
	ProductID    int64  `json:"product_id"`
	UserID       int64  `json:"user_id"`
	ReviewStatus string `json:"review_status"`
}

// Reviewed reports whether a review has been written for the line.
func (l *OrderLine) Reviewed() bool {
	return l.ReviewStatus == ReviewWritten
}

// Star rating bounds.
const (
	MinStar = 1
	MaxStar = 5
)

// Review is a buyer's review of a purchased product. WriterNickname,
// ProductName and TitleImage are copied at creation and never refreshed.
type Review struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	ProductID      int64     `json:"product_id"`
	OrderLineID    int64     `json:"order_line_id"`
	WriterNickname string    `json:"writer_nickname"`
	ProductName    string    `json:"product_name"`
	TitleImage     string    `json:"title_image"`
	Content        string    `json:"content"`
	Star           int       `json:"star"`
	ImageURL       string    `json:"image_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ReviewPage is one page of reviews.
type ReviewPage struct {
	Items         []Review `json:"items"`
	PageNumber    int      `json:"page_number"`
	PageSize      int      `json:"page_size"`
	TotalElements int      `json:"total_elements"`
	TotalPages    int      `json:"total_pages"`
}

// NewReviewPage builds a page; a nil items slice is rendered as [].
func NewReviewPage(items []Review, page, size, total int) *ReviewPage {
	if items == nil {
		items = []Review{}
	}
	totalPages := 0
	if size > 0 {
		totalPages = (total + size - 1) / size
	}
	return &ReviewPage{
		Items:         items,
		PageNumber:    page,
		PageSize:      size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
}

// Paging bounds.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// NormalizePage clamps page to >= 1 and size to 1..MaxPageSize.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}
