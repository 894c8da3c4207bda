package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shinker1002/seb40-main-019/internal/domain"
	"github.com/shinker1002/seb40-main-019/internal/event"
	"github.com/shinker1002/seb40-main-019/internal/repository"
	"github.com/shinker1002/seb40-main-019/internal/storage"
	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
)

// CreateReviewInput holds the parameters for creating a review.
type CreateReviewInput struct {
	UserID    int64
	ProductID int64
	Content   string
	Star      int
	// ImageURL is used when Image is nil.
	ImageURL string
	Image    *storage.UploadInput
}

// UpdateReviewInput holds a partial update. Nil fields are left unchanged.
// ClearImage is applied before Image.
type UpdateReviewInput struct {
	UserID     int64
	ReviewID   int64
	Content    *string
	Star       *int
	Image      *storage.UploadInput
	ClearImage bool
}

// ReviewService guards review creation and manages written reviews.
type ReviewService struct {
	reviews    repository.ReviewRepository
	users      repository.UserRepository
	products   repository.ProductRepository
	orderLines repository.OrderLineRepository
	images     storage.ImageStore
	producer   *event.Producer
	logger     *slog.Logger

	maxImageBytes int64
	now           func() time.Time
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	users repository.UserRepository,
	products repository.ProductRepository,
	orderLines repository.OrderLineRepository,
	images storage.ImageStore,
	producer *event.Producer,
	logger *slog.Logger,
	maxImageBytes int64,
) *ReviewService {
	return &ReviewService{
		reviews:       reviews,
		users:         users,
		products:      products,
		orderLines:    orderLines,
		images:        images,
		producer:      producer,
		logger:        logger,
		maxImageBytes: maxImageBytes,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateReview writes the single review allowed for the caller's purchase
// of a product and returns its id.
func (s *ReviewService) CreateReview(ctx context.Context, input *CreateReviewInput) (int64, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return 0, apperrors.InvalidInput("content is required")
	}
	if err := validateStar(input.Star); err != nil {
		return 0, err
	}
	if input.Image != nil {
		if err := storage.ValidateImage(input.Image, s.maxImageBytes); err != nil {
			return 0, err
		}
	}

	u, err := s.loadActiveUser(ctx, input.UserID)
	if err != nil {
		return 0, err
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, domain.ErrProductNotFound
		}
		return 0, fmt.Errorf("get product: %w", err)
	}

	line, err := s.orderLines.GetByUserAndProduct(ctx, u.ID, product.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, domain.ErrOrderNotFound
		}
		return 0, fmt.Errorf("get order line: %w", err)
	}
	if line.Reviewed() {
		reviewDuplicates.Inc()
		return 0, domain.ErrReviewDuplication
	}

	imageURL := input.ImageURL
	uploaded := false
	if input.Image != nil {
		input.Image.OwnerID = u.ID
		res, err := s.images.Upload(ctx, input.Image)
		if err != nil {
			return 0, fmt.Errorf("upload review image: %w", err)
		}
		imageURL, uploaded = res.URL, true
	}

	now := s.now()
	review := &domain.Review{
		UserID:         u.ID,
		ProductID:      product.ID,
		OrderLineID:    line.ID,
		WriterNickname: u.Nickname,
		ProductName:    product.Name,
		TitleImage:     product.TitleImage,
		Content:        content,
		Star:           input.Star,
		ImageURL:       imageURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.reviews.CreateForOrderLine(ctx, review); err != nil {
		if uploaded {
			s.deleteImage(ctx, imageURL)
		}
		if errors.Is(err, domain.ErrReviewDuplication) {
			reviewDuplicates.Inc()
			return 0, domain.ErrReviewDuplication
		}
		return 0, fmt.Errorf("create review: %w", err)
	}
	reviewsCreated.Inc()

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.Int64("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.Int64("review_id", review.ID),
		slog.Int64("user_id", review.UserID),
		slog.Int64("product_id", review.ProductID),
		slog.Int64("order_line_id", review.OrderLineID),
		slog.Int("star", review.Star),
	)

	return review.ID, nil
}

// UpdateReview applies a partial update by the review's author.
func (s *ReviewService) UpdateReview(ctx context.Context, input *UpdateReviewInput) (*domain.Review, error) {
	review, err := s.getReview(ctx, input.ReviewID)
	if err != nil {
		return nil, err
	}
	u, err := s.loadActiveUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if review.UserID != u.ID {
		return nil, domain.ErrNotReviewAuthor
	}

	if input.Content != nil {
		content := strings.TrimSpace(*input.Content)
		if content == "" {
			return nil, apperrors.InvalidInput("content must not be empty")
		}
		review.Content = content
	}
	if input.Star != nil {
		if err := validateStar(*input.Star); err != nil {
			return nil, err
		}
		review.Star = *input.Star
	}
	if input.Image != nil {
		if err := storage.ValidateImage(input.Image, s.maxImageBytes); err != nil {
			return nil, err
		}
	}

	oldImage := review.ImageURL
	if input.ClearImage {
		review.ImageURL = ""
	}
	if input.Image != nil {
		input.Image.OwnerID = u.ID
		res, err := s.images.Upload(ctx, input.Image)
		if err != nil {
			return nil, fmt.Errorf("upload review image: %w", err)
		}
		review.ImageURL = res.URL
	}
	review.UpdatedAt = s.now()

	if err := s.reviews.Update(ctx, review); err != nil {
		if input.Image != nil {
			s.deleteImage(ctx, review.ImageURL)
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, fmt.Errorf("update review: %w", err)
	}

	if oldImage != "" && oldImage != review.ImageURL {
		s.deleteImage(ctx, oldImage)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.Int64("review_id", review.ID),
		slog.Int64("user_id", u.ID),
	)
	return review, nil
}

// DeleteReview removes a review written by userID. The order line stays
// WRITTEN, so no new review can be written for the same purchase.
func (s *ReviewService) DeleteReview(ctx context.Context, userID, reviewID int64) error {
	review, err := s.getReview(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.UserID != userID {
		return domain.ErrNotReviewAuthor
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.ErrReviewNotFound
		}
		return fmt.Errorf("delete review: %w", err)
	}

	if review.ImageURL != "" {
		s.deleteImage(ctx, review.ImageURL)
	}

	if err := s.producer.PublishReviewDeleted(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.Int64("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted", slog.Int64("review_id", reviewID))
	return nil
}

// GetReview returns a single review.
func (s *ReviewService) GetReview(ctx context.Context, reviewID int64) (*domain.Review, error) {
	return s.getReview(ctx, reviewID)
}

// ListReviewsByUser returns the reviews written by userID, newest first.
func (s *ReviewService) ListReviewsByUser(ctx context.Context, userID int64, page, size int) (*domain.ReviewPage, error) {
	return s.list(ctx, "user", userID, page, size, s.reviews.ListByUser)
}

// ListReviewsByProduct returns the reviews of productID, newest first.
func (s *ReviewService) ListReviewsByProduct(ctx context.Context, productID int64, page, size int) (*domain.ReviewPage, error) {
	return s.list(ctx, "product", productID, page, size, s.reviews.ListByProduct)
}

// ListReviewsBySeller returns the reviews of every product sold by
// sellerID, newest first.
func (s *ReviewService) ListReviewsBySeller(ctx context.Context, sellerID int64, page, size int) (*domain.ReviewPage, error) {
	return s.list(ctx, "seller", sellerID, page, size, s.reviews.ListBySeller)
}

type listFunc func(ctx context.Context, id int64, page, size int) ([]domain.Review, int, error)

func (s *ReviewService) list(ctx context.Context, by string, id int64, page, size int, fn listFunc) (*domain.ReviewPage, error) {
	page, size = domain.NormalizePage(page, size)

	items, total, err := fn(ctx, id, page, size)
	if err != nil {
		return nil, fmt.Errorf("list reviews by %s: %w", by, err)
	}
	return domain.NewReviewPage(items, page, size, total), nil
}

func (s *ReviewService) getReview(ctx context.Context, id int64) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

func (s *ReviewService) loadActiveUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !u.IsActive() {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

// deleteImage removes an image best-effort; failures only leave an orphan.
func (s *ReviewService) deleteImage(ctx context.Context, url string) {
	if err := s.images.Delete(ctx, url); err != nil {
		s.logger.WarnContext(ctx, "failed to delete review image",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}
}

func validateStar(star int) error {
	if star < domain.MinStar || star > domain.MaxStar {
		return apperrors.InvalidInput(fmt.Sprintf("star must be between %d and %d", domain.MinStar, domain.MaxStar))
	}
	return nil
}
