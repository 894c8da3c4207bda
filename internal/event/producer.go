package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shinker1002/seb40-main-019/internal/domain"
	pkgkafka "github.com/shinker1002/seb40-main-019/pkg/kafka"
	"github.com/shinker1002/seb40-main-019/pkg/logger"
)

// Kafka topics for marketplace domain events.
const (
	TopicReviewCreated      = "marketplace.review.created"
	TopicReviewDeleted      = "marketplace.review.deleted"
	TopicUserSignedUp       = "marketplace.user.signed_up"
	TopicUserDeleted        = "marketplace.user.deleted"
	TopicTestAccountsPurged = "marketplace.user.test_accounts_purged"
)

// Aggregate types.
const (
	AggregateTypeReview = "review"
	AggregateTypeUser   = "user"
)

// SourceMarketplace identifies events published by this service.
const SourceMarketplace = "marketplace-service"

// ReviewCreatedData is the payload for a review.created event.
type ReviewCreatedData struct {
	ReviewID    int64  `json:"review_id"`
	UserID      int64  `json:"user_id"`
	ProductID   int64  `json:"product_id"`
	OrderLineID int64  `json:"order_line_id"`
	Star        int    `json:"star"`
	HasImage    bool   `json:"has_image"`
	Nickname    string `json:"writer_nickname"`
}

// ReviewDeletedData is the payload for a review.deleted event.
type ReviewDeletedData struct {
	ReviewID  int64 `json:"review_id"`
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
}

// UserSignedUpData is the payload for a user.signed_up event.
type UserSignedUpData struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Nickname    string `json:"nickname"`
	Role        string `json:"role"`
	Reclaimed   bool   `json:"reclaimed"`
	BonusPoints int64  `json:"bonus_points"`
}

// UserDeletedData is the payload for a user.deleted event.
type UserDeletedData struct {
	UserID int64  `json:"user_id"`
	Origin string `json:"origin"`
	Hard   bool   `json:"hard"`
}

// TestAccountsPurgedData is the payload for a user.test_accounts_purged event.
type TestAccountsPurgedData struct {
	UserIDs []int64 `json:"user_ids"`
	Count   int     `json:"count"`
}

// Publisher is satisfied by *pkgkafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes marketplace domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewCreated, pkgkafka.Aggregate{Type: AggregateTypeReview, ID: r.ID}, r.UserID, ReviewCreatedData{
		ReviewID:    r.ID,
		UserID:      r.UserID,
		ProductID:   r.ProductID,
		OrderLineID: r.OrderLineID,
		Star:        r.Star,
		HasImage:    r.ImageURL != "",
		Nickname:    r.WriterNickname,
	})
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewDeleted, pkgkafka.Aggregate{Type: AggregateTypeReview, ID: r.ID}, r.UserID, ReviewDeletedData{
		ReviewID:  r.ID,
		UserID:    r.UserID,
		ProductID: r.ProductID,
	})
}

// PublishUserSignedUp publishes a user.signed_up event.
func (p *Producer) PublishUserSignedUp(ctx context.Context, u *domain.User, reclaimed bool, bonus int64) error {
	return p.publish(ctx, TopicUserSignedUp, pkgkafka.Aggregate{Type: AggregateTypeUser, ID: u.ID}, u.ID, UserSignedUpData{
		UserID:      u.ID,
		Email:       u.Email,
		Nickname:    u.Nickname,
		Role:        u.Role,
		Reclaimed:   reclaimed,
		BonusPoints: bonus,
	})
}

// PublishUserDeleted publishes a user.deleted event.
func (p *Producer) PublishUserDeleted(ctx context.Context, u *domain.User, hard bool) error {
	return p.publish(ctx, TopicUserDeleted, pkgkafka.Aggregate{Type: AggregateTypeUser, ID: u.ID}, u.ID, UserDeletedData{
		UserID: u.ID,
		Origin: u.Origin,
		Hard:   hard,
	})
}

// PublishTestAccountsPurged publishes a single event for one purge run.
func (p *Producer) PublishTestAccountsPurged(ctx context.Context, ids []int64) error {
	if ids == nil {
		ids = []int64{}
	}
	return p.publish(ctx, TopicTestAccountsPurged, pkgkafka.Aggregate{Type: AggregateTypeUser}, 0, TestAccountsPurgedData{
		UserIDs: ids,
		Count:   len(ids),
	})
}

// publish sends data about agg on behalf of actorID; 0 marks a system event.
func (p *Producer) publish(ctx context.Context, topic string, agg pkgkafka.Aggregate, actorID int64, data any) error {
	event, err := pkgkafka.NewEvent(topic, SourceMarketplace, agg, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithActor(actorID)
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		event.WithCorrelationID(cid)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate", agg.Key()),
	)
	return nil
}
