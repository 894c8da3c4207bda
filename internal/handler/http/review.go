package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shinker1002/seb40-main-019/internal/domain"
	"github.com/shinker1002/seb40-main-019/internal/service"
	"github.com/shinker1002/seb40-main-019/pkg/httputil"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service       *service.ReviewService
	logger        *slog.Logger
	maxImageBytes int64
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger, maxImageBytes int64) *ReviewHandler {
	return &ReviewHandler{service: svc, logger: logger, maxImageBytes: maxImageBytes}
}

// --- Request DTOs ---

// CreateReviewRequest is the body (or multipart "request" part) of a
// review creation.
type CreateReviewRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Content   string `json:"content" validate:"required,max=2000"`
	Star      int    `json:"star" validate:"required,min=1,max=5"`
	ImageURL  string `json:"image_url" validate:"omitempty,url"`
}

// UpdateReviewRequest is a partial update. Omitted fields are unchanged.
type UpdateReviewRequest struct {
	Content     *string `json:"content" validate:"omitempty,max=2000"`
	Star        *int    `json:"star" validate:"omitempty,min=1,max=5"`
	DeleteImage bool    `json:"delete_image"`
}

// CreateReviewResponse carries the id of a new review.
type CreateReviewResponse struct {
	ID int64 `json:"id"`
}

// --- Handlers ---

// Create handles POST /api/v1/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateReviewRequest
	img, err := decodeWithImage(w, r, &req, h.maxImageBytes)
	if err != nil {
		writeRequestError(w, r, err, h.logger)
		return
	}
	defer img.Close()

	id, err := h.service.CreateReview(r.Context(), &service.CreateReviewInput{
		UserID:    userID,
		ProductID: req.ProductID,
		Content:   req.Content,
		Star:      req.Star,
		ImageURL:  req.ImageURL,
		Image:     img.uploadInput(),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: CreateReviewResponse{ID: id}})
}

// Get handles GET /api/v1/reviews/{id}
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, "review id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	review, err := h.service.GetReview(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// Update handles PATCH /api/v1/reviews/{id}
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := httputil.ParseID(w, "review id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateReviewRequest
	img, err := decodeWithImage(w, r, &req, h.maxImageBytes)
	if err != nil {
		writeRequestError(w, r, err, h.logger)
		return
	}
	defer img.Close()

	review, err := h.service.UpdateReview(r.Context(), &service.UpdateReviewInput{
		UserID:     userID,
		ReviewID:   id,
		Content:    req.Content,
		Star:       req.Star,
		Image:      img.uploadInput(),
		ClearImage: req.DeleteImage,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// Delete handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := httputil.ParseID(w, "review id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteReview(r.Context(), userID, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMine handles GET /api/v1/users/me/reviews
func (h *ReviewHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r, h.logger)
	if !ok {
		return
	}
	page, size := pageParams(r)
	h.writePage(w, r)(h.service.ListReviewsByUser(r.Context(), userID, page, size))
}

// ListForSeller handles GET /api/v1/users/me/product-reviews
func (h *ReviewHandler) ListForSeller(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r, h.logger)
	if !ok {
		return
	}
	page, size := pageParams(r)
	h.writePage(w, r)(h.service.ListReviewsBySeller(r.Context(), userID, page, size))
}

// ListByProduct handles GET /api/v1/products/{id}/reviews
func (h *ReviewHandler) ListByProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseID(w, "product id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	page, size := pageParams(r)
	h.writePage(w, r)(h.service.ListReviewsByProduct(r.Context(), productID, page, size))
}

func (h *ReviewHandler) writePage(w http.ResponseWriter, r *http.Request) func(*domain.ReviewPage, error) {
	return func(page *domain.ReviewPage, err error) {
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page})
	}
}
