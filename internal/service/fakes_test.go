package service

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/shinker1002/seb40-main-019/internal/domain"
	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
)

// fakeDB is an in-memory stand-in for the catalogue, order and review
// tables. CreateForOrderLine checks every line of the (user, product) pair
// and flips the line under one lock, as the locked transaction does in
// PostgreSQL.
type fakeDB struct {
	mu       sync.Mutex
	products map[int64]*domain.Product
	lines    map[int64]*domain.OrderLine
	reviews  map[int64]*domain.Review
	nextID   int64
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		products: make(map[int64]*domain.Product),
		lines:    make(map[int64]*domain.OrderLine),
		reviews:  make(map[int64]*domain.Review),
	}
}

type fakeProducts struct{ *fakeDB }

func (f fakeProducts) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", strconv.FormatInt(id, 10))
	}
	cp := *p
	return &cp, nil
}

type fakeOrderLines struct{ *fakeDB }

func (f fakeOrderLines) GetByUserAndProduct(_ context.Context, userID, productID int64) (*domain.OrderLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *domain.OrderLine
	for _, l := range f.lines {
		if l.UserID != userID || l.ProductID != productID {
			continue
		}
		if best == nil || (l.Reviewed() && !best.Reviewed()) ||
			(l.Reviewed() == best.Reviewed() && l.ID > best.ID) {
			best = l
		}
	}
	if best == nil {
		return nil, apperrors.NotFound("order line", strconv.FormatInt(productID, 10))
	}
	cp := *best
	return &cp, nil
}

type fakeReviews struct{ *fakeDB }

func (f fakeReviews) CreateForOrderLine(_ context.Context, rv *domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.lines {
		if other.UserID == rv.UserID && other.ProductID == rv.ProductID && other.Reviewed() {
			return domain.ErrReviewDuplication
		}
	}
	l, ok := f.lines[rv.OrderLineID]
	if !ok || l.ReviewStatus != domain.ReviewNotWritten {
		return domain.ErrReviewDuplication
	}
	l.ReviewStatus = domain.ReviewWritten
	f.nextID++
	rv.ID = f.nextID
	cp := *rv
	f.reviews[rv.ID] = &cp
	return nil
}

func (f fakeReviews) GetByID(_ context.Context, id int64) (*domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", strconv.FormatInt(id, 10))
	}
	cp := *rv
	return &cp, nil
}

func (f fakeReviews) Update(_ context.Context, rv *domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reviews[rv.ID]; !ok {
		return apperrors.NotFound("review", strconv.FormatInt(rv.ID, 10))
	}
	cp := *rv
	f.reviews[rv.ID] = &cp
	return nil
}

func (f fakeReviews) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reviews[id]; !ok {
		return apperrors.NotFound("review", strconv.FormatInt(id, 10))
	}
	delete(f.reviews, id)
	return nil
}

func (f fakeReviews) ListByUser(_ context.Context, userID int64, page, size int) ([]domain.Review, int, error) {
	return f.page(func(rv *domain.Review) bool { return rv.UserID == userID }, page, size)
}

func (f fakeReviews) ListByProduct(_ context.Context, productID int64, page, size int) ([]domain.Review, int, error) {
	return f.page(func(rv *domain.Review) bool { return rv.ProductID == productID }, page, size)
}

func (f fakeReviews) ListBySeller(_ context.Context, sellerID int64, page, size int) ([]domain.Review, int, error) {
	return f.page(func(rv *domain.Review) bool {
		p, ok := f.products[rv.ProductID]
		return ok && p.SellerID == sellerID
	}, page, size)
}

func (f fakeReviews) page(match func(*domain.Review) bool, page, size int) ([]domain.Review, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []domain.Review
	for _, rv := range f.reviews {
		if match(rv) {
			all = append(all, *rv)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	start := (page - 1) * size
	if start >= len(all) {
		return nil, len(all), nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}
