package http

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/shinker1002/seb40-main-019/internal/domain"
	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
)

// store is an in-memory stand-in for the PostgreSQL tables.
type store struct {
	mu       sync.Mutex
	users    map[int64]*domain.User
	products map[int64]*domain.Product
	lines    map[int64]*domain.OrderLine
	reviews  map[int64]*domain.Review
	seq      int64
}

func newStore() *store {
	return &store{
		users:    make(map[int64]*domain.User),
		products: make(map[int64]*domain.Product),
		lines:    make(map[int64]*domain.OrderLine),
		reviews:  make(map[int64]*domain.Review),
	}
}

func (s *store) nextID() int64 {
	s.seq++
	return s.seq
}

func notFound(kind string, id int64) error {
	return apperrors.NotFound(kind, strconv.FormatInt(id, 10))
}

// --- users ---

type userRepo struct{ *store }

func (r userRepo) activeConflict(u *domain.User) error {
	for _, o := range r.users {
		if o.ID == u.ID || o.Status != domain.StatusActive {
			continue
		}
		if strings.EqualFold(o.Email, u.Email) {
			return domain.ErrEmailDuplication
		}
		if o.Nickname == u.Nickname {
			return domain.ErrNicknameDuplication
		}
	}
	return nil
}

func (r userRepo) Create(_ context.Context, u *domain.User, bonus int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.activeConflict(u); err != nil {
		return err
	}
	u.ID = r.nextID()
	u.Points = bonus
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r userRepo) Reactivate(_ context.Context, u *domain.User, bonus int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.users[u.ID]
	if !ok || old.Status != domain.StatusDeactivated {
		return notFound("user", u.ID)
	}
	u.Status = domain.StatusActive
	u.Points = old.Points + bonus
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) findOriginal(email, status string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) && u.Status == status && u.IsOriginal() {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("user", email)
}

func (r userRepo) GetActiveOriginalByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.findOriginal(email, domain.StatusActive)
}

func (r userRepo) GetDeactivatedOriginalByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.findOriginal(email, domain.StatusDeactivated)
}

func (r userRepo) EmailInUse(ctx context.Context, email string) (bool, error) {
	_, err := r.GetActiveOriginalByEmail(ctx, email)
	return err == nil, nil
}

func (r userRepo) NicknameInUse(_ context.Context, nickname string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Nickname == nickname && u.Status == domain.StatusActive && u.IsOriginal() {
			return true, nil
		}
	}
	return false, nil
}

func (r userRepo) Deactivate(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return notFound("user", id)
	}
	u.Status = domain.StatusDeactivated
	return nil
}

func (r userRepo) HardDelete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return notFound("user", id)
	}
	delete(r.users, id)
	return nil
}

func (r userRepo) CountByRole(_ context.Context, role string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r userRepo) PurgeByRoles(_ context.Context, roles []string) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := []int64{}
	for id, u := range r.users {
		for _, role := range roles {
			if u.Role == role {
				ids = append(ids, id)
				delete(r.users, id)
				break
			}
		}
	}
	for id, rv := range r.reviews {
		for _, uid := range ids {
			if rv.UserID == uid {
				delete(r.reviews, id)
			}
		}
	}
	return ids, nil
}

// --- catalogue, order lines and reviews ---

type productRepo struct{ *store }

func (r productRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	cp := *p
	return &cp, nil
}

type orderLineRepo struct{ *store }

func (r orderLineRepo) GetByUserAndProduct(_ context.Context, userID, productID int64) (*domain.OrderLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *domain.OrderLine
	for _, l := range r.lines {
		if l.UserID != userID || l.ProductID != productID {
			continue
		}
		if best == nil || (l.Reviewed() && !best.Reviewed()) ||
			(l.Reviewed() == best.Reviewed() && l.ID > best.ID) {
			best = l
		}
	}
	if best == nil {
		return nil, notFound("order line", productID)
	}
	cp := *best
	return &cp, nil
}

type reviewRepo struct{ *store }

func (r reviewRepo) CreateForOrderLine(_ context.Context, rv *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.lines {
		if other.UserID == rv.UserID && other.ProductID == rv.ProductID && other.Reviewed() {
			return domain.ErrReviewDuplication
		}
	}
	l, ok := r.lines[rv.OrderLineID]
	if !ok || l.ReviewStatus != domain.ReviewNotWritten {
		return domain.ErrReviewDuplication
	}
	l.ReviewStatus = domain.ReviewWritten
	rv.ID = r.nextID()
	cp := *rv
	r.reviews[rv.ID] = &cp
	return nil
}

func (r reviewRepo) GetByID(_ context.Context, id int64) (*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[id]
	if !ok {
		return nil, notFound("review", id)
	}
	cp := *rv
	return &cp, nil
}

func (r reviewRepo) Update(_ context.Context, rv *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[rv.ID]; !ok {
		return notFound("review", rv.ID)
	}
	cp := *rv
	r.reviews[rv.ID] = &cp
	return nil
}

func (r reviewRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[id]; !ok {
		return notFound("review", id)
	}
	delete(r.reviews, id)
	return nil
}

func (r reviewRepo) ListByUser(_ context.Context, userID int64, page, size int) ([]domain.Review, int, error) {
	return r.list(func(rv *domain.Review) bool { return rv.UserID == userID }, page, size)
}

func (r reviewRepo) ListByProduct(_ context.Context, productID int64, page, size int) ([]domain.Review, int, error) {
	return r.list(func(rv *domain.Review) bool { return rv.ProductID == productID }, page, size)
}

func (r reviewRepo) ListBySeller(_ context.Context, sellerID int64, page, size int) ([]domain.Review, int, error) {
	return r.list(func(rv *domain.Review) bool {
		p, ok := r.products[rv.ProductID]
		return ok && p.SellerID == sellerID
	}, page, size)
}

func (r reviewRepo) list(match func(*domain.Review) bool, page, size int) ([]domain.Review, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Review
	for _, rv := range r.reviews {
		if match(rv) {
			out = append(out, *rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	start := (page - 1) * size
	if start >= total {
		return nil, total, nil
	}
	return out[start:min(start+size, total)], total, nil
}
