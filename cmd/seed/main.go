// Command seed populates a local marketplace database with a seller, a few
// buyers, products and order lines awaiting review, so the review flow can
// be exercised without the catalogue and order services.
//
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/shinker1002/seb40-main-019/internal/config"
	"github.com/shinker1002/seb40-main-019/internal/domain"
	"github.com/shinker1002/seb40-main-019/internal/repository/postgres"
	"github.com/shinker1002/seb40-main-019/migrations"
	pkgconfig "github.com/shinker1002/seb40-main-019/pkg/config"
	"github.com/shinker1002/seb40-main-019/pkg/database"
	apperrors "github.com/shinker1002/seb40-main-019/pkg/errors"
	"github.com/shinker1002/seb40-main-019/pkg/logger"
)

// seedConfig holds the knobs of the seed run.
type seedConfig struct {
	Password       string `env:"SEED_PASSWORD" envDefault:"password123"`
	Buyers         int    `env:"SEED_BUYERS" envDefault:"3"`
	ProductsPerRun int    `env:"SEED_PRODUCTS" envDefault:"20"`
	Domain         string `env:"SEED_EMAIL_DOMAIN" envDefault:"seed.local"`
}

var productNames = []string{
	"Linen Shirt", "Wool Scarf", "Ceramic Mug", "Leather Wallet", "Canvas Tote",
	"Oak Cutting Board", "Cotton Hoodie", "Glass Teapot", "Denim Jacket", "Silk Tie",
}

func main() {
	if err := run(); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	var seed seedConfig
	if err := pkgconfig.Load(&seed); err != nil {
		return fmt.Errorf("load seed config: %w", err)
	}

	log := logger.New("marketplace-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	users := postgres.NewUserRepository(pool)
	seller, err := ensureUser(ctx, users, "seller", seed.Domain, string(hash), cfg.SignupBonusPoints)
	if err != nil {
		return err
	}
	log.Info("seller ready", slog.Int64("user_id", seller.ID), slog.String("email", seller.Email))

	productIDs, err := insertProducts(ctx, pool, seller.ID, seed.ProductsPerRun)
	if err != nil {
		return err
	}
	log.Info("products inserted", slog.Int("count", len(productIDs)))

	rng := rand.New(rand.NewPCG(42, 1019)) // #nosec G404 -- deterministic test data
	for i := 1; i <= seed.Buyers; i++ {
		buyer, err := ensureUser(ctx, users, fmt.Sprintf("buyer%d", i), seed.Domain, string(hash), cfg.SignupBonusPoints)
		if err != nil {
			return err
		}

		bought := pick(rng, productIDs, 1+rng.IntN(4))
		orderID, err := insertOrder(ctx, pool, buyer.ID, bought)
		if err != nil {
			return err
		}
		log.Info("order placed",
			slog.Int64("user_id", buyer.ID),
			slog.String("email", buyer.Email),
			slog.Int64("order_id", orderID),
			slog.Any("product_ids", bought),
		)
	}

	log.Info("seed complete", slog.String("password", seed.Password))
	return nil
}

// ensureUser returns the active account named name, creating it if needed.
func ensureUser(ctx context.Context, users *postgres.UserRepository, name, emailDomain, hash string, bonus int64) (*domain.User, error) {
	email := strings.ToLower(name + "@" + emailDomain)

	u, err := users.GetActiveOriginalByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("look up %s: %w", email, err)
	}

	now := time.Now().UTC()
	u = &domain.User{
		Email:        email,
		Nickname:     name,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		Origin:       domain.OriginOriginal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, u, bonus); err != nil {
		return nil, fmt.Errorf("create %s: %w", email, err)
	}
	return u, nil
}

func insertProducts(ctx context.Context, pool *pgxpool.Pool, sellerID int64, n int) ([]int64, error) {
	batch := &pgx.Batch{}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s #%d", productNames[i%len(productNames)], i+1)
		batch.Queue(
			`INSERT INTO products (seller_id, name, title_image) VALUES ($1, $2, $3) RETURNING id`,
			sellerID, name, fmt.Sprintf("https://picsum.photos/seed/product-%d/600/600", i+1),
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		var id int64
		if err := results.QueryRow().Scan(&id); err != nil {
			return nil, fmt.Errorf("insert product %d: %w", i+1, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func insertOrder(ctx context.Context, pool *pgxpool.Pool, userID int64, productIDs []int64) (int64, error) {
	var orderID int64
	err := database.WithTx(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `INSERT INTO orders (user_id) VALUES ($1) RETURNING id`, userID).Scan(&orderID); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for _, pid := range productIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO order_products (order_id, product_id, review_status) VALUES ($1, $2, $3)`,
				orderID, pid, domain.ReviewNotWritten,
			); err != nil {
				return fmt.Errorf("insert order line for product %d: %w", pid, err)
			}
		}
		return nil
	})
	return orderID, err
}

// pick returns n distinct elements of ids.
func pick(rng *rand.Rand, ids []int64, n int) []int64 {
	if n > len(ids) {
		n = len(ids)
	}
	perm := rng.Perm(len(ids))
	out := make([]int64, n)
	for i := range out {
		out[i] = ids[perm[i]]
	}
	return out
}
