// Command seed-db populates the database with demo categories, products,
// discount rules, users, and API keys. Safe to re-run: every insert is an
// upsert keyed on a fixed ID.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/storage/postgres"
)

// Fixed IDs keep reseeding idempotent.
const (
	catElectronics = "8d6f54f4-0f12-4f5a-9f43-0a8f6b1f2a01"
	catBooks       = "8d6f54f4-0f12-4f5a-9f43-0a8f6b1f2a02"
	catGrocery     = "8d6f54f4-0f12-4f5a-9f43-0a8f6b1f2a03"

	userAlice = "2f1f2f10-aaaa-4bbb-8ccc-000000000001"
	userBob   = "2f1f2f10-aaaa-4bbb-8ccc-000000000002"
	userAdmin = "2f1f2f10-aaaa-4bbb-8ccc-000000000099"
)

func main() {
	var (
		databaseURL  string
		customerKey  string
		adminKey     string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&customerKey, "customer-key", "", "customer API key to seed (or STOREFRONT_SEED_API_KEY env)")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or STOREFRONT_SEED_ADMIN_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STOREFRONT_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if customerKey == "" {
		customerKey = os.Getenv("STOREFRONT_SEED_API_KEY")
	}
	if customerKey == "" {
		slog.Error("customer API key is required: set --customer-key or STOREFRONT_SEED_API_KEY")
		os.Exit(1)
	}
	if adminKey == "" {
		adminKey = os.Getenv("STOREFRONT_SEED_ADMIN_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STOREFRONT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, customerKey, adminKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, customerKey, adminKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCategories(ctx, pool); err != nil {
		return errors.Wrap(err, "seed categories")
	}
	if err := seedProducts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedRules(ctx, pool); err != nil {
		return errors.Wrap(err, "seed discount rules")
	}
	if err := seedUsers(ctx, pool); err != nil {
		return errors.Wrap(err, "seed users")
	}
	if err := seedAPIKey(ctx, pool, "3a9e0000-0000-4000-8000-000000000001", customerKey, "Demo customer key", userAlice, nil, pepper); err != nil {
		return errors.Wrap(err, "seed customer api key")
	}
	if adminKey != "" {
		if err := seedAPIKey(ctx, pool, "3a9e0000-0000-4000-8000-000000000002", adminKey, "Demo admin key", userAdmin, []string{"admin"}, pepper); err != nil {
			return errors.Wrap(err, "seed admin api key")
		}
	}

	return nil
}

const upsertCategorySQL = `INSERT INTO product_categories (id, name, description, discount_percentage)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET name = $2, description = $3, discount_percentage = $4`

func seedCategories(ctx context.Context, pool *pgxpool.Pool) error {
	categories := []struct {
		id, name, description string
		discount              decimal.Decimal
	}{
		{catElectronics, "Electronics", "Gadgets and appliances", decimal.NewFromInt(5)},
		{catBooks, "Books", "Print and digital books", decimal.Zero},
		{catGrocery, "Grocery", "Everyday essentials", decimal.Zero},
	}
	for _, c := range categories {
		if _, err := pool.Exec(ctx, upsertCategorySQL, c.id, c.name, c.description, c.discount); err != nil {
			return errors.Wrapf(err, "upsert category %s", c.name)
		}
		slog.Info("upserted category", slog.String("name", c.name))
	}
	return nil
}

const upsertProductSQL = `INSERT INTO products (id, name, description, price, category_id, stock_quantity, active, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, TRUE, now())
	ON CONFLICT (id) DO UPDATE SET
		name = $2, description = $3, price = $4, category_id = $5, stock_quantity = $6, updated_at = now()`

func seedProducts(ctx context.Context, pool *pgxpool.Pool) error {
	products := []struct {
		id, name, description, categoryID string
		price                             decimal.Decimal
		stock                             int
	}{
		{"7c210000-0000-4000-8000-000000000001", "Wireless Headphones", "Over-ear, 30h battery", catElectronics, decimal.NewFromInt(199), 40},
		{"7c210000-0000-4000-8000-000000000002", "Mechanical Keyboard", "Tenkeyless, hot-swappable", catElectronics, decimal.NewFromInt(129), 25},
		{"7c210000-0000-4000-8000-000000000003", "4K Monitor", "27 inch IPS panel", catElectronics, decimal.NewFromInt(449), 10},
		{"7c210000-0000-4000-8000-000000000004", "The Go Programming Language", "Donovan and Kernighan", catBooks, decimal.RequireFromString("39.99"), 100},
		{"7c210000-0000-4000-8000-000000000005", "Designing Data-Intensive Applications", "Kleppmann", catBooks, decimal.RequireFromString("44.50"), 60},
		{"7c210000-0000-4000-8000-000000000006", "Espresso Beans 1kg", "Medium roast", catGrocery, decimal.RequireFromString("18.90"), 200},
		{"7c210000-0000-4000-8000-000000000007", "Olive Oil 750ml", "Extra virgin", catGrocery, decimal.RequireFromString("12.40"), 150},
	}
	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.id, p.name, p.description, p.price, p.categoryID, p.stock,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.name)
		}
		slog.Info("upserted product", slog.String("name", p.name))
	}
	return nil
}

const upsertRuleSQL = `INSERT INTO discount_rules
	(id, name, discount_type, value, min_order_amount, min_quantity, category_id, min_completed_orders, active, priority, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, now())
	ON CONFLICT (id) DO UPDATE SET
		name = $2, discount_type = $3, value = $4, min_order_amount = $5, min_quantity = $6,
		category_id = $7, min_completed_orders = $8, priority = $9, updated_at = now()`

func seedRules(ctx context.Context, pool *pgxpool.Pool) error {
	five := 5
	three := 3
	minBig := decimal.NewFromInt(500)

	rules := []struct {
		id, name, ruleType string
		value              decimal.Decimal
		minOrderAmount     *decimal.Decimal
		minQuantity        *int
		categoryID         *string
		minCompleted       *int
		priority           int
	}{
		{
			id: "5e7d0000-0000-4000-8000-000000000001", name: "Big order 10% off", ruleType: "percentage",
			value: decimal.NewFromInt(10), minOrderAmount: &minBig, priority: 10,
		},
		{
			id: "5e7d0000-0000-4000-8000-000000000002", name: "Loyal customer $50 off", ruleType: "flat",
			value: decimal.NewFromInt(50), minCompleted: &five, priority: 5,
		},
		{
			id: "5e7d0000-0000-4000-8000-000000000003", name: "Electronics bundle 15% off", ruleType: "category",
			value: decimal.NewFromInt(15), minQuantity: &three, categoryID: ptr(catElectronics), priority: 1,
		},
	}
	for _, r := range rules {
		if _, err := pool.Exec(ctx, upsertRuleSQL,
			r.id, r.name, r.ruleType, r.value,
			r.minOrderAmount, r.minQuantity, r.categoryID, r.minCompleted, r.priority,
		); err != nil {
			return errors.Wrapf(err, "upsert rule %s", r.name)
		}
		slog.Info("upserted discount rule", slog.String("name", r.name))
	}
	return nil
}

const upsertUserSQL = `INSERT INTO users (id, username, phone_number)
	VALUES ($1, $2, $3)
	ON CONFLICT (id) DO UPDATE SET username = $2, phone_number = $3`

func seedUsers(ctx context.Context, pool *pgxpool.Pool) error {
	users := []struct{ id, username, phone string }{
		{userAlice, "alice", "+15550100"},
		{userBob, "bob", "+15550101"},
		{userAdmin, "storefront-admin", ""},
	}
	for _, u := range users {
		if _, err := pool.Exec(ctx, upsertUserSQL, u.id, u.username, u.phone); err != nil {
			return errors.Wrapf(err, "upsert user %s", u.username)
		}
		slog.Info("upserted user", slog.String("username", u.username))
	}
	return nil
}

const upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, user_id, scopes, active)
	VALUES ($1, $2, $3, $4, $5, TRUE)
	ON CONFLICT (id) DO UPDATE SET key_hash = $2, name = $3, user_id = $4, scopes = $5, active = TRUE`

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, id, key, name, userID string, scopes []string, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if scopes == nil {
		scopes = []string{}
	}
	if _, err := pool.Exec(ctx, upsertAPIKeySQL, id, keyHash, name, userID, scopes); err != nil {
		return errors.Wrapf(err, "upsert api key %s", name)
	}

	slog.Info("upserted API key", slog.String("name", name))
	return nil
}

func ptr[T any](v T) *T { return &v }
