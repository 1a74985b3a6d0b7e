// Package catalog holds the product and category read models. The discount
// engine and order service treat the catalog as read-only; mutations happen
// through seeding and ingest tooling.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Category groups products and optionally carries a default discount
// percentage. The percentage is informational only: discounts are driven
// exclusively by discount rules, never by this field.
type Category struct {
	ID                 string
	Name               string
	Description        string
	DiscountPercentage decimal.Decimal
}

// Product is a catalog item. UnitPrice and category are snapshotted onto
// order items at order creation, so later product edits do not affect
// existing orders.
type Product struct {
	ID            string
	Name          string
	Description   string
	Price         decimal.Decimal
	CategoryID    string
	CategoryName  string
	StockQuantity int
	Active        bool
}

// ListFilter narrows and pages product listings.
type ListFilter struct {
	// Category filters by category name, case-insensitively. Empty means all.
	Category string
	Offset   int
	Limit    int
}

// Repository defines read operations for the product catalog.
type Repository interface {
	// ListActive returns active products matching the filter ordered by name,
	// along with the total count of matching rows for pagination.
	ListActive(ctx context.Context, filter ListFilter) ([]Product, int, error)
	// GetByIDs returns active products matching any of the given IDs.
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// CategoryRepository defines read operations for product categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]Category, error)
}
