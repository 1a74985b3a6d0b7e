// Package order holds the order aggregate and the service that orchestrates
// the pricing pipeline: item change, subtotal, discount calculation, final
// amount, loyalty recompute.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/discount"
)

// Status enumerates the order lifecycle states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// ErrNotFound is returned when an order does not exist or is not visible to
// the caller.
var ErrNotFound = errors.New("order not found")

// Order is the order aggregate. Whenever it is persisted,
// FinalAmount == Subtotal - TotalDiscount holds.
type Order struct {
	ID            string
	UserID        string
	Username      string
	OrderDate     time.Time
	Status        Status
	Subtotal      decimal.Decimal
	TotalDiscount decimal.Decimal
	FinalAmount   decimal.Decimal
	Cancelled     bool
	Returned      bool
	Breakdown     map[string]discount.BreakdownEntry
	Items         []Item
}

// Item is a line item owned exclusively by its order. UnitPrice and the
// category are snapshots taken from the product at creation time and never
// track later product changes. ItemDiscount is written only by category
// discount application.
type Item struct {
	ID           string
	OrderID      string
	ProductID    string
	ProductName  string
	Quantity     int
	UnitPrice    decimal.Decimal
	CategoryID   string
	CategoryName string
	ItemDiscount decimal.Decimal
}

// Subtotal returns the sum of quantity * unit_price over the items, zero
// for an empty slice.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// Page selects a window of a listing.
type Page struct {
	Offset int
	Limit  int
}

// Repository provides order persistence. Creation and update are atomic
// over the order row and its items: a failure leaves no partial state.
type Repository interface {
	// CreateWithItems persists a new order together with all its line items
	// in one transaction.
	CreateWithItems(ctx context.Context, o *Order) error
	// Update persists the order row and the item_discount of every line
	// item in one transaction.
	Update(ctx context.Context, o *Order) error
	// GetForUser returns the order with its items when it belongs to userID,
	// ErrNotFound otherwise.
	GetForUser(ctx context.Context, id, userID string) (*Order, error)
	// GetByID returns the order with its items regardless of owner.
	GetByID(ctx context.Context, id string) (*Order, error)
	// ListForUser returns the user's orders newest first, plus the total
	// count for pagination.
	ListForUser(ctx context.Context, userID string, page Page) ([]Order, int, error)
}
