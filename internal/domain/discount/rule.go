// Package discount implements the configurable discount rule model, the
// cached rule store, and the calculation engine that produces an auditable
// discount breakdown for an order.
package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount rule kinds.
type Type string

const (
	// TypePercentage discounts the order subtotal by a percentage.
	TypePercentage Type = "percentage"
	// TypeFlat subtracts a fixed amount, gated by user purchase history.
	TypeFlat Type = "flat"
	// TypeCategory discounts every item in a targeted category.
	TypeCategory Type = "category"
)

// ErrRuleNotFound is returned when a referenced rule does not exist.
var ErrRuleNotFound = errors.New("discount rule not found")

// Rule is a configurable discount rule. Optional constraints are pointers;
// nil means "no constraint". Rules are value types: once the engine has
// loaded a set of rules for a calculation pass it never re-reads them, so a
// concurrent mutation cannot produce a half-applied pass.
type Rule struct {
	ID           string
	Name         string
	Type         Type
	Value        decimal.Decimal
	MinOrderAmount *decimal.Decimal
	MinQuantity    *int
	// CategoryID targets category rules. Required for TypeCategory to have
	// any effect; category rules with an empty CategoryID are skipped.
	CategoryID   string
	CategoryName string
	// MinCompletedOrders gates flat rules on the user's purchase history.
	MinCompletedOrders *int
	Active             bool
	// Priority orders rule evaluation: higher values are evaluated first,
	// ties broken by earlier CreatedAt.
	Priority  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides persistence for discount rules.
type Repository interface {
	// ListActive returns all active rules sorted by priority descending,
	// ties broken by ascending creation time.
	ListActive(ctx context.Context) ([]Rule, error)
	GetByID(ctx context.Context, id string) (*Rule, error)
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id string) error
}
