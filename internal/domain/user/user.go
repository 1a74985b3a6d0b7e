// Package user holds the customer model, the flat-discount eligibility
// evaluator, and loyalty-point recomputation.
package user

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a referenced user does not exist.
var ErrNotFound = errors.New("user not found")

// User is a customer. LoyaltyPoints is a derived field: it is recomputed
// from completed orders and never set independently.
type User struct {
	ID            string
	Username      string
	PhoneNumber   string
	LoyaltyPoints int
}

// Repository provides user persistence and the purchase-history aggregates
// the eligibility evaluator needs. "Completed" throughout means
// status=completed, not cancelled, and not returned.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	CountCompletedOrders(ctx context.Context, userID string) (int, error)
	SumCompletedOrderAmount(ctx context.Context, userID string) (decimal.Decimal, error)
	SetLoyaltyPoints(ctx context.Context, userID string, points int) error
}
