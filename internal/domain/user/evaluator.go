package user

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/cache"
)

const (
	// flatDiscountMinOrders is the completed-order threshold gating flat
	// discounts.
	flatDiscountMinOrders = 5
	// eligibilityTTL is how long a computed eligibility answer is served
	// from cache. The cache is not invalidated when an order completes, so
	// a user crossing the threshold may see the old answer for up to an
	// hour. Accepted staleness window.
	eligibilityTTL = time.Hour

	// loyaltyPointDivisor: one point per 100 spent, truncating.
	loyaltyPointDivisor = 100
)

var pointDivisor = decimal.NewFromInt(loyaltyPointDivisor)

func eligibilityCacheKey(userID string) string {
	return fmt.Sprintf("user_%s_flat_discount_eligible", userID)
}

// Evaluator computes user-level eligibility predicates and loyalty points
// from purchase history.
type Evaluator struct {
	repo  Repository
	cache cache.Cache
}

// NewEvaluator creates an Evaluator backed by the given repository and
// cache handle.
func NewEvaluator(repo Repository, c cache.Cache) *Evaluator {
	return &Evaluator{repo: repo, cache: c}
}

// IsEligibleForFlatDiscount reports whether the user has at least five
// completed, non-cancelled, non-returned orders. Answers are cached per
// user for one hour.
func (e *Evaluator) IsEligibleForFlatDiscount(ctx context.Context, userID string) (bool, error) {
	key := eligibilityCacheKey(userID)
	if v, ok := e.cache.Get(key); ok {
		if eligible, ok := v.(bool); ok {
			return eligible, nil
		}
	}

	count, err := e.repo.CountCompletedOrders(ctx, userID)
	if err != nil {
		return false, errors.Wrap(err, "count completed orders")
	}

	eligible := count >= flatDiscountMinOrders
	e.cache.Set(key, eligible, eligibilityTTL)
	return eligible, nil
}

// RecomputeLoyaltyPoints derives the user's loyalty points from the sum of
// final amounts over completed orders (one point per 100 spent, truncated)
// and persists the result immediately. Invoked synchronously whenever an
// order transitions to completed.
func (e *Evaluator) RecomputeLoyaltyPoints(ctx context.Context, userID string) error {
	total, err := e.repo.SumCompletedOrderAmount(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "sum completed order amounts")
	}

	points := int(total.Div(pointDivisor).IntPart())
	if err := e.repo.SetLoyaltyPoints(ctx, userID, points); err != nil {
		return errors.Wrap(err, "set loyalty points")
	}
	return nil
}
