package discount

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Breakdown keys. Category entries append the category ID.
const (
	keyPercentage     = "percentage_discount"
	keyFlat           = "flat_discount"
	keyCategoryPrefix = "category_discount_"
)

// Item is an order line as seen by the engine: the snapshot fields needed
// for category discount math plus a stable ID for reporting per-item
// discounts back to the caller.
type Item struct {
	ID         string
	CategoryID string
	UnitPrice  decimal.Decimal
	Quantity   int
}

// Input is one order's worth of data for a calculation pass.
type Input struct {
	UserID   string
	Subtotal decimal.Decimal
	Items    []Item
}

// BreakdownEntry records one applied rule for audit and display. Value and
// Amount are plain floats because the breakdown is persisted as JSON on the
// order and rendered to API clients as-is.
type BreakdownEntry struct {
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Value    float64 `json:"value"`
	Amount   float64 `json:"amount"`
	RuleID   string  `json:"rule_id"`
}

// Result is the outcome of one calculation pass. The engine is pure: it
// never persists anything; the order service applies the result and writes
// it back.
//
// ItemDiscounts is last-write-wins per item while Total accumulates per rule
// execution. When two active rules target the same category both add their
// full amount to Total but only the later one survives in ItemDiscounts.
// This mirrors the long-standing behavior of the rule evaluator and is
// pinned by tests; do not "fix" it without deciding the intended semantics.
type Result struct {
	Total         decimal.Decimal
	Breakdown     map[string]BreakdownEntry
	ItemDiscounts map[string]decimal.Decimal
}

// RuleSource yields the active rules for a pass, highest priority first.
type RuleSource interface {
	ActiveRules(ctx context.Context) ([]Rule, error)
}

// EligibilityEvaluator reports whether a user qualifies for flat discounts.
type EligibilityEvaluator interface {
	IsEligibleForFlatDiscount(ctx context.Context, userID string) (bool, error)
}

// Engine computes the discounts for an order. Percentage, flat, and category
// rules are applied in that fixed order, each kind independently
// short-circuited to the best single rule of that kind (category rules may
// apply once per distinct category).
type Engine struct {
	rules       RuleSource
	eligibility EligibilityEvaluator
}

// NewEngine creates an Engine with the given rule source and eligibility
// evaluator.
func NewEngine(rules RuleSource, eligibility EligibilityEvaluator) *Engine {
	return &Engine{rules: rules, eligibility: eligibility}
}

// Calculate runs one full calculation pass over the input. Every pass starts
// from a clean slate, so recalculating an unchanged order yields an
// identical result. Rule kinds with no qualifying rule are a normal no-op;
// the engine raises no domain errors of its own.
func (e *Engine) Calculate(ctx context.Context, in Input) (*Result, error) {
	rules, err := e.rules.ActiveRules(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load active rules")
	}

	res := &Result{
		Total:         decimal.Zero,
		Breakdown:     make(map[string]BreakdownEntry),
		ItemDiscounts: make(map[string]decimal.Decimal),
	}

	e.applyPercentage(in, rules, res)
	if err := e.applyFlat(ctx, in, rules, res); err != nil {
		return nil, err
	}
	e.applyCategory(in, rules, res)

	return res, nil
}

// applyPercentage applies the highest-priority percentage rule whose minimum
// order amount the subtotal satisfies.
func (e *Engine) applyPercentage(in Input, rules []Rule, res *Result) {
	for _, r := range rules {
		if r.Type != TypePercentage {
			continue
		}
		if r.MinOrderAmount != nil && in.Subtotal.LessThan(*r.MinOrderAmount) {
			continue
		}

		amount := in.Subtotal.Mul(r.Value).Div(hundred)
		res.accumulate(keyPercentage, amount, BreakdownEntry{
			Type:   string(TypePercentage),
			Name:   r.Name,
			Value:  r.Value.InexactFloat64(),
			Amount: amount.InexactFloat64(),
			RuleID: r.ID,
		})
		return
	}
}

// applyFlat applies the highest-priority flat rule. Rules carrying a
// min_completed_orders gate require the user to pass the eligibility check;
// the evaluator is consulted at most once per pass.
func (e *Engine) applyFlat(ctx context.Context, in Input, rules []Rule, res *Result) error {
	var eligible *bool
	for _, r := range rules {
		if r.Type != TypeFlat {
			continue
		}
		if r.MinCompletedOrders != nil {
			if eligible == nil {
				ok, err := e.eligibility.IsEligibleForFlatDiscount(ctx, in.UserID)
				if err != nil {
					return errors.Wrap(err, "flat discount eligibility")
				}
				eligible = &ok
			}
			if !*eligible {
				continue
			}
		}

		res.accumulate(keyFlat, r.Value, BreakdownEntry{
			Type:   string(TypeFlat),
			Name:   r.Name,
			Value:  r.Value.InexactFloat64(),
			Amount: r.Value.InexactFloat64(),
			RuleID: r.ID,
		})
		return nil
	}
	return nil
}

// applyCategory applies every qualifying category rule to all items of its
// category. The per-item discount is unit_price * value / 100 * quantity,
// and the whole category group qualifies when its combined quantity meets
// the rule's minimum.
func (e *Engine) applyCategory(in Input, rules []Rule, res *Result) {
	byCategory := make(map[string][]Item)
	for _, it := range in.Items {
		byCategory[it.CategoryID] = append(byCategory[it.CategoryID], it)
	}

	for _, r := range rules {
		if r.Type != TypeCategory || r.CategoryID == "" {
			continue
		}
		items, ok := byCategory[r.CategoryID]
		if !ok {
			continue
		}

		totalQty := 0
		for _, it := range items {
			totalQty += it.Quantity
		}
		if r.MinQuantity != nil && totalQty < *r.MinQuantity {
			continue
		}

		sum := decimal.Zero
		for _, it := range items {
			d := it.UnitPrice.Mul(r.Value).Div(hundred).Mul(decimal.NewFromInt(int64(it.Quantity)))
			res.ItemDiscounts[it.ID] = d
			res.Total = res.Total.Add(d)
			sum = sum.Add(d)
		}

		res.Breakdown[keyCategoryPrefix+r.CategoryID] = BreakdownEntry{
			Type:     string(TypeCategory),
			Name:     r.Name,
			Category: r.CategoryName,
			Value:    r.Value.InexactFloat64(),
			Amount:   sum.InexactFloat64(),
			RuleID:   r.ID,
		}
	}
}

// accumulate records an entry under key when its amount beats the already
// recorded amount, adding only the positive delta to the total. Within one
// pass the slot is normally empty, so the full amount is added.
func (r *Result) accumulate(key string, amount decimal.Decimal, entry BreakdownEntry) {
	existing := decimal.Zero
	if prev, ok := r.Breakdown[key]; ok {
		existing = decimal.NewFromFloat(prev.Amount)
	}
	if amount.GreaterThan(existing) {
		r.Total = r.Total.Add(amount.Sub(existing))
		r.Breakdown[key] = entry
	}
}
