package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/discount"
)

const (
	ruleColumns = `r.id, r.name, r.discount_type, r.value, r.min_order_amount, r.min_quantity,
		r.category_id, COALESCE(c.name, ''), r.min_completed_orders, r.active, r.priority,
		r.created_at, r.updated_at`

	listActiveRulesSQL = `SELECT ` + ruleColumns + `
		FROM discount_rules r
		LEFT JOIN product_categories c ON c.id = r.category_id
		WHERE r.active
		ORDER BY r.priority DESC, r.created_at`

	getRuleByIDSQL = `SELECT ` + ruleColumns + `
		FROM discount_rules r
		LEFT JOIN product_categories c ON c.id = r.category_id
		WHERE r.id = $1`

	updateRuleSQL = `UPDATE discount_rules
		SET name = $2, discount_type = $3, value = $4, min_order_amount = $5,
			min_quantity = $6, category_id = $7, min_completed_orders = $8,
			active = $9, priority = $10, updated_at = now()
		WHERE id = $1`

	deleteRuleSQL = `DELETE FROM discount_rules WHERE id = $1`
)

var _ discount.Repository = (*RuleRepository)(nil)

// RuleRepository implements discount.Repository backed by PostgreSQL.
type RuleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository returns a RuleRepository that uses the given pool.
func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

// ListActive returns all active rules sorted by priority descending, ties
// broken by ascending creation time.
func (r *RuleRepository) ListActive(ctx context.Context) ([]discount.Rule, error) {
	rows, err := r.pool.Query(ctx, listActiveRulesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active rules: %w", err)
	}
	return pgx.CollectRows(rows, scanRule)
}

// GetByID returns a single rule, or discount.ErrRuleNotFound.
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*discount.Rule, error) {
	rows, err := r.pool.Query(ctx, getRuleByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting rule %q: %w", id, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrRuleNotFound
		}
		return nil, fmt.Errorf("getting rule %q: %w", id, err)
	}
	return &rule, nil
}

// Update persists all mutable rule fields. Returns discount.ErrRuleNotFound
// when no row matches.
func (r *RuleRepository) Update(ctx context.Context, rule *discount.Rule) error {
	var categoryID *string
	if rule.CategoryID != "" {
		categoryID = &rule.CategoryID
	}

	tag, err := r.pool.Exec(ctx, updateRuleSQL,
		rule.ID, rule.Name, string(rule.Type), rule.Value, rule.MinOrderAmount,
		rule.MinQuantity, categoryID, rule.MinCompletedOrders,
		rule.Active, rule.Priority,
	)
	if err != nil {
		return fmt.Errorf("updating rule %q: %w", rule.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrRuleNotFound
	}
	return nil
}

// Delete removes a rule. Returns discount.ErrRuleNotFound when no row matches.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteRuleSQL, id)
	if err != nil {
		return fmt.Errorf("deleting rule %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrRuleNotFound
	}
	return nil
}

func scanRule(row pgx.CollectableRow) (discount.Rule, error) {
	var (
		rule         discount.Rule
		discountType string
		categoryID   *string
	)
	err := row.Scan(
		&rule.ID, &rule.Name, &discountType, &rule.Value, &rule.MinOrderAmount,
		&rule.MinQuantity, &categoryID, &rule.CategoryName, &rule.MinCompletedOrders,
		&rule.Active, &rule.Priority, &rule.CreatedAt, &rule.UpdatedAt,
	)
	rule.Type = discount.Type(discountType)
	if categoryID != nil {
		rule.CategoryID = *categoryID
	}
	return rule, err
}
