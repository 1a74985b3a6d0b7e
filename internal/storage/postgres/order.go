package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, user_id, order_date, status, subtotal,
			total_discount, final_amount, is_cancelled, is_returned, discount_breakdown)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, quantity,
			unit_price, category_id, item_discount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	updateOrderSQL = `UPDATE orders
		SET status = $2, subtotal = $3, total_discount = $4, final_amount = $5,
			is_cancelled = $6, is_returned = $7, discount_breakdown = $8
		WHERE id = $1`

	updateItemDiscountSQL = `UPDATE order_items SET item_discount = $2 WHERE id = $1`

	orderColumns = `o.id, o.user_id, u.username, o.order_date, o.status, o.subtotal,
		o.total_discount, o.final_amount, o.is_cancelled, o.is_returned, o.discount_breakdown`

	getOrderSQL = `SELECT ` + orderColumns + `
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.id = $1`

	getOrderForUserSQL = `SELECT ` + orderColumns + `
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.id = $1 AND o.user_id = $2`

	listOrdersForUserSQL = `SELECT ` + orderColumns + `
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.user_id = $1
		ORDER BY o.order_date DESC
		OFFSET $2 LIMIT $3`

	countOrdersForUserSQL = `SELECT COUNT(*) FROM orders WHERE user_id = $1`

	listOrderItemsSQL = `SELECT i.id, i.order_id, i.product_id, p.name, i.quantity,
			i.unit_price, i.category_id, c.name, i.item_discount
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		JOIN product_categories c ON c.id = i.category_id
		WHERE i.order_id = ANY($1)
		ORDER BY p.name`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Writes
// that span the order row and its items run in a single transaction.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateWithItems persists a new order and all its items atomically.
func (r *OrderRepository) CreateWithItems(ctx context.Context, o *order.Order) error {
	breakdown, err := marshalBreakdown(o.Breakdown)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.OrderDate, string(o.Status), o.Subtotal,
		o.TotalDiscount, o.FinalAmount, o.Cancelled, o.Returned, breakdown,
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, insertOrderItemSQL,
			it.ID, it.OrderID, it.ProductID, it.Quantity,
			it.UnitPrice, it.CategoryID, it.ItemDiscount,
		)
		if err != nil {
			return fmt.Errorf("inserting order item %q: %w", it.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// Update persists the order row and every item's discount atomically.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	breakdown, err := marshalBreakdown(o.Breakdown)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, updateOrderSQL,
		o.ID, string(o.Status), o.Subtotal, o.TotalDiscount, o.FinalAmount,
		o.Cancelled, o.Returned, breakdown,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, updateItemDiscountSQL, it.ID, it.ItemDiscount); err != nil {
			return fmt.Errorf("updating order item %q: %w", it.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order with its items regardless of owner.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderSQL, id)
}

// GetForUser returns the order when it belongs to userID, order.ErrNotFound
// otherwise.
func (r *OrderRepository) GetForUser(ctx context.Context, id, userID string) (*order.Order, error) {
	return r.getOne(ctx, getOrderForUserSQL, id, userID)
}

func (r *OrderRepository) getOne(ctx context.Context, sql string, args ...any) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order: %w", err)
	}

	if err := r.attachItems(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListForUser returns a page of the user's orders, newest first, with items
// attached, plus the total count.
func (r *OrderRepository) ListForUser(ctx context.Context, userID string, page order.Page) ([]order.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countOrdersForUserSQL, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	rows, err := r.pool.Query(ctx, listOrdersForUserSQL, userID, page.Offset, page.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("scanning orders: %w", err)
	}

	refs := make([]*order.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.attachItems(ctx, refs); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// attachItems loads the items for all given orders in one query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return fmt.Errorf("scanning order items: %w", err)
	}

	for _, it := range items {
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		status    string
		breakdown []byte
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.Username, &o.OrderDate, &status, &o.Subtotal,
		&o.TotalDiscount, &o.FinalAmount, &o.Cancelled, &o.Returned, &breakdown,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(breakdown, &o.Breakdown); err != nil {
		return o, fmt.Errorf("unmarshaling breakdown for order %q: %w", o.ID, err)
	}
	return o, nil
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity,
		&it.UnitPrice, &it.CategoryID, &it.CategoryName, &it.ItemDiscount,
	)
	return it, err
}

func marshalBreakdown(b map[string]discount.BreakdownEntry) ([]byte, error) {
	if b == nil {
		b = map[string]discount.BreakdownEntry{}
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshaling discount breakdown: %w", err)
	}
	return data, nil
}
