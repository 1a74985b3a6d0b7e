package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/user"
)

const (
	getUserByIDSQL = `SELECT id, username, phone_number, loyalty_points
		FROM users WHERE id = $1`

	// "Completed" always means completed status with neither flag set.
	countCompletedOrdersSQL = `SELECT COUNT(*) FROM orders
		WHERE user_id = $1 AND status = 'completed'
		AND NOT is_cancelled AND NOT is_returned`

	sumCompletedOrdersSQL = `SELECT COALESCE(SUM(final_amount), 0) FROM orders
		WHERE user_id = $1 AND status = 'completed'
		AND NOT is_cancelled AND NOT is_returned`

	setLoyaltyPointsSQL = `UPDATE users SET loyalty_points = $2 WHERE id = $1`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID returns a single user, or user.ErrNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	err := r.pool.QueryRow(ctx, getUserByIDSQL, id).Scan(
		&u.ID, &u.Username, &u.PhoneNumber, &u.LoyaltyPoints,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}
	return &u, nil
}

// CountCompletedOrders counts the user's completed, non-cancelled,
// non-returned orders.
func (r *UserRepository) CountCompletedOrders(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, countCompletedOrdersSQL, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting completed orders for user %q: %w", userID, err)
	}
	return count, nil
}

// SumCompletedOrderAmount sums final_amount over the same completed order set.
func (r *UserRepository) SumCompletedOrderAmount(ctx context.Context, userID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.pool.QueryRow(ctx, sumCompletedOrdersSQL, userID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("summing completed orders for user %q: %w", userID, err)
	}
	return sum, nil
}

// SetLoyaltyPoints persists a recomputed loyalty balance.
func (r *UserRepository) SetLoyaltyPoints(ctx context.Context, userID string, points int) error {
	tag, err := r.pool.Exec(ctx, setLoyaltyPointsSQL, userID, points)
	if err != nil {
		return fmt.Errorf("setting loyalty points for user %q: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}
