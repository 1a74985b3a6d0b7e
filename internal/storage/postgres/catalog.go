package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/catalog"
)

const (
	listActiveProductsSQL = `SELECT p.id, p.name, p.description, p.price, p.category_id, c.name,
			p.stock_quantity, p.active
		FROM products p
		JOIN product_categories c ON c.id = p.category_id
		WHERE p.active AND ($1 = '' OR LOWER(c.name) = LOWER($1))
		ORDER BY p.name
		OFFSET $2 LIMIT $3`

	countActiveProductsSQL = `SELECT COUNT(*)
		FROM products p
		JOIN product_categories c ON c.id = p.category_id
		WHERE p.active AND ($1 = '' OR LOWER(c.name) = LOWER($1))`

	getProductsByIDsSQL = `SELECT p.id, p.name, p.description, p.price, p.category_id, c.name,
			p.stock_quantity, p.active
		FROM products p
		JOIN product_categories c ON c.id = p.category_id
		WHERE p.id = ANY($1)`

	listCategoriesSQL = `SELECT id, name, description, discount_percentage
		FROM product_categories ORDER BY name`
)

var (
	_ catalog.Repository         = (*ProductRepository)(nil)
	_ catalog.CategoryRepository = (*CategoryRepository)(nil)
)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// ListActive returns active products matching the filter ordered by name,
// with the total matching count for pagination.
func (r *ProductRepository) ListActive(ctx context.Context, filter catalog.ListFilter) ([]catalog.Product, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countActiveProductsSQL, filter.Category).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	rows, err := r.pool.Query(ctx, listActiveProductsSQL, filter.Category, filter.Offset, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, 0, fmt.Errorf("scanning products: %w", err)
	}
	return products, total, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID, &p.CategoryName,
		&p.StockQuantity, &p.Active,
	)
	return p, err
}

// CategoryRepository implements catalog.CategoryRepository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// List returns all categories ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Category, error) {
		var c catalog.Category
		err := row.Scan(&c.ID, &c.Name, &c.Description, &c.DiscountPercentage)
		return c, err
	})
}
