package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/discount"
)

// ErrEmptyItems is returned when an order is placed without line items.
var ErrEmptyItems = errors.New("items required")

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ProductNotFoundError indicates a requested product does not exist or is
// inactive.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// DuplicateProductError indicates the same product appears twice in one
// order request; (order, product) pairs are unique within an order.
type DuplicateProductError struct {
	ProductID string
}

func (e *DuplicateProductError) Error() string {
	return fmt.Sprintf("product %s appears more than once", e.ProductID)
}

// InsufficientStockError indicates a requested quantity exceeds the
// product's stock. Raised before any mutation occurs.
type InsufficientStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// LoyaltyRecomputer recomputes a user's loyalty points from purchase history.
type LoyaltyRecomputer interface {
	RecomputeLoyaltyPoints(ctx context.Context, userID string) error
}

// LineRequest is one requested line of a new order.
type LineRequest struct {
	ProductID string
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID string
	Items  []LineRequest
}

// Service orchestrates order creation, recalculation, and status
// transitions. The sequencing is explicit here rather than hidden in
// persistence hooks: items → subtotal → discounts → final amount → loyalty.
type Service struct {
	products catalog.Repository
	orders   Repository
	engine   *discount.Engine
	loyalty  LoyaltyRecomputer
	now      func() time.Time
}

// NewService creates an order Service with the required collaborators.
func NewService(
	products catalog.Repository,
	orders Repository,
	engine *discount.Engine,
	loyalty LoyaltyRecomputer,
) *Service {
	return &Service{
		products: products,
		orders:   orders,
		engine:   engine,
		loyalty:  loyalty,
		now:      time.Now,
	}
}

// PlaceOrder validates the request, snapshots product prices and categories
// onto new line items, computes the subtotal and discounts, and persists the
// order with its items atomically. Validation failures surface before any
// mutation; a persistence failure leaves no partial order visible.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	seen := make(map[string]struct{}, len(req.Items))
	for i, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: line.ProductID}
		}
		if _, dup := seen[line.ProductID]; dup {
			return nil, &DuplicateProductError{ProductID: line.ProductID}
		}
		seen[line.ProductID] = struct{}{}
		ids[i] = line.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	productMap := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Stock validation for every line before creating anything.
	for _, line := range req.Items {
		p, ok := productMap[line.ProductID]
		if !ok || !p.Active {
			return nil, &ProductNotFoundError{ProductID: line.ProductID}
		}
		if line.Quantity > p.StockQuantity {
			return nil, &InsufficientStockError{
				ProductName: p.Name,
				Requested:   line.Quantity,
				Available:   p.StockQuantity,
			}
		}
	}

	o := &Order{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		OrderDate: s.now(),
		Status:    StatusPending,
	}
	for _, line := range req.Items {
		p := productMap[line.ProductID]
		o.Items = append(o.Items, Item{
			ID:           uuid.New().String(),
			OrderID:      o.ID,
			ProductID:    p.ID,
			ProductName:  p.Name,
			Quantity:     line.Quantity,
			UnitPrice:    p.Price,
			CategoryID:   p.CategoryID,
			CategoryName: p.CategoryName,
			ItemDiscount: decimal.Zero,
		})
	}

	o.Subtotal = Subtotal(o.Items)
	if err := s.applyDiscounts(ctx, o); err != nil {
		return nil, err
	}

	if err := s.orders.CreateWithItems(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// Recalculate reruns the pricing pipeline on an existing order: subtotal
// from items, a fresh discount pass, final amount, then a single atomic
// persist. Recalculating an unchanged order is idempotent because the
// discount pass always starts from a clean slate.
func (s *Service) Recalculate(ctx context.Context, o *Order) (decimal.Decimal, error) {
	o.Subtotal = Subtotal(o.Items)
	if err := s.applyDiscounts(ctx, o); err != nil {
		return decimal.Zero, err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return decimal.Zero, errors.Wrap(err, "update order")
	}
	return o.TotalDiscount, nil
}

// UpdateStatus transitions the order to the given status and persists it
// with a recomputed final amount. A transition to completed on an order that
// is not cancelled and not returned triggers the owner's loyalty-point
// recompute, synchronously, after the order row is persisted.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, errors.Errorf("invalid order status %q", status)
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	o.Status = status
	switch status {
	case StatusCancelled:
		o.Cancelled = true
	case StatusReturned:
		o.Returned = true
	}
	o.FinalAmount = o.Subtotal.Sub(o.TotalDiscount)

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}

	if o.Status == StatusCompleted && !o.Cancelled && !o.Returned {
		if err := s.loyalty.RecomputeLoyaltyPoints(ctx, o.UserID); err != nil {
			return nil, errors.Wrap(err, "recompute loyalty points")
		}
	}
	return o, nil
}

// Get returns the order when it belongs to userID.
func (s *Service) Get(ctx context.Context, id, userID string) (*Order, error) {
	return s.orders.GetForUser(ctx, id, userID)
}

// List returns the user's orders newest first.
func (s *Service) List(ctx context.Context, userID string, page Page) ([]Order, int, error) {
	return s.orders.ListForUser(ctx, userID, page)
}

// applyDiscounts runs one engine pass and writes the result onto the order:
// total discount, breakdown, per-item discounts, and the final amount.
func (s *Service) applyDiscounts(ctx context.Context, o *Order) error {
	in := discount.Input{
		UserID:   o.UserID,
		Subtotal: o.Subtotal,
		Items:    make([]discount.Item, len(o.Items)),
	}
	for i, it := range o.Items {
		in.Items[i] = discount.Item{
			ID:         it.ID,
			CategoryID: it.CategoryID,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
		}
	}

	res, err := s.engine.Calculate(ctx, in)
	if err != nil {
		return errors.Wrap(err, "calculate discounts")
	}

	o.TotalDiscount = res.Total
	o.Breakdown = res.Breakdown
	for i := range o.Items {
		if d, ok := res.ItemDiscounts[o.Items[i].ID]; ok {
			o.Items[i].ItemDiscount = d
		}
	}
	o.FinalAmount = o.Subtotal.Sub(o.TotalDiscount)
	return nil
}
