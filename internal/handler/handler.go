// Package handler exposes the HTTP API: the product catalog, order
// placement and retrieval for the authenticated caller, and privileged
// discount rule management.
package handler

import (
	"net/http"

	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/order"
)

// Handler holds the domain collaborators behind the HTTP API.
type Handler struct {
	products   catalog.Repository
	categories catalog.CategoryRepository
	orders     *order.Service
	rules      discount.Repository
	ruleStore  *discount.Store
}

// New constructs a Handler with the required domain dependencies.
func New(
	products catalog.Repository,
	categories catalog.CategoryRepository,
	orders *order.Service,
	rules discount.Repository,
	ruleStore *discount.Store,
) *Handler {
	return &Handler{
		products:   products,
		categories: categories,
		orders:     orders,
		rules:      rules,
		ruleStore:  ruleStore,
	}
}

// Register attaches all API routes to the mux. Callers must already be
// authenticated by the security middleware; rule management and status
// transitions additionally require the admin scope.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/categories", h.listCategories)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("PATCH /api/orders/{id}/status", requireAdmin(h.updateOrderStatus))
	mux.HandleFunc("GET /api/rules", requireAdmin(h.listRules))
	mux.HandleFunc("GET /api/rules/{id}", requireAdmin(h.getRule))
	mux.HandleFunc("PUT /api/rules/{id}", requireAdmin(h.updateRule))
	mux.HandleFunc("DELETE /api/rules/{id}", requireAdmin(h.deleteRule))
}
