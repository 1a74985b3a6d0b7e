package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/catalog"
)

// listProducts returns active products, optionally filtered by category name
// (case-insensitive), ordered by name, paginated.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)
	products, total, err := h.products.ListActive(r.Context(), catalog.ListFilter{
		Category: r.URL.Query().Get("category"),
		Offset:   page.offset(),
		Limit:    page.PageSize,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writePage(w, page, total, func(e *jx.Encoder) {
		for _, p := range products {
			encodeProduct(e, p)
		}
	})
}

// listCategories returns all product categories ordered by name. The
// discount percentage is informational; applied discounts come from rules.
func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	page := parsePage(r)
	start := min(page.offset(), len(categories))
	end := min(start+page.PageSize, len(categories))

	writePage(w, page, len(categories), func(e *jx.Encoder) {
		for _, c := range categories[start:end] {
			encodeCategory(e, c)
		}
	})
}

func encodeCategory(e *jx.Encoder, c catalog.Category) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(c.ID)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("description")
	e.Str(c.Description)
	e.FieldStart("discount_percentage")
	e.Float64(c.DiscountPercentage.InexactFloat64())
	e.ObjEnd()
}

func encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	e.Float64(p.Price.InexactFloat64())
	e.FieldStart("category")
	e.Str(p.CategoryName)
	e.FieldStart("stock_quantity")
	e.Int(p.StockQuantity)
	e.FieldStart("is_active")
	e.Bool(p.Active)
	e.ObjEnd()
}
