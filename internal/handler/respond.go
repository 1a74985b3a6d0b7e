package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/order"
)

// Pagination defaults, matching the standard page size used across listings.
const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// pageParams is the parsed page/page_size query pair.
type pageParams struct {
	Page     int
	PageSize int
}

func (p pageParams) offset() int { return (p.Page - 1) * p.PageSize }

// parsePage reads page and page_size query parameters, clamping page_size to
// the allowed maximum. Invalid values fall back to defaults.
func parsePage(r *http.Request) pageParams {
	p := pageParams{Page: 1, PageSize: defaultPageSize}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 {
		p.PageSize = min(v, maxPageSize)
	}
	return p
}

// writeJSON writes the encoder's buffer as a JSON response.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the standard error body {"code": ..., "message": ...}.
func writeError(w http.ResponseWriter, status int, message string) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, e)
}

// writePage writes the pagination envelope around a result array.
func writePage(w http.ResponseWriter, p pageParams, count int, results func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("count")
	e.Int(count)
	e.FieldStart("page")
	e.Int(p.Page)
	e.FieldStart("page_size")
	e.Int(p.PageSize)
	e.FieldStart("results")
	e.ArrStart()
	results(e)
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e)
}

// respondError maps domain errors to HTTP status codes. Validation failures
// are 400, missing or unowned resources 404, everything unexpected 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr    *order.InvalidQuantityError
		pnfErr   *order.ProductNotFoundError
		dupErr   *order.DuplicateProductError
		stockErr *order.InsufficientStockError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.As(err, &iqErr),
		errors.As(err, &pnfErr),
		errors.As(err, &dupErr),
		errors.As(err, &stockErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, discount.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, "discount rule not found")
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
