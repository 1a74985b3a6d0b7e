package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/order"
)

type createOrderRequest struct {
	Items []createOrderItem `json:"items"`
}

type createOrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// listOrders returns the caller's orders, newest first, paginated.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())
	page := parsePage(r)

	orders, total, err := h.orders.List(r.Context(), id.UserID, order.Page{
		Offset: page.offset(),
		Limit:  page.PageSize,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writePage(w, page, total, func(e *jx.Encoder) {
		for i := range orders {
			encodeOrder(e, &orders[i])
		}
	})
}

// createOrder places a new order for the caller. Stock validation rejects
// the whole request before anything is persisted.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines := make([]order.LineRequest, len(req.Items))
	for i, it := range req.Items {
		lines[i] = order.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID: id.UserID,
		Items:  lines,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	// The creating caller's display name is not loaded by the service path.
	o.Username = id.Name

	e := &jx.Encoder{}
	encodeOrder(e, o)
	writeJSON(w, http.StatusCreated, e)
}

// getOrder returns a single order belonging to the caller.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := IdentityFrom(r.Context())

	o, err := h.orders.Get(r.Context(), r.PathValue("id"), id.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	e := &jx.Encoder{}
	encodeOrder(e, o)
	writeJSON(w, http.StatusOK, e)
}

// updateOrderStatus transitions an order's status. Admin only; completing an
// order triggers the owner's loyalty-point recompute.
func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := order.Status(req.Status)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid order status")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		respondError(w, r, err)
		return
	}

	e := &jx.Encoder{}
	encodeOrder(e, o)
	writeJSON(w, http.StatusOK, e)
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("user")
	e.Str(o.Username)
	e.FieldStart("order_date")
	e.Str(o.OrderDate.UTC().Format(time.RFC3339))
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("subtotal")
	e.Float64(o.Subtotal.InexactFloat64())
	e.FieldStart("total_discount")
	e.Float64(o.TotalDiscount.InexactFloat64())
	e.FieldStart("final_amount")
	e.Float64(o.FinalAmount.InexactFloat64())
	e.FieldStart("is_cancelled")
	e.Bool(o.Cancelled)
	e.FieldStart("is_returned")
	e.Bool(o.Returned)

	e.FieldStart("discount_breakdown")
	if raw, err := json.Marshal(o.Breakdown); err == nil {
		e.Raw(raw)
	} else {
		e.ObjStart()
		e.ObjEnd()
	}

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		encodeOrderItem(e, it)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeOrderItem(e *jx.Encoder, it order.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("product")
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ProductID)
	e.FieldStart("name")
	e.Str(it.ProductName)
	e.ObjEnd()
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.FieldStart("unit_price")
	e.Float64(it.UnitPrice.InexactFloat64())
	e.FieldStart("category")
	e.Str(it.CategoryName)
	e.FieldStart("item_discount")
	e.Float64(it.ItemDiscount.InexactFloat64())
	e.ObjEnd()
}
