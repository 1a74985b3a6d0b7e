package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/discount"
)

type updateRuleRequest struct {
	Name               *string  `json:"name"`
	Value              *float64 `json:"value"`
	MinOrderAmount     *float64 `json:"min_order_amount"`
	MinQuantity        *int     `json:"min_quantity"`
	MinCompletedOrders *int     `json:"min_completed_orders"`
	CategoryID         *string  `json:"category_id"`
	Active             *bool    `json:"is_active"`
	Priority           *int     `json:"priority"`
}

// listRules returns all active discount rules in evaluation order.
func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.ruleStore.ActiveRules(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	page := parsePage(r)
	start := page.offset()
	if start > len(rules) {
		start = len(rules)
	}
	end := start + page.PageSize
	if end > len(rules) {
		end = len(rules)
	}

	writePage(w, page, len(rules), func(e *jx.Encoder) {
		for i := start; i < end; i++ {
			encodeRule(e, &rules[i])
		}
	})
}

func (h *Handler) getRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.rules.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	e := &jx.Encoder{}
	encodeRule(e, rule)
	writeJSON(w, http.StatusOK, e)
}

// updateRule applies a partial update to a rule and invalidates the active
// rule cache so the next calculation pass sees the change.
func (h *Handler) updateRule(w http.ResponseWriter, r *http.Request) {
	var req updateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := h.rules.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Value != nil {
		rule.Value = decimal.NewFromFloat(*req.Value)
	}
	if req.MinOrderAmount != nil {
		min := decimal.NewFromFloat(*req.MinOrderAmount)
		rule.MinOrderAmount = &min
	}
	if req.MinQuantity != nil {
		rule.MinQuantity = req.MinQuantity
	}
	if req.MinCompletedOrders != nil {
		rule.MinCompletedOrders = req.MinCompletedOrders
	}
	if req.CategoryID != nil {
		rule.CategoryID = *req.CategoryID
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	rule.UpdatedAt = time.Now().UTC()

	if err := h.rules.Update(r.Context(), rule); err != nil {
		respondError(w, r, err)
		return
	}
	h.ruleStore.Invalidate()

	e := &jx.Encoder{}
	encodeRule(e, rule)
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) deleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.rules.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	h.ruleStore.Invalidate()

	w.WriteHeader(http.StatusNoContent)
}

func encodeRule(e *jx.Encoder, rule *discount.Rule) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(rule.ID)
	e.FieldStart("name")
	e.Str(rule.Name)
	e.FieldStart("discount_type")
	e.Str(string(rule.Type))
	e.FieldStart("value")
	e.Float64(rule.Value.InexactFloat64())
	e.FieldStart("min_order_amount")
	if rule.MinOrderAmount != nil {
		e.Float64(rule.MinOrderAmount.InexactFloat64())
	} else {
		e.Null()
	}
	e.FieldStart("min_quantity")
	if rule.MinQuantity != nil {
		e.Int(*rule.MinQuantity)
	} else {
		e.Null()
	}
	e.FieldStart("min_completed_orders")
	if rule.MinCompletedOrders != nil {
		e.Int(*rule.MinCompletedOrders)
	} else {
		e.Null()
	}
	e.FieldStart("category")
	if rule.CategoryID != "" {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(rule.CategoryID)
		e.FieldStart("name")
		e.Str(rule.CategoryName)
		e.ObjEnd()
	} else {
		e.Null()
	}
	e.FieldStart("is_active")
	e.Bool(rule.Active)
	e.FieldStart("priority")
	e.Int(rule.Priority)
	e.FieldStart("created_at")
	e.Str(rule.CreatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}
