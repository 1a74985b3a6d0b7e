//go:build integration

package integration

import (
	"math"
	"net/http"
	"regexp"
	"testing"
)

// Seeded fixture IDs (see cmd/seed-db).
const (
	productHeadphones = "7c210000-0000-4000-8000-000000000001" // $199, Electronics
	productKeyboard   = "7c210000-0000-4000-8000-000000000002" // $129, Electronics
	productMonitor    = "7c210000-0000-4000-8000-000000000003" // $449, Electronics
	productGoBook     = "7c210000-0000-4000-8000-000000000004" // $39.99, Books

	categoryElectronics = "8d6f54f4-0f12-4f5a-9f43-0a8f6b1f2a01"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestPlaceOrder_NoAuth(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{{ProductID: productGoBook, Quantity: 1}},
	}
	resp := doReq(t, http.MethodPost, "/api/orders", "", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_InvalidKey(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{{ProductID: productGoBook, Quantity: 1}},
	}
	resp := doReq(t, http.MethodPost, "/api/orders", "wrong-key", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	resp := doReq(t, http.MethodPost, "/api/orders", customerAPIKey, orderRequest{})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Message != "items required" {
		t.Errorf("message: got %q", body.Message)
	}
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{{ProductID: "00000000-0000-4000-8000-00000000dead", Quantity: 1}},
	}
	resp := doReq(t, http.MethodPost, "/api/orders", customerAPIKey, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_NoDiscount(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{{ProductID: productGoBook, Quantity: 1}},
	}
	resp := doReq(t, http.MethodPost, "/api/orders", customerAPIKey, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	o := decodeJSON[orderResponse](t, resp)
	if !uuidPattern.MatchString(o.ID) {
		t.Errorf("id: got %q, want a UUID", o.ID)
	}
	if o.Status != "pending" {
		t.Errorf("status: got %q, want pending", o.Status)
	}
	if !approxEqual(o.Subtotal, 39.99) {
		t.Errorf("subtotal: got %v, want 39.99", o.Subtotal)
	}
	if o.TotalDiscount != 0 {
		t.Errorf("total_discount: got %v, want 0", o.TotalDiscount)
	}
	if !approxEqual(o.FinalAmount, 39.99) {
		t.Errorf("final_amount: got %v, want 39.99", o.FinalAmount)
	}
	if len(o.DiscountBreakdown) != 0 {
		t.Errorf("breakdown: got %v, want empty", o.DiscountBreakdown)
	}
}

func TestPlaceOrder_PercentageDiscount(t *testing.T) {
	// Monitor + headphones: $648 subtotal crosses the $500 threshold for the
	// seeded 10% rule; only 2 electronics, so the category rule stays off.
	req := orderRequest{
		Items: []orderItemRequest{
			{ProductID: productMonitor, Quantity: 1},
			{ProductID: productHeadphones, Quantity: 1},
		},
	}
	resp := doReq(t, http.MethodPost, "/api/orders", customerAPIKey, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	o := decodeJSON[orderResponse](t, resp)
	if !approxEqual(o.Subtotal, 648) {
		t.Errorf("subtotal: got %v, want 648", o.Subtotal)
	}
	if !approxEqual(o.TotalDiscount, 64.8) {
		t.Errorf("total_discount: got %v, want 64.8", o.TotalDiscount)
	}
	if !approxEqual(o.FinalAmount, 583.2) {
		t.Errorf("final_amount: got %v, want 583.2", o.FinalAmount)
	}

	entry, ok := o.DiscountBreakdown["percentage_discount"]
	if !ok {
		t.Fatalf("breakdown missing percentage_discount: %v", o.DiscountBreakdown)
	}
	if entry.Name != "Big order 10% off" {
		t.Errorf("breakdown name: got %q", entry.Name)
	}
	if !approxEqual(entry.Amount, 64.8) {
		t.Errorf("breakdown amount: got %v, want 64.8", entry.Amount)
	}
}

func TestPlaceOrder_CategoryDiscount(t *testing.T) {
	// Two keyboards + headphones: 3 electronics trigger the seeded 15%
	// category rule; subtotal $457 stays under the percentage threshold.
	req := orderRequest{
		Items: []orderItemRequest{
			{ProductID: productKeyboard, Quantity: 2},
			{ProductID: productHeadphones, Quantity: 1},
		},
	}
	resp := doReq(t, http.MethodPost, "/api/orders", customerAPIKey, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	o := decodeJSON[orderResponse](t, resp)
	if !approxEqual(o.Subtotal, 457) {
		t.Errorf("subtotal: got %v, want 457", o.Subtotal)
	}
	// 15% of (129*2) + 15% of 199 = 38.70 + 29.85.
	if !approxEqual(o.TotalDiscount, 68.55) {
		t.Errorf("total_discount: got %v, want 68.55", o.TotalDiscount)
	}

	entry, ok := o.DiscountBreakdown["category_discount_"+categoryElectronics]
	if !ok {
		t.Fatalf("breakdown missing category entry: %v", o.DiscountBreakdown)
	}
	if entry.Category != "Electronics" {
		t.Errorf("breakdown category: got %q", entry.Category)
	}

	for _, it := range o.Items {
		var want float64
		switch it.Product.ID {
		case productKeyboard:
			want = 38.70
		case productHeadphones:
			want = 29.85
		}
		if !approxEqual(it.ItemDiscount, want) {
			t.Errorf("item %s discount: got %v, want %v", it.Product.Name, it.ItemDiscount, want)
		}
	}
}

func TestGetOrder_Ownership(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{{ProductID: productGoBook, Quantity: 1}},
	}
	resp := doReq(t, http.MethodPost, "/api/orders", customerAPIKey, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	o := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	got := doGet(t, "/api/orders/"+o.ID, customerAPIKey)
	defer got.Body.Close()
	if got.StatusCode != http.StatusOK {
		t.Fatalf("owner read: expected 200, got %d", got.StatusCode)
	}

	// Admin key belongs to a different user and must not see the order.
	other := doGet(t, "/api/orders/"+o.ID, adminAPIKey)
	defer other.Body.Close()
	if other.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign read: expected 404, got %d", other.StatusCode)
	}
}

func TestListOrders(t *testing.T) {
	resp := doGet(t, "/api/orders", customerAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	page, orders := decodePage[orderResponse](t, resp)
	if page.Count == 0 || len(orders) == 0 {
		t.Fatal("expected at least one order for the customer")
	}
	for _, o := range orders {
		if o.User != "alice" {
			t.Errorf("order %s: user %q, want alice", o.ID, o.User)
		}
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	req := orderRequest{
		Items: []orderItemRequest{{ProductID: productGoBook, Quantity: 1}},
	}
	resp := doReq(t, http.MethodPost, "/api/orders", customerAPIKey, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	o := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	// Customer keys cannot transition statuses.
	forbidden := doReq(t, http.MethodPatch, "/api/orders/"+o.ID+"/status", customerAPIKey,
		map[string]string{"status": "completed"})
	defer forbidden.Body.Close()
	if forbidden.StatusCode != http.StatusForbidden {
		t.Fatalf("customer transition: expected 403, got %d", forbidden.StatusCode)
	}

	updated := doReq(t, http.MethodPatch, "/api/orders/"+o.ID+"/status", adminAPIKey,
		map[string]string{"status": "completed"})
	defer updated.Body.Close()
	if updated.StatusCode != http.StatusOK {
		t.Fatalf("admin transition: expected 200, got %d", updated.StatusCode)
	}

	body := decodeJSON[orderResponse](t, updated)
	if body.Status != "completed" {
		t.Errorf("status: got %q, want completed", body.Status)
	}
	if body.IsCancelled || body.IsReturned {
		t.Errorf("flags: cancelled=%v returned=%v, want false", body.IsCancelled, body.IsReturned)
	}
}
