//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products?page_size=100", customerAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	page, products := decodePage[productResponse](t, resp)
	if page.Count != seededProducts {
		t.Fatalf("count: got %d, want %d", page.Count, seededProducts)
	}
	if len(products) != seededProducts {
		t.Fatalf("results: got %d, want %d", len(products), seededProducts)
	}
}

func TestListProducts_Pagination(t *testing.T) {
	resp := doGet(t, "/api/products?page=2&page_size=3", customerAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	page, products := decodePage[productResponse](t, resp)
	if page.Page != 2 || page.PageSize != 3 {
		t.Fatalf("page envelope: got page=%d size=%d", page.Page, page.PageSize)
	}
	if page.Count != seededProducts {
		t.Fatalf("count: got %d, want %d", page.Count, seededProducts)
	}
	if len(products) != 3 {
		t.Fatalf("results: got %d, want 3", len(products))
	}
}

func TestListProducts_CategoryFilter(t *testing.T) {
	resp := doGet(t, "/api/products?category=Books&page_size=100", customerAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	_, products := decodePage[productResponse](t, resp)
	if len(products) == 0 {
		t.Fatal("expected at least one Books product")
	}
	for _, p := range products {
		if p.Category != "Books" {
			t.Errorf("product %s: category %q, want Books", p.Name, p.Category)
		}
	}
}

func TestListProducts_Fields(t *testing.T) {
	resp := doGet(t, "/api/products?page_size=100", customerAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	_, products := decodePage[productResponse](t, resp)

	var monitor *productResponse
	for i := range products {
		if products[i].Name == "4K Monitor" {
			monitor = &products[i]
			break
		}
	}
	if monitor == nil {
		t.Fatal("seeded product '4K Monitor' not found")
	}

	if monitor.Price != 449 {
		t.Errorf("price: got %v, want 449", monitor.Price)
	}
	if monitor.Category != "Electronics" {
		t.Errorf("category: got %q, want Electronics", monitor.Category)
	}
	if monitor.StockQuantity <= 0 {
		t.Errorf("stock_quantity: got %d, want > 0", monitor.StockQuantity)
	}
	if !monitor.IsActive {
		t.Error("is_active: got false, want true")
	}
}

func TestListCategories(t *testing.T) {
	resp := doGet(t, "/api/categories", customerAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	page, categories := decodePage[categoryResponse](t, resp)
	if page.Count != 3 {
		t.Fatalf("count: got %d, want 3", page.Count)
	}

	var electronics *categoryResponse
	for i := range categories {
		if categories[i].Name == "Electronics" {
			electronics = &categories[i]
			break
		}
	}
	if electronics == nil {
		t.Fatal("seeded category 'Electronics' not found")
	}
	if electronics.DiscountPercentage != 5 {
		t.Errorf("discount_percentage: got %v, want 5", electronics.DiscountPercentage)
	}
}
