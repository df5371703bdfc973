package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vitrinelabs/vitrine/core"
	"github.com/vitrinelabs/vitrine/transport"
)

type recordingLogger struct {
	core.NoOpLogger
	infos []string
}

func (l *recordingLogger) Info(msg string, fields map[string]interface{}) {
	l.infos = append(l.infos, msg)
}

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	api := transport.NewClient(server.URL, nil, nil, core.RetryConfig{
		MaxAttempts:   2,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2.0,
	})
	return NewClient(api, nil)
}

func TestClientProducts(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/PRODUCT-SERVICE/products" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]core.Product{
			{ID: 5, Name: "Widget", Price: 19.99, Category: core.ProductCategory{ID: 2, Name: "Tools"}},
		})
	}))

	products, err := c.Products(context.Background())
	if err != nil {
		t.Fatalf("Products() failed: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Widget" || products[0].Category.Name != "Tools" {
		t.Errorf("products = %+v", products)
	}
}

func TestClientProductNotFound(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Product(context.Background(), 99)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Product() error = %v, want ErrNotFound", err)
	}
	var apiErr *core.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "the product could not be found" {
		t.Errorf("error = %v", err)
	}
}

func TestClientCreate(t *testing.T) {
	var gotReq core.ProductRequest
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/PRODUCT-SERVICE/products" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(core.Product{ID: 6, Name: gotReq.Name, Price: gotReq.Price})
	}))

	product, err := c.Create(context.Background(), core.ProductRequest{
		Name: "Gizmo", Description: "A gizmo", Price: 9.99, StockQuantity: 10, CategoryID: 2,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if gotReq.Description != "A gizmo" || gotReq.CategoryID != 2 {
		t.Errorf("request = %+v", gotReq)
	}
	if product.ID != 6 || product.Name != "Gizmo" {
		t.Errorf("product = %+v", product)
	}
}

func TestClientCreateLogsMutation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(core.Product{ID: 6, Name: "Gizmo"})
	}))
	t.Cleanup(server.Close)
	api := transport.NewClient(server.URL, nil, nil, core.RetryConfig{MaxAttempts: 1})
	logger := &recordingLogger{}
	c := NewClient(api, logger)

	_, err := c.Create(context.Background(), core.ProductRequest{Name: "Gizmo"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if len(logger.infos) != 1 || logger.infos[0] != "Product created" {
		t.Errorf("info logs = %v, admin mutation not logged", logger.infos)
	}
}

func TestClientDelete(t *testing.T) {
	var gotPath string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := c.Delete(context.Background(), 6); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if gotPath != "DELETE /PRODUCT-SERVICE/products/6" {
		t.Errorf("request = %q", gotPath)
	}
}

func TestClientCategories(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/PRODUCT-SERVICE/categories" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]core.ProductCategory{{ID: 2, Name: "Tools"}})
	}))

	categories, err := c.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories() failed: %v", err)
	}
	if len(categories) != 1 || categories[0].Name != "Tools" {
		t.Errorf("categories = %+v", categories)
	}
}

func TestClientStatus(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Product Service is UP"))
	}))

	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	if status != "Product Service is UP" {
		t.Errorf("status = %q", status)
	}
}
