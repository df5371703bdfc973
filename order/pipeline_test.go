package order

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vitrinelabs/vitrine/core"
	"github.com/vitrinelabs/vitrine/transport"
)

type fakeCart struct {
	items    []core.CartItem
	cleared  int
	clearErr error
}

func (c *fakeCart) Items() []core.CartItem {
	out := make([]core.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *fakeCart) Clear(ctx context.Context) error {
	c.cleared++
	if c.clearErr != nil {
		return c.clearErr
	}
	c.items = nil
	return nil
}

func testAPI(t *testing.T, handler http.Handler) (*transport.Client, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	client := transport.NewClient(server.URL, nil, nil, core.RetryConfig{
		MaxAttempts:   2,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2.0,
	})
	return client, &calls
}

func widgetLine() core.CartItem {
	return core.CartItem{
		Product:  core.ProductSummary{ID: 5, Name: "Widget", Price: 19.99},
		Quantity: 3,
		Subtotal: 59.97,
	}
}

func TestPipelineSubmit(t *testing.T) {
	var gotBody orderRequest
	api, _ := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/COMMANDE-SERVICE/api/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(core.Order{
			ID:          42,
			OrderNumber: "ORD-42",
			TotalPrice:  59.97,
			Status:      core.OrderCreated,
			LineItems:   []core.OrderLineItem{{ID: 1, ProductID: 5, Quantity: 3, Price: 19.99}},
		})
	}))
	cart := &fakeCart{items: []core.CartItem{widgetLine()}}
	p := NewPipeline(api, cart, nil, time.Second)

	created, err := p.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	if len(gotBody.OrderLineItemsDtoList) != 1 {
		t.Fatalf("request lines = %+v", gotBody.OrderLineItemsDtoList)
	}
	if line := gotBody.OrderLineItemsDtoList[0]; line.ProductID != 5 || line.Quantity != 3 {
		t.Errorf("request line = %+v", line)
	}

	if created.OrderNumber != "ORD-42" || created.Status != core.OrderCreated {
		t.Errorf("created = %+v", created)
	}
	if cart.cleared != 1 {
		t.Errorf("cart cleared %d times, want 1", cart.cleared)
	}
	if orders := p.Orders(); len(orders) != 1 || orders[0].ID != 42 {
		t.Errorf("history = %+v, want the new order at the head", orders)
	}
	if p.State() != StateSucceeded {
		t.Errorf("state = %q, want succeeded", p.State())
	}
}

func TestPipelineSubmitEmptyCart(t *testing.T) {
	api, calls := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	p := NewPipeline(api, &fakeCart{}, nil, time.Second)

	_, err := p.Submit(context.Background())
	if !errors.Is(err, core.ErrEmptyCart) {
		t.Errorf("Submit() error = %v, want ErrEmptyCart", err)
	}
	if atomic.LoadInt32(calls) != 0 {
		t.Error("an empty cart must fail before any network call")
	}
	if p.State() != StateFailed {
		t.Errorf("state = %q, want failed", p.State())
	}
}

func TestPipelineSubmitBackendRejection(t *testing.T) {
	api, _ := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	cart := &fakeCart{items: []core.CartItem{widgetLine()}}
	p := NewPipeline(api, cart, nil, time.Second)

	_, err := p.Submit(context.Background())
	var apiErr *core.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Submit() error = %v, want *core.APIError", err)
	}
	if apiErr.Message != "Cart validation failed (empty cart, unavailable product, or insufficient stock)." {
		t.Errorf("message = %q", apiErr.Message)
	}

	if cart.cleared != 0 {
		t.Error("a failed submission must leave the cart untouched")
	}
	if len(p.Orders()) != 0 {
		t.Error("a failed submission must not touch the history")
	}
	if p.State() != StateFailed {
		t.Errorf("state = %q, want failed", p.State())
	}
}

func TestPipelineSubmitKeepsOrderWhenClearFails(t *testing.T) {
	api, _ := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(core.Order{ID: 42, OrderNumber: "ORD-42", Status: core.OrderCreated})
	}))
	cart := &fakeCart{
		items:    []core.CartItem{widgetLine()},
		clearErr: errors.New("cart service down"),
	}
	p := NewPipeline(api, cart, nil, time.Second)

	created, err := p.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if created.ID != 42 {
		t.Errorf("created = %+v", created)
	}
	// the order exists on the backend; a failed cart clear is not a failure
	if p.State() != StateSucceeded {
		t.Errorf("state = %q, want succeeded", p.State())
	}
}

func TestPipelineStateResetsAfterWindow(t *testing.T) {
	api, _ := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(core.Order{ID: 42, Status: core.OrderCreated})
	}))
	p := NewPipeline(api, &fakeCart{items: []core.CartItem{widgetLine()}}, nil, 20*time.Millisecond)

	if _, err := p.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if p.State() != StateSucceeded {
		t.Fatalf("state = %q, want succeeded", p.State())
	}

	deadline := time.Now().Add(time.Second)
	for p.State() != StateIdle {
		if time.Now().After(deadline) {
			t.Fatalf("state = %q, never returned to idle", p.State())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPipelineList(t *testing.T) {
	api, _ := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/COMMANDE-SERVICE/api/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]core.Order{
			{ID: 2, OrderNumber: "ORD-2", Status: core.OrderCreated},
			{ID: 1, OrderNumber: "ORD-1", Status: core.OrderConfirmed},
		})
	}))
	p := NewPipeline(api, &fakeCart{}, nil, time.Second)

	orders, err := p.List(context.Background())
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(orders) != 2 || orders[0].ID != 2 {
		t.Errorf("orders = %+v", orders)
	}
	if got := p.Orders(); len(got) != 2 {
		t.Errorf("local history = %+v", got)
	}
}

func TestPipelineGetNotFound(t *testing.T) {
	api, _ := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	p := NewPipeline(api, &fakeCart{}, nil, time.Second)

	_, err := p.Get(context.Background(), 99)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	var apiErr *core.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Order not found." {
		t.Errorf("error = %v, want the not-found message", err)
	}
}

func TestPipelineUpdateStatus(t *testing.T) {
	var gotBody string
	api, _ := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/COMMANDE-SERVICE/api/orders/42/status" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		_ = json.NewEncoder(w).Encode(core.Order{ID: 42, OrderNumber: "ORD-42", Status: core.OrderConfirmed})
	}))
	p := NewPipeline(api, &fakeCart{}, nil, time.Second)
	p.mu.Lock()
	p.orders = []core.Order{{ID: 42, OrderNumber: "ORD-42", Status: core.OrderCreated}}
	p.mu.Unlock()

	updated, err := p.UpdateStatus(context.Background(), 42, core.OrderConfirmed)
	if err != nil {
		t.Fatalf("UpdateStatus() failed: %v", err)
	}

	// the status travels as the bare string, not as JSON
	if gotBody != "CONFIRMED" {
		t.Errorf("body = %q, want CONFIRMED", gotBody)
	}
	if updated.Status != core.OrderConfirmed {
		t.Errorf("updated = %+v", updated)
	}
	if got := p.Orders(); got[0].Status != core.OrderConfirmed {
		t.Errorf("local history = %+v, server order not swapped in", got)
	}
}

func TestPipelineRejectsConcurrentSubmit(t *testing.T) {
	release := make(chan struct{})
	api, _ := testAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_ = json.NewEncoder(w).Encode(core.Order{ID: 42, Status: core.OrderCreated})
	}))
	p := NewPipeline(api, &fakeCart{items: []core.CartItem{widgetLine()}}, nil, time.Second)

	done := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background())
		done <- err
	}()

	// wait for the first submission to take the Submitting state
	deadline := time.Now().Add(time.Second)
	for p.State() != StateSubmitting {
		if time.Now().After(deadline) {
			t.Fatal("first submission never reached Submitting")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := p.Submit(context.Background())
	if !errors.Is(err, core.ErrSubmissionInProgress) {
		t.Errorf("second Submit() error = %v, want ErrSubmissionInProgress", err)
	}
	if errors.Is(err, core.ErrValidation) {
		t.Error("a client-side precondition must not look like a server rejection")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Submit() failed: %v", err)
	}
}
