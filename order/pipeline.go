// Package order converts the current cart into a persisted order and
// maintains the locally held order history.
package order

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/vitrinelabs/vitrine/core"
	"github.com/vitrinelabs/vitrine/transport"
)

const ordersBasePath = "/COMMANDE-SERVICE/api/orders"

// State of the submission pipeline
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// IsTerminal returns true for the states that auto-reset to Idle after the
// observation window
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Cart is the slice of the cart synchronizer the pipeline needs
type Cart interface {
	Items() []core.CartItem
	Clear(ctx context.Context) error
}

// wire format of the order service
type orderLineItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type orderRequest struct {
	OrderLineItemsDtoList []orderLineItemRequest `json:"orderLineItemsDtoList"`
}

// Pipeline drives the order-submission sequence: build the creation request
// from the cart projection, post it, and on success clear the cart and
// prepend the new order to the local history. Terminal outcomes stay
// observable for a fixed window, then the pipeline returns to Idle.
type Pipeline struct {
	api    *transport.Client
	cart   Cart
	logger core.Logger
	window time.Duration

	mu     sync.Mutex
	state  State
	orders []core.Order
	reset  *time.Timer
}

// NewPipeline creates an idle pipeline. window controls how long a
// Succeeded or Failed outcome stays visible.
func NewPipeline(api *transport.Client, cart Cart, logger core.Logger, window time.Duration) *Pipeline {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if window <= 0 {
		window = 5 * time.Second
	}
	return &Pipeline{
		api:    api,
		cart:   cart,
		logger: logger,
		window: window,
		state:  StateIdle,
	}
}

var orderMessages = transport.StatusMessages{
	http.StatusBadRequest:          "Cart validation failed (empty cart, unavailable product, or insufficient stock).",
	http.StatusNotFound:            "Order not found.",
	http.StatusInternalServerError: "Order service unavailable. Please try again later.",
}

// Submit posts the current cart as an order-creation request. An empty cart
// fails immediately with ErrEmptyCart before any network call. On success
// the cart is cleared and the new order lands at the head of the local
// history; on failure the cart is left untouched.
func (p *Pipeline) Submit(ctx context.Context) (core.Order, error) {
	items := p.cart.Items()
	if len(items) == 0 {
		p.transition(StateFailed)
		return core.Order{}, core.NewAPIError("order.Submit", 0, "your cart is empty", core.ErrEmptyCart)
	}

	p.mu.Lock()
	if p.state == StateSubmitting {
		p.mu.Unlock()
		return core.Order{}, core.NewAPIError("order.Submit", 0, "an order submission is already in progress", core.ErrSubmissionInProgress)
	}
	p.setStateLocked(StateSubmitting)
	p.mu.Unlock()

	req := orderRequest{OrderLineItemsDtoList: make([]orderLineItemRequest, 0, len(items))}
	for _, item := range items {
		req.OrderLineItemsDtoList = append(req.OrderLineItemsDtoList, orderLineItemRequest{
			ProductID: item.Product.ID,
			Quantity:  item.Quantity,
		})
	}

	var created core.Order
	err := p.api.Do(ctx, transport.Request{
		Op:       "order.Submit",
		Method:   http.MethodPost,
		Path:     ordersBasePath,
		Body:     req,
		Out:      &created,
		Messages: orderMessages,
	})
	if err != nil {
		p.transition(StateFailed)
		return core.Order{}, err
	}

	p.mu.Lock()
	p.orders = append([]core.Order{created}, p.orders...)
	p.setStateLocked(StateSucceeded)
	p.mu.Unlock()

	if clearErr := p.cart.Clear(ctx); clearErr != nil {
		p.logger.Warn("Order created but cart clear failed", map[string]interface{}{
			"operation":    "order_submit",
			"order_number": created.OrderNumber,
			"error":        clearErr.Error(),
		})
	}

	p.logger.Info("Order created", map[string]interface{}{
		"operation":    "order_submit",
		"order_number": created.OrderNumber,
		"total_price":  created.TotalPrice,
	})
	return created, nil
}

// List performs a full refresh of the order history from the order service
func (p *Pipeline) List(ctx context.Context) ([]core.Order, error) {
	var orders []core.Order
	err := p.api.Do(ctx, transport.Request{
		Op:       "order.List",
		Method:   http.MethodGet,
		Path:     ordersBasePath,
		Out:      &orders,
		Messages: orderMessages,
	})
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.orders = orders
	p.mu.Unlock()
	return p.Orders(), nil
}

// Get fetches a single order by id
func (p *Pipeline) Get(ctx context.Context, id int64) (core.Order, error) {
	var ord core.Order
	err := p.api.Do(ctx, transport.Request{
		Op:       "order.Get",
		Method:   http.MethodGet,
		Path:     ordersBasePath + "/" + strconv.FormatInt(id, 10),
		Out:      &ord,
		Messages: orderMessages,
	})
	return ord, err
}

// UpdateStatus transitions an order's status on the backend (administrative)
// and replaces the matching local history entry with the server's returned
// order. The transition is never predicted locally.
func (p *Pipeline) UpdateStatus(ctx context.Context, id int64, status core.OrderStatus) (core.Order, error) {
	var updated core.Order
	err := p.api.Do(ctx, transport.Request{
		Op:     "order.UpdateStatus",
		Method: http.MethodPut,
		Path:   ordersBasePath + "/" + strconv.FormatInt(id, 10) + "/status",
		// the order service takes the bare status string as the body
		Body:     string(status),
		Out:      &updated,
		Messages: orderMessages,
	})
	if err != nil {
		return core.Order{}, err
	}

	p.mu.Lock()
	for i := range p.orders {
		if p.orders[i].ID == updated.ID {
			p.orders[i] = updated
			break
		}
	}
	p.mu.Unlock()
	return updated, nil
}

// Orders returns a copy of the locally held order history,
// most-recent-first by client convention
func (p *Pipeline) Orders() []core.Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.Order, len(p.orders))
	copy(out, p.orders)
	return out
}

// State returns the current pipeline state
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) transition(next State) {
	p.mu.Lock()
	p.setStateLocked(next)
	p.mu.Unlock()
}

// setStateLocked installs the state and, for terminal states, arms the
// timed return to Idle. Callers hold p.mu.
func (p *Pipeline) setStateLocked(next State) {
	p.state = next
	if p.reset != nil {
		p.reset.Stop()
		p.reset = nil
	}
	if next.IsTerminal() {
		p.reset = time.AfterFunc(p.window, func() {
			p.mu.Lock()
			if p.state.IsTerminal() {
				p.state = StateIdle
			}
			p.mu.Unlock()
		})
	}
}
