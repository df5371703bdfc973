// Package cart keeps a local projection of the server-held shopping cart.
// The cart service is the sole source of truth: every mutation is a round
// trip, and on success the whole local item sequence is replaced with the
// sequence from the response - never merged, patched or appended locally.
package cart

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/vitrinelabs/vitrine/core"
	"github.com/vitrinelabs/vitrine/transport"
)

const cartBasePath = "/COMMANDE-SERVICE/api/cart"

// AuthState is the slice of session state the synchronizer needs
type AuthState interface {
	IsLoggedIn() bool
}

// backend wire format of the cart service
type backendCartItem struct {
	ID              int64   `json:"id"`
	ProductID       int64   `json:"productId"`
	ProductName     string  `json:"productName"`
	ProductImageURL string  `json:"productImageUrl"`
	Price           float64 `json:"price"`
	Quantity        int     `json:"quantity"`
	Subtotal        float64 `json:"subtotal"`
}

type backendCart struct {
	ID         int64             `json:"id"`
	UserID     int64             `json:"userId"`
	Items      []backendCartItem `json:"items"`
	TotalPrice float64           `json:"totalPrice"`
}

// Synchronizer owns the locally projected cart. Mutations carry a
// monotonically increasing sequence number; a response arriving after a
// newer mutation has already been applied is discarded, so overlapping
// calls cannot roll the projection back.
type Synchronizer struct {
	api    *transport.Client
	auth   AuthState
	logger core.Logger

	mu      sync.Mutex
	items   []core.CartItem
	nextSeq uint64
	applied uint64
	subs    map[int]func([]core.CartItem)
	subID   int
}

// NewSynchronizer creates a cart synchronizer with an empty projection
func NewSynchronizer(api *transport.Client, auth AuthState, logger core.Logger) *Synchronizer {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Synchronizer{
		api:    api,
		auth:   auth,
		logger: logger,
		subs:   make(map[int]func([]core.CartItem)),
	}
}

var cartMessages = transport.StatusMessages{
	http.StatusBadRequest: "the product is unavailable or there is not enough stock",
	http.StatusNotFound:   "the product is no longer in your cart",
}

// Load fetches the cart from the cart service. Without an authenticated
// session the projection simply becomes empty.
func (s *Synchronizer) Load(ctx context.Context) ([]core.CartItem, error) {
	if !s.auth.IsLoggedIn() {
		s.replace(s.sequence(), nil)
		return nil, nil
	}

	seq := s.sequence()
	var resp backendCart
	err := s.api.Do(ctx, transport.Request{
		Op:       "cart.Load",
		Method:   http.MethodGet,
		Path:     cartBasePath,
		Out:      &resp,
		Messages: cartMessages,
	})
	if err != nil {
		return nil, err
	}
	return s.replace(seq, mapItems(resp.Items)), nil
}

// Add puts quantity units of a product in the cart. Calls without an
// authenticated session are a named, rejected outcome - the projection is
// left untouched and no request is sent.
func (s *Synchronizer) Add(ctx context.Context, product core.ProductSummary, quantity int) ([]core.CartItem, error) {
	if !s.auth.IsLoggedIn() {
		s.logger.Warn("Cannot add to cart: no authenticated session", map[string]interface{}{
			"operation":  "cart_add",
			"product_id": product.ID,
		})
		return nil, core.NewAPIError("cart.Add", 0, "please log in to add items to your cart", core.ErrNotAuthenticated)
	}
	if quantity < 1 {
		return nil, core.NewAPIError("cart.Add", 0, "quantity must be at least 1", core.ErrInvalidQuantity)
	}

	seq := s.sequence()
	var resp backendCart
	err := s.api.Do(ctx, transport.Request{
		Op:     "cart.Add",
		Method: http.MethodPost,
		Path:   cartBasePath + "/items",
		Query: url.Values{
			"productId": {strconv.FormatInt(product.ID, 10)},
			"quantity":  {strconv.Itoa(quantity)},
		},
		Out:      &resp,
		Messages: cartMessages,
	})
	if err != nil {
		return nil, err
	}
	return s.replace(seq, mapItems(resp.Items)), nil
}

// Remove deletes a product line from the cart
func (s *Synchronizer) Remove(ctx context.Context, productID int64) ([]core.CartItem, error) {
	if !s.auth.IsLoggedIn() {
		return nil, core.NewAPIError("cart.Remove", 0, "please log in to modify your cart", core.ErrNotAuthenticated)
	}

	seq := s.sequence()
	var resp backendCart
	err := s.api.Do(ctx, transport.Request{
		Op:       "cart.Remove",
		Method:   http.MethodDelete,
		Path:     cartBasePath + "/items/" + strconv.FormatInt(productID, 10),
		Out:      &resp,
		Messages: cartMessages,
	})
	if err != nil {
		return nil, err
	}
	return s.replace(seq, mapItems(resp.Items)), nil
}

// UpdateQuantity sets the quantity of a product line. Quantity is strictly
// positive; removing a line goes through Remove, never through a zero here.
func (s *Synchronizer) UpdateQuantity(ctx context.Context, productID int64, quantity int) ([]core.CartItem, error) {
	if !s.auth.IsLoggedIn() {
		return nil, core.NewAPIError("cart.UpdateQuantity", 0, "please log in to modify your cart", core.ErrNotAuthenticated)
	}
	if quantity < 1 {
		return nil, core.NewAPIError("cart.UpdateQuantity", 0, "quantity must be at least 1, use Remove to delete a line", core.ErrInvalidQuantity)
	}

	seq := s.sequence()
	var resp backendCart
	err := s.api.Do(ctx, transport.Request{
		Op:     "cart.UpdateQuantity",
		Method: http.MethodPut,
		Path:   cartBasePath + "/items",
		Query: url.Values{
			"productId": {strconv.FormatInt(productID, 10)},
			"quantity":  {strconv.Itoa(quantity)},
		},
		Out:      &resp,
		Messages: cartMessages,
	})
	if err != nil {
		return nil, err
	}
	return s.replace(seq, mapItems(resp.Items)), nil
}

// Clear empties the cart on the server and locally. Without an
// authenticated session only the local projection is emptied.
func (s *Synchronizer) Clear(ctx context.Context) error {
	if !s.auth.IsLoggedIn() {
		s.replace(s.sequence(), nil)
		return nil
	}

	seq := s.sequence()
	err := s.api.Do(ctx, transport.Request{
		Op:       "cart.Clear",
		Method:   http.MethodDelete,
		Path:     cartBasePath,
		Messages: cartMessages,
	})
	if err != nil {
		return err
	}
	s.replace(seq, nil)
	return nil
}

// Reset empties the local projection without a server round trip. Called on
// session teardown: the cart belongs to the authenticated user, so one
// user's items must never survive into the next session.
func (s *Synchronizer) Reset() {
	s.replace(s.sequence(), nil)
}

// Items returns a copy of the current projection. Never triggers I/O.
func (s *Synchronizer) Items() []core.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// ItemCount returns the sum of quantities in the projection
func (s *Synchronizer) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// Total returns the sum of server-computed subtotals in the projection
func (s *Synchronizer) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0.0
	for _, item := range s.items {
		total += item.Subtotal
	}
	return total
}

// Contains reports whether the projection holds the product
func (s *Synchronizer) Contains(productID int64) bool {
	return s.QuantityOf(productID) > 0
}

// QuantityOf returns the projected quantity of a product, 0 if absent
func (s *Synchronizer) QuantityOf(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.Product.ID == productID {
			return item.Quantity
		}
	}
	return 0
}

// Subscribe registers fn to be called with every replaced projection,
// starting with the current one. The returned function cancels the
// subscription.
func (s *Synchronizer) Subscribe(fn func([]core.CartItem)) func() {
	s.mu.Lock()
	id := s.subID
	s.subID++
	s.subs[id] = fn
	current := make([]core.CartItem, len(s.items))
	copy(current, s.items)
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// sequence hands out the sequence number for the next mutation
func (s *Synchronizer) sequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	return s.nextSeq
}

// replace installs a new projection unless a newer mutation already did.
// Returns the projection that is current after the call.
func (s *Synchronizer) replace(seq uint64, items []core.CartItem) []core.CartItem {
	s.mu.Lock()
	if seq < s.applied {
		s.logger.Debug("Discarding stale cart response", map[string]interface{}{
			"operation":    "cart_replace",
			"sequence":     seq,
			"last_applied": s.applied,
		})
		current := make([]core.CartItem, len(s.items))
		copy(current, s.items)
		s.mu.Unlock()
		return current
	}
	s.applied = seq
	s.items = items
	fns := make([]func([]core.CartItem), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	published := make([]core.CartItem, len(items))
	copy(published, items)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(published)
	}
	return published
}

func mapItems(items []backendCartItem) []core.CartItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]core.CartItem, 0, len(items))
	for _, item := range items {
		out = append(out, core.CartItem{
			Product: core.ProductSummary{
				ID:       item.ProductID,
				Name:     item.ProductName,
				Price:    item.Price,
				ImageURL: item.ProductImageURL,
				// stock, manufacturer and category are not part of the
				// cart response
			},
			Quantity: item.Quantity,
			Subtotal: item.Subtotal,
		})
	}
	return out
}
