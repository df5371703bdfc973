package core

import "strconv"

// Role is the effective role of the current session. Exactly two roles are
// recognized; everything that is not ADMIN collapses to USER.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
	RoleNone  Role = ""
)

// DeriveRole collapses a backend role set to the effective session role.
// Any set containing ADMIN yields ADMIN, any other non-empty set yields USER,
// an empty set yields no role.
func DeriveRole(roles []string) Role {
	if len(roles) == 0 {
		return RoleNone
	}
	for _, r := range roles {
		if r == string(RoleAdmin) {
			return RoleAdmin
		}
	}
	return RoleUser
}

// User is the client-side view of an account, derived from login responses
// or profile fetches.
type User struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	FirstName   string   `json:"firstName,omitempty"`
	LastName    string   `json:"lastName,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions,omitempty"`
}

// Session is the process-wide record of whether a user is authenticated,
// who they are, and their effective role. Consumers receive read-only
// snapshots; mutation goes exclusively through the session manager.
type Session struct {
	Authenticated bool
	User          *User
	Role          Role
}

// LoginRequest is the payload for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the payload returned by POST /auth/login
type LoginResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// RegisterRequest is the payload for POST /auth/register.
// Registration does not imply login.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Registration is the acknowledgement returned by the auth service
type Registration struct {
	ID    int64  `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

// ProductCategory as returned by the product service
type ProductCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProductRequest is the admin payload for creating or updating a product
type ProductRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stockQuantity"`
	ImageURL      string  `json:"imageUrl,omitempty"`
	Manufacturer  string  `json:"manufacturer"`
	CategoryID    int64   `json:"categoryId"`
}

// Product is the full catalog record returned by the product service.
// The description is write-only on the backend and absent here.
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Price         float64         `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	Manufacturer  string          `json:"manufacturer"`
	Category      ProductCategory `json:"productCategory"`
	CreatedAt     string          `json:"createdAt,omitempty"`
	UpdatedAt     string          `json:"updatedAt,omitempty"`
}

// Summary projects a catalog record to the slimmer shape carried in the cart
func (p Product) Summary() ProductSummary {
	return ProductSummary{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		ImageURL:      p.ImageURL,
		StockQuantity: p.StockQuantity,
		Manufacturer:  p.Manufacturer,
		Category:      p.Category,
	}
}

// ProductSummary is the product shape carried inside a cart item. The cart
// service only echoes id, name, image and price; the remaining fields are
// zero-valued in items rebuilt from a cart response.
type ProductSummary struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Price         float64         `json:"price"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	StockQuantity int             `json:"stockQuantity"`
	Manufacturer  string          `json:"manufacturer"`
	Category      ProductCategory `json:"productCategory"`
}

// CartItem is one line of the locally projected cart. The subtotal comes
// from the server verbatim; the client never recomputes it.
type CartItem struct {
	Product  ProductSummary `json:"product"`
	Quantity int            `json:"quantity"`
	Subtotal float64        `json:"subtotal"`
}

// OrderStatus of a placed order. Only an administrator may transition it.
type OrderStatus string

const (
	OrderCreated   OrderStatus = "CREATED"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderCanceled  OrderStatus = "CANCELED"
)

// OrderLineItem is one line of a placed order
type OrderLineItem struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order as returned by the order service. Orders are immutable once created
// except for their status.
type Order struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	TotalPrice  float64         `json:"totalPrice"`
	OrderDate   string          `json:"orderDate"`
	Status      OrderStatus     `json:"status"`
	UserID      int64           `json:"userId,omitempty"`
	LineItems   []OrderLineItem `json:"orderLineItems"`
}

// UserProfile is the canonical account record held by the user service,
// used by profile reads and the admin client directory.
type UserProfile struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role,omitempty"`
}

// AsUser converts the canonical profile to the client-side User shape
func (p UserProfile) AsUser() *User {
	u := &User{
		ID:        strconv.FormatInt(p.ID, 10),
		Username:  p.Email,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	}
	if p.Role != "" {
		u.Roles = []string{p.Role}
	}
	return u
}
