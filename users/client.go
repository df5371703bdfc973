// Package users is the administrative client of the user service: the
// client directory an administrator manages from the dashboard.
package users

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vitrinelabs/vitrine/core"
	"github.com/vitrinelabs/vitrine/transport"
)

const usersBasePath = "/MS-CLIENT/api/v1/users"

// Client calls the user service through the gateway
type Client struct {
	api    *transport.Client
	logger core.Logger
}

// NewClient creates a user service client
func NewClient(api *transport.Client, logger core.Logger) *Client {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Client{api: api, logger: logger}
}

var userMessages = transport.StatusMessages{
	http.StatusBadRequest: "the account data was rejected, please check the submitted fields",
	http.StatusNotFound:   "the account could not be found",
	http.StatusConflict:   "an account with this email already exists",
}

// List returns every account (administrative)
func (c *Client) List(ctx context.Context) ([]core.UserProfile, error) {
	var profiles []core.UserProfile
	err := c.api.Do(ctx, transport.Request{
		Op:       "users.List",
		Method:   http.MethodGet,
		Path:     usersBasePath,
		Out:      &profiles,
		Messages: userMessages,
	})
	return profiles, err
}

// Get fetches one account by id
func (c *Client) Get(ctx context.Context, id int64) (core.UserProfile, error) {
	var profile core.UserProfile
	err := c.api.Do(ctx, transport.Request{
		Op:       "users.Get",
		Method:   http.MethodGet,
		Path:     usersBasePath + "/" + strconv.FormatInt(id, 10),
		Out:      &profile,
		Messages: userMessages,
	})
	return profile, err
}

// GetByEmail fetches one account by email
func (c *Client) GetByEmail(ctx context.Context, email string) (core.UserProfile, error) {
	var profile core.UserProfile
	err := c.api.Do(ctx, transport.Request{
		Op:       "users.GetByEmail",
		Method:   http.MethodGet,
		Path:     usersBasePath + "/email/" + url.PathEscape(email),
		Out:      &profile,
		Messages: userMessages,
	})
	return profile, err
}

// CreateRequest carries the fields of a new account
type CreateRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      string `json:"role,omitempty"`
}

// Create registers an account through the user service (administrative)
func (c *Client) Create(ctx context.Context, req CreateRequest) (core.UserProfile, error) {
	var profile core.UserProfile
	err := c.api.Do(ctx, transport.Request{
		Op:       "users.Create",
		Method:   http.MethodPost,
		Path:     usersBasePath,
		Body:     req,
		Out:      &profile,
		Messages: userMessages,
	})
	if err == nil {
		c.logger.Info("Account created", map[string]interface{}{
			"operation": "users_create",
			"user_id":   profile.ID,
		})
	}
	return profile, err
}

// UpdateRequest carries the mutable account fields
type UpdateRequest struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Update mutates an account (administrative)
func (c *Client) Update(ctx context.Context, id int64, req UpdateRequest) (core.UserProfile, error) {
	var profile core.UserProfile
	err := c.api.Do(ctx, transport.Request{
		Op:       "users.Update",
		Method:   http.MethodPut,
		Path:     usersBasePath + "/" + strconv.FormatInt(id, 10),
		Body:     req,
		Out:      &profile,
		Messages: userMessages,
	})
	return profile, err
}

// Delete removes an account (administrative)
func (c *Client) Delete(ctx context.Context, id int64) error {
	err := c.api.Do(ctx, transport.Request{
		Op:       "users.Delete",
		Method:   http.MethodDelete,
		Path:     usersBasePath + "/" + strconv.FormatInt(id, 10),
		Messages: userMessages,
	})
	if err == nil {
		c.logger.Info("Account deleted", map[string]interface{}{
			"operation": "users_delete",
			"user_id":   id,
		})
	}
	return err
}

// UpdateRole changes an account's role (administrative)
func (c *Client) UpdateRole(ctx context.Context, id int64, role string) (core.UserProfile, error) {
	var profile core.UserProfile
	err := c.api.Do(ctx, transport.Request{
		Op:       "users.UpdateRole",
		Method:   http.MethodPut,
		Path:     usersBasePath + "/" + strconv.FormatInt(id, 10) + "/role",
		Query:    url.Values{"role": {role}},
		Out:      &profile,
		Messages: userMessages,
	})
	if err == nil {
		c.logger.Info("Account role changed", map[string]interface{}{
			"operation": "users_update_role",
			"user_id":   id,
			"role":      role,
		})
	}
	return profile, err
}
