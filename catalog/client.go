// Package catalog is the client of the product service: browsing for
// shoppers, CRUD for administrators. The server enforces admin gating; this
// client only forwards.
package catalog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/vitrinelabs/vitrine/core"
	"github.com/vitrinelabs/vitrine/transport"
)

const (
	productsBasePath   = "/PRODUCT-SERVICE/products"
	categoriesBasePath = "/PRODUCT-SERVICE/categories"
)

// Client calls the product service through the gateway
type Client struct {
	api    *transport.Client
	logger core.Logger
}

// NewClient creates a product service client
func NewClient(api *transport.Client, logger core.Logger) *Client {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Client{api: api, logger: logger}
}

var productMessages = transport.StatusMessages{
	http.StatusBadRequest: "the product data was rejected, please check the submitted fields",
	http.StatusNotFound:   "the product could not be found",
}

// Products lists the full catalog
func (c *Client) Products(ctx context.Context) ([]core.Product, error) {
	var products []core.Product
	err := c.api.Do(ctx, transport.Request{
		Op:       "catalog.Products",
		Method:   http.MethodGet,
		Path:     productsBasePath,
		Out:      &products,
		Messages: productMessages,
	})
	return products, err
}

// Product fetches one catalog record by id
func (c *Client) Product(ctx context.Context, id int64) (core.Product, error) {
	var product core.Product
	err := c.api.Do(ctx, transport.Request{
		Op:       "catalog.Product",
		Method:   http.MethodGet,
		Path:     productsBasePath + "/" + strconv.FormatInt(id, 10),
		Out:      &product,
		Messages: productMessages,
	})
	return product, err
}

// Create adds a product to the catalog (administrative)
func (c *Client) Create(ctx context.Context, req core.ProductRequest) (core.Product, error) {
	var product core.Product
	err := c.api.Do(ctx, transport.Request{
		Op:       "catalog.Create",
		Method:   http.MethodPost,
		Path:     productsBasePath,
		Body:     req,
		Out:      &product,
		Messages: productMessages,
	})
	if err == nil {
		c.logger.Info("Product created", map[string]interface{}{
			"operation":  "catalog_create",
			"product_id": product.ID,
			"name":       product.Name,
		})
	}
	return product, err
}

// Update replaces a product record (administrative)
func (c *Client) Update(ctx context.Context, id int64, req core.ProductRequest) (core.Product, error) {
	var product core.Product
	err := c.api.Do(ctx, transport.Request{
		Op:       "catalog.Update",
		Method:   http.MethodPut,
		Path:     productsBasePath + "/" + strconv.FormatInt(id, 10),
		Body:     req,
		Out:      &product,
		Messages: productMessages,
	})
	if err == nil {
		c.logger.Info("Product updated", map[string]interface{}{
			"operation":  "catalog_update",
			"product_id": product.ID,
		})
	}
	return product, err
}

// Delete removes a product from the catalog (administrative)
func (c *Client) Delete(ctx context.Context, id int64) error {
	err := c.api.Do(ctx, transport.Request{
		Op:       "catalog.Delete",
		Method:   http.MethodDelete,
		Path:     productsBasePath + "/" + strconv.FormatInt(id, 10),
		Messages: productMessages,
	})
	if err == nil {
		c.logger.Info("Product deleted", map[string]interface{}{
			"operation":  "catalog_delete",
			"product_id": id,
		})
	}
	return err
}

// Categories lists the product categories
func (c *Client) Categories(ctx context.Context) ([]core.ProductCategory, error) {
	var categories []core.ProductCategory
	err := c.api.Do(ctx, transport.Request{
		Op:       "catalog.Categories",
		Method:   http.MethodGet,
		Path:     categoriesBasePath,
		Out:      &categories,
		Messages: productMessages,
	})
	return categories, err
}

// Status probes the product service health endpoint and returns its raw
// text response
func (c *Client) Status(ctx context.Context) (string, error) {
	var status string
	err := c.api.Do(ctx, transport.Request{
		Op:     "catalog.Status",
		Method: http.MethodGet,
		Path:   productsBasePath + "/status",
		Out:    &status,
	})
	return status, err
}
