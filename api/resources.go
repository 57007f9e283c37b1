package api

import (
	"context"
	"net/url"
	"strconv"

	"hisaabpos/domain"
)

// compile-time assertions
var (
	_ domain.ProductSource = (*Client)(nil)
	_ domain.SaleGateway   = (*Client)(nil)
)

// ListProducts fetches one page of the business's products
func (c *Client) ListProducts(ctx context.Context, page, limit int) (domain.ProductPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	var out domain.ProductPage
	err := c.Get(ctx, "/products/", q, &out)
	return out, err
}

// CreateSale posts a sale draft and returns the created sale
func (c *Client) CreateSale(ctx context.Context, draft domain.SaleDraft) (domain.Sale, error) {
	var out domain.Sale
	err := c.Post(ctx, "/sales/", draft, &out)
	return out, err
}

// GetSale fetches a sale by id
func (c *Client) GetSale(ctx context.Context, id domain.RecordID) (domain.Sale, error) {
	var out domain.Sale
	err := c.Get(ctx, "/sales/"+url.PathEscape(string(id))+"/", nil, &out)
	return out, err
}

// CreateStockEntry records an inventory movement
func (c *Client) CreateStockEntry(ctx context.Context, draft domain.StockEntryDraft) (domain.StockEntry, error) {
	var out domain.StockEntry
	err := c.Post(ctx, "/stock-entries/", draft, &out)
	return out, err
}

// User is the authenticated account
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Business int64  `json:"business"`
}

// LoginResponse is returned by the login endpoint
type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

// Login exchanges credentials for tokens
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	in := map[string]string{"email": email, "password": password}
	var out LoginResponse
	err := c.Post(ctx, "/auth/login/", in, &out)
	return out, err
}

// Me returns the user the current token belongs to
func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.Get(ctx, "/auth/me/", nil, &out)
	return out, err
}
