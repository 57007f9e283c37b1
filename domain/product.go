// Package domain defines core business types and interfaces.
package domain

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Product is a read-only snapshot of a backend product for one sale session
type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Stock        int             `json:"stock"`
	IsActive     bool            `json:"is_active"`
	Category     string          `json:"category,omitempty"`
	ReorderLevel int             `json:"reorder_level,omitempty"`
}

// Sellable reports whether the product may enter the catalog cache
func (p Product) Sellable() bool {
	return p.IsActive && p.Stock > 0
}

// BelowReorderLevel reports whether the product should be flagged for restocking
func (p Product) BelowReorderLevel() bool {
	return p.ReorderLevel > 0 && p.Stock <= p.ReorderLevel
}

// ProductPage is one page of the backend's paginated product list
type ProductPage struct {
	Count    int       `json:"count"`
	Next     *string   `json:"next"`
	Previous *string   `json:"previous"`
	Results  []Product `json:"results"`
}

// ProductSource fetches the product list for the current business
type ProductSource interface {
	ListProducts(ctx context.Context, page, limit int) (ProductPage, error)
}

// ValidateProduct checks the fields a backend record needs before it can be stored
func ValidateProduct(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", "cannot be empty", p.Name)
	}
	if p.SellingPrice.IsNegative() {
		return NewValidationError("selling_price", "must be non-negative", p.SellingPrice.String())
	}
	if p.Stock < 0 {
		return NewValidationError("stock", "must be non-negative", p.Stock)
	}
	return nil
}
