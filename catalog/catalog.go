// Package catalog holds the per-session product snapshot and its incremental search.
package catalog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"hisaabpos/domain"
	"hisaabpos/notify"
)

const (
	// MaxResults caps the number of search matches shown to the operator
	MaxResults = 8

	fetchPage  = 1
	fetchLimit = 1000
)

// Catalog is the sellable product snapshot fetched once per sale session.
// Stock numbers are never refreshed; cart checks run against this snapshot.
type Catalog struct {
	products []domain.Product
	byID     map[int64]int
	loadedAt time.Time
}

// New returns a catalog over products, keeping only sellable ones in the given order
func New(products []domain.Product) *Catalog {
	c := &Catalog{byID: make(map[int64]int)}
	c.set(products)
	return c
}

// Load fetches the product list once and keeps the active, in-stock products.
// On failure the operator is notified, the catalog is left empty and the error returned.
func Load(ctx context.Context, src domain.ProductSource, n notify.Notifier) (*Catalog, error) {
	n = notify.OrDiscard(n)
	c := &Catalog{byID: make(map[int64]int)}

	start := time.Now()
	page, err := src.ListProducts(ctx, fetchPage, fetchLimit)
	if err != nil {
		slog.Error("catalog fetch failed", "error", err)
		n.Notify(notify.Error, domain.UserMessage(err, "Failed to load products"))
		return c, err
	}
	c.set(page.Results)
	slog.Info("catalog loaded",
		"fetched", len(page.Results),
		"sellable", len(c.products),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return c, nil
}

func (c *Catalog) set(products []domain.Product) {
	c.products = c.products[:0]
	for _, p := range products {
		if !p.Sellable() {
			continue
		}
		// first occurrence wins so fetch order is stable
		if _, dup := c.byID[p.ID]; dup {
			continue
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	c.loadedAt = time.Now()
}

// Len returns the number of sellable products
func (c *Catalog) Len() int { return len(c.products) }

// LoadedAt returns when the snapshot was taken
func (c *Catalog) LoadedAt() time.Time { return c.loadedAt }

// Products returns a copy of the snapshot in fetch order
func (c *Catalog) Products() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Lookup re-resolves a product by id from the snapshot
func (c *Catalog) Lookup(id int64) (domain.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, false
	}
	return c.products[i], true
}

// Search matches query case-insensitively as a substring of name or SKU.
// At most MaxResults products are returned in catalog order; an empty query matches nothing.
func (c *Catalog) Search(query string) []domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	out := make([]domain.Product, 0, MaxResults)
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.SKU), q) {
			out = append(out, p)
			if len(out) == MaxResults {
				break
			}
		}
	}
	return out
}

// FindBySKU returns the product whose SKU equals sku, ignoring case
func (c *Catalog) FindBySKU(sku string) (domain.Product, bool) {
	for _, p := range c.products {
		if strings.EqualFold(p.SKU, sku) {
			return p, true
		}
	}
	return domain.Product{}, false
}
