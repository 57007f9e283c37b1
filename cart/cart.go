// Package cart aggregates quick-sale selections into one line per product.
package cart

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"hisaabpos/domain"
	"hisaabpos/notify"
)

// StockLookup resolves the cached product snapshot used for stock ceilings
type StockLookup interface {
	Lookup(id int64) (domain.Product, bool)
}

// Cart is a single operator's in-progress sale. It is not safe for concurrent use;
// the owning screen or command serialises every mutation.
type Cart struct {
	lines  []domain.CartLine
	stock  StockLookup
	notify notify.Notifier
}

// New returns an empty cart validating quantities against stock
func New(stock StockLookup, n notify.Notifier) *Cart {
	return &Cart{stock: stock, notify: notify.OrDiscard(n)}
}

// Add puts qty units of p in the cart, merging into p's existing line if there is one.
// Rejections are notified as warnings and leave the cart unchanged.
func (c *Cart) Add(p domain.Product, qty int) error {
	if qty <= 0 {
		return c.reject(domain.NewValidationError("quantity", "must be at least 1", qty))
	}
	if p.Stock < qty {
		return c.reject(domain.NewInsufficientStockError(p, qty, 0))
	}

	if i := c.indexOf(p.ID); i >= 0 {
		line := &c.lines[i]
		merged := line.Quantity + qty
		if merged > p.Stock {
			return c.reject(domain.NewInsufficientStockError(p, qty, line.Quantity))
		}
		line.Quantity = merged
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(merged)))
	} else {
		c.lines = append(c.lines, domain.CartLine{
			ProductID:   p.ID,
			ProductName: p.Name,
			SKU:         p.SKU,
			Quantity:    qty,
			UnitPrice:   p.SellingPrice,
			Subtotal:    p.SellingPrice.Mul(decimal.NewFromInt(int64(qty))),
		})
	}

	slog.Debug("cart add", "product_id", p.ID, "quantity", qty, "lines", len(c.lines))
	c.notify.Notify(notify.Success, fmt.Sprintf("Added %d x %s to cart", qty, p.Name))
	return nil
}

// UpdateQuantity sets the quantity of line i. A quantity of zero or less removes the line.
func (c *Cart) UpdateQuantity(i, qty int) error {
	if err := c.checkIndex(i); err != nil {
		return c.reject(err)
	}
	if qty <= 0 {
		return c.Remove(i)
	}

	line := &c.lines[i]
	p, ok := c.lookup(line.ProductID)
	if !ok {
		return c.reject(domain.NewProductNotFoundError(line.ProductID))
	}
	if qty > p.Stock {
		return c.reject(domain.NewInsufficientStockError(p, qty, 0))
	}
	line.Quantity = qty
	line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
	slog.Debug("cart update", "product_id", line.ProductID, "quantity", qty)
	return nil
}

// Increment changes line i's quantity by delta, removing the line when it would reach zero
func (c *Cart) Increment(i, delta int) error {
	if err := c.checkIndex(i); err != nil {
		return c.reject(err)
	}
	return c.UpdateQuantity(i, c.lines[i].Quantity+delta)
}

// Remove deletes line i unconditionally
func (c *Cart) Remove(i int) error {
	if err := c.checkIndex(i); err != nil {
		return c.reject(err)
	}
	name := c.lines[i].ProductName
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	c.notify.Notify(notify.Info, fmt.Sprintf("Removed %s from cart", name))
	return nil
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the cart lines in insertion order
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of lines
func (c *Cart) Len() int { return len(c.lines) }

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Quantity returns how many units of product id are in the cart
func (c *Cart) Quantity(id int64) int {
	if i := c.indexOf(id); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

// Total is the sum of all line subtotals
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// Balance is total minus paid: positive is due from the customer, negative is change owed
func (c *Cart) Balance(paid decimal.Decimal) decimal.Decimal {
	return c.Total().Sub(paid)
}

// BalanceLabel describes the balance for display
func (c *Cart) BalanceLabel(paid decimal.Decimal) string {
	b := c.Balance(paid)
	switch b.Sign() {
	case 1:
		return "Amount due: " + b.StringFixed(2)
	case -1:
		return "Change: " + b.Neg().StringFixed(2)
	default:
		return "Paid exactly"
	}
}

func (c *Cart) reject(err error) error {
	c.notify.Notify(notify.Warning, err.Error())
	return err
}

func (c *Cart) lookup(id int64) (domain.Product, bool) {
	if c.stock == nil {
		return domain.Product{}, false
	}
	return c.stock.Lookup(id)
}

func (c *Cart) indexOf(id int64) int {
	for i, l := range c.lines {
		if l.ProductID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) checkIndex(i int) error {
	if i < 0 || i >= len(c.lines) {
		return domain.NewValidationError("line", "no such cart line", i)
	}
	return nil
}
