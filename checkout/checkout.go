// Package checkout validates a cart against the catalog snapshot and submits it as a sale.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"hisaabpos/cart"
	"hisaabpos/domain"
	"hisaabpos/notify"
	"hisaabpos/util"
)

const fallbackMessage = "Failed to create sale"

// Service submits carts for one business
type Service struct {
	sales    domain.SaleGateway
	stock    cart.StockLookup
	business int64
	notify   notify.Notifier

	submitting atomic.Bool
	invoice    func() string
}

// New returns a Service posting sales for business through sales
func New(sales domain.SaleGateway, stock cart.StockLookup, business int64, n notify.Notifier) *Service {
	return &Service{
		sales:    sales,
		stock:    stock,
		business: business,
		notify:   notify.OrDiscard(n),
		invoice:  func() string { return util.InvoiceNumber(util.SaleInvoice) },
	}
}

// Submitting reports whether a submission is in flight
func (s *Service) Submitting() bool {
	return s.submitting.Load()
}

// Validate checks the cart is non-empty and every line fits the cached stock.
// All shortfalls are reported together in one StockShortfallError.
func (s *Service) Validate(c *cart.Cart) error {
	if c.IsEmpty() {
		return domain.NewValidationError("cart", "is empty", 0)
	}
	var lines []error
	for _, l := range c.Lines() {
		p, ok := s.stock.Lookup(l.ProductID)
		if !ok {
			lines = append(lines, domain.NewProductNotFoundError(l.ProductID))
			continue
		}
		if p.Stock < l.Quantity {
			lines = append(lines, domain.NewInsufficientStockError(p, l.Quantity, 0))
		}
	}
	if len(lines) > 0 {
		return &domain.StockShortfallError{Lines: lines}
	}
	return nil
}

// Draft translates the cart and payment into the wire payload
func (s *Service) Draft(c *cart.Cart, p domain.Payment) domain.SaleDraft {
	lines := c.Lines()
	items := make([]domain.SaleItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.SaleItem{
			Product:     l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
		})
	}
	method := p.Method
	if method == "" {
		method = domain.PaymentCash
	}
	return domain.SaleDraft{
		Business:      s.business,
		InvoiceNumber: s.invoice(),
		CustomerPhone: p.CustomerPhone,
		CustomerEmail: p.CustomerEmail,
		PaymentMethod: method,
		PaidAmount:    p.Paid,
		Items:         items,
	}
}

// Submit validates and posts the cart. On success the cart is cleared; on any failure it is kept
// so the operator can retry. Only one submission may be in flight at a time.
func (s *Service) Submit(ctx context.Context, c *cart.Cart, p domain.Payment) (domain.Sale, error) {
	if !s.submitting.CompareAndSwap(false, true) {
		s.notify.Notify(notify.Warning, "Sale is already being submitted")
		return domain.Sale{}, domain.ErrSubmitInProgress
	}
	defer s.submitting.Store(false)

	if p.Paid.IsNegative() {
		err := domain.NewValidationError("paid_amount", "must be non-negative", p.Paid.String())
		s.notify.Notify(notify.Warning, err.Error())
		return domain.Sale{}, err
	}
	if err := s.Validate(c); err != nil {
		if domain.IsValidationError(err) {
			s.notify.Notify(notify.Warning, "Cart is empty")
		} else {
			s.notify.Notify(notify.Error, err.Error())
		}
		return domain.Sale{}, err
	}

	draft := s.Draft(c, p)
	start := time.Now()
	sale, err := s.sales.CreateSale(ctx, draft)
	if err != nil {
		slog.Error("sale submission failed", "invoice", draft.InvoiceNumber, "error", err)
		s.notify.Notify(notify.Error, domain.UserMessage(err, fallbackMessage))
		return domain.Sale{}, fmt.Errorf("create sale %s: %w", draft.InvoiceNumber, err)
	}

	slog.Info("sale created",
		"sale_id", sale.ID,
		"invoice", draft.InvoiceNumber,
		"items", len(draft.Items),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	c.Clear()
	s.notify.Notify(notify.Success, fmt.Sprintf("Sale %s created", draft.InvoiceNumber))
	return sale, nil
}
