// Package store provides the in-memory inventory and sales store behind the stand-in backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hisaabpos/domain"
)

// ListFilter narrows and pages List results
type ListFilter struct {
	Search     string
	ActiveOnly bool
	Page       int
	Limit      int
}

// InMemoryStore is a thread-safe inventory of products with the sales and stock entries
// that move their stock
type InMemoryStore struct {
	mu       sync.RWMutex
	products map[int64]domain.Product
	sales    map[domain.RecordID]domain.Sale
	invoices map[string]domain.RecordID
	entries  []domain.StockEntry
	nextID   int64
	now      func() time.Time
}

// NewInMemoryStore constructs a new InMemoryStore
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		products: make(map[int64]domain.Product),
		sales:    make(map[domain.RecordID]domain.Sale),
		invoices: make(map[string]domain.RecordID),
		nextID:   1,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create adds a product. A zero ID is assigned the next free one; the stored product is returned.
func (s *InMemoryStore) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	select {
	case <-ctx.Done():
		return domain.Product{}, ctx.Err()
	default:
	}

	if product.ID < 0 {
		return domain.Product{}, domain.NewValidationError("id", "must be positive", product.ID)
	}
	if err := domain.ValidateProduct(product); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == 0 {
		product.ID = s.nextID
	}
	if _, exists := s.products[product.ID]; exists {
		return domain.Product{}, NewDuplicateProductError(product.ID)
	}
	if product.ID >= s.nextID {
		s.nextID = product.ID + 1
	}
	s.products[product.ID] = product
	return product, nil
}

func (s *InMemoryStore) Get(ctx context.Context, id int64) (domain.Product, error) {
	select {
	case <-ctx.Done():
		return domain.Product{}, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.NewProductNotFoundError(id)
	}
	return p, nil
}

func (s *InMemoryStore) Update(ctx context.Context, id int64, product domain.Product) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := domain.ValidateProduct(product); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return domain.NewProductNotFoundError(id)
	}
	product.ID = id
	s.products[id] = product
	return nil
}

// List returns one page of products ordered by id, and the total number matching the filter
func (s *InMemoryStore) List(ctx context.Context, filter ListFilter) ([]domain.Product, int, error) {
	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.SKU), q) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	total := len(out)
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.Limit
		if start >= total {
			return []domain.Product{}, total, nil
		}
		end := start + filter.Limit
		if end > total {
			end = total
		}
		out = out[start:end]
	}
	return out, total, nil
}

// RecordSale stores a sale and takes its quantities out of stock. Either every item
// fits the current stock and the whole sale is applied, or nothing changes.
func (s *InMemoryStore) RecordSale(ctx context.Context, draft domain.SaleDraft) (domain.Sale, error) {
	if err := ctx.Err(); err != nil {
		return domain.Sale{}, err
	}
	if len(draft.Items) == 0 {
		return domain.Sale{}, domain.NewValidationError("items", "at least one item is required", 0)
	}
	if strings.TrimSpace(draft.InvoiceNumber) == "" {
		return domain.Sale{}, domain.NewValidationError("invoice_number", "cannot be empty", draft.InvoiceNumber)
	}
	if draft.PaidAmount.IsNegative() {
		return domain.Sale{}, domain.NewValidationError("paid_amount", "must be non-negative", draft.PaidAmount.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.invoices[draft.InvoiceNumber]; dup {
		return domain.Sale{}, domain.NewValidationError("invoice_number", "already exists", draft.InvoiceNumber)
	}

	wanted := make(map[int64]int)
	total := decimal.Zero
	for _, it := range draft.Items {
		if it.Quantity <= 0 {
			return domain.Sale{}, domain.NewValidationError("quantity", "must be at least 1", it.Quantity)
		}
		wanted[it.Product] += it.Quantity
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	var short []error
	for id, qty := range wanted {
		p, ok := s.products[id]
		if !ok || !p.IsActive {
			short = append(short, domain.NewProductNotFoundError(id))
			continue
		}
		if p.Stock < qty {
			short = append(short, domain.NewInsufficientStockError(p, qty, 0))
		}
	}
	if len(short) > 0 {
		sort.Slice(short, func(i, j int) bool { return short[i].Error() < short[j].Error() })
		return domain.Sale{}, &domain.StockShortfallError{Lines: short}
	}

	for id, qty := range wanted {
		p := s.products[id]
		p.Stock -= qty
		s.products[id] = p
	}

	due := total.Sub(draft.PaidAmount)
	if due.IsNegative() {
		due = decimal.Zero
	}
	sale := domain.Sale{
		ID:            domain.RecordID(uuid.NewString()),
		Business:      draft.Business,
		InvoiceNumber: draft.InvoiceNumber,
		CustomerPhone: draft.CustomerPhone,
		CustomerEmail: draft.CustomerEmail,
		PaymentMethod: draft.PaymentMethod,
		TotalAmount:   total,
		PaidAmount:    draft.PaidAmount,
		DueAmount:     due,
		Items:         append([]domain.SaleItem(nil), draft.Items...),
		CreatedAt:     s.now(),
	}
	s.sales[sale.ID] = sale
	s.invoices[sale.InvoiceNumber] = sale.ID
	return sale, nil
}

// GetSale returns a recorded sale
func (s *InMemoryStore) GetSale(ctx context.Context, id domain.RecordID) (domain.Sale, error) {
	if err := ctx.Err(); err != nil {
		return domain.Sale{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return domain.Sale{}, NewSaleNotFoundError(id)
	}
	return sale, nil
}

// RecordStockEntry applies an inventory movement. Purchases and returns add stock;
// adjustments add a signed quantity but never take stock below zero.
func (s *InMemoryStore) RecordStockEntry(ctx context.Context, draft domain.StockEntryDraft) (domain.StockEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.StockEntry{}, err
	}
	switch draft.EntryType {
	case domain.StockPurchase, domain.StockReturn:
		if draft.Quantity <= 0 {
			return domain.StockEntry{}, domain.NewValidationError("quantity", "must be at least 1", draft.Quantity)
		}
	case domain.StockAdjustment:
		if draft.Quantity == 0 {
			return domain.StockEntry{}, domain.NewValidationError("quantity", "cannot be zero", draft.Quantity)
		}
	default:
		return domain.StockEntry{}, domain.NewValidationError("entry_type", "must be purchase, return or adjustment", draft.EntryType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[draft.Product]
	if !ok {
		return domain.StockEntry{}, domain.NewProductNotFoundError(draft.Product)
	}
	if p.Stock+draft.Quantity < 0 {
		return domain.StockEntry{}, domain.NewInsufficientStockError(p, -draft.Quantity, 0)
	}
	p.Stock += draft.Quantity
	s.products[p.ID] = p

	entry := domain.StockEntry{
		ID:              domain.RecordID(uuid.NewString()),
		StockEntryDraft: draft,
		CreatedAt:       s.now(),
	}
	s.entries = append(s.entries, entry)
	return entry, nil
}

// StockEntries returns every recorded movement in order
func (s *InMemoryStore) StockEntries() []domain.StockEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.StockEntry(nil), s.entries...)
}

// BulkImport creates products concurrently with a bounded worker pool. Every failure
// is joined into the returned error; products that validate are stored even when others fail.
func (s *InMemoryStore) BulkImport(ctx context.Context, products []domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	const maxWorkers = 10
	if len(products) == 0 {
		return nil
	}

	jobs := make(chan domain.Product)
	failures := make(chan error, len(products))

	var wg sync.WaitGroup
	nWorkers := min(maxWorkers, len(products))
	wg.Add(nWorkers)
	for i := 0; i < nWorkers; i++ {
		go func() {
			defer wg.Done()
			for p := range jobs {
				if _, err := s.Create(ctx, p); err != nil {
					failures <- fmt.Errorf("id=%d: %w", p.ID, err)
				}
			}
		}()
	}

feed:
	for _, p := range products {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- p:
		}
	}
	close(jobs)
	wg.Wait()
	close(failures)

	if err := ctx.Err(); err != nil {
		return err
	}
	var errs []error
	for err := range failures {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
