package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer settles a sale
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentOnline PaymentMethod = "online"
	// PaymentCredit records the sale as udhaar (store credit)
	PaymentCredit PaymentMethod = "credit"
)

// ParsePaymentMethod maps user input to a PaymentMethod
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentCash, PaymentCard, PaymentOnline, PaymentCredit:
		return PaymentMethod(s), nil
	case "":
		return PaymentCash, nil
	case "udhaar":
		return PaymentCredit, nil
	default:
		return "", NewValidationError("payment_method", "must be one of cash, card, online, credit", s)
	}
}

// RecordID identifies a backend record. The backend may send it as a number or a string.
type RecordID string

// UnmarshalJSON accepts both JSON numbers and strings
func (id *RecordID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = RecordID(n.String())
	return nil
}

// CartLine is one product in the cart with its quantity
type CartLine struct {
	ProductID   int64
	ProductName string
	SKU         string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// SaleItem is the wire form of a cart line
type SaleItem struct {
	Product     int64           `json:"product"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// SaleDraft is the payload posted to create a sale
type SaleDraft struct {
	Business      int64           `json:"business"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerPhone string          `json:"customer_phone"`
	CustomerEmail string          `json:"customer_email"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Items         []SaleItem      `json:"items"`
}

// Sale is a sale record as returned by the backend
type Sale struct {
	ID            RecordID        `json:"id"`
	Business      int64           `json:"business"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	DueAmount     decimal.Decimal `json:"due_amount"`
	Items         []SaleItem      `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StockEntryType classifies an inventory movement
type StockEntryType string

const (
	StockPurchase   StockEntryType = "purchase"
	StockReturn     StockEntryType = "return"
	StockAdjustment StockEntryType = "adjustment"
)

// StockEntryDraft is the payload posted to record an inventory movement
type StockEntryDraft struct {
	Business      int64           `json:"business"`
	InvoiceNumber string          `json:"invoice_number"`
	Product       int64           `json:"product"`
	Supplier      *int64          `json:"supplier,omitempty"`
	EntryType     StockEntryType  `json:"entry_type"`
	Quantity      int             `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Notes         string          `json:"notes,omitempty"`
}

// StockEntry is a recorded inventory movement
type StockEntry struct {
	ID RecordID `json:"id"`
	StockEntryDraft
	CreatedAt time.Time `json:"created_at"`
}

// SaleGateway creates and reads sales on the backend
type SaleGateway interface {
	CreateSale(ctx context.Context, draft SaleDraft) (Sale, error)
	GetSale(ctx context.Context, id RecordID) (Sale, error)
}

// Payment is what the operator enters at checkout
type Payment struct {
	Method        PaymentMethod
	Paid          decimal.Decimal
	CustomerPhone string
	CustomerEmail string
}
