package domain

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateProduct(t *testing.T) {
	tests := []struct {
		name        string
		product     Product
		expectError bool
		errField    string
	}{
		{
			name:        "valid product",
			product:     Product{ID: 1, Name: "Sugar", SellingPrice: decimal.NewFromInt(90), Stock: 5},
			expectError: false,
		},
		{
			name:        "empty name",
			product:     Product{ID: 2, Name: " ", SellingPrice: decimal.NewFromInt(10), Stock: 1},
			expectError: true,
			errField:    "name",
		},
		{
			name:        "negative price",
			product:     Product{ID: 3, Name: "Tea", SellingPrice: decimal.NewFromInt(-1), Stock: 1},
			expectError: true,
			errField:    "selling_price",
		},
		{
			name:        "negative stock",
			product:     Product{ID: 4, Name: "Pen", SellingPrice: decimal.NewFromInt(1), Stock: -5},
			expectError: true,
			errField:    "stock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProduct(tt.product)

			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				ve, ok := err.(*ValidationError)
				if !ok {
					t.Fatalf("expected ValidationError, got %T", err)
				}
				if ve.Field != tt.errField {
					t.Fatalf("expected error field %q, got %q", tt.errField, ve.Field)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSellable(t *testing.T) {
	cases := []struct {
		p    Product
		want bool
	}{
		{Product{IsActive: true, Stock: 1}, true},
		{Product{IsActive: true, Stock: 0}, false},
		{Product{IsActive: false, Stock: 10}, false},
	}
	for _, c := range cases {
		if got := c.p.Sellable(); got != c.want {
			t.Errorf("Sellable(%+v) = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestProductDecodesDecimalStrings(t *testing.T) {
	raw := `{"id":12,"name":"Ghee","sku":"GH-1","selling_price":"1250.50","stock":3,"is_active":true}`
	var p Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.SellingPrice.Equal(decimal.RequireFromString("1250.5")) {
		t.Fatalf("unexpected price %s", p.SellingPrice)
	}
}

func TestRecordIDAcceptsNumbersAndStrings(t *testing.T) {
	var s Sale
	if err := json.Unmarshal([]byte(`{"id":42}`), &s); err != nil {
		t.Fatalf("numeric id: %v", err)
	}
	if s.ID != "42" {
		t.Fatalf("expected 42, got %q", s.ID)
	}
	if err := json.Unmarshal([]byte(`{"id":"0b6c"}`), &s); err != nil {
		t.Fatalf("string id: %v", err)
	}
	if s.ID != "0b6c" {
		t.Fatalf("expected 0b6c, got %q", s.ID)
	}
}

func TestParsePaymentMethod(t *testing.T) {
	if m, err := ParsePaymentMethod(""); err != nil || m != PaymentCash {
		t.Fatalf("empty should default to cash, got %q %v", m, err)
	}
	if m, err := ParsePaymentMethod("udhaar"); err != nil || m != PaymentCredit {
		t.Fatalf("udhaar should map to credit, got %q %v", m, err)
	}
	if _, err := ParsePaymentMethod("cheque"); !IsValidationError(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

// ---- Interface compile-time test ----

type mockProductSource struct{}

func (m *mockProductSource) ListProducts(ctx context.Context, page, limit int) (ProductPage, error) {
	return ProductPage{}, nil
}

type mockSaleGateway struct{}

func (m *mockSaleGateway) CreateSale(ctx context.Context, d SaleDraft) (Sale, error) {
	return Sale{}, nil
}

func (m *mockSaleGateway) GetSale(ctx context.Context, id RecordID) (Sale, error) {
	return Sale{}, nil
}

// compile-time assertions
var (
	_ ProductSource = (*mockProductSource)(nil)
	_ SaleGateway   = (*mockSaleGateway)(nil)
)
