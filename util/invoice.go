// Package util provides utility functions for the quick-sale client.
package util

import (
	"fmt"
	"math/rand"
	"time"
)

// InvoiceKind selects the invoice number prefix
type InvoiceKind string

const (
	SaleInvoice       InvoiceKind = "INV"
	StockEntryInvoice InvoiceKind = "STE"
)

const invoiceTimeLayout = "20060102150405"

// InvoiceNumber returns a client-side invoice number: {INV|STE}-{YYYYMMDDHHMMSS}-{000..999}
func InvoiceNumber(kind InvoiceKind) string {
	return FormatInvoiceNumber(kind, time.Now(), rand.Intn(1000))
}

// FormatInvoiceNumber builds an invoice number from an explicit time and suffix
func FormatInvoiceNumber(kind InvoiceKind, at time.Time, suffix int) string {
	return fmt.Sprintf("%s-%s-%03d", kind, at.Format(invoiceTimeLayout), suffix%1000)
}
