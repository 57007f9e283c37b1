package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"hisaabpos/domain"
	"hisaabpos/util"
)

func init() {
	// stock-in
	var sku, entryType, unitCost, notes string
	var productID, supplier int64
	var qty int
	stockInCmd := &cobra.Command{
		Use:   "stock-in",
		Short: "Record a purchase, return or adjustment for a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer resetFlags(cmd)
			s, err := requireSession(cmd.Context())
			if err != nil {
				return err
			}
			if (sku == "") == (productID == 0) {
				return errors.New("exactly one of --sku or --product required")
			}
			if productID == 0 {
				p, err := findProductBySKU(cmd.Context(), sku)
				if err != nil {
					return err
				}
				productID = p.ID
			}

			cost := decimal.Zero
			if unitCost != "" {
				cost, err = decimal.NewFromString(strings.TrimSpace(unitCost))
				if err != nil {
					return domain.NewValidationError("unit_cost", "must be a number", unitCost)
				}
			}

			draft := domain.StockEntryDraft{
				Business:      s.User.Business,
				InvoiceNumber: util.InvoiceNumber(util.StockEntryInvoice),
				Product:       productID,
				EntryType:     domain.StockEntryType(strings.ToLower(entryType)),
				Quantity:      qty,
				UnitCost:      cost,
				Notes:         notes,
			}
			if cmd.Flags().Changed("supplier") {
				draft.Supplier = &supplier
			}

			entry, err := backend.CreateStockEntry(cmd.Context(), draft)
			if err != nil {
				return fmt.Errorf("create stock entry %s: %w", draft.InvoiceNumber, err)
			}
			return printJSON(cmd.OutOrStdout(), entry)
		},
	}
	stockInCmd.Flags().StringVar(&sku, "sku", "", "product SKU")
	stockInCmd.Flags().Int64Var(&productID, "product", 0, "product id")
	stockInCmd.Flags().IntVar(&qty, "qty", 0, "quantity (signed for adjustments)")
	stockInCmd.Flags().StringVar(&entryType, "type", string(domain.StockPurchase), "purchase|return|adjustment")
	stockInCmd.Flags().StringVar(&unitCost, "unit-cost", "", "unit cost")
	stockInCmd.Flags().Int64Var(&supplier, "supplier", 0, "supplier id")
	stockInCmd.Flags().StringVar(&notes, "notes", "", "notes")
	rootCmd.AddCommand(stockInCmd)
}

// findProductBySKU searches the full product list, out-of-stock and inactive products included
func findProductBySKU(ctx context.Context, sku string) (domain.Product, error) {
	page, err := backend.ListProducts(ctx, 1, 1000)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range page.Results {
		if strings.EqualFold(p.SKU, strings.TrimSpace(sku)) {
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("no product with SKU %q", sku)
}
