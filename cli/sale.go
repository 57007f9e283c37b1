package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"hisaabpos/cart"
	"hisaabpos/catalog"
	"hisaabpos/checkout"
	"hisaabpos/domain"
	"hisaabpos/notify"
	"hisaabpos/quicksale"
)

// saleOptions are shared by the interactive and the scripted sale
type saleOptions struct {
	method string
	phone  string
	email  string
}

func (o *saleOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.method, "payment", "cash", "payment method: cash|card|online|credit")
	cmd.Flags().StringVar(&o.phone, "phone", "", "customer phone")
	cmd.Flags().StringVar(&o.email, "email", "", "customer email")
}

func (o *saleOptions) payment() (domain.Payment, error) {
	method, err := domain.ParsePaymentMethod(strings.ToLower(strings.TrimSpace(o.method)))
	if err != nil {
		return domain.Payment{}, err
	}
	return domain.Payment{
		Method:        method,
		CustomerPhone: strings.TrimSpace(o.phone),
		CustomerEmail: strings.TrimSpace(o.email),
	}, nil
}

// saleContext is everything a sale needs once the operator is signed in
type saleContext struct {
	catalog  *catalog.Catalog
	cart     *cart.Cart
	checkout *checkout.Service
}

func newSaleContext(ctx context.Context, n notify.Notifier) (*saleContext, error) {
	s, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(ctx, backend, n)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return &saleContext{
		catalog:  cat,
		cart:     cart.New(cat, n),
		checkout: checkout.New(backend, cat, s.User.Business, n),
	}, nil
}

func init() {
	// sale
	var interactive saleOptions
	saleCmd := &cobra.Command{
		Use:   "sale",
		Short: "Open the interactive quick sale screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			pay, err := interactive.payment()
			if err != nil {
				return err
			}
			return runQuickSale(cmd, pay)
		},
	}
	interactive.bind(saleCmd)
	rootCmd.AddCommand(saleCmd)

	// sell
	var scripted saleOptions
	var items []string
	var paid string
	sellCmd := &cobra.Command{
		Use:   "sell --item SKU=QTY [--item SKU=QTY ...]",
		Short: "Record a sale without the interactive screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer resetFlags(cmd)
			if len(items) == 0 {
				return errors.New("at least one --item required")
			}
			pay, err := scripted.payment()
			if err != nil {
				return err
			}

			n := notify.NewWriter(cmd.ErrOrStderr())
			sc, err := newSaleContext(cmd.Context(), n)
			if err != nil {
				return err
			}
			for _, it := range items {
				sku, qty, err := parseItem(it)
				if err != nil {
					return err
				}
				p, ok := sc.catalog.FindBySKU(sku)
				if !ok {
					return fmt.Errorf("no sellable product with SKU %q", sku)
				}
				if err := sc.cart.Add(p, qty); err != nil {
					return err
				}
			}

			pay.Paid = sc.cart.Total()
			if cmd.Flags().Changed("paid") {
				pay.Paid, err = decimal.NewFromString(strings.TrimSpace(paid))
				if err != nil {
					return domain.NewValidationError("paid", "must be a number", paid)
				}
			}

			sale, err := sc.checkout.Submit(cmd.Context(), sc.cart, pay)
			if err != nil {
				return err
			}
			created, err := backend.GetSale(cmd.Context(), sale.ID)
			if err != nil {
				slog.Warn("could not fetch created sale", "sale_id", sale.ID, "error", err)
				created = sale
			}
			return printJSON(cmd.OutOrStdout(), created)
		},
	}
	scripted.bind(sellCmd)
	sellCmd.Flags().StringArrayVar(&items, "item", nil, "SKU=QTY, repeatable")
	sellCmd.Flags().StringVar(&paid, "paid", "", "amount paid (defaults to the cart total)")
	rootCmd.AddCommand(sellCmd)
}

// parseItem splits SKU=QTY; a missing quantity means 1
func parseItem(s string) (string, int, error) {
	sku, qtyText, found := strings.Cut(s, "=")
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return "", 0, domain.NewValidationError("item", "SKU cannot be empty", s)
	}
	if !found {
		return sku, 1, nil
	}
	qty, err := strconv.Atoi(strings.TrimSpace(qtyText))
	if err != nil {
		return "", 0, domain.NewValidationError("item", "quantity must be a whole number", s)
	}
	return sku, qty, nil
}

func runQuickSale(cmd *cobra.Command, pay domain.Payment) error {
	ctx := cmd.Context()
	toasts := &notify.Recorder{}
	n := notify.Multi{toasts, notify.Log{}}

	sc, err := newSaleContext(ctx, n)
	if err != nil {
		return err
	}
	screen := quicksale.NewScreen(sc.catalog, sc.cart, sc.checkout, pay, n)

	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()
	ansi := false
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		old, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("raw terminal: %w", err)
		}
		defer term.Restore(fd, old)
		ansi = true
	}

	var toast notify.Message
	draw := func() error {
		if m, ok := toasts.Last(); ok {
			toast = m
			toasts.Reset()
		}
		if err := quicksale.Render(out, screen, ansi); err != nil {
			return err
		}
		if toast.Text != "" {
			_, err := fmt.Fprintf(out, "\r\n[%s] %s\r\n", toast.Level, strings.ReplaceAll(toast.Text, "\n", "\r\n"))
			return err
		}
		return nil
	}

	keys := quicksale.NewKeyReader(in)
	sales := 0
	for {
		if err := draw(); err != nil {
			return err
		}
		k, err := keys.ReadKey()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		before, _ := screen.LastSale()
		quit, err := screen.Handle(ctx, k)
		if err != nil {
			slog.Debug("key rejected", "error", err)
		}
		if after, ok := screen.LastSale(); ok && after.ID != before.ID {
			sales++
		}
		if quit {
			break
		}
	}

	fmt.Fprintf(out, "\r\n%d sale(s) recorded\r\n", sales)
	return nil
}
