package quicksale

import (
	"bufio"
	"fmt"
	"io"
)

const (
	clearScreen = "\x1b[H\x1b[2J"
	reverse     = "\x1b[7m"
	reset       = "\x1b[0m"
	eol         = "\r\n"
)

// Render draws the screen. ansi enables screen clearing and highlight attributes;
// lines always end in CRLF because the terminal is in raw mode.
func Render(w io.Writer, s *Screen, ansi bool) error {
	bw := bufio.NewWriter(w)
	hl := func(on bool, text string) string {
		if !on {
			return "  " + text
		}
		if ansi {
			return "> " + reverse + text + reset
		}
		return "> " + text
	}

	if ansi {
		bw.WriteString(clearScreen)
	}
	bw.WriteString("HisaabPlus Quick Sale  [Tab] cart  [Ctrl-S] checkout  [Ctrl-X] clear  [Ctrl-C] quit" + eol)
	bw.WriteString(eol)

	focus := s.Focus()
	cursor := func(f Focus) string {
		if focus == f {
			return "_"
		}
		return ""
	}

	fmt.Fprintf(bw, "Search: %s%s%s", s.Session.Query(), cursor(FocusSearch), eol)
	results := s.Session.Results()
	for i, p := range results {
		line := fmt.Sprintf("%-28s %-12s %10s  stock %d", p.Name, p.SKU, p.SellingPrice.StringFixed(2), p.Stock)
		bw.WriteString(hl(focus == FocusSearch && i == s.Session.Highlight(), line) + eol)
	}
	if s.Session.Query() != "" && len(results) == 0 {
		bw.WriteString("  no matching products" + eol)
	}

	if m, ok := s.Session.Mode().(QuantityEntry); ok {
		text := m.QuantityText
		if m.Selected && ansi {
			text = reverse + text + reset
		}
		fmt.Fprintf(bw, "%sQuantity for %s (stock %d): %s_%s", eol, m.Pending.Name, m.Pending.Stock, text, eol)
	}

	bw.WriteString(eol + "Cart" + eol)
	lines := s.Cart.Lines()
	if len(lines) == 0 {
		bw.WriteString("  (empty)" + eol)
	}
	for i, l := range lines {
		row := fmt.Sprintf("%-28s %4d x %10s = %10s", l.ProductName, l.Quantity, l.UnitPrice.StringFixed(2), l.Subtotal.StringFixed(2))
		bw.WriteString(hl(focus == FocusCart && i == s.cartCursor, row) + eol)
	}
	fmt.Fprintf(bw, "%-50s Total %10s%s", "", s.Cart.Total().StringFixed(2), eol)

	if focus == FocusPayment {
		fmt.Fprintf(bw, "%sPaid (%s): %s_%s", eol, s.payment.Method, s.paidText, eol)
		fmt.Fprintf(bw, "%s%s", s.Cart.BalanceLabel(s.Paid()), eol)
		if s.submit.Submitting() {
			bw.WriteString("Submitting..." + eol)
		}
	}

	if sale, ok := s.LastSale(); ok {
		fmt.Fprintf(bw, "%sLast sale: /sales/%s  %s%s", eol, sale.ID, sale.InvoiceNumber, eol)
	}
	return bw.Flush()
}
