package quicksale

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"hisaabpos/cart"
	"hisaabpos/catalog"
	"hisaabpos/domain"
	"hisaabpos/notify"
)

// Submitter posts a cart as a sale
type Submitter interface {
	Submit(ctx context.Context, c *cart.Cart, p domain.Payment) (domain.Sale, error)
	Submitting() bool
}

type panel int

const (
	panelSelect panel = iota
	panelCart
	panelPayment
)

// Screen routes keys between the selection session, the cart panel and the payment field.
// Tab toggles between product selection and the cart; Ctrl-S opens payment entry.
type Screen struct {
	Session *Session
	Cart    *cart.Cart

	submit  Submitter
	notify  notify.Notifier
	payment domain.Payment

	panel      panel
	cartCursor int
	paidText   string
	lastSale   *domain.Sale
}

// NewScreen builds a screen over a loaded catalog. payment carries the method and customer
// details used for every sale from this screen; Paid is entered per sale.
func NewScreen(cat *catalog.Catalog, c *cart.Cart, submit Submitter, payment domain.Payment, n notify.Notifier) *Screen {
	if payment.Method == "" {
		payment.Method = domain.PaymentCash
	}
	return &Screen{
		Session: NewSession(cat, c),
		Cart:    c,
		submit:  submit,
		notify:  notify.OrDiscard(n),
		payment: payment,
	}
}

// Focus reports the input with keyboard focus
func (s *Screen) Focus() Focus {
	switch s.panel {
	case panelCart:
		return FocusCart
	case panelPayment:
		return FocusPayment
	default:
		return s.Session.Focus()
	}
}

// CartCursor returns the selected cart line in the cart panel
func (s *Screen) CartCursor() int { return s.cartCursor }

// PaidText returns the amount typed in the payment field
func (s *Screen) PaidText() string { return s.paidText }

// LastSale returns the most recently created sale, if any
func (s *Screen) LastSale() (domain.Sale, bool) {
	if s.lastSale == nil {
		return domain.Sale{}, false
	}
	return *s.lastSale, true
}

// Handle applies one key. quit is true when the operator asked to leave.
func (s *Screen) Handle(ctx context.Context, k Key) (quit bool, err error) {
	switch k.Kind {
	case KeyQuit:
		return true, nil
	case KeyClearCart:
		if !s.Cart.IsEmpty() {
			s.Cart.Clear()
			s.cartCursor = 0
			s.notify.Notify(notify.Info, "Cart cleared")
		}
		return false, nil
	case KeyCheckout:
		if s.panel != panelPayment {
			s.openPayment()
		}
		return false, nil
	}

	switch s.panel {
	case panelCart:
		return false, s.handleCart(k)
	case panelPayment:
		return false, s.handlePayment(ctx, k)
	}

	if k.Kind == KeyTab && s.Session.Focus() == FocusSearch {
		s.panel = panelCart
		s.clampCursor()
		return false, nil
	}
	return false, s.Session.HandleKey(k)
}

func (s *Screen) handleCart(k Key) error {
	n := s.Cart.Len()
	switch k.Kind {
	case KeyTab, KeyEscape:
		s.panel = panelSelect
	case KeyDown:
		if n > 0 {
			s.cartCursor = (s.cartCursor + 1) % n
		}
	case KeyUp:
		if n > 0 {
			s.cartCursor = (s.cartCursor - 1 + n) % n
		}
	case KeyDelete, KeyBackspace:
		if n > 0 {
			err := s.Cart.Remove(s.cartCursor)
			s.clampCursor()
			return err
		}
	case KeyRune:
		if n == 0 {
			return nil
		}
		var err error
		switch k.Rune {
		case '+', '=':
			err = s.Cart.Increment(s.cartCursor, 1)
		case '-', '_':
			err = s.Cart.Increment(s.cartCursor, -1)
		case 'x', 'X':
			err = s.Cart.Remove(s.cartCursor)
		}
		s.clampCursor()
		return err
	}
	return nil
}

func (s *Screen) openPayment() {
	s.panel = panelPayment
	s.paidText = s.Cart.Total().StringFixed(2)
}

func (s *Screen) handlePayment(ctx context.Context, k Key) error {
	switch k.Kind {
	case KeyEscape:
		s.panel = panelSelect
	case KeyBackspace:
		s.paidText = trimLastRune(s.paidText)
	case KeyRune:
		switch {
		case k.Rune >= '0' && k.Rune <= '9':
			s.paidText += string(k.Rune)
		case k.Rune == '.' && !strings.Contains(s.paidText, "."):
			s.paidText += "."
		}
	case KeyEnter:
		return s.checkout(ctx)
	}
	return nil
}

// Paid parses the payment field for the balance display; an amount still being typed counts as zero
func (s *Screen) Paid() decimal.Decimal {
	d, err := s.parsePaid()
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parsePaid reads the payment field; unlike the quantity field it has no default
func (s *Screen) parsePaid() (decimal.Decimal, error) {
	text := strings.TrimSpace(s.paidText)
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, domain.NewValidationError("paid", "must be a number", text)
	}
	return d, nil
}

func (s *Screen) checkout(ctx context.Context) error {
	if s.submit.Submitting() {
		return domain.ErrSubmitInProgress
	}
	paid, err := s.parsePaid()
	if err != nil {
		s.notify.Notify(notify.Warning, err.Error())
		return err
	}
	p := s.payment
	p.Paid = paid
	sale, err := s.submit.Submit(ctx, s.Cart, p)
	if err != nil {
		// cart and payment field stay as they are for a retry
		return err
	}
	s.lastSale = &sale
	s.panel = panelSelect
	s.paidText = ""
	s.cartCursor = 0
	s.Session.reset()
	return nil
}

func (s *Screen) clampCursor() {
	n := s.Cart.Len()
	if s.cartCursor >= n {
		s.cartCursor = n - 1
	}
	if s.cartCursor < 0 {
		s.cartCursor = 0
	}
}
