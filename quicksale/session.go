// Package quicksale implements the keyboard-driven quick-sale screen: product search,
// quantity entry and the cart/payment panels around them.
package quicksale

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"hisaabpos/cart"
	"hisaabpos/catalog"
	"hisaabpos/domain"
)

// Mode is the selection state: Searching or QuantityEntry
type Mode interface {
	isMode()
}

// Searching is the initial mode; the search field has focus
type Searching struct{}

// QuantityEntry holds the product awaiting a quantity. Selected means the whole
// QuantityText is selected, so the next typed rune replaces it.
type QuantityEntry struct {
	Pending      domain.Product
	QuantityText string
	Selected     bool
}

func (Searching) isMode()     {}
func (QuantityEntry) isMode() {}

// Focus names the input that receives typed text
type Focus int

const (
	FocusSearch Focus = iota
	FocusQuantity
	FocusCart
	FocusPayment
)

// Session is the selection state machine over one catalog snapshot and one cart
type Session struct {
	catalog   *catalog.Catalog
	cart      *cart.Cart
	query     string
	results   []domain.Product
	highlight int
	mode      Mode
}

// NewSession starts in Searching mode with an empty query
func NewSession(cat *catalog.Catalog, c *cart.Cart) *Session {
	return &Session{catalog: cat, cart: c, highlight: -1, mode: Searching{}}
}

// Mode returns the current selection mode
func (s *Session) Mode() Mode { return s.mode }

// Query returns the search text
func (s *Session) Query() string { return s.query }

// Results returns the current search matches
func (s *Session) Results() []domain.Product { return s.results }

// Highlight returns the highlighted result index, -1 when there are no results
func (s *Session) Highlight() int { return s.highlight }

// Focus reports which field receives typed text
func (s *Session) Focus() Focus {
	if _, ok := s.mode.(QuantityEntry); ok {
		return FocusQuantity
	}
	return FocusSearch
}

// SetQuery replaces the search text and refreshes the results
func (s *Session) SetQuery(q string) {
	s.query = q
	s.results = s.catalog.Search(q)
	if len(s.results) > 0 {
		s.highlight = 0
	} else {
		s.highlight = -1
	}
}

// Type inserts r into the focused field
func (s *Session) Type(r rune) {
	switch m := s.mode.(type) {
	case QuantityEntry:
		if m.Selected {
			m.QuantityText = ""
			m.Selected = false
		}
		m.QuantityText += string(r)
		s.mode = m
	default:
		s.SetQuery(s.query + string(r))
	}
}

// Backspace deletes the last rune of the focused field
func (s *Session) Backspace() {
	switch m := s.mode.(type) {
	case QuantityEntry:
		if m.Selected {
			m.QuantityText = ""
			m.Selected = false
		} else {
			m.QuantityText = trimLastRune(m.QuantityText)
		}
		s.mode = m
	default:
		s.SetQuery(trimLastRune(s.query))
	}
}

// HandleKey applies a navigation key. It returns the cart's error when a confirmed
// quantity was rejected; the session is back in Searching mode either way.
func (s *Session) HandleKey(k Key) error {
	switch m := s.mode.(type) {
	case Searching:
		s.handleSearching(k)
	case QuantityEntry:
		return s.handleQuantity(m, k)
	}
	return nil
}

func (s *Session) handleSearching(k Key) {
	n := len(s.results)
	switch k.Kind {
	case KeyDown:
		if n > 0 {
			s.highlight = (s.highlight + 1) % n
		}
	case KeyUp:
		if n > 0 {
			s.highlight = (s.highlight - 1 + n) % n
		}
	case KeyEnter:
		if s.highlight >= 0 && s.highlight < n {
			s.mode = QuantityEntry{Pending: s.results[s.highlight], QuantityText: "1", Selected: true}
		}
	case KeyEscape:
		s.SetQuery("")
	case KeyBackspace:
		s.Backspace()
	case KeyRune:
		s.Type(k.Rune)
	}
}

func (s *Session) handleQuantity(m QuantityEntry, k Key) error {
	switch k.Kind {
	case KeyEnter:
		err := s.cart.Add(m.Pending, ParseQuantity(m.QuantityText))
		s.reset()
		return err
	case KeyEscape:
		s.mode = Searching{}
	case KeyBackspace:
		s.Backspace()
	case KeyRune:
		s.Type(k.Rune)
	}
	return nil
}

func (s *Session) reset() {
	s.mode = Searching{}
	s.SetQuery("")
}

// ParseQuantity reads the quantity field; anything that is not an integer counts as 1
func ParseQuantity(text string) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 1
	}
	return n
}

func trimLastRune(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}
