package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"hisaabpos/api"
	"hisaabpos/domain"
	"hisaabpos/mockapi"
	"hisaabpos/session"
	"hisaabpos/store"
)

const (
	testEmail    = "owner@shop.np"
	testPassword = "secret"
)

// reset cobra + global state between tests
func resetCLI() {
	rootCmd.SetArgs(nil)
	rootCmd.SetIn(nil)
	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)
	backend = nil
	sessions = nil
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range rootCmd.Commands() {
		resetFlags(c)
	}
}

// withBackend injects a client for a seeded stand-in backend and a memory session store
func withBackend(t *testing.T) *store.InMemoryStore {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := store.NewInMemoryStore()
	err := st.Seed(context.Background(), []domain.Product{
		{ID: 1, Name: "Basmati Rice", SKU: "RICE-5", SellingPrice: decimal.NewFromInt(100), Stock: 5, IsActive: true, ReorderLevel: 5},
		{ID: 2, Name: "Sugar", SKU: "SUG-1", SellingPrice: decimal.NewFromInt(50), Stock: 2, IsActive: true},
		{ID: 3, Name: "Empty Shelf", SKU: "NONE", SellingPrice: decimal.NewFromInt(1), Stock: 0, IsActive: true},
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	srv := httptest.NewServer(mockapi.New("", st, mockapi.Config{Email: testEmail, Password: testPassword, Business: 4}).Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(resetCLI)

	sessions = session.NewManager(session.NewMemoryStore())
	backend, err = api.NewClient(srv.URL+"/api", srv.Client(), sessions)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return st
}

// run executes one command line with stdin and returns stdout and stderr
func run(stdin string, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func login(t *testing.T) {
	t.Helper()
	if _, _, err := run("", "login", "--email", testEmail, "--password", testPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	withBackend(t)

	out, _, err := run(testPassword+"\n", "login", "--email", testEmail)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(out, "Logged in as owner@shop.np (business 4)") {
		t.Fatalf("unexpected login output: %q", out)
	}

	out, _, err = run("", "whoami")
	if err != nil {
		t.Fatalf("whoami failed: %v", err)
	}
	var u api.User
	if err := json.Unmarshal([]byte(out), &u); err != nil || u.Business != 4 {
		t.Fatalf("unexpected whoami output: %q (%v)", out, err)
	}

	if _, _, err := run("", "logout"); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, _, err := run("", "whoami"); !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("expected errNotLoggedIn after logout, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	withBackend(t)
	_, _, err := run("", "login", "--email", testEmail, "--password", "nope")
	if !domain.IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
	if !strings.Contains(err.Error(), "No active account") {
		t.Fatalf("backend message missing from %q", err.Error())
	}
}

func TestCommandsRequireLogin(t *testing.T) {
	withBackend(t)
	for _, args := range [][]string{
		{"whoami"},
		{"products"},
		{"sell", "--item", "RICE-5=1"},
		{"stock-in", "--sku", "NONE", "--qty", "1"},
		{"sale"},
	} {
		t.Run(args[0], func(t *testing.T) {
			if _, _, err := run("", args...); !errors.Is(err, errNotLoggedIn) {
				t.Fatalf("expected errNotLoggedIn, got %v", err)
			}
		})
	}
}

func TestProducts(t *testing.T) {
	withBackend(t)
	login(t)

	out, _, err := run("", "products")
	if err != nil {
		t.Fatalf("products failed: %v", err)
	}
	if !strings.Contains(out, "1 | RICE-5 | Basmati Rice | 100.00 | 5 LOW") {
		t.Fatalf("unexpected products output: %q", out)
	}
	if strings.Contains(out, "Empty Shelf") {
		t.Fatalf("out of stock product listed: %q", out)
	}

	out, _, err = run("", "products", "--search", "sug", "--output", "json")
	if err != nil {
		t.Fatalf("products search failed: %v", err)
	}
	var got []domain.Product
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if len(got) != 1 || got[0].SKU != "SUG-1" {
		t.Fatalf("unexpected search result: %+v", got)
	}
}

func TestSell(t *testing.T) {
	st := withBackend(t)
	login(t)

	out, errOut, err := run("", "sell", "--item", "RICE-5=3", "--item", "sug-1=2", "--paid", "300")
	if err != nil {
		t.Fatalf("sell failed: %v (%s)", err, errOut)
	}
	var sale domain.Sale
	if err := json.Unmarshal([]byte(out), &sale); err != nil {
		t.Fatalf("invalid sale output: %v", err)
	}
	if !sale.TotalAmount.Equal(decimal.NewFromInt(400)) || !sale.DueAmount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected amounts: total=%s due=%s", sale.TotalAmount, sale.DueAmount)
	}
	if sale.Business != 4 || sale.PaymentMethod != domain.PaymentCash || !strings.HasPrefix(sale.InvoiceNumber, "INV-") {
		t.Fatalf("unexpected sale: %+v", sale)
	}
	if !strings.Contains(errOut, "Sale "+sale.InvoiceNumber+" created") {
		t.Fatalf("missing success notification: %q", errOut)
	}

	p, _ := st.Get(context.Background(), 1)
	if p.Stock != 2 {
		t.Fatalf("expected rice stock 2, got %d", p.Stock)
	}
}

func TestSellDefaultsPaidToTotal(t *testing.T) {
	withBackend(t)
	login(t)

	out, _, err := run("", "sell", "--item", "SUG-1", "--payment", "udhaar")
	if err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	var sale domain.Sale
	_ = json.Unmarshal([]byte(out), &sale)
	if !sale.PaidAmount.Equal(decimal.NewFromInt(50)) || !sale.DueAmount.IsZero() || sale.PaymentMethod != domain.PaymentCredit {
		t.Fatalf("unexpected sale: %+v", sale)
	}
}

func TestSellErrors(t *testing.T) {
	cases := []struct {
		name  string
		args  []string
		check func(error) bool
	}{
		{"no items", []string{"sell"}, func(err error) bool { return err != nil }},
		{"unknown sku", []string{"sell", "--item", "NOPE=1"}, func(err error) bool { return err != nil && strings.Contains(err.Error(), "NOPE") }},
		{"out of stock sku", []string{"sell", "--item", "NONE=1"}, func(err error) bool { return err != nil }},
		{"bad quantity", []string{"sell", "--item", "RICE-5=two"}, domain.IsValidationError},
		{"zero quantity", []string{"sell", "--item", "RICE-5=0"}, domain.IsValidationError},
		{"over stock", []string{"sell", "--item", "RICE-5=4", "--item", "RICE-5=2"}, domain.IsInsufficientStockError},
		{"bad payment", []string{"sell", "--item", "RICE-5=1", "--payment", "barter"}, domain.IsValidationError},
		{"bad paid", []string{"sell", "--item", "RICE-5=1", "--paid", "lots"}, domain.IsValidationError},
		{"negative paid", []string{"sell", "--item", "RICE-5=1", "--paid", "-5"}, domain.IsValidationError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := withBackend(t)
			login(t)
			_, _, err := run("", tc.args...)
			if !tc.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			p, _ := st.Get(context.Background(), 1)
			if p.Stock != 5 {
				t.Fatalf("failed sale changed stock: %d", p.Stock)
			}
		})
	}
}

func TestStockIn(t *testing.T) {
	st := withBackend(t)
	login(t)

	out, _, err := run("", "stock-in", "--sku", "none", "--qty", "12", "--unit-cost", "0.75", "--supplier", "8")
	if err != nil {
		t.Fatalf("stock-in failed: %v", err)
	}
	var entry domain.StockEntry
	if err := json.Unmarshal([]byte(out), &entry); err != nil {
		t.Fatalf("invalid stock entry output: %v", err)
	}
	if !strings.HasPrefix(entry.InvoiceNumber, "STE-") || entry.Supplier == nil || *entry.Supplier != 8 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	p, _ := st.Get(context.Background(), 3)
	if p.Stock != 12 {
		t.Fatalf("expected stock 12, got %d", p.Stock)
	}

	if _, _, err := run("", "stock-in", "--product", "2", "--qty", "-1", "--type", "adjustment"); err != nil {
		t.Fatalf("adjustment failed: %v", err)
	}
	p, _ = st.Get(context.Background(), 2)
	if p.Stock != 1 {
		t.Fatalf("expected stock 1, got %d", p.Stock)
	}

	if _, _, err := run("", "stock-in", "--qty", "1"); err == nil {
		t.Fatalf("expected error without --sku or --product")
	}
	if _, _, err := run("", "stock-in", "--sku", "NONE", "--qty", "0"); !domain.IsBackendError(err) {
		t.Fatalf("expected backend rejection for zero quantity, got %v", err)
	}
}

func TestStockInFlagsDoNotCarryOver(t *testing.T) {
	withBackend(t)
	login(t)

	args := []string{"stock-in", "--product", "2", "--qty", "-1", "--type", "adjustment", "--supplier", "8", "--notes", "recount", "--unit-cost", "2"}
	if _, _, err := run("", args...); err != nil {
		t.Fatalf("adjustment failed: %v", err)
	}

	out, _, err := run("", "stock-in", "--product", "3", "--qty", "4")
	if err != nil {
		t.Fatalf("second stock-in failed: %v", err)
	}
	var entry domain.StockEntry
	if err := json.Unmarshal([]byte(out), &entry); err != nil {
		t.Fatalf("invalid stock entry output: %v", err)
	}
	if entry.EntryType != domain.StockPurchase || entry.Supplier != nil || entry.Notes != "" || !entry.UnitCost.IsZero() {
		t.Fatalf("flags from the previous run leaked: %+v", entry)
	}
	if entry.Quantity != 4 || entry.Product != 3 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestInteractiveSale(t *testing.T) {
	st := withBackend(t)
	login(t)

	keys := "rice\n3\n" + // Basmati Rice x3
		"sugar\n2\n" + // Sugar x2
		"\x13" + // checkout, paid prefilled with 400.00
		strings.Repeat("\x7f", 6) + "300\n" +
		"\x03"
	out, _, err := run(keys, "sale")
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if !strings.Contains(out, "1 sale(s) recorded") {
		t.Fatalf("unexpected sale output tail: %q", out[max(0, len(out)-200):])
	}
	if !strings.Contains(out, "Last sale: /sales/") {
		t.Fatalf("last sale not rendered")
	}

	rice, _ := st.Get(context.Background(), 1)
	sugar, _ := st.Get(context.Background(), 2)
	if rice.Stock != 2 || sugar.Stock != 0 {
		t.Fatalf("unexpected stock: rice=%d sugar=%d", rice.Stock, sugar.Stock)
	}
}

func TestInteractiveSaleRejectionIsNotFatal(t *testing.T) {
	st := withBackend(t)
	login(t)

	// ask for more sugar than is in stock, then quit at end of input
	out, _, err := run("sugar\n9\n", "sale")
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if !strings.Contains(out, "insufficient stock for Sugar") {
		t.Fatalf("rejection toast missing")
	}
	if !strings.Contains(out, "0 sale(s) recorded") {
		t.Fatalf("unexpected output tail")
	}
	sugar, _ := st.Get(context.Background(), 2)
	if sugar.Stock != 2 {
		t.Fatalf("stock changed: %d", sugar.Stock)
	}
}

func TestShell(t *testing.T) {
	withBackend(t)

	out, errOut, err := run("login --email "+testEmail+" --password "+testPassword+"\nproducts --search rice\nbogus\nexit\n", "shell")
	if err != nil {
		t.Fatalf("shell failed: %v", err)
	}
	if !strings.Contains(out, "RICE-5") {
		t.Fatalf("products output missing from shell: %q", out)
	}
	if !strings.Contains(errOut, "unknown command") {
		t.Fatalf("expected unknown command error, got %q", errOut)
	}
}

func TestPersistentPreRun_Errors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"file session store without path", []string{"--session-store", "file", "--session-file", "", "logout"}},
		{"unknown session store", []string{"--session-store", "keyring", "logout"}},
		{"bad api url", []string{"--session-store", "memory", "--api-url", "localhost", "logout"}},
		{"missing config file", []string{"--config", filepath.Join(os.TempDir(), "does-not-exist.yaml"), "logout"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Cleanup(resetCLI)
			resetCLI()
			if _, _, err := run("", tc.args...); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

func TestPersistentPreRun_FileSession(t *testing.T) {
	t.Cleanup(resetCLI)
	resetCLI()
	path := filepath.Join(t.TempDir(), "session.json")
	if _, _, err := run("", "--session-file", path, "--log-level", "error", "logout"); err != nil {
		t.Fatalf("logout with file store failed: %v", err)
	}
	if backend == nil || sessions == nil {
		t.Fatalf("pre-run did not build the backend client")
	}
}

func TestParseItem(t *testing.T) {
	cases := []struct {
		in      string
		sku     string
		qty     int
		wantErr bool
	}{
		{"RICE-5=3", "RICE-5", 3, false},
		{" RICE-5 = 2 ", "RICE-5", 2, false},
		{"RICE-5", "RICE-5", 1, false},
		{"=3", "", 0, true},
		{"RICE-5=x", "", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			sku, qty, err := parseItem(tc.in)
			if tc.wantErr != (err != nil) {
				t.Fatalf("wantErr=%v, got %v", tc.wantErr, err)
			}
			if sku != tc.sku || qty != tc.qty {
				t.Fatalf("got %q x %d", sku, qty)
			}
		})
	}
}
