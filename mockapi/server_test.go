package mockapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hisaabpos/api"
	"hisaabpos/cart"
	"hisaabpos/catalog"
	"hisaabpos/checkout"
	"hisaabpos/domain"
	"hisaabpos/notify"
	"hisaabpos/store"
)

var testConfig = Config{Email: "owner@shop.np", Password: "secret", Name: "Owner", Business: 4}

func seededStore(t *testing.T) *store.InMemoryStore {
	t.Helper()
	st := store.NewInMemoryStore()
	inactive := domain.Product{ID: 3, Name: "Retired Tea", SKU: "TEA-OLD", SellingPrice: decimal.NewFromInt(10), Stock: 9}
	require.NoError(t, st.Seed(context.Background(), []domain.Product{
		{ID: 1, Name: "Basmati Rice", SKU: "RICE-5", SellingPrice: decimal.NewFromInt(100), Stock: 5, IsActive: true},
		{ID: 2, Name: "Sugar", SKU: "SUG-1", SellingPrice: decimal.NewFromInt(50), Stock: 2, IsActive: true},
		inactive,
		{ID: 4, Name: "Empty Shelf", SKU: "NONE", SellingPrice: decimal.NewFromInt(1), Stock: 0, IsActive: true},
	}))
	return st
}

// newTestServer returns a client logged in to a stand-in backend
func newTestServer(t *testing.T) (*api.Client, *store.InMemoryStore, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := seededStore(t)
	srv := httptest.NewServer(New("", st, testConfig).Handler())
	t.Cleanup(srv.Close)

	anon, err := api.NewClient(srv.URL+"/api", srv.Client(), nil)
	require.NoError(t, err)
	res, err := anon.Login(context.Background(), testConfig.Email, testConfig.Password)
	require.NoError(t, err)

	c, err := api.NewClient(srv.URL+"/api", srv.Client(), api.StaticToken(res.Access))
	require.NoError(t, err)
	return c, st, srv
}

func TestHealthz(t *testing.T) {
	_, _, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	c, _, srv := newTestServer(t)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), me.Business)
	assert.Equal(t, "owner@shop.np", me.Email)

	anon, err := api.NewClient(srv.URL+"/api", srv.Client(), nil)
	require.NoError(t, err)
	_, err = anon.Login(context.Background(), testConfig.Email, "wrong")
	assert.True(t, domain.IsUnauthorized(err))
	assert.Equal(t, "No active account found with the given credentials", domain.UserMessage(err, "x"))
}

func TestAuthRequired(t *testing.T) {
	_, _, srv := newTestServer(t)
	cases := []struct {
		name  string
		token api.TokenSource
	}{
		{"no token", nil},
		{"unknown token", api.StaticToken("forged")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := api.NewClient(srv.URL+"/api", srv.Client(), tc.token)
			require.NoError(t, err)
			_, err = c.ListProducts(context.Background(), 1, 1000)
			assert.True(t, domain.IsUnauthorized(err), "got %v", err)
		})
	}
}

func TestListProductsPaging(t *testing.T) {
	c, _, _ := newTestServer(t)

	page, err := c.ListProducts(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Count)
	require.Len(t, page.Results, 2)
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page=2")
	assert.Nil(t, page.Previous)

	page, err = c.ListProducts(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Nil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Contains(t, *page.Previous, "page=1")

	_, err = c.ListProducts(context.Background(), 0, 2)
	var be *domain.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusBadRequest, be.StatusCode)
}

func TestSearchProducts(t *testing.T) {
	c, _, _ := newTestServer(t)
	var page domain.ProductPage
	require.NoError(t, c.Get(context.Background(), "/products/", map[string][]string{"search": {"rice"}}, &page))
	require.Len(t, page.Results, 1)
	assert.Equal(t, "RICE-5", page.Results[0].SKU)
}

func TestGetAndCreateProduct(t *testing.T) {
	c, _, _ := newTestServer(t)
	ctx := context.Background()

	var p domain.Product
	require.NoError(t, c.Get(ctx, "/products/2/", nil, &p))
	assert.Equal(t, "Sugar", p.Name)

	err := c.Get(ctx, "/products/99/", nil, &p)
	var be *domain.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusNotFound, be.StatusCode)

	var created domain.Product
	require.NoError(t, c.Post(ctx, "/products/", domain.Product{Name: "Lentils", SellingPrice: decimal.NewFromInt(140), Stock: 6, IsActive: true}, &created))
	assert.Equal(t, int64(5), created.ID)

	err = c.Post(ctx, "/products/", domain.Product{ID: 1, Name: "Again"}, &created)
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusConflict, be.StatusCode)
}

func TestUpdateProduct(t *testing.T) {
	c, st, _ := newTestServer(t)
	ctx := context.Background()

	var p domain.Product
	require.NoError(t, c.Patch(ctx, "/products/2/", map[string]any{"selling_price": "55.00"}, &p))
	assert.Equal(t, int64(2), p.ID)
	assert.Equal(t, "Sugar", p.Name)
	assert.True(t, p.SellingPrice.Equal(decimal.NewFromInt(55)))

	stored, err := st.Get(ctx, 2)
	require.NoError(t, err)
	assert.True(t, stored.SellingPrice.Equal(decimal.NewFromInt(55)))
	assert.Equal(t, "SUG-1", stored.SKU)
	assert.Equal(t, 2, stored.Stock)

	var be *domain.BackendError
	err = c.Patch(ctx, "/products/99/", map[string]any{"name": "Ghost"}, &p)
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusNotFound, be.StatusCode)

	err = c.Patch(ctx, "/products/2/", map[string]any{"name": ""}, &p)
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusBadRequest, be.StatusCode)

	stored, err = st.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Sugar", stored.Name)
}

// The catalog drops the inactive and the out-of-stock product; adding A x3 and B x2
// and paying 300 records a 400 sale with 100 due.
func TestQuickSaleEndToEnd(t *testing.T) {
	c, st, _ := newTestServer(t)
	ctx := context.Background()
	rec := &notify.Recorder{}

	cat, err := catalog.Load(ctx, c, rec)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())

	crt := cart.New(cat, rec)
	rice, _ := cat.Lookup(1)
	sugar, _ := cat.Lookup(2)
	require.NoError(t, crt.Add(rice, 3))
	require.NoError(t, crt.Add(sugar, 2))
	assert.True(t, crt.Total().Equal(decimal.NewFromInt(400)))

	svc := checkout.New(c, cat, 4, rec)
	sale, err := svc.Submit(ctx, crt, domain.Payment{Method: domain.PaymentCash, Paid: decimal.NewFromInt(300)})
	require.NoError(t, err)
	assert.True(t, crt.IsEmpty())
	assert.True(t, sale.TotalAmount.Equal(decimal.NewFromInt(400)))
	assert.True(t, sale.DueAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, strings.HasPrefix(sale.InvoiceNumber, "INV-"))

	fetched, err := c.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.InvoiceNumber, fetched.InvoiceNumber)
	require.Len(t, fetched.Items, 2)

	left, err := st.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, left.Stock)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Success, last.Level)
}

// A stale catalog can pass the local check while the backend has less stock;
// the backend's message reaches the operator and the cart is kept.
func TestSaleRejectedByBackend(t *testing.T) {
	c, st, _ := newTestServer(t)
	ctx := context.Background()
	rec := &notify.Recorder{}

	cat, err := catalog.Load(ctx, c, rec)
	require.NoError(t, err)
	crt := cart.New(cat, rec)
	sugar, _ := cat.Lookup(2)
	require.NoError(t, crt.Add(sugar, 2))

	_, err = st.RecordStockEntry(ctx, domain.StockEntryDraft{Product: 2, EntryType: domain.StockAdjustment, Quantity: -1})
	require.NoError(t, err)

	_, err = checkout.New(c, cat, 4, rec).Submit(ctx, crt, domain.Payment{Paid: decimal.NewFromInt(100)})
	require.Error(t, err)
	assert.True(t, domain.IsBackendError(err))
	assert.Equal(t, 1, crt.Len())

	last, _ := rec.Last()
	assert.Equal(t, notify.Error, last.Level)
	assert.Contains(t, last.Text, "insufficient stock for Sugar")
}

func TestSaleForOtherBusinessForbidden(t *testing.T) {
	c, _, _ := newTestServer(t)
	_, err := c.CreateSale(context.Background(), domain.SaleDraft{
		Business:      99,
		InvoiceNumber: "INV-1",
		Items:         []domain.SaleItem{{Product: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(100)}},
	})
	var be *domain.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusForbidden, be.StatusCode)
}

func TestSaleBadPaymentMethod(t *testing.T) {
	c, _, _ := newTestServer(t)
	_, err := c.CreateSale(context.Background(), domain.SaleDraft{
		InvoiceNumber: "INV-1",
		PaymentMethod: "barter",
		Items:         []domain.SaleItem{{Product: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(100)}},
	})
	var be *domain.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusBadRequest, be.StatusCode)
	assert.Contains(t, be.Message, "payment_method")
}

func TestGetSaleNotFound(t *testing.T) {
	c, _, _ := newTestServer(t)
	_, err := c.GetSale(context.Background(), "nope")
	var be *domain.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusNotFound, be.StatusCode)
	assert.Equal(t, "Not found.", be.Message)
}

func TestCreateStockEntry(t *testing.T) {
	c, st, _ := newTestServer(t)
	ctx := context.Background()

	entry, err := c.CreateStockEntry(ctx, domain.StockEntryDraft{
		InvoiceNumber: "STE-20260101000000-001",
		Product:       4,
		EntryType:     domain.StockPurchase,
		Quantity:      12,
		UnitCost:      decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, int64(4), entry.Business)

	p, err := st.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 12, p.Stock)

	_, err = c.CreateStockEntry(ctx, domain.StockEntryDraft{Product: 4, EntryType: domain.StockPurchase})
	assert.True(t, domain.IsBackendError(err))
}

func TestMalformedBody(t *testing.T) {
	_, _, srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/auth/login/", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "malformed")
}
