package mockapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"hisaabpos/domain"
	"hisaabpos/store"
)

const defaultPageSize = 20

func (s *Server) listProducts(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", defaultPageSize)
	if page < 1 || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "page and limit must be positive"})
		return
	}

	items, total, err := s.store.List(c.Request.Context(), store.ListFilter{
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	out := domain.ProductPage{Count: total, Results: items}
	if page*limit < total {
		out.Next = pageURL(c.Request.URL, page+1)
	}
	if page > 1 {
		out.Previous = pageURL(c.Request.URL, page-1)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createProduct(c *gin.Context) {
	var p domain.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed request body"})
		return
	}
	created, err := s.store.Create(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) getProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	p, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// updateProduct applies a partial update: fields absent from the body keep their stored value
func (s *Server) updateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	p, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed request body"})
		return
	}
	if err := s.store.Update(c.Request.Context(), id, p); err != nil {
		writeError(c, err)
		return
	}
	p.ID = id
	c.JSON(http.StatusOK, p)
}

func (s *Server) createSale(c *gin.Context) {
	var draft domain.SaleDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed request body"})
		return
	}
	user := currentUser(c)
	if draft.Business == 0 {
		draft.Business = user.Business
	}
	if draft.Business != user.Business {
		c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
		return
	}
	if _, err := domain.ParsePaymentMethod(string(draft.PaymentMethod)); err != nil {
		writeError(c, err)
		return
	}
	if draft.PaymentMethod == "" {
		draft.PaymentMethod = domain.PaymentCash
	}

	sale, err := s.store.RecordSale(c.Request.Context(), draft)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

func (s *Server) getSale(c *gin.Context) {
	sale, err := s.store.GetSale(c.Request.Context(), domain.RecordID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (s *Server) createStockEntry(c *gin.Context) {
	var draft domain.StockEntryDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed request body"})
		return
	}
	if draft.Business == 0 {
		draft.Business = currentUser(c).Business
	}
	entry, err := s.store.RecordStockEntry(c.Request.Context(), draft)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// writeError maps store and domain errors to the backend's {"detail": ...} shape
func writeError(c *gin.Context, err error) {
	var shortfall *domain.StockShortfallError
	switch {
	case domain.IsValidationError(err), domain.IsInsufficientStockError(err), errors.As(err, &shortfall):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case domain.IsProductNotFoundError(err), store.IsSaleNotFoundError(err):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
	case store.IsDuplicateProductError(err):
		c.JSON(http.StatusConflict, gin.H{"detail": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "request canceled"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "A server error occurred."})
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

func pageURL(u *url.URL, page int) *string {
	next := *u
	q := next.Query()
	q.Set("page", strconv.Itoa(page))
	next.RawQuery = q.Encode()
	s := next.String()
	return &s
}
