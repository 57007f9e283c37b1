// Package mockapi serves a stand-in for the HisaabPlus backend over the in-memory store.
package mockapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hisaabpos/store"
)

// Config holds the single account the stand-in backend accepts
type Config struct {
	Email    string
	Password string
	Name     string
	Business int64
}

// Server wraps the HTTP server setup.
type Server struct {
	httpServer *http.Server
	store      *store.InMemoryStore
	auth       *tokens
}

// New builds a Server listening on addr with every route under /api.
func New(addr string, st *store.InMemoryStore, cfg Config) *Server {
	if cfg.Business == 0 {
		cfg.Business = 1
	}
	s := &Server{
		store: st,
		auth:  newTokens(cfg),
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router for in-process use
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestLogger(), gin.Recovery())

	router.GET("/healthz", healthHandler)

	api := router.Group("/api")
	api.POST("/auth/login/", s.login)

	authed := api.Group("", s.auth.middleware())
	authed.GET("/auth/me/", s.me)
	authed.GET("/products/", s.listProducts)
	authed.POST("/products/", s.createProduct)
	authed.GET("/products/:id/", s.getProduct)
	authed.PATCH("/products/:id/", s.updateProduct)
	authed.POST("/sales/", s.createSale)
	authed.GET("/sales/:id/", s.getSale)
	authed.POST("/stock-entries/", s.createStockEntry)

	return router
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"correlation_id", c.GetHeader("X-Correlation-ID"),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
