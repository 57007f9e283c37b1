package mockapi

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hisaabpos/api"
)

const userKey = "user"

type tokens struct {
	cfg Config

	mu     sync.RWMutex
	access map[string]api.User
}

func newTokens(cfg Config) *tokens {
	return &tokens{cfg: cfg, access: make(map[string]api.User)}
}

func (t *tokens) user() api.User {
	return api.User{ID: 1, Email: t.cfg.Email, Name: t.cfg.Name, Business: t.cfg.Business}
}

// issue returns a fresh access/refresh pair when the credentials match
func (t *tokens) issue(email, password string) (api.LoginResponse, bool) {
	if !strings.EqualFold(strings.TrimSpace(email), t.cfg.Email) || password != t.cfg.Password {
		return api.LoginResponse{}, false
	}
	res := api.LoginResponse{
		Access:  uuid.NewString(),
		Refresh: uuid.NewString(),
		User:    t.user(),
	}
	t.mu.Lock()
	t.access[res.Access] = res.User
	t.mu.Unlock()
	return res, true
}

func (t *tokens) lookup(token string) (api.User, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	u, ok := t.access[token]
	return u, ok
}

func (t *tokens) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		u, ok := t.lookup(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Given token not valid for any token type"})
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

func currentUser(c *gin.Context) api.User {
	u, _ := c.Get(userKey)
	user, _ := u.(api.User)
	return user
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "malformed request body"})
		return
	}
	res, ok := s.auth.issue(in.Email, in.Password)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}
