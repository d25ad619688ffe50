package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/tablebook/models"
	"github.com/yeremiapane/tablebook/services"
	"github.com/yeremiapane/tablebook/utils"
)

// userMap is a UserLookup over fixed accounts.
type userMap map[uint]models.Role

func (m userMap) Get(_ context.Context, id uint) (*models.User, error) {
	role, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", services.ErrNotFound)
	}
	return &models.User{ID: id, Role: role}, nil
}

var accounts = userMap{1: models.RoleAdmin, 2: models.RoleUser, 3: models.RoleUser, 7: models.RoleAdmin}

func setupRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetUint(ContextUserID),
			"role":    c.MustGet(ContextRole),
		})
	})
	r.GET("/", handlers...)
	return r
}

func get(r http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := setupRouter(AuthMiddleware(accounts))
	token, err := utils.GenerateToken(7, "admin")
	require.NoError(t, err)

	w := get(r, "/", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":7`)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)

	assert.Equal(t, http.StatusUnauthorized, get(r, "/", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/", map[string]string{"Authorization": token}).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/", map[string]string{"Authorization": "Bearer garbage"}).Code)

	badRole, err := utils.GenerateToken(7, "owner")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/", map[string]string{"Authorization": "Bearer " + badRole}).Code)
}

func TestAuthMiddlewareUsesStoredAccount(t *testing.T) {
	r := setupRouter(AuthMiddleware(accounts), RequireAdmin())

	// token masih bilang admin, akun sudah diturunkan
	demoted, err := utils.GenerateToken(2, models.RoleAdmin.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(r, "/", map[string]string{"Authorization": "Bearer " + demoted}).Code)

	gone, err := utils.GenerateToken(99, models.RoleUser.String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/", map[string]string{"Authorization": "Bearer " + gone}).Code)

	w := get(setupRouter(AuthMiddleware(accounts)), "/", map[string]string{"Authorization": "Bearer " + demoted})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"user"`)
}

func TestWebSocketAuthMiddleware(t *testing.T) {
	r := setupRouter(WebSocketAuthMiddleware(accounts))
	token, err := utils.GenerateToken(3, "user")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, get(r, "/?token="+token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/", nil).Code)
}

func TestRequireAdmin(t *testing.T) {
	r := setupRouter(AuthMiddleware(accounts), RequireAdmin())
	admin, _ := utils.GenerateToken(1, models.RoleAdmin.String())
	user, _ := utils.GenerateToken(2, models.RoleUser.String())

	assert.Equal(t, http.StatusOK, get(r, "/", map[string]string{"Authorization": "Bearer " + admin}).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/", map[string]string{"Authorization": "Bearer " + user}).Code)

	bare := setupRouter(RequireAdmin())
	assert.Equal(t, http.StatusUnauthorized, get(bare, "/", nil).Code)
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", NewRateLimiter(2, time.Hour).RateLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/", nil).Code)

	// other clients have their own bucket
	assert.Equal(t, http.StatusOK, get(r, "/", map[string]string{"X-Forwarded-For": "10.0.0.9"}).Code)
}

func TestLoggerMiddlewareRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(LoggerMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := get(r, "/", nil)
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	w = get(r, "/", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestCORSMiddlewares(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddlewares([]string{"https://book.example.com"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, "/", map[string]string{"Origin": "https://book.example.com"})
	assert.Equal(t, "https://book.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(r, "/", map[string]string{"Origin": "https://evil.example.com"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req, _ := http.NewRequest("OPTIONS", "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
