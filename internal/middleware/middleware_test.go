package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pharmapos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, userID, role string, ttl time.Duration) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(ttl).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func protectedRouter(roles ...string) *gin.Engine {
	r := gin.New()
	r.GET("/x", JWTAuth(testSecret), RequireRole(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, CallerID(c).String())
	})
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := protectedRouter("CASHIER", "ADMIN")
	id := uuid.NewString()

	w := do(r, http.MethodGet, "/x", signToken(t, id, "CASHIER", time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, w.Body.String())

	w = do(r, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body apierror.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Authentication required", body.Message)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/x", signToken(t, id, "CASHIER", -time.Minute)).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/x", signToken(t, "not-a-uuid", "CASHIER", time.Hour)).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/x", "garbage").Code)
}

func TestRequireRole(t *testing.T) {
	r := protectedRouter("ADMIN")
	w := do(r, http.MethodGet, "/x", signToken(t, uuid.NewString(), "CASHIER", time.Hour))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := do(r, http.MethodGet, "/x", "")
	generated := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestErrorHandler_RendersTypedErrors(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.GET("/stock", func(c *gin.Context) { _ = c.Error(apierror.InsufficientStock("Insulin")) })
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(assert.AnError) })

	w := do(r, http.MethodGet, "/stock", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient stock for product Insulin")

	w = do(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(*gin.Context) { panic("kaboom") })

	w := do(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "kaboom")
}

func TestWindowLimiter(t *testing.T) {
	l := newWindowLimiter("test", 2, time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ok, _ := l.allow("1.2.3.4")
	assert.True(t, ok)
	ok, _ = l.allow("1.2.3.4")
	assert.True(t, ok)
	ok, _ = l.allow("1.2.3.4")
	assert.False(t, ok)
	ok, _ = l.allow("5.6.7.8")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	purged, remaining := l.purge()
	assert.Equal(t, 2, purged)
	assert.Zero(t, remaining)
	ok, _ = l.allow("1.2.3.4")
	assert.True(t, ok)
}

func TestRateLimiter_Returns429(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimiter(1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", "").Code)
	w := do(r, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS("https://pos.example.com"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://pos.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://pos.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
