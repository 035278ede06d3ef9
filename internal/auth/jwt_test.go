package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService(testSecret)

	token, expiresAt, err := svc.GenerateToken(Claims{UserID: "user-1", OrgID: "org-1", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "org-1", claims.OrgID)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewJWTService(testSecret)

	t.Run("wrong secret", func(t *testing.T) {
		token, _, err := NewJWTService("other").GenerateToken(Claims{UserID: "u", OrgID: "o"}, time.Hour)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("missing org", func(t *testing.T) {
		token, _, err := svc.GenerateToken(Claims{UserID: "u"}, time.Hour)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		claims := Claims{UserID: "u", OrgID: "o", RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("subject fallback", func(t *testing.T) {
		claims := Claims{OrgID: "o", RegisteredClaims: jwt.RegisteredClaims{Subject: "idp-user"}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		got, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "idp-user", got.UserID)
	})
}

func newProtectedRouter() *gin.Engine {
	router := gin.New()
	router.Use(JWTMiddleware(testSecret), CSRFMiddleware())
	handler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"org": OrgID(c), "user": UserID(c)})
	}
	router.GET("/me", handler)
	router.POST("/me", handler)
	router.POST("/admin", RequireRole(RoleAdmin), handler)
	return router
}

func mint(t *testing.T, role string) string {
	t.Helper()
	token, _, err := NewJWTService(testSecret).GenerateToken(Claims{UserID: "user-1", OrgID: "org-1", Role: role}, time.Hour)
	require.NoError(t, err)
	return token
}

func TestJWTMiddleware(t *testing.T) {
	router := newProtectedRouter()

	t.Run("no credentials", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("non-bearer header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Basic abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+mint(t, "member"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"org":"org-1"`)
	})

	t.Run("cookie without csrf", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/me", nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: mint(t, "member")})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("cookie with csrf", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/me", nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: mint(t, "member")})
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "abc"})
		req.Header.Set("X-CSRF-Token", "abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	router := newProtectedRouter()

	req := httptest.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+mint(t, "member"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest("POST", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+mint(t, RoleAdmin))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
