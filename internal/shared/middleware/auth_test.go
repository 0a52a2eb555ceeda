package middleware

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

func signToken(t *testing.T, secret, issuer string) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func newAuthRouter(secret, issuer string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BearerAuth(secret, issuer))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString(SubjectKey)})
	})
	return r
}

func getPing(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBearerAuthMissingToken(t *testing.T) {
	r := newAuthRouter("secret", "paysync")

	w := getPing(r, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error": {"code": "UNAUTHORIZED", "message": "missing bearer token"}}`, w.Body.String())
}

func TestBearerAuthInvalidToken(t *testing.T) {
	r := newAuthRouter("secret", "paysync")

	w := getPing(r, "Bearer not-a-token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error": {"code": "UNAUTHORIZED", "message": "invalid bearer token"}}`, w.Body.String())
}

func TestBearerAuthWrongSecret(t *testing.T) {
	r := newAuthRouter("secret", "paysync")

	w := getPing(r, "Bearer "+signToken(t, "other", "paysync"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerAuthWrongIssuer(t *testing.T) {
	r := newAuthRouter("secret", "paysync")

	w := getPing(r, "Bearer "+signToken(t, "secret", "someone-else"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerAuthValidToken(t *testing.T) {
	r := newAuthRouter("secret", "paysync")

	w := getPing(r, "Bearer "+signToken(t, "secret", "paysync"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject": "user-1"}`, w.Body.String())
}
