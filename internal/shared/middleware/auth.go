package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/paysync/server/internal/shared/errors"
)

// SubjectKey is the context key under which the authenticated subject is set.
const SubjectKey = "auth_subject"

// Claims represents the bearer token claims accepted by the service.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// BearerAuth returns a middleware that validates HS256 bearer tokens.
// The webhook endpoint does not use this; it is authenticated by signature.
func BearerAuth(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				apperrors.Unauthorized("missing bearer token").ToResponse())
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		}, jwt.WithIssuer(issuer))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				apperrors.Unauthorized("invalid bearer token").ToResponse())
			return
		}

		c.Set(SubjectKey, claims.Subject)
		c.Next()
	}
}
