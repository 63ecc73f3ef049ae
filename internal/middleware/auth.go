package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/newsletter-api/pkg/auth"
)

const ContextUserID = "user_id"

type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// RequireAuth validates the bearer token and injects the authenticated user
// id, which downstream is the owner identity for idempotent processing.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "missing bearer token",
			})
			return
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "invalid token",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}

// UserID reads the authenticated user id set by RequireAuth.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
