package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-client/internal/observability"
)

// TokenValidator checks a bearer token and returns the uid it was
// issued for.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// AuthMiddleware validates the Authorization header and stores the
// authenticated uid on the request context.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			observability.IncAuthFailure()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			observability.IncAuthFailure()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		uid, err := tokens.Validate(parts[1])
		if err != nil {
			observability.IncAuthFailure()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("uid", uid)
		c.Next()
	}
}

// OptionalAuth resolves the authenticated uid when an Authorization
// header is present but lets anonymous requests through. A header that
// is present and invalid is still rejected.
func OptionalAuth(tokens TokenValidator) gin.HandlerFunc {
	required := AuthMiddleware(tokens)
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		required(c)
	}
}
