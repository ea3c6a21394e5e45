package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-live/showcase/internal/models"
	"github.com/aura-live/showcase/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles. It must run after JWT.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
