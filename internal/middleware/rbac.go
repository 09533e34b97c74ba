package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
	appErrors "github.com/GeorgePierce1984/teachlink-api/pkg/errors"
	"github.com/GeorgePierce1984/teachlink-api/pkg/response"
)

// RequireRoles blocks callers whose role is not in the allowed set. Admins
// always pass.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if claims.Role == models.RoleAdmin {
			c.Next()
			return
		}
		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
