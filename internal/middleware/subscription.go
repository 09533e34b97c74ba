package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
	appErrors "github.com/GeorgePierce1984/teachlink-api/pkg/errors"
	"github.com/GeorgePierce1984/teachlink-api/pkg/response"
)

// AccessChecker decides whether the caller is locked out of premium features.
type AccessChecker interface {
	IsBlocked(ctx context.Context, claims *models.JWTClaims) bool
}

// SubscriptionGate rejects school accounts without an active subscription.
// Callers without claims fall through to the JWT middleware's handling.
func SubscriptionGate(access AccessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			c.Next()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			c.Next()
			return
		}
		if access.IsBlocked(c.Request.Context(), claims) {
			response.Error(c, appErrors.ErrSubscriptionBlocked)
			c.Abort()
			return
		}
		c.Next()
	}
}
