package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
)

// ActivityRecorder persists request audit rows.
type ActivityRecorder interface {
	Create(ctx context.Context, log *models.ActivityLog) error
}

// Audit records successful mutating requests with caller address and agent.
// Reads are not audited; failures are logged and swallowed.
func Audit(recorder ActivityRecorder, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}
		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		log := &models.ActivityLog{
			Action:    "API_WRITE",
			Details:   types.JSONText(`{"method":"` + c.Request.Method + `","path":"` + c.FullPath() + `"}`),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if claimsValue, exists := c.Get(ContextUserKey); exists {
			if claims, ok := claimsValue.(*models.JWTClaims); ok && claims.UserID != "" {
				userID := claims.UserID
				log.UserID = &userID
			}
		}
		if err := recorder.Create(c.Request.Context(), log); err != nil {
			logger.Warn("failed to record request audit", zap.Error(err))
		}
	}
}
