package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
)

type accessCheckerStub struct {
	blocked map[string]bool
}

func (s *accessCheckerStub) IsBlocked(_ context.Context, claims *models.JWTClaims) bool {
	if claims == nil || claims.Role != models.RoleSchool {
		return false
	}
	return s.blocked[claims.ActorID]
}

func gateRouter(checker *accessCheckerStub, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if claims != nil {
		r.Use(func(c *gin.Context) {
			c.Set(ContextUserKey, claims)
		})
	}
	r.Use(SubscriptionGate(checker))
	r.GET("/resource", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestSubscriptionGateBlocksLapsedSchool(t *testing.T) {
	checker := &accessCheckerStub{blocked: map[string]bool{"school-1": true}}
	r := gateRouter(checker, &models.JWTClaims{Role: models.RoleSchool, ActorID: "school-1"})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/resource", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "SUBSCRIPTION_REQUIRED")
}

func TestSubscriptionGateAllowsActiveSchool(t *testing.T) {
	checker := &accessCheckerStub{blocked: map[string]bool{}}
	r := gateRouter(checker, &models.JWTClaims{Role: models.RoleSchool, ActorID: "school-2"})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/resource", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubscriptionGateNeverBlocksTeachers(t *testing.T) {
	checker := &accessCheckerStub{blocked: map[string]bool{"teacher-1": true}}
	r := gateRouter(checker, &models.JWTClaims{Role: models.RoleTeacher, ActorID: "teacher-1"})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/resource", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubscriptionGatePassesThroughWithoutClaims(t *testing.T) {
	checker := &accessCheckerStub{blocked: map[string]bool{"school-1": true}}
	r := gateRouter(checker, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/resource", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
