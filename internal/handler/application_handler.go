package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GeorgePierce1984/teachlink-api/internal/dto"
	"github.com/GeorgePierce1984/teachlink-api/internal/models"
	appErrors "github.com/GeorgePierce1984/teachlink-api/pkg/errors"
	"github.com/GeorgePierce1984/teachlink-api/pkg/response"
)

type applicationService interface {
	Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.Application, error)
	ListByJob(ctx context.Context, jobID string, claims *models.JWTClaims, limit, offset int) ([]models.Application, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest, claims *models.JWTClaims) (*models.Application, error)
}

type timelineService interface {
	Get(ctx context.Context, applicationID string, claims *models.JWTClaims) ([]models.TimelineEvent, error)
}

// ApplicationHandler exposes application lifecycle endpoints.
type ApplicationHandler struct {
	service  applicationService
	timeline timelineService
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(service applicationService, timeline timelineService) *ApplicationHandler {
	return &ApplicationHandler{service: service, timeline: timeline}
}

// Get godoc
// @Summary Get an application with its interview request and notes
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	app, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// ListByJob godoc
// @Summary List a job's applications
// @Tags Applications
// @Produce json
// @Param jobId path string true "Job ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /jobs/{jobId}/applications [get]
func (h *ApplicationHandler) ListByJob(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	apps, err := h.service.ListByJob(c.Request.Context(), c.Param("jobId"), claims, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, nil)
}

// UpdateStatus godoc
// @Summary Move an application to a new stage and/or append a note
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.UpdateStatusRequest true "Status change"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/status [patch]
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status payload"))
		return
	}
	app, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Timeline godoc
// @Summary Get the reconstructed status timeline for an application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/timeline [get]
func (h *ApplicationHandler) Timeline(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	events, err := h.timeline.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}
