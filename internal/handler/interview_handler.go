package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GeorgePierce1984/teachlink-api/internal/dto"
	"github.com/GeorgePierce1984/teachlink-api/internal/models"
	appErrors "github.com/GeorgePierce1984/teachlink-api/pkg/errors"
	"github.com/GeorgePierce1984/teachlink-api/pkg/response"
)

type interviewService interface {
	SendInvite(ctx context.Context, applicationID string, req dto.SendInviteRequest, claims *models.JWTClaims) (*models.InterviewRequest, error)
	Respond(ctx context.Context, applicationID string, req dto.InterviewResponseRequest, claims *models.JWTClaims) (*models.InterviewRequest, error)
	RespondToAlternative(ctx context.Context, applicationID string, req dto.AlternativeResponseRequest, claims *models.JWTClaims) (*models.InterviewRequest, error)
}

// InterviewHandler exposes interview negotiation endpoints.
type InterviewHandler struct {
	service interviewService
}

// NewInterviewHandler constructs the handler.
func NewInterviewHandler(service interviewService) *InterviewHandler {
	return &InterviewHandler{service: service}
}

// SendInvite godoc
// @Summary Request an interview, moving the application to INTERVIEW
// @Tags Interviews
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.SendInviteRequest true "Interview proposal"
// @Success 201 {object} response.Envelope
// @Router /applications/{id}/interview-request [post]
func (h *InterviewHandler) SendInvite(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SendInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid interview payload"))
		return
	}
	invite, err := h.service.SendInvite(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, invite, nil)
}

// Respond godoc
// @Summary Accept a proposed slot or counter-propose an alternative
// @Tags Interviews
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.InterviewResponseRequest true "Teacher response"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/interview-response [patch]
func (h *InterviewHandler) Respond(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.InterviewResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid response payload"))
		return
	}
	invite, err := h.service.Respond(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invite, nil)
}

// RespondToAlternative godoc
// @Summary Accept or decline the teacher's counter-proposed time
// @Tags Interviews
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.AlternativeResponseRequest true "School decision"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/interview-alternative-response [patch]
func (h *InterviewHandler) RespondToAlternative(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AlternativeResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	invite, err := h.service.RespondToAlternative(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invite, nil)
}
