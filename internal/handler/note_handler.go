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

type noteService interface {
	List(ctx context.Context, applicationID string, claims *models.JWTClaims) ([]models.Note, error)
	Add(ctx context.Context, applicationID, content string, claims *models.JWTClaims) (*models.Note, error)
}

// NoteHandler exposes the application notes ledger.
type NoteHandler struct {
	service noteService
}

// NewNoteHandler constructs the handler.
func NewNoteHandler(service noteService) *NoteHandler {
	return &NoteHandler{service: service}
}

// List godoc
// @Summary List an application's notes, newest first
// @Tags Notes
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	notes, err := h.service.List(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NotesResponse{Notes: notes}, nil)
}

// Add godoc
// @Summary Append a note to an application
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.AddNoteRequest true "Note content"
// @Success 201 {object} response.Envelope
// @Router /applications/{id}/notes [post]
func (h *NoteHandler) Add(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid note payload"))
		return
	}
	note, err := h.service.Add(c.Request.Context(), c.Param("id"), req.Content, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, dto.NoteResponse{Note: *note}, nil)
}
