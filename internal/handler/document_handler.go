package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
	"github.com/GeorgePierce1984/teachlink-api/internal/service"
	appErrors "github.com/GeorgePierce1984/teachlink-api/pkg/errors"
	"github.com/GeorgePierce1984/teachlink-api/pkg/response"
)

type documentService interface {
	Download(ctx context.Context, applicationID, docType string, claims *models.JWTClaims) (*service.Document, error)
	IssueLink(ctx context.Context, applicationID, docType string, claims *models.JWTClaims) (string, time.Time, error)
	Redeem(ctx context.Context, token string) (*service.Document, error)
}

// DocumentHandler serves applicant documents.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(service documentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// Download godoc
// @Summary Download an applicant document
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Application ID"
// @Param type query string true "Document type" Enums(resume, portfolio, cover_letter)
// @Success 200 {file} binary
// @Router /applications/{id}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	doc, err := h.service.Download(c.Request.Context(), c.Param("id"), c.Query("type"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveDocument(c, doc)
}

// IssueLink godoc
// @Summary Create a signed, expiring download link
// @Tags Documents
// @Produce json
// @Param id path string true "Application ID"
// @Param type query string true "Document type" Enums(resume, portfolio, cover_letter)
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/download-link [post]
func (h *DocumentHandler) IssueLink(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	token, expiresAt, err := h.service.IssueLink(c.Request.Context(), c.Param("id"), c.Query("type"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": expiresAt,
	}, nil)
}

// Redeem godoc
// @Summary Download a document through a signed link
// @Tags Documents
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /downloads [get]
func (h *DocumentHandler) Redeem(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	doc, err := h.service.Redeem(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveDocument(c, doc)
}

func serveDocument(c *gin.Context, doc *service.Document) {
	defer doc.Content.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Header("Content-Type", doc.ContentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, doc.Content); err != nil {
		_ = c.Error(err)
	}
}
