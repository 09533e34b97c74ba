package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/GeorgePierce1984/teachlink-api/internal/models"
	appErrors "github.com/GeorgePierce1984/teachlink-api/pkg/errors"
	"github.com/GeorgePierce1984/teachlink-api/pkg/storage"
)

// Document types downloadable per application.
const (
	DocumentResume      = "resume"
	DocumentPortfolio   = "portfolio"
	DocumentCoverLetter = "cover_letter"
)

type documentStorage interface {
	Open(filename string) (*os.File, error)
}

// Document is a downloadable payload with its presentation metadata.
type Document struct {
	Filename    string
	ContentType string
	Content     io.ReadCloser
}

// DocumentService serves applicant documents. Resumes and portfolios come
// from storage; cover letters are rendered to PDF on demand.
type DocumentService struct {
	apps     applicationReader
	storage  documentStorage
	signer   *storage.SignedURLSigner
	activity activityStore
	logger   *zap.Logger
}

// DocumentServiceOption configures the service.
type DocumentServiceOption func(*DocumentService)

// WithDocumentSigner enables signed download links.
func WithDocumentSigner(signer *storage.SignedURLSigner) DocumentServiceOption {
	return func(s *DocumentService) { s.signer = signer }
}

// WithDocumentActivityLog wires the audit store.
func WithDocumentActivityLog(store activityStore) DocumentServiceOption {
	return func(s *DocumentService) { s.activity = store }
}

// NewDocumentService constructs the service.
func NewDocumentService(apps applicationReader, store documentStorage, logger *zap.Logger, opts ...DocumentServiceOption) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &DocumentService{apps: apps, storage: store, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// normalizeDocType canonicalises the query-string spellings clients send.
func normalizeDocType(docType string) string {
	switch strings.ToLower(strings.TrimSpace(docType)) {
	case "coverletter", "cover-letter", DocumentCoverLetter:
		return DocumentCoverLetter
	case DocumentResume:
		return DocumentResume
	case DocumentPortfolio:
		return DocumentPortfolio
	default:
		return docType
	}
}

// Download serves a document for an application the caller owns.
func (s *DocumentService) Download(ctx context.Context, applicationID, docType string, claims *models.JWTClaims) (*Document, error) {
	docType = normalizeDocType(docType)
	app, err := loadAuthorizedApplication(ctx, s.apps, applicationID, claims)
	if err != nil {
		return nil, err
	}
	doc, err := s.build(app, docType)
	if err != nil {
		return nil, err
	}
	if s.activity != nil {
		emitActivityLog(ctx, s.activity, s.logger, claims, models.ActivityDocumentDownloaded, map[string]interface{}{
			"applicationId": applicationID,
			"type":          docType,
		})
	}
	return doc, nil
}

// IssueLink returns a signed token for fetching the document without a
// session, for example from an email link.
func (s *DocumentService) IssueLink(ctx context.Context, applicationID, docType string, claims *models.JWTClaims) (string, time.Time, error) {
	if s.signer == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrInternal, "signed downloads are not configured")
	}
	docType = normalizeDocType(docType)
	app, err := loadAuthorizedApplication(ctx, s.apps, applicationID, claims)
	if err != nil {
		return "", time.Time{}, err
	}
	if _, err := s.resolveType(app, docType); err != nil {
		return "", time.Time{}, err
	}
	token, expiresAt, err := s.signer.Generate(applicationID, docType)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return token, expiresAt, nil
}

// Redeem exchanges a signed token for the document it references. The
// signature is the authorization; no session is required.
func (s *DocumentService) Redeem(ctx context.Context, token string) (*Document, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "signed downloads are not configured")
	}
	applicationID, docType, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")
	}
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}
	return s.build(app, docType)
}

func (s *DocumentService) build(app *models.Application, docType string) (*Document, error) {
	switch docType {
	case DocumentResume, DocumentPortfolio:
		path, err := s.resolveType(app, docType)
		if err != nil {
			return nil, err
		}
		file, err := s.storage.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s file is missing from storage", docType))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
		}
		return &Document{
			Filename:    documentFilename(path, docType, app.ApplicantName),
			ContentType: contentTypeFor(path),
			Content:     file,
		}, nil
	case DocumentCoverLetter:
		if app.CoverLetter == nil || strings.TrimSpace(*app.CoverLetter) == "" {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "this application has no cover letter")
		}
		payload, err := renderCoverLetterPDF(app.ApplicantName, *app.CoverLetter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render cover letter")
		}
		return &Document{
			Filename:    fmt.Sprintf("cover_letter_%s.pdf", sanitizeFilename(app.ApplicantName)),
			ContentType: "application/pdf",
			Content:     io.NopCloser(bytes.NewReader(payload)),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown document type %q", docType))
	}
}

func (s *DocumentService) resolveType(app *models.Application, docType string) (string, error) {
	switch docType {
	case DocumentResume:
		if app.ResumePath == nil || *app.ResumePath == "" {
			return "", appErrors.Clone(appErrors.ErrNotFound, "this application has no resume")
		}
		return *app.ResumePath, nil
	case DocumentPortfolio:
		if app.PortfolioPath == nil || *app.PortfolioPath == "" {
			return "", appErrors.Clone(appErrors.ErrNotFound, "this application has no portfolio")
		}
		return *app.PortfolioPath, nil
	case DocumentCoverLetter:
		if app.CoverLetter == nil || strings.TrimSpace(*app.CoverLetter) == "" {
			return "", appErrors.Clone(appErrors.ErrNotFound, "this application has no cover letter")
		}
		return DocumentCoverLetter, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown document type %q", docType))
	}
}

// documentFilename derives the download name from the stored path and falls
// back to a name built from the document type and applicant.
func documentFilename(path, docType, applicantName string) string {
	base := filepath.Base(path)
	if base != "" && base != "." && base != string(filepath.Separator) {
		return base
	}
	return fmt.Sprintf("%s_%s.pdf", docType, sanitizeFilename(applicantName))
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "applicant"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", "..", "_")
	return replacer.Replace(name)
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

func renderCoverLetterPDF(applicantName, content string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Cover Letter - %s", applicantName), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("Cover Letter - %s", applicantName), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	for _, paragraph := range strings.Split(content, "\n") {
		paragraph = strings.TrimRight(paragraph, "\r")
		if paragraph == "" {
			pdf.Ln(5)
			continue
		}
		pdf.MultiCell(0, 6, paragraph, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
