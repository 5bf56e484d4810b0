package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"greenchain/credit-engine/internal/certificate"
	"greenchain/credit-engine/internal/engine"
	"greenchain/credit-engine/internal/export"
	"greenchain/credit-engine/internal/geometry"
	"greenchain/credit-engine/internal/lending"
	"greenchain/credit-engine/internal/vegetation"
)

// Handler wires the evaluation engine and certificate registry into HTTP.
type Handler struct {
	engine *engine.Engine
	repo   certificate.Repository
	pdf    *certificate.PDFRenderer
	log    *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(eng *engine.Engine, repo certificate.Repository, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		engine: eng,
		repo:   repo,
		pdf:    certificate.NewPDFRenderer(certificate.DefaultPDFOptions()),
		log:    log,
	}
}

// Evaluate handles POST /api/v1/evaluations.
func (h *Handler) Evaluate(c *gin.Context) {
	var req engine.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result, err := h.engine.Evaluate(c.Request.Context(), req)
	if err != nil {
		h.renderEvaluationError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// renderEvaluationError maps the pipeline's typed errors onto HTTP statuses:
// bad input is 400, usable input that cannot be evaluated is 422.
func (h *Handler) renderEvaluationError(c *gin.Context, err error) {
	var (
		polygonErr      *geometry.InvalidPolygonError
		loanErr         *lending.InvalidLoanRequestError
		insufficientErr *vegetation.InsufficientDataError
	)
	switch {
	case errors.As(err, &polygonErr), errors.As(err, &loanErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &insufficientErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.log.Error("evaluation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "evaluation failed"})
	}
}

// GetCertificate handles GET /api/v1/certificates/:id.
func (h *Handler) GetCertificate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid certificate id"})
		return
	}

	cert, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, certificate.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
		return
	}
	if err != nil {
		h.log.Error("certificate lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, cert)
}

// GetCertificatePDF handles GET /api/v1/certificates/:id/pdf.
func (h *Handler) GetCertificatePDF(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid certificate id"})
		return
	}

	cert, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, certificate.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
		return
	}
	if err != nil {
		h.log.Error("certificate lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	doc, err := h.pdf.Render(cert, "")
	if err != nil {
		h.log.Error("certificate pdf render failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="certificate-`+cert.ID.String()+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", doc)
}

// VerifyCertificate handles GET /api/v1/certificates/verify/:fingerprint.
// It reports both registry membership and fingerprint integrity.
func (h *Handler) VerifyCertificate(c *gin.Context) {
	fingerprint := c.Param("fingerprint")

	cert, err := h.repo.GetByFingerprint(c.Request.Context(), fingerprint)
	if errors.Is(err, certificate.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"valid": false, "reason": "fingerprint not in registry"})
		return
	}
	if err != nil {
		h.log.Error("verification lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	if !cert.Verify() {
		c.JSON(http.StatusOK, gin.H{"valid": false, "reason": "stored certificate does not match its fingerprint"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "certificate_id": cert.ID, "issued_at": cert.IssuedAt})
}

// ExportRegistry handles GET /api/v1/certificates/export.
func (h *Handler) ExportRegistry(c *gin.Context) {
	limit := 1000
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	certs, err := h.repo.List(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("registry list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	var buf bytes.Buffer
	if err := export.NewExcelExporter(export.DefaultExcelOptions()).Export(certs, &buf); err != nil {
		h.log.Error("registry export failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="certificates.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// Ping handles GET /ping.
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
