package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-api/internal/service"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
	"github.com/noah-isme/tahfidz-api/pkg/response"
)

// ReportHandler exposes report job endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Request godoc
// @Summary Queue a recap export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body service.RequestReportRequest true "Report parameters"
// @Success 202 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Request(c *gin.Context) {
	var req service.RequestReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.CreatedBy = claims.UserID
	}
	job, err := h.reports.Request(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Get godoc
// @Summary Get a report job
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	job, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// ListMine godoc
// @Summary List the caller's recent report jobs
// @Tags Reports
// @Produce json
// @Param limit query int false "Max jobs"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) ListMine(c *gin.Context) {
	createdBy := ""
	if claims := claimsFromContext(c); claims != nil {
		createdBy = claims.UserID
	}
	jobs, err := h.reports.ListMine(c.Request.Context(), createdBy, intQuery(c, "limit", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil)
}

// Download godoc
// @Summary Download a finished report via its signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	path, err := h.reports.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.File(path)
}
