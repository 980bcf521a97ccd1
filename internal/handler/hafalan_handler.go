package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-api/internal/service"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
	"github.com/noah-isme/tahfidz-api/pkg/response"
)

// HafalanHandler exposes memorization endpoints.
type HafalanHandler struct {
	hafalan *service.HafalanService
}

// NewHafalanHandler constructs HafalanHandler.
func NewHafalanHandler(hafalan *service.HafalanService) *HafalanHandler {
	return &HafalanHandler{hafalan: hafalan}
}

// List godoc
// @Summary List hafalan sessions
// @Tags Hafalan
// @Produce json
// @Param santriId query string false "Filter by santri"
// @Param type query string false "Filter by session type"
// @Param dateFrom query string false "Start date (YYYY-MM-DD)"
// @Param dateTo query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /hafalan [get]
func (h *HafalanHandler) List(c *gin.Context) {
	req := service.HafalanListRequest{
		SantriID: c.Query("santriId"),
		Type:     c.Query("type"),
		DateFrom: dateQuery(c, "dateFrom"),
		DateTo:   dateQuery(c, "dateTo"),
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "limit", 50),
	}
	records, pagination, err := h.hafalan.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Create godoc
// @Summary Record an evaluated session
// @Tags Hafalan
// @Accept json
// @Produce json
// @Param payload body service.RecordHafalanRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /hafalan [post]
func (h *HafalanHandler) Create(c *gin.Context) {
	var req service.RecordHafalanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.EvaluatedBy = claims.UserID
	}
	hafalan, err := h.hafalan.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, hafalan)
}

// Progress godoc
// @Summary Memorization progress for a santri
// @Tags Hafalan
// @Produce json
// @Param santriId path string true "Santri ID"
// @Success 200 {object} response.Envelope
// @Router /hafalan/progress/{santriId} [get]
func (h *HafalanHandler) Progress(c *gin.Context) {
	progress, err := h.hafalan.Progress(c.Request.Context(), c.Param("santriId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}
