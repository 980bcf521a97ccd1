package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-api/internal/service"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
	"github.com/noah-isme/tahfidz-api/pkg/response"
)

// BehaviorHandler exposes behaviour event and summary endpoints.
type BehaviorHandler struct {
	behavior *service.BehaviorService
	metrics  *service.MetricsService
}

// NewBehaviorHandler constructs BehaviorHandler.
func NewBehaviorHandler(behavior *service.BehaviorService, metrics *service.MetricsService) *BehaviorHandler {
	return &BehaviorHandler{behavior: behavior, metrics: metrics}
}

// List godoc
// @Summary List behaviour events
// @Tags Behavior
// @Produce json
// @Param santriId query string false "Filter by santri"
// @Param category query []string false "Filter by category"
// @Param polarity query string false "Filter by polarity"
// @Param dateFrom query string false "Start date (YYYY-MM-DD)"
// @Param dateTo query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /behavior [get]
func (h *BehaviorHandler) List(c *gin.Context) {
	req := service.BehaviorListRequest{
		SantriID:     c.Query("santriId"),
		Categories:   c.QueryArray("category"),
		Polarity:     c.Query("polarity"),
		RecordStatus: c.Query("recordStatus"),
		DateFrom:     dateQuery(c, "dateFrom"),
		DateTo:       dateQuery(c, "dateTo"),
		Page:         intQuery(c, "page", 1),
		PageSize:     intQuery(c, "limit", 50),
	}
	events, pagination, err := h.behavior.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}

// Create godoc
// @Summary Record a behaviour event
// @Tags Behavior
// @Accept json
// @Produce json
// @Param payload body service.RecordBehaviorRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Router /behavior [post]
func (h *BehaviorHandler) Create(c *gin.Context) {
	var req service.RecordBehaviorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.RecordedBy = claims.UserID
	}
	event, err := h.behavior.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordBehaviorEvent(event.Polarity)
	response.Created(c, event)
}

// UpdateFollowUp godoc
// @Summary Update follow-up fields of an event
// @Tags Behavior
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body service.FollowUpRequest true "Follow-up payload"
// @Success 200 {object} response.Envelope
// @Router /behavior/{id}/follow-up [put]
func (h *BehaviorHandler) UpdateFollowUp(c *gin.Context) {
	var req service.FollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	event, err := h.behavior.UpdateFollowUp(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Archive godoc
// @Summary Archive a behaviour event
// @Tags Behavior
// @Produce json
// @Param id path string true "Event ID"
// @Success 204
// @Router /behavior/{id} [delete]
func (h *BehaviorHandler) Archive(c *gin.Context) {
	if err := h.behavior.Archive(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Summary godoc
// @Summary Behaviour score summary for a santri
// @Tags Behavior
// @Produce json
// @Param santriId path string true "Santri ID"
// @Param dateFrom query string false "Start date (YYYY-MM-DD)"
// @Param dateTo query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /behavior/summary/{santriId} [get]
func (h *BehaviorHandler) Summary(c *gin.Context) {
	to := time.Now().UTC()
	from := to.AddDate(0, -1, 0)
	if v := dateQuery(c, "dateFrom"); v != nil {
		from = *v
	}
	if v := dateQuery(c, "dateTo"); v != nil {
		to = *v
	}
	summary, err := h.behavior.Summary(c.Request.Context(), c.Param("santriId"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
