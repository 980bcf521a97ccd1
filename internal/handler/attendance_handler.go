package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-api/internal/service"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
	"github.com/noah-isme/tahfidz-api/pkg/response"
)

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// List godoc
// @Summary List attendance rows
// @Tags Attendance
// @Produce json
// @Param halaqahId query string false "Filter by halaqah"
// @Param santriId query string false "Filter by santri"
// @Param status query string false "Filter by status"
// @Param dateFrom query string false "Start date (YYYY-MM-DD)"
// @Param dateTo query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	req := service.AttendanceListRequest{
		HalaqahID: c.Query("halaqahId"),
		SantriID:  c.Query("santriId"),
		Status:    c.Query("status"),
		DateFrom:  dateQuery(c, "dateFrom"),
		DateTo:    dateQuery(c, "dateTo"),
		Page:      intQuery(c, "page", 1),
		PageSize:  intQuery(c, "limit", 50),
	}
	records, pagination, err := h.attendance.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Mark godoc
// @Summary Record one session's attendance in bulk
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.MarkedBy = claims.UserID
	}
	saved, err := h.attendance.Mark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"saved": saved}, nil)
}

// Today godoc
// @Summary Per-status attendance counts for one date
// @Tags Attendance
// @Produce json
// @Param halaqahId query string false "Restrict to one halaqah"
// @Param date query string false "Date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance/today [get]
func (h *AttendanceHandler) Today(c *gin.Context) {
	now := time.Now().UTC()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if v := dateQuery(c, "date"); v != nil {
		date = *v
	}
	counts, err := h.attendance.TodayCounts(c.Request.Context(), c.Query("halaqahId"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

// Summary godoc
// @Summary Attendance summary for a santri
// @Tags Attendance
// @Produce json
// @Param santriId path string true "Santri ID"
// @Param dateFrom query string false "Start date (YYYY-MM-DD)"
// @Param dateTo query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/summary/{santriId} [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	to := time.Now().UTC()
	from := to.AddDate(0, -1, 0)
	if v := dateQuery(c, "dateFrom"); v != nil {
		from = *v
	}
	if v := dateQuery(c, "dateTo"); v != nil {
		to = *v
	}
	summary, err := h.attendance.Summary(c.Request.Context(), c.Param("santriId"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
