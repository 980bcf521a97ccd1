package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-api/internal/middleware"
	"github.com/noah-isme/tahfidz-api/internal/models"
	"github.com/noah-isme/tahfidz-api/internal/service"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
	"github.com/noah-isme/tahfidz-api/pkg/response"
)

type dashboardService interface {
	Admin(ctx context.Context) (*models.AdminDashboard, bool, error)
	Musyrif(ctx context.Context, musyrifUserID string) (*models.MusyrifDashboard, bool, error)
	Wali(ctx context.Context, waliUserID string) (*models.WaliDashboard, bool, error)
}

// DashboardHandler wires the dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
	metrics *service.MetricsService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(svc dashboardService, metrics *service.MetricsService) *DashboardHandler {
	return &DashboardHandler{service: svc, metrics: metrics}
}

// Admin godoc
// @Summary School-wide dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/admin [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	dashboard, cacheHit, err := h.service.Admin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordCacheOperation(cacheHit)
	h.respond(c, dashboard, cacheHit, start)
}

// Musyrif godoc
// @Summary Per-halaqah dashboard for the authenticated musyrif
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/musyrif [get]
func (h *DashboardHandler) Musyrif(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start := time.Now()
	dashboard, cacheHit, err := h.service.Musyrif(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordCacheOperation(cacheHit)
	h.respond(c, dashboard, cacheHit, start)
}

// Wali godoc
// @Summary Per-child dashboard for the authenticated wali
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/wali [get]
func (h *DashboardHandler) Wali(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start := time.Now()
	dashboard, cacheHit, err := h.service.Wali(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordCacheOperation(cacheHit)
	h.respond(c, dashboard, cacheHit, start)
}

func (h *DashboardHandler) respond(c *gin.Context, payload interface{}, cacheHit bool, start time.Time) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, payload, nil, meta)
}
