package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-api/internal/models"
	"github.com/noah-isme/tahfidz-api/internal/service"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
	"github.com/noah-isme/tahfidz-api/pkg/response"
)

// SantriHandler exposes santri endpoints.
type SantriHandler struct {
	santri *service.SantriService
}

// NewSantriHandler constructs SantriHandler.
func NewSantriHandler(santri *service.SantriService) *SantriHandler {
	return &SantriHandler{santri: santri}
}

// List godoc
// @Summary List santri
// @Tags Santri
// @Produce json
// @Param search query string false "Search by name or NIS"
// @Param halaqahId query string false "Filter by halaqah"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /santri [get]
func (h *SantriHandler) List(c *gin.Context) {
	req := service.SantriListRequest{
		Search:     strings.TrimSpace(c.Query("search")),
		HalaqahID:  c.Query("halaqahId"),
		WaliUserID: c.Query("waliUserId"),
		Active:     boolQuery(c, "active"),
		Page:       intQuery(c, "page", 1),
		PageSize:   intQuery(c, "limit", 20),
	}
	// Wali accounts only ever see their own children.
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleWali {
		req.WaliUserID = claims.UserID
	}
	santri, pagination, err := h.santri.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, santri, pagination)
}

// Get godoc
// @Summary Get santri detail
// @Tags Santri
// @Produce json
// @Param id path string true "Santri ID"
// @Success 200 {object} response.Envelope
// @Router /santri/{id} [get]
func (h *SantriHandler) Get(c *gin.Context) {
	santri, err := h.santri.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, santri, nil)
}

// Create godoc
// @Summary Enroll a santri
// @Tags Santri
// @Accept json
// @Produce json
// @Param payload body service.SaveSantriRequest true "Santri payload"
// @Success 201 {object} response.Envelope
// @Router /santri [post]
func (h *SantriHandler) Create(c *gin.Context) {
	var req service.SaveSantriRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	santri, err := h.santri.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, santri)
}

// Update godoc
// @Summary Update a santri
// @Tags Santri
// @Accept json
// @Produce json
// @Param id path string true "Santri ID"
// @Param payload body service.SaveSantriRequest true "Santri payload"
// @Success 200 {object} response.Envelope
// @Router /santri/{id} [put]
func (h *SantriHandler) Update(c *gin.Context) {
	var req service.SaveSantriRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	santri, err := h.santri.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, santri, nil)
}

// Delete godoc
// @Summary Deactivate a santri
// @Tags Santri
// @Produce json
// @Param id path string true "Santri ID"
// @Success 204
// @Router /santri/{id} [delete]
func (h *SantriHandler) Delete(c *gin.Context) {
	if err := h.santri.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
