package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-api/internal/service"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
	"github.com/noah-isme/tahfidz-api/pkg/response"
)

// HalaqahHandler exposes halaqah endpoints.
type HalaqahHandler struct {
	halaqah *service.HalaqahService
}

// NewHalaqahHandler constructs HalaqahHandler.
func NewHalaqahHandler(halaqah *service.HalaqahService) *HalaqahHandler {
	return &HalaqahHandler{halaqah: halaqah}
}

// List godoc
// @Summary List halaqah
// @Tags Halaqah
// @Produce json
// @Param search query string false "Search by name"
// @Param musyrifId query string false "Filter by musyrif"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /halaqah [get]
func (h *HalaqahHandler) List(c *gin.Context) {
	req := service.HalaqahListRequest{
		Search:        strings.TrimSpace(c.Query("search")),
		MusyrifUserID: c.Query("musyrifId"),
		Active:        boolQuery(c, "active"),
		Page:          intQuery(c, "page", 1),
		PageSize:      intQuery(c, "limit", 20),
	}
	halaqah, pagination, err := h.halaqah.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, halaqah, pagination)
}

// Get godoc
// @Summary Get halaqah detail
// @Tags Halaqah
// @Produce json
// @Param id path string true "Halaqah ID"
// @Success 200 {object} response.Envelope
// @Router /halaqah/{id} [get]
func (h *HalaqahHandler) Get(c *gin.Context) {
	halaqah, err := h.halaqah.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, halaqah, nil)
}

// Create godoc
// @Summary Create a halaqah
// @Tags Halaqah
// @Accept json
// @Produce json
// @Param payload body service.SaveHalaqahRequest true "Halaqah payload"
// @Success 201 {object} response.Envelope
// @Router /halaqah [post]
func (h *HalaqahHandler) Create(c *gin.Context) {
	var req service.SaveHalaqahRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	halaqah, err := h.halaqah.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, halaqah)
}

// Update godoc
// @Summary Update a halaqah
// @Tags Halaqah
// @Accept json
// @Produce json
// @Param id path string true "Halaqah ID"
// @Param payload body service.SaveHalaqahRequest true "Halaqah payload"
// @Success 200 {object} response.Envelope
// @Router /halaqah/{id} [put]
func (h *HalaqahHandler) Update(c *gin.Context) {
	var req service.SaveHalaqahRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	halaqah, err := h.halaqah.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, halaqah, nil)
}
