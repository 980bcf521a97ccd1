package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-api/internal/models"
	"github.com/noah-isme/tahfidz-api/internal/service"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
	"github.com/noah-isme/tahfidz-api/pkg/response"
)

// GoalHandler exposes character goal endpoints.
type GoalHandler struct {
	goals   *service.GoalService
	metrics *service.MetricsService
}

// NewGoalHandler constructs GoalHandler.
func NewGoalHandler(goals *service.GoalService, metrics *service.MetricsService) *GoalHandler {
	return &GoalHandler{goals: goals, metrics: metrics}
}

// List godoc
// @Summary List character goals
// @Tags Goals
// @Produce json
// @Param santriId query string false "Filter by santri"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /goals [get]
func (h *GoalHandler) List(c *gin.Context) {
	req := service.GoalListRequest{
		SantriID: c.Query("santriId"),
		Status:   c.Query("status"),
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "limit", 20),
	}
	goals, pagination, err := h.goals.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, goals, pagination)
}

// Summary godoc
// @Summary Count goals per lifecycle status
// @Tags Goals
// @Produce json
// @Param santriId query string false "Limit to one santri"
// @Success 200 {object} response.Envelope
// @Router /goals/summary [get]
func (h *GoalHandler) Summary(c *gin.Context) {
	counts, err := h.goals.StatusCounts(c.Request.Context(), c.Query("santriId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

// Get godoc
// @Summary Get a goal with milestones
// @Tags Goals
// @Produce json
// @Param id path string true "Goal ID"
// @Success 200 {object} response.Envelope
// @Router /goals/{id} [get]
func (h *GoalHandler) Get(c *gin.Context) {
	goal, err := h.goals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, goal, nil)
}

// Create godoc
// @Summary Create a character goal
// @Tags Goals
// @Accept json
// @Produce json
// @Param payload body service.CreateGoalRequest true "Goal payload"
// @Success 201 {object} response.Envelope
// @Router /goals [post]
func (h *GoalHandler) Create(c *gin.Context) {
	var req service.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.CreatedBy = claims.UserID
	}
	goal, err := h.goals.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, goal)
}

// AddMilestone godoc
// @Summary Add a milestone to an active goal
// @Tags Goals
// @Accept json
// @Produce json
// @Param id path string true "Goal ID"
// @Param payload body service.CreateMilestoneRequest true "Milestone payload"
// @Success 200 {object} response.Envelope
// @Router /goals/{id}/milestones [post]
func (h *GoalHandler) AddMilestone(c *gin.Context) {
	var req service.CreateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	goal, err := h.goals.AddMilestone(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, goal, nil)
}

// CompleteMilestone godoc
// @Summary Mark a milestone complete
// @Tags Goals
// @Accept json
// @Produce json
// @Param id path string true "Goal ID"
// @Param milestoneId path string true "Milestone ID"
// @Param payload body service.CompleteMilestoneRequest true "Completion evidence"
// @Success 200 {object} response.Envelope
// @Router /goals/{id}/milestones/{milestoneId}/complete [post]
func (h *GoalHandler) CompleteMilestone(c *gin.Context) {
	var req service.CompleteMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	goal, err := h.goals.CompleteMilestone(c.Request.Context(), c.Param("id"), c.Param("milestoneId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if goal.Status == models.GoalStatusCompleted {
		h.metrics.RecordGoalCompleted()
	}
	response.JSON(c, http.StatusOK, goal, nil)
}

type changeGoalStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ChangeStatus godoc
// @Summary Pause, resume or cancel a goal
// @Tags Goals
// @Accept json
// @Produce json
// @Param id path string true "Goal ID"
// @Param payload body changeGoalStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /goals/{id}/status [put]
func (h *GoalHandler) ChangeStatus(c *gin.Context) {
	var req changeGoalStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}
	goal, err := h.goals.ChangeStatus(c.Request.Context(), c.Param("id"), models.GoalStatus(req.Status), actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, goal, nil)
}
