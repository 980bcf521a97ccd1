package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
)

type goalRepository interface {
	Create(ctx context.Context, goal *models.CharacterGoal) error
	FindByID(ctx context.Context, id string) (*models.CharacterGoal, error)
	List(ctx context.Context, filter models.GoalFilter) ([]models.CharacterGoal, int, error)
	Save(ctx context.Context, goal *models.CharacterGoal) error
	CountByStatus(ctx context.Context, santriID string) (map[models.GoalStatus]int, error)
}

type goalAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// GoalService manages character goals, their milestones and the goal
// lifecycle.
type GoalService struct {
	repo      goalRepository
	audit     goalAuditWriter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewGoalService constructs the service. audit may be nil, in which case
// status changes are not journaled.
func NewGoalService(repo goalRepository, audit goalAuditWriter, validate *validator.Validate, logger *zap.Logger) *GoalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoalService{repo: repo, audit: audit, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// CreateGoalRequest describes the create payload.
type CreateGoalRequest struct {
	SantriID    string                   `json:"santri_id" validate:"required"`
	Title       string                   `json:"title" validate:"required"`
	Description string                   `json:"description"`
	Category    string                   `json:"category" validate:"required"`
	StartDate   time.Time                `json:"start_date" validate:"required"`
	TargetDate  time.Time                `json:"target_date" validate:"required"`
	CreatedBy   string                   `json:"created_by" validate:"required"`
	Milestones  []CreateMilestoneRequest `json:"milestones" validate:"dive"`
}

// CreateMilestoneRequest describes a milestone within a goal payload.
type CreateMilestoneRequest struct {
	Title      string     `json:"title" validate:"required"`
	TargetDate *time.Time `json:"target_date"`
}

// GoalListRequest describes filters for listing goals.
type GoalListRequest struct {
	SantriID string `json:"santri_id"`
	Status   string `json:"status"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// Create registers a new goal in ACTIVE status with zero progress.
func (s *GoalService) Create(ctx context.Context, req CreateGoalRequest) (*models.CharacterGoal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	category := models.BehaviorCategory(req.Category)
	if !category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown goal category: "+req.Category)
	}
	if req.TargetDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target date must not precede start date")
	}
	goal := &models.CharacterGoal{
		SantriID:    req.SantriID,
		Title:       req.Title,
		Description: req.Description,
		Category:    category,
		StartDate:   req.StartDate,
		TargetDate:  req.TargetDate,
		Status:      models.GoalStatusActive,
		Progress:    0,
		CreatedBy:   req.CreatedBy,
	}
	for _, m := range req.Milestones {
		milestone := models.Milestone{Title: m.Title}
		if m.TargetDate != nil {
			milestone.TargetDate = *m.TargetDate
		}
		goal.Milestones = append(goal.Milestones, milestone)
	}
	if err := s.repo.Create(ctx, goal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create goal")
	}
	return goal, nil
}

// Get returns a goal with its milestones, progress and schedule fields.
func (s *GoalService) Get(ctx context.Context, id string) (*models.CharacterGoal, error) {
	goal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "goal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load goal")
	}
	return goal, nil
}

// List returns goals matching the filter.
func (s *GoalService) List(ctx context.Context, req GoalListRequest) ([]models.CharacterGoal, *models.Pagination, error) {
	filter := models.GoalFilter{SantriID: req.SantriID, Page: req.Page, PageSize: req.PageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if req.Status != "" {
		status := models.GoalStatus(req.Status)
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown goal status: "+req.Status)
		}
		filter.Status = &status
	}
	goals, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list goals")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return goals, pagination, nil
}

// AddMilestone appends a milestone to an ACTIVE goal and recomputes
// progress, since the denominator grows.
func (s *GoalService) AddMilestone(ctx context.Context, goalID string, req CreateMilestoneRequest) (*models.CharacterGoal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	goal, err := s.Get(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.Status != models.GoalStatusActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "milestones can only be added to an active goal")
	}
	milestone := models.Milestone{
		GoalID:   goal.ID,
		Title:    req.Title,
		Position: len(goal.Milestones),
	}
	if req.TargetDate != nil {
		milestone.TargetDate = *req.TargetDate
	}
	goal.Milestones = append(goal.Milestones, milestone)
	goal.Progress = goal.ComputeProgress()
	goal.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, goal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add milestone")
	}
	return goal, nil
}

// CompleteMilestoneRequest carries the completion evidence.
type CompleteMilestoneRequest struct {
	Evidence string `json:"evidence"`
}

// CompleteMilestone marks a milestone done, recomputes progress and, when
// every milestone is complete, moves the goal to COMPLETED. The milestone
// update, progress and status change are persisted in one transaction by
// the repository.
func (s *GoalService) CompleteMilestone(ctx context.Context, goalID, milestoneID string, req CompleteMilestoneRequest) (*models.CharacterGoal, error) {
	evidence := strings.TrimSpace(req.Evidence)
	if evidence == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "completion evidence is required")
	}
	goal, err := s.Get(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.Status != models.GoalStatusActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "milestones can only be completed on an active goal")
	}
	idx := -1
	for i := range goal.Milestones {
		if goal.Milestones[i].ID == milestoneID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "milestone not found")
	}
	if goal.Milestones[idx].IsCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "milestone is already completed")
	}
	now := s.now()
	goal.Milestones[idx].IsCompleted = true
	goal.Milestones[idx].CompletedAt = &now
	goal.Milestones[idx].Evidence = &evidence
	goal.Progress = goal.ComputeProgress()
	previousStatus := goal.Status
	if goal.Progress == 100 {
		goal.Status = models.GoalStatusCompleted
	}
	goal.UpdatedAt = now
	if err := s.repo.Save(ctx, goal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete milestone")
	}
	if goal.Status == models.GoalStatusCompleted && previousStatus != goal.Status {
		s.journalStatusChange(ctx, goal, previousStatus, goal.CreatedBy)
	}
	return goal, nil
}

// ChangeStatus moves a goal along the lifecycle. COMPLETED is reached only
// through milestone completion, never through this call. Terminal goals
// reject every change, including one restating the current status; the
// same-status no-op applies to ACTIVE and PAUSED only.
func (s *GoalService) ChangeStatus(ctx context.Context, goalID string, target models.GoalStatus, actorID string) (*models.CharacterGoal, error) {
	if !target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown goal status: "+string(target))
	}
	goal, err := s.Get(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			"goal is "+string(goal.Status)+" and can no longer change status")
	}
	if goal.Status == target {
		return goal, nil
	}
	if !goal.Status.CanTransition(target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			"cannot move goal from "+string(goal.Status)+" to "+string(target))
	}
	previous := goal.Status
	goal.Status = target
	goal.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, goal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change goal status")
	}
	s.journalStatusChange(ctx, goal, previous, actorID)
	return goal, nil
}

// StatusCounts returns the number of goals per status, school-wide or for one
// santri, for dashboards.
func (s *GoalService) StatusCounts(ctx context.Context, santriID string) (map[models.GoalStatus]int, error) {
	counts, err := s.repo.CountByStatus(ctx, santriID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count goals")
	}
	return counts, nil
}

func (s *GoalService) journalStatusChange(ctx context.Context, goal *models.CharacterGoal, previous models.GoalStatus, actorID string) {
	if s.audit == nil {
		return
	}
	oldValues, _ := json.Marshal(map[string]string{"status": string(previous)})
	newValues, _ := json.Marshal(map[string]string{"status": string(goal.Status)})
	entry := &models.AuditLog{
		ID:         uuid.NewString(),
		UserID:     &actorID,
		Action:     models.AuditActionGoalStatus,
		Resource:   "character_goals",
		ResourceID: &goal.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
		CreatedAt:  s.now(),
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write goal audit entry", zap.String("goal_id", goal.ID), zap.Error(err))
	}
}
