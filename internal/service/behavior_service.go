package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-api/internal/models"
	"github.com/noah-isme/tahfidz-api/internal/scoring"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
)

type behaviorRepository interface {
	List(ctx context.Context, filter models.BehaviorFilter) ([]models.BehaviorEvent, int, error)
	ListForPeriod(ctx context.Context, santriID string, from, to time.Time) ([]models.BehaviorEvent, error)
	FindByID(ctx context.Context, id string) (*models.BehaviorEvent, error)
	Create(ctx context.Context, event *models.BehaviorEvent) error
	UpdateFollowUp(ctx context.Context, event *models.BehaviorEvent) error
	SetRecordStatus(ctx context.Context, id string, status models.BehaviorRecordStatus) error
}

// BehaviorService handles behaviour events and score summaries.
type BehaviorService struct {
	repo      behaviorRepository
	policy    scoring.Policy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBehaviorService constructs the service.
func NewBehaviorService(repo behaviorRepository, policy scoring.Policy, validate *validator.Validate, logger *zap.Logger) *BehaviorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &BehaviorService{repo: repo, policy: policy, validator: validate, logger: logger}
	svc.validator.RegisterValidation("behavior_category", func(fl validator.FieldLevel) bool {
		return models.BehaviorCategory(fl.Field().String()).Valid()
	})
	svc.validator.RegisterValidation("behavior_polarity", func(fl validator.FieldLevel) bool {
		return models.BehaviorPolarity(fl.Field().String()).Valid()
	})
	return svc
}

// BehaviorListRequest describes filters for listing events.
type BehaviorListRequest struct {
	SantriID     string     `json:"santri_id"`
	DateFrom     *time.Time `json:"date_from"`
	DateTo       *time.Time `json:"date_to"`
	Categories   []string   `json:"categories"`
	Polarity     string     `json:"polarity"`
	RecordStatus string     `json:"record_status"`
	Page         int        `json:"page"`
	PageSize     int        `json:"page_size"`
}

// RecordBehaviorRequest describes create payload.
type RecordBehaviorRequest struct {
	SantriID        string     `json:"santri_id" validate:"required"`
	Category        string     `json:"category" validate:"required,behavior_category"`
	Polarity        string     `json:"polarity" validate:"required,behavior_polarity"`
	Points          int        `json:"points"`
	Description     string     `json:"description" validate:"required"`
	OccurredAt      time.Time  `json:"occurred_at" validate:"required"`
	RecordedBy      string     `json:"recorded_by" validate:"required"`
	FollowUpNeeded  bool       `json:"follow_up_needed"`
	FollowUpDueDate *time.Time `json:"follow_up_due_date"`
	FollowUpNotes   *string    `json:"follow_up_notes"`
}

// FollowUpRequest describes the only mutable part of a recorded event.
type FollowUpRequest struct {
	FollowUpNeeded  bool       `json:"follow_up_needed"`
	FollowUpDueDate *time.Time `json:"follow_up_due_date"`
	FollowUpNotes   *string    `json:"follow_up_notes"`
}

// List returns behaviour events with pagination.
func (s *BehaviorService) List(ctx context.Context, req BehaviorListRequest) ([]models.BehaviorEvent, *models.Pagination, error) {
	filter := models.BehaviorFilter{
		SantriID: req.SantriID,
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	for _, c := range req.Categories {
		category := models.BehaviorCategory(c)
		if !category.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown behavior category: "+c)
		}
		filter.Categories = append(filter.Categories, category)
	}
	if req.Polarity != "" {
		polarity := models.BehaviorPolarity(req.Polarity)
		if !polarity.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown polarity: "+req.Polarity)
		}
		filter.Polarity = &polarity
	}
	if req.RecordStatus != "" {
		status := models.BehaviorRecordStatus(req.RecordStatus)
		filter.RecordStatus = &status
	}
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list behavior events")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return events, pagination, nil
}

// Record adds a behaviour event. The polarity/points sign invariant is
// enforced here, before anything reaches storage.
func (s *BehaviorService) Record(ctx context.Context, req RecordBehaviorRequest) (*models.BehaviorEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	polarity := models.BehaviorPolarity(req.Polarity)
	if !polarity.AgreesWith(req.Points) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "points sign does not agree with polarity")
	}
	event := &models.BehaviorEvent{
		SantriID:        req.SantriID,
		Category:        models.BehaviorCategory(req.Category),
		Polarity:        polarity,
		Points:          req.Points,
		Description:     req.Description,
		OccurredAt:      req.OccurredAt,
		RecordedBy:      req.RecordedBy,
		FollowUpNeeded:  req.FollowUpNeeded,
		FollowUpDueDate: req.FollowUpDueDate,
		FollowUpNotes:   req.FollowUpNotes,
		RecordStatus:    models.BehaviorRecordActive,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record behavior event")
	}
	return event, nil
}

// UpdateFollowUp modifies the follow-up fields of an existing event. The
// event body and its recorded_by are immutable after creation.
func (s *BehaviorService) UpdateFollowUp(ctx context.Context, id string, req FollowUpRequest) (*models.BehaviorEvent, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "behavior event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load behavior event")
	}
	event.FollowUpNeeded = req.FollowUpNeeded
	event.FollowUpDueDate = req.FollowUpDueDate
	event.FollowUpNotes = req.FollowUpNotes
	if err := s.repo.UpdateFollowUp(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update follow-up")
	}
	return event, nil
}

// Archive suppresses an event from aggregation without deleting it.
func (s *BehaviorService) Archive(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "behavior event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load behavior event")
	}
	if err := s.repo.SetRecordStatus(ctx, id, models.BehaviorRecordArchived); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive behavior event")
	}
	return nil
}

// Summary computes the derived behaviour summary for a santri over the
// half-open window [from, to), including the trend against the immediately
// preceding window of equal length. Nothing is persisted; the summary is
// recomputed on every call.
func (s *BehaviorService) Summary(ctx context.Context, santriID string, from, to time.Time) (*models.BehaviorSummary, error) {
	if santriID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "santri_id is required")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period end must not precede start")
	}
	period := scoring.Period{Start: from, End: to}
	events, err := s.repo.ListForPeriod(ctx, santriID, period.Start, period.End)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load behavior events")
	}
	previous := period.Previous()
	previousEvents, err := s.repo.ListForPeriod(ctx, santriID, previous.Start, previous.End)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load preceding behavior events")
	}

	summary := s.policy.Summarize(events, period)
	summary.SantriID = santriID
	previousSummary := s.policy.Summarize(previousEvents, previous)
	trend := s.policy.CompareTrend(summary.BehaviorScore, previousSummary.BehaviorScore)
	summary.Trend = &trend
	return &summary, nil
}
