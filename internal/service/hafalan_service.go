package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
)

type hafalanRepository interface {
	List(ctx context.Context, filter models.HafalanFilter) ([]models.Hafalan, int, error)
	Create(ctx context.Context, hafalan *models.Hafalan) error
	Update(ctx context.Context, hafalan *models.Hafalan) error
	Progress(ctx context.Context, santriID string) (*models.HafalanProgress, error)
}

// HafalanService manages memorization evaluations.
type HafalanService struct {
	repo      hafalanRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHafalanService constructs the service.
func NewHafalanService(repo hafalanRepository, validate *validator.Validate, logger *zap.Logger) *HafalanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HafalanService{repo: repo, validator: validate, logger: logger}
}

// HafalanListRequest describes list query parameters.
type HafalanListRequest struct {
	SantriID string     `json:"santri_id"`
	Type     string     `json:"type"`
	DateFrom *time.Time `json:"date_from"`
	DateTo   *time.Time `json:"date_to"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// RecordHafalanRequest describes the create payload.
type RecordHafalanRequest struct {
	SantriID    string     `json:"santri_id" validate:"required"`
	Type        string     `json:"type" validate:"required"`
	Surah       string     `json:"surah" validate:"required"`
	SurahNumber int        `json:"surah_number" validate:"required,gte=1,lte=114"`
	AyahStart   int        `json:"ayah_start" validate:"required,gte=1"`
	AyahEnd     int        `json:"ayah_end" validate:"required,gte=1"`
	Grade       string     `json:"grade" validate:"required"`
	Score       int        `json:"score" validate:"gte=0,lte=100"`
	Notes       *string    `json:"notes"`
	EvaluatedBy string     `json:"evaluated_by" validate:"required"`
	RecordedAt  *time.Time `json:"recorded_at"`
}

// List returns hafalan sessions.
func (s *HafalanService) List(ctx context.Context, req HafalanListRequest) ([]models.Hafalan, *models.Pagination, error) {
	filter := models.HafalanFilter{
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
	if req.Type != "" {
		hafalanType := models.HafalanType(req.Type)
		if !hafalanType.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown hafalan type: "+req.Type)
		}
		filter.Type = &hafalanType
	}
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list hafalan")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return records, pagination, nil
}

// Record stores an evaluated memorization session.
func (s *HafalanService) Record(ctx context.Context, req RecordHafalanRequest) (*models.Hafalan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	hafalanType := models.HafalanType(req.Type)
	if !hafalanType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown hafalan type: "+req.Type)
	}
	if req.AyahEnd < req.AyahStart {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ayah range end must not precede start")
	}
	hafalan := &models.Hafalan{
		SantriID:    req.SantriID,
		Type:        hafalanType,
		Surah:       req.Surah,
		SurahNumber: req.SurahNumber,
		AyahStart:   req.AyahStart,
		AyahEnd:     req.AyahEnd,
		Grade:       req.Grade,
		Score:       req.Score,
		Notes:       req.Notes,
		EvaluatedBy: req.EvaluatedBy,
	}
	if req.RecordedAt != nil {
		hafalan.RecordedAt = *req.RecordedAt
	}
	if err := s.repo.Create(ctx, hafalan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record hafalan")
	}
	return hafalan, nil
}

// Progress returns the memorization progress figure for one santri.
func (s *HafalanService) Progress(ctx context.Context, santriID string) (*models.HafalanProgress, error) {
	if santriID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "santri_id is required")
	}
	progress, err := s.repo.Progress(ctx, santriID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hafalan progress")
	}
	return progress, nil
}
