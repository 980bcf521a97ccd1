package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
)

type halaqahRepository interface {
	List(ctx context.Context, filter models.HalaqahFilter) ([]models.HalaqahDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Halaqah, error)
	FindByMusyrif(ctx context.Context, musyrifUserID string) ([]models.Halaqah, error)
	Create(ctx context.Context, halaqah *models.Halaqah) error
	Update(ctx context.Context, halaqah *models.Halaqah) error
}

// HalaqahService manages teaching circles.
type HalaqahService struct {
	repo      halaqahRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHalaqahService constructs the service.
func NewHalaqahService(repo halaqahRepository, validate *validator.Validate, logger *zap.Logger) *HalaqahService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HalaqahService{repo: repo, validator: validate, logger: logger}
}

// HalaqahListRequest describes list query parameters.
type HalaqahListRequest struct {
	Search        string `json:"search"`
	MusyrifUserID string `json:"musyrif_user_id"`
	Active        *bool  `json:"active"`
	Page          int    `json:"page"`
	PageSize      int    `json:"page_size"`
}

// SaveHalaqahRequest describes create and update payloads.
type SaveHalaqahRequest struct {
	Name          string `json:"name" validate:"required"`
	MusyrifUserID string `json:"musyrif_user_id" validate:"required"`
	Capacity      int    `json:"capacity" validate:"gte=0"`
	Schedule      string `json:"schedule"`
	Room          string `json:"room"`
	Active        *bool  `json:"active"`
}

// List returns halaqah with roster counts.
func (s *HalaqahService) List(ctx context.Context, req HalaqahListRequest) ([]models.HalaqahDetail, *models.Pagination, error) {
	filter := models.HalaqahFilter{
		Search:        req.Search,
		MusyrifUserID: req.MusyrifUserID,
		Active:        req.Active,
		Page:          req.Page,
		PageSize:      req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	halaqah, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list halaqah")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return halaqah, pagination, nil
}

// Get returns one halaqah by id.
func (s *HalaqahService) Get(ctx context.Context, id string) (*models.Halaqah, error) {
	halaqah, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "halaqah not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load halaqah")
	}
	return halaqah, nil
}

// ListByMusyrif returns the circles a musyrif supervises.
func (s *HalaqahService) ListByMusyrif(ctx context.Context, musyrifUserID string) ([]models.Halaqah, error) {
	halaqah, err := s.repo.FindByMusyrif(ctx, musyrifUserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list halaqah by musyrif")
	}
	return halaqah, nil
}

// Create registers a new halaqah.
func (s *HalaqahService) Create(ctx context.Context, req SaveHalaqahRequest) (*models.Halaqah, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	halaqah := &models.Halaqah{
		Name:          req.Name,
		MusyrifUserID: req.MusyrifUserID,
		Capacity:      req.Capacity,
		Schedule:      req.Schedule,
		Room:          req.Room,
		Active:        true,
	}
	if req.Active != nil {
		halaqah.Active = *req.Active
	}
	if err := s.repo.Create(ctx, halaqah); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create halaqah")
	}
	return halaqah, nil
}

// Update modifies an existing halaqah.
func (s *HalaqahService) Update(ctx context.Context, id string, req SaveHalaqahRequest) (*models.Halaqah, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	halaqah, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	halaqah.Name = req.Name
	halaqah.MusyrifUserID = req.MusyrifUserID
	halaqah.Capacity = req.Capacity
	halaqah.Schedule = req.Schedule
	halaqah.Room = req.Room
	if req.Active != nil {
		halaqah.Active = *req.Active
	}
	if err := s.repo.Update(ctx, halaqah); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update halaqah")
	}
	return halaqah, nil
}
