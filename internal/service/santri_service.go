package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
)

type santriRepository interface {
	List(ctx context.Context, filter models.SantriFilter) ([]models.SantriDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Santri, error)
	ListByWali(ctx context.Context, waliUserID string) ([]models.Santri, error)
	Create(ctx context.Context, santri *models.Santri) error
	Update(ctx context.Context, santri *models.Santri) error
}

type halaqahFinder interface {
	FindByID(ctx context.Context, id string) (*models.Halaqah, error)
}

// SantriService handles santri enrollment and profile management.
type SantriService struct {
	repo      santriRepository
	halaqah   halaqahFinder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSantriService constructs the service.
func NewSantriService(repo santriRepository, halaqah halaqahFinder, validate *validator.Validate, logger *zap.Logger) *SantriService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SantriService{repo: repo, halaqah: halaqah, validator: validate, logger: logger}
}

// SantriListRequest describes list query parameters.
type SantriListRequest struct {
	Search     string `json:"search"`
	HalaqahID  string `json:"halaqah_id"`
	WaliUserID string `json:"wali_user_id"`
	Active     *bool  `json:"active"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}

// SaveSantriRequest describes create and update payloads.
type SaveSantriRequest struct {
	NIS        string    `json:"nis" validate:"required"`
	FullName   string    `json:"full_name" validate:"required"`
	Gender     string    `json:"gender" validate:"required,oneof=L P"`
	BirthDate  time.Time `json:"birth_date" validate:"required"`
	Address    string    `json:"address"`
	Phone      string    `json:"phone"`
	WaliUserID *string   `json:"wali_user_id"`
	HalaqahID  *string   `json:"halaqah_id"`
	Active     *bool     `json:"active"`
}

// List returns santri with pagination.
func (s *SantriService) List(ctx context.Context, req SantriListRequest) ([]models.SantriDetail, *models.Pagination, error) {
	filter := models.SantriFilter{
		Search:     req.Search,
		HalaqahID:  req.HalaqahID,
		WaliUserID: req.WaliUserID,
		Active:     req.Active,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	santri, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list santri")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return santri, pagination, nil
}

// Get returns one santri by id.
func (s *SantriService) Get(ctx context.Context, id string) (*models.Santri, error) {
	santri, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "santri not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load santri")
	}
	return santri, nil
}

// ListByWali returns the active children linked to a wali account.
func (s *SantriService) ListByWali(ctx context.Context, waliUserID string) ([]models.Santri, error) {
	santri, err := s.repo.ListByWali(ctx, waliUserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list santri by wali")
	}
	return santri, nil
}

// Create enrolls a new santri.
func (s *SantriService) Create(ctx context.Context, req SaveSantriRequest) (*models.Santri, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if err := s.checkHalaqah(ctx, req.HalaqahID); err != nil {
		return nil, err
	}
	santri := &models.Santri{
		NIS:        req.NIS,
		FullName:   req.FullName,
		Gender:     req.Gender,
		BirthDate:  req.BirthDate,
		Address:    req.Address,
		Phone:      req.Phone,
		WaliUserID: req.WaliUserID,
		HalaqahID:  req.HalaqahID,
		Active:     true,
	}
	if req.Active != nil {
		santri.Active = *req.Active
	}
	if err := s.repo.Create(ctx, santri); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create santri")
	}
	return santri, nil
}

// Update modifies an enrolled santri.
func (s *SantriService) Update(ctx context.Context, id string, req SaveSantriRequest) (*models.Santri, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	santri, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkHalaqah(ctx, req.HalaqahID); err != nil {
		return nil, err
	}
	santri.NIS = req.NIS
	santri.FullName = req.FullName
	santri.Gender = req.Gender
	santri.BirthDate = req.BirthDate
	santri.Address = req.Address
	santri.Phone = req.Phone
	santri.WaliUserID = req.WaliUserID
	santri.HalaqahID = req.HalaqahID
	if req.Active != nil {
		santri.Active = *req.Active
	}
	if err := s.repo.Update(ctx, santri); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update santri")
	}
	return santri, nil
}

// Deactivate soft-removes a santri; records stay for reporting.
func (s *SantriService) Deactivate(ctx context.Context, id string) error {
	santri, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	santri.Active = false
	if err := s.repo.Update(ctx, santri); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate santri")
	}
	return nil
}

func (s *SantriService) checkHalaqah(ctx context.Context, halaqahID *string) error {
	if halaqahID == nil || *halaqahID == "" || s.halaqah == nil {
		return nil
	}
	if _, err := s.halaqah.FindByID(ctx, *halaqahID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "halaqah does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify halaqah")
	}
	return nil
}
