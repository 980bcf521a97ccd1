package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	BulkUpsert(ctx context.Context, rows []models.Attendance) error
	Summary(ctx context.Context, santriID string, from, to time.Time) (*models.AttendanceSummary, error)
	CountByStatusOn(ctx context.Context, halaqahID string, date time.Time) (map[models.AttendanceStatus]int, error)
}

// AttendanceService manages daily attendance for halaqah sessions.
type AttendanceService struct {
	repo      attendanceRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(repo attendanceRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, validator: validate, logger: logger}
}

// AttendanceListRequest describes list query parameters.
type AttendanceListRequest struct {
	HalaqahID string     `json:"halaqah_id"`
	SantriID  string     `json:"santri_id"`
	Status    string     `json:"status"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
}

// MarkAttendanceRequest is one session's worth of attendance marks.
type MarkAttendanceRequest struct {
	HalaqahID string                `json:"halaqah_id" validate:"required"`
	Date      time.Time             `json:"date" validate:"required"`
	MarkedBy  string                `json:"marked_by" validate:"required"`
	Entries   []AttendanceMarkEntry `json:"entries" validate:"required,min=1,dive"`
}

// AttendanceMarkEntry is a single santri's mark within a bulk request.
type AttendanceMarkEntry struct {
	SantriID string  `json:"santri_id" validate:"required"`
	Status   string  `json:"status" validate:"required"`
	Notes    *string `json:"notes"`
}

// List returns attendance rows.
func (s *AttendanceService) List(ctx context.Context, req AttendanceListRequest) ([]models.AttendanceRecord, *models.Pagination, error) {
	filter := models.AttendanceFilter{
		HalaqahID: req.HalaqahID,
		SantriID:  req.SantriID,
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	if req.Status != "" {
		status := models.AttendanceStatus(req.Status)
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status: "+req.Status)
		}
		filter.Status = &status
	}
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return records, pagination, nil
}

// Mark records one session's attendance. Marking the same santri and date
// again overwrites the earlier row; a correction is not an error.
func (s *AttendanceService) Mark(ctx context.Context, req MarkAttendanceRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	seen := make(map[string]bool, len(req.Entries))
	rows := make([]models.Attendance, 0, len(req.Entries))
	for _, entry := range req.Entries {
		status := models.AttendanceStatus(entry.Status)
		if !status.Valid() {
			return 0, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status: "+entry.Status)
		}
		if seen[entry.SantriID] {
			return 0, appErrors.Clone(appErrors.ErrValidation, "duplicate santri in attendance payload: "+entry.SantriID)
		}
		seen[entry.SantriID] = true
		rows = append(rows, models.Attendance{
			SantriID:  entry.SantriID,
			HalaqahID: req.HalaqahID,
			Date:      req.Date,
			Status:    status,
			Notes:     entry.Notes,
			MarkedBy:  req.MarkedBy,
		})
	}
	if err := s.repo.BulkUpsert(ctx, rows); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}
	return len(rows), nil
}

// Summary aggregates one santri's attendance over a range.
func (s *AttendanceService) Summary(ctx context.Context, santriID string, from, to time.Time) (*models.AttendanceSummary, error) {
	if santriID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "santri_id is required")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "range end must not precede start")
	}
	summary, err := s.repo.Summary(ctx, santriID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
	}
	return summary, nil
}

// TodayCounts returns per-status counts for one date, optionally scoped to a
// halaqah, feeding the dashboards.
func (s *AttendanceService) TodayCounts(ctx context.Context, halaqahID string, date time.Time) (map[models.AttendanceStatus]int, error) {
	counts, err := s.repo.CountByStatusOn(ctx, halaqahID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	return counts, nil
}
