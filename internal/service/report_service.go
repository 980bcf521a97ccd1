package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
	"github.com/noah-isme/tahfidz-api/pkg/export"
	"github.com/noah-isme/tahfidz-api/pkg/jobs"
	"github.com/noah-isme/tahfidz-api/pkg/storage"
)

type reportRepository interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus, resultURL, errorMessage *string) error
	ListByCreator(ctx context.Context, createdBy string, limit int) ([]models.ReportJob, error)
}

type reportBehaviorSource interface {
	List(ctx context.Context, filter models.BehaviorFilter) ([]models.BehaviorEvent, int, error)
}

type reportHafalanSource interface {
	List(ctx context.Context, filter models.HafalanFilter) ([]models.Hafalan, int, error)
}

type reportAttendanceSource interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
}

type reportMetricsRecorder interface {
	RecordReportFinished(outcome string)
}

// ReportService generates recap exports in the background. A request enqueues
// a job; workers render the dataset to CSV or PDF, store the file and attach a
// signed download token to the job row.
type ReportService struct {
	repo       reportRepository
	behavior   reportBehaviorSource
	hafalan    reportHafalanSource
	attendance reportAttendanceSource

	pool    *jobs.Pool
	store   *storage.ReportStore
	signer  *storage.DownloadSigner
	metrics reportMetricsRecorder
	logger  *zap.Logger
	baseURL string
}

// ReportServiceConfig wires worker and storage behaviour.
type ReportServiceConfig struct {
	Workers    int
	MaxRetries int
	BaseURL    string
}

// NewReportService constructs the service and its queue. Call Start before
// accepting requests and Stop on shutdown.
func NewReportService(
	repo reportRepository,
	behavior reportBehaviorSource,
	hafalan reportHafalanSource,
	attendance reportAttendanceSource,
	store *storage.ReportStore,
	signer *storage.DownloadSigner,
	metrics reportMetricsRecorder,
	cfg ReportServiceConfig,
	logger *zap.Logger,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReportService{
		repo: repo, behavior: behavior, hafalan: hafalan, attendance: attendance,
		store: store, signer: signer, metrics: metrics,
		logger: logger, baseURL: cfg.BaseURL,
	}
	s.pool = jobs.NewPool("reports", s.process, jobs.Options{
		Workers: cfg.Workers,
		Retries: cfg.MaxRetries,
		Logger:  logger,
	})
	return s
}

// Start launches the worker pool.
func (s *ReportService) Start(ctx context.Context) { s.pool.Start(ctx) }

// Stop drains the worker pool.
func (s *ReportService) Stop() { s.pool.Stop() }

// RequestReportRequest describes a report submission.
type RequestReportRequest struct {
	Type      string `json:"type"`
	HalaqahID string `json:"halaqah_id"`
	SantriID  string `json:"santri_id"`
	DateFrom  string `json:"date_from"`
	DateTo    string `json:"date_to"`
	Format    string `json:"format"`
	CreatedBy string `json:"-"`
}

// Request persists a QUEUED job and hands it to the workers.
func (s *ReportService) Request(ctx context.Context, req RequestReportRequest) (*models.ReportJob, error) {
	reportType := models.ReportType(req.Type)
	switch reportType {
	case models.ReportTypeBehavior, models.ReportTypeHafalan, models.ReportTypeAttendance:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown report type: "+req.Type)
	}
	format := models.ReportFormat(req.Format)
	if format == "" {
		format = models.ReportFormatCSV
	}
	if format != models.ReportFormatCSV && format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown report format: "+req.Format)
	}
	if _, err := time.Parse("2006-01-02", req.DateFrom); req.DateFrom != "" && err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_from must be YYYY-MM-DD")
	}
	if _, err := time.Parse("2006-01-02", req.DateTo); req.DateTo != "" && err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_to must be YYYY-MM-DD")
	}

	job := &models.ReportJob{
		ID:     uuid.NewString(),
		Type:   reportType,
		Status: models.ReportStatusQueued,
		Params: models.ReportJobParams{
			HalaqahID: req.HalaqahID,
			SantriID:  req.SantriID,
			DateFrom:  req.DateFrom,
			DateTo:    req.DateTo,
			Format:    format,
		},
		CreatedBy: req.CreatedBy,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue report")
	}
	if err := s.pool.Submit(jobs.Task{ID: job.ID, Kind: string(job.Type)}); err != nil {
		message := err.Error()
		_ = s.repo.UpdateStatus(ctx, job.ID, models.ReportStatusFailed, nil, &message)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "report workers unavailable")
	}
	return job, nil
}

// Get returns one report job.
func (s *ReportService) Get(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	return job, nil
}

// ListMine returns the caller's recent report jobs.
func (s *ReportService) ListMine(ctx context.Context, createdBy string, limit int) ([]models.ReportJob, error) {
	jobsList, err := s.repo.ListByCreator(ctx, createdBy, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report jobs")
	}
	return jobsList, nil
}

// Resolve validates a download token and returns the on-disk location of the
// artifact it binds.
func (s *ReportService) Resolve(ctx context.Context, token string) (string, error) {
	jobID, name, err := s.signer.Verify(token)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	if _, err := s.Get(ctx, jobID); err != nil {
		return "", err
	}
	path, err := s.store.Path(name)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	return path, nil
}

func (s *ReportService) process(ctx context.Context, task jobs.Task) error {
	record, err := s.repo.FindByID(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", task.ID, err)
	}
	if record.Status == models.ReportStatusFinished {
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, record.ID, models.ReportStatusProcessing, nil, nil); err != nil {
		return err
	}

	table, title, err := s.buildTable(ctx, record)
	if err != nil {
		return s.fail(ctx, record.ID, err)
	}

	var payload []byte
	ext := "csv"
	if record.Params.Format == models.ReportFormatPDF {
		payload, err = export.RenderPDF(table, title)
		ext = "pdf"
	} else {
		payload, err = export.RenderCSV(table)
	}
	if err != nil {
		return s.fail(ctx, record.ID, err)
	}

	name, err := s.store.Save(fmt.Sprintf("%s/%s.%s", record.Type, record.ID, ext), payload)
	if err != nil {
		return s.fail(ctx, record.ID, err)
	}

	token, _, err := s.signer.Sign(record.ID, name)
	if err != nil {
		return s.fail(ctx, record.ID, err)
	}
	resultURL := s.baseURL + "/reports/download/" + token
	if err := s.repo.UpdateStatus(ctx, record.ID, models.ReportStatusFinished, &resultURL, nil); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordReportFinished("finished")
	}
	s.logger.Info("report finished", zap.String("job_id", record.ID), zap.String("type", string(record.Type)))
	return nil
}

func (s *ReportService) fail(ctx context.Context, jobID string, cause error) error {
	message := cause.Error()
	_ = s.repo.UpdateStatus(ctx, jobID, models.ReportStatusFailed, nil, &message)
	if s.metrics != nil {
		s.metrics.RecordReportFinished("failed")
	}
	return cause
}

func (s *ReportService) buildTable(ctx context.Context, job *models.ReportJob) (export.Table, string, error) {
	from, to := parseRange(job.Params)
	switch job.Type {
	case models.ReportTypeBehavior:
		filter := models.BehaviorFilter{SantriID: job.Params.SantriID, DateFrom: from, DateTo: to, PageSize: 200}
		events, _, err := s.behavior.List(ctx, filter)
		if err != nil {
			return export.Table{}, "", err
		}
		table := export.Table{Columns: []string{"Date", "Santri", "Category", "Polarity", "Points", "Description"}}
		for _, e := range events {
			table.AddRow(e.OccurredAt.Format("2006-01-02"), e.SantriID, string(e.Category),
				string(e.Polarity), strconv.Itoa(e.Points), e.Description)
		}
		return table, "Rekap Perilaku", nil
	case models.ReportTypeHafalan:
		filter := models.HafalanFilter{SantriID: job.Params.SantriID, DateFrom: from, DateTo: to, PageSize: 200}
		records, _, err := s.hafalan.List(ctx, filter)
		if err != nil {
			return export.Table{}, "", err
		}
		table := export.Table{Columns: []string{"Date", "Santri", "Type", "Surah", "Ayah", "Grade", "Score"}}
		for _, h := range records {
			table.AddRow(h.RecordedAt.Format("2006-01-02"), h.SantriID, string(h.Type),
				h.Surah, fmt.Sprintf("%d-%d", h.AyahStart, h.AyahEnd), h.Grade, strconv.Itoa(h.Score))
		}
		return table, "Rekap Hafalan", nil
	case models.ReportTypeAttendance:
		filter := models.AttendanceFilter{HalaqahID: job.Params.HalaqahID, SantriID: job.Params.SantriID, DateFrom: from, DateTo: to, PageSize: 200}
		records, _, err := s.attendance.List(ctx, filter)
		if err != nil {
			return export.Table{}, "", err
		}
		table := export.Table{Columns: []string{"Date", "Santri", "Status", "Notes"}}
		for _, a := range records {
			notes := ""
			if a.Notes != nil {
				notes = *a.Notes
			}
			table.AddRow(a.Date.Format("2006-01-02"), a.SantriName, string(a.Status), notes)
		}
		return table, "Rekap Kehadiran", nil
	default:
		return export.Table{}, "", fmt.Errorf("unknown report type %q", job.Type)
	}
}

func parseRange(params models.ReportJobParams) (*time.Time, *time.Time) {
	var from, to *time.Time
	if t, err := time.Parse("2006-01-02", params.DateFrom); err == nil {
		from = &t
	}
	if t, err := time.Parse("2006-01-02", params.DateTo); err == nil {
		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		to = &end
	}
	return from, to
}
