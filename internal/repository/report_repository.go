package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tahfidz-api/internal/models"
)

// ReportRepository manages persistence for asynchronous report jobs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs a new repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a queued report job.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	query := `INSERT INTO report_jobs (id, type, params, status, result_url, created_by, created_at, finished_at, error_message)
VALUES (:id, :type, :params, :status, :result_url, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindByID fetches one report job.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	var job models.ReportJob
	query := `SELECT id, type, params, status, result_url, created_by, created_at, finished_at, error_message FROM report_jobs WHERE id = $1`
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateStatus moves a job through its lifecycle.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, status models.ReportStatus, resultURL, errorMessage *string) error {
	var finishedAt *time.Time
	if status == models.ReportStatusFinished || status == models.ReportStatusFailed {
		now := time.Now().UTC()
		finishedAt = &now
	}
	query := `UPDATE report_jobs SET status = $1, result_url = $2, error_message = $3, finished_at = $4 WHERE id = $5`
	if _, err := r.db.ExecContext(ctx, query, status, resultURL, errorMessage, finishedAt, id); err != nil {
		return fmt.Errorf("update report job status: %w", err)
	}
	return nil
}

// ListByCreator returns a user's recent report jobs.
func (r *ReportRepository) ListByCreator(ctx context.Context, createdBy string, limit int) ([]models.ReportJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT id, type, params, status, result_url, created_by, created_at, finished_at, error_message
FROM report_jobs WHERE created_by = $1 ORDER BY created_at DESC LIMIT %d`, limit)
	var jobs []models.ReportJob
	if err := r.db.SelectContext(ctx, &jobs, query, createdBy); err != nil {
		return nil, fmt.Errorf("list report jobs: %w", err)
	}
	return jobs, nil
}
