package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
	"github.com/noah-isme/tahfidz-api/pkg/jobs"
	"github.com/noah-isme/tahfidz-api/pkg/storage"
)

type fakeReportRepo struct {
	jobs map[string]*models.ReportJob
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{jobs: map[string]*models.ReportJob{}}
}

func (f *fakeReportRepo) Create(_ context.Context, job *models.ReportJob) error {
	copied := *job
	f.jobs[job.ID] = &copied
	return nil
}

func (f *fakeReportRepo) FindByID(_ context.Context, id string) (*models.ReportJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (f *fakeReportRepo) UpdateStatus(_ context.Context, id string, status models.ReportStatus, resultURL, errorMessage *string) error {
	job, ok := f.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = status
	job.ResultURL = resultURL
	job.ErrorMessage = errorMessage
	return nil
}

func (f *fakeReportRepo) ListByCreator(_ context.Context, createdBy string, _ int) ([]models.ReportJob, error) {
	out := []models.ReportJob{}
	for _, job := range f.jobs {
		if job.CreatedBy == createdBy {
			out = append(out, *job)
		}
	}
	return out, nil
}

type fakeBehaviorSource struct {
	events []models.BehaviorEvent
	err    error
}

func (f *fakeBehaviorSource) List(_ context.Context, _ models.BehaviorFilter) ([]models.BehaviorEvent, int, error) {
	return f.events, len(f.events), f.err
}

type fakeHafalanSource struct{}

func (f *fakeHafalanSource) List(_ context.Context, _ models.HafalanFilter) ([]models.Hafalan, int, error) {
	return nil, 0, nil
}

type fakeAttendanceSource struct{}

func (f *fakeAttendanceSource) List(_ context.Context, _ models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	return nil, 0, nil
}

type fakeReportMetrics struct {
	finished int
	failed   int
}

func (f *fakeReportMetrics) RecordReportFinished(outcome string) {
	if outcome == "finished" {
		f.finished++
	} else {
		f.failed++
	}
}

func newReportFixture(t *testing.T, behavior *fakeBehaviorSource) (*ReportService, *fakeReportRepo, *fakeReportMetrics) {
	t.Helper()
	repo := newFakeReportRepo()
	metrics := &fakeReportMetrics{}
	store, err := storage.NewReportStore(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewDownloadSigner("test-secret", time.Hour)
	svc := NewReportService(repo, behavior, &fakeHafalanSource{}, &fakeAttendanceSource{},
		store, signer, metrics, ReportServiceConfig{BaseURL: "/api/v1"}, nil)
	return svc, repo, metrics
}

func TestReportServiceRequestValidation(t *testing.T) {
	svc, _, _ := newReportFixture(t, &fakeBehaviorSource{})

	cases := []struct {
		name string
		req  RequestReportRequest
	}{
		{"unknown type", RequestReportRequest{Type: "grades", Format: "csv"}},
		{"unknown format", RequestReportRequest{Type: "behavior", Format: "xlsx"}},
		{"bad date from", RequestReportRequest{Type: "behavior", Format: "csv", DateFrom: "01-01-2026"}},
		{"bad date to", RequestReportRequest{Type: "behavior", Format: "csv", DateTo: "next week"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Request(context.Background(), tc.req)
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
		})
	}
}

func TestReportServiceRequestMarksFailedWhenWorkersDown(t *testing.T) {
	svc, repo, _ := newReportFixture(t, &fakeBehaviorSource{})

	_, err := svc.Request(context.Background(), RequestReportRequest{
		Type: "behavior", Format: "csv", CreatedBy: "admin-1",
	})
	require.Error(t, err)

	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
		require.NotNil(t, job.ErrorMessage)
	}
}

func TestReportServiceProcessBehaviorCSV(t *testing.T) {
	behavior := &fakeBehaviorSource{events: []models.BehaviorEvent{
		{SantriID: "santri-1", Category: models.CategoryAkhlaq, Polarity: models.PolarityPositive,
			Points: 5, Description: "helped a peer", OccurredAt: time.Now().UTC()},
	}}
	svc, repo, metrics := newReportFixture(t, behavior)

	job := &models.ReportJob{
		ID:     "job-1",
		Type:   models.ReportTypeBehavior,
		Status: models.ReportStatusQueued,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	}
	require.NoError(t, repo.Create(context.Background(), job))

	require.NoError(t, svc.process(context.Background(), jobs.Task{ID: "job-1"}))

	stored := repo.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, stored.Status)
	require.NotNil(t, stored.ResultURL)
	assert.True(t, strings.HasPrefix(*stored.ResultURL, "/api/v1/reports/download/"))
	assert.Equal(t, 1, metrics.finished)

	token := strings.TrimPrefix(*stored.ResultURL, "/api/v1/reports/download/")
	path, err := svc.Resolve(context.Background(), token)
	require.NoError(t, err)

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "santri-1")
	assert.Contains(t, string(payload), "helped a peer")
}

func TestReportServiceProcessFailureMarksJob(t *testing.T) {
	behavior := &fakeBehaviorSource{err: errors.New("db down")}
	svc, repo, metrics := newReportFixture(t, behavior)

	job := &models.ReportJob{
		ID:     "job-2",
		Type:   models.ReportTypeBehavior,
		Status: models.ReportStatusQueued,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	}
	require.NoError(t, repo.Create(context.Background(), job))

	err := svc.process(context.Background(), jobs.Task{ID: "job-2"})
	require.Error(t, err)

	stored := repo.jobs["job-2"]
	assert.Equal(t, models.ReportStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, 1, metrics.failed)
}

func TestReportServiceProcessSkipsFinishedJob(t *testing.T) {
	svc, repo, metrics := newReportFixture(t, &fakeBehaviorSource{})

	url := "/api/v1/reports/download/existing"
	job := &models.ReportJob{
		ID:        "job-3",
		Type:      models.ReportTypeBehavior,
		Status:    models.ReportStatusFinished,
		ResultURL: &url,
	}
	require.NoError(t, repo.Create(context.Background(), job))

	require.NoError(t, svc.process(context.Background(), jobs.Task{ID: "job-3"}))
	assert.Equal(t, 0, metrics.finished)
}

func TestReportServiceResolveRejectsBadToken(t *testing.T) {
	svc, _, _ := newReportFixture(t, &fakeBehaviorSource{})

	_, err := svc.Resolve(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
