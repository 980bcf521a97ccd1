package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-api/internal/models"
	"github.com/noah-isme/tahfidz-api/internal/scoring"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
)

type fakeBehaviorRepo struct {
	events   map[string]*models.BehaviorEvent
	byPeriod map[string][]models.BehaviorEvent
	created  *models.BehaviorEvent
	archived string
}

func newFakeBehaviorRepo() *fakeBehaviorRepo {
	return &fakeBehaviorRepo{
		events:   map[string]*models.BehaviorEvent{},
		byPeriod: map[string][]models.BehaviorEvent{},
	}
}

func periodKey(from time.Time) string {
	return from.Format(time.RFC3339)
}

func (f *fakeBehaviorRepo) List(_ context.Context, _ models.BehaviorFilter) ([]models.BehaviorEvent, int, error) {
	out := make([]models.BehaviorEvent, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (f *fakeBehaviorRepo) ListForPeriod(_ context.Context, _ string, from, _ time.Time) ([]models.BehaviorEvent, error) {
	return f.byPeriod[periodKey(from)], nil
}

func (f *fakeBehaviorRepo) FindByID(_ context.Context, id string) (*models.BehaviorEvent, error) {
	event, ok := f.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *event
	return &copied, nil
}

func (f *fakeBehaviorRepo) Create(_ context.Context, event *models.BehaviorEvent) error {
	event.ID = "evt-new"
	f.created = event
	f.events[event.ID] = event
	return nil
}

func (f *fakeBehaviorRepo) UpdateFollowUp(_ context.Context, event *models.BehaviorEvent) error {
	f.events[event.ID] = event
	return nil
}

func (f *fakeBehaviorRepo) SetRecordStatus(_ context.Context, id string, status models.BehaviorRecordStatus) error {
	f.archived = id
	if e, ok := f.events[id]; ok {
		e.RecordStatus = status
	}
	return nil
}

func TestBehaviorServiceRecordEnforcesPolaritySign(t *testing.T) {
	tests := []struct {
		name     string
		polarity models.BehaviorPolarity
		points   int
		wantErr  bool
	}{
		{"positive with positive points", models.PolarityPositive, 5, false},
		{"positive with zero points", models.PolarityPositive, 0, false},
		{"positive with negative points", models.PolarityPositive, -1, true},
		{"negative with negative points", models.PolarityNegative, -3, false},
		{"negative with positive points", models.PolarityNegative, 2, true},
		{"neutral with zero points", models.PolarityNeutral, 0, false},
		{"neutral with nonzero points", models.PolarityNeutral, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeBehaviorRepo()
			svc := NewBehaviorService(repo, scoring.DefaultPolicy, nil, nil)
			_, err := svc.Record(context.Background(), RecordBehaviorRequest{
				SantriID:    "santri-1",
				Category:    string(models.CategoryAkhlaq),
				Polarity:    string(tt.polarity),
				Points:      tt.points,
				Description: "Observed during halaqah",
				OccurredAt:  time.Now().UTC(),
				RecordedBy:  "musyrif-1",
			})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, repo.created)
			assert.Equal(t, models.BehaviorRecordActive, repo.created.RecordStatus)
		})
	}
}

func TestBehaviorServiceRecordRejectsUnknownCategory(t *testing.T) {
	svc := NewBehaviorService(newFakeBehaviorRepo(), scoring.DefaultPolicy, nil, nil)
	_, err := svc.Record(context.Background(), RecordBehaviorRequest{
		SantriID:    "santri-1",
		Category:    "BRAVERY",
		Polarity:    string(models.PolarityPositive),
		Points:      2,
		Description: "Unknown category",
		OccurredAt:  time.Now().UTC(),
		RecordedBy:  "musyrif-1",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestBehaviorServiceSummaryComputesScoreAndTrend(t *testing.T) {
	repo := newFakeBehaviorRepo()
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	previousFrom := from.Add(-to.Sub(from))

	repo.byPeriod[periodKey(from)] = []models.BehaviorEvent{
		{Category: models.CategoryAkhlaq, Polarity: models.PolarityPositive, Points: 5},
		{Category: models.CategoryDiscipline, Polarity: models.PolarityNegative, Points: -3},
		{Category: models.CategoryIbadah, Polarity: models.PolarityPositive, Points: 4},
	}
	repo.byPeriod[periodKey(previousFrom)] = []models.BehaviorEvent{
		{Category: models.CategoryAkhlaq, Polarity: models.PolarityNegative, Points: -2},
	}

	svc := NewBehaviorService(repo, scoring.DefaultPolicy, nil, nil)
	summary, err := svc.Summary(context.Background(), "santri-1", from, to)
	require.NoError(t, err)

	assert.Equal(t, "santri-1", summary.SantriID)
	assert.Equal(t, 6, summary.TotalPoints)
	assert.InDelta(t, 56.0, summary.BehaviorScore, 0.001)
	require.NotNil(t, summary.Trend)
	assert.InDelta(t, 48.0, summary.Trend.PreviousScore, 0.001)
	assert.Equal(t, models.TrendImproving, summary.Trend.Direction)
}

func TestBehaviorServiceSummaryEmptyPeriodsAreStable(t *testing.T) {
	repo := newFakeBehaviorRepo()
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	svc := NewBehaviorService(repo, scoring.DefaultPolicy, nil, nil)
	summary, err := svc.Summary(context.Background(), "santri-1", from, to)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalRecords)
	assert.InDelta(t, 50.0, summary.BehaviorScore, 0.001)
	require.NotNil(t, summary.Trend)
	assert.Equal(t, models.TrendStable, summary.Trend.Direction)
}

func TestBehaviorServiceSummaryValidatesInput(t *testing.T) {
	svc := NewBehaviorService(newFakeBehaviorRepo(), scoring.DefaultPolicy, nil, nil)

	_, err := svc.Summary(context.Background(), "", time.Now(), time.Now())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	now := time.Now()
	_, err = svc.Summary(context.Background(), "santri-1", now, now.Add(-time.Hour))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestBehaviorServiceArchive(t *testing.T) {
	repo := newFakeBehaviorRepo()
	repo.events["evt-1"] = &models.BehaviorEvent{ID: "evt-1", RecordStatus: models.BehaviorRecordActive}
	svc := NewBehaviorService(repo, scoring.DefaultPolicy, nil, nil)

	require.NoError(t, svc.Archive(context.Background(), "evt-1"))
	assert.Equal(t, "evt-1", repo.archived)

	err := svc.Archive(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestBehaviorServiceUpdateFollowUp(t *testing.T) {
	repo := newFakeBehaviorRepo()
	repo.events["evt-1"] = &models.BehaviorEvent{ID: "evt-1", Description: "Skipped halaqah"}
	svc := NewBehaviorService(repo, scoring.DefaultPolicy, nil, nil)

	due := time.Now().UTC().AddDate(0, 0, 7)
	notes := "Speak with wali"
	event, err := svc.UpdateFollowUp(context.Background(), "evt-1", FollowUpRequest{
		FollowUpNeeded:  true,
		FollowUpDueDate: &due,
		FollowUpNotes:   &notes,
	})
	require.NoError(t, err)
	assert.True(t, event.FollowUpNeeded)
	assert.Equal(t, "Skipped halaqah", event.Description)
}
