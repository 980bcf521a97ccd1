package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-api/internal/models"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
)

type fakeGoalRepo struct {
	goals  map[string]*models.CharacterGoal
	saved  *models.CharacterGoal
	counts map[models.GoalStatus]int
}

func newFakeGoalRepo() *fakeGoalRepo {
	return &fakeGoalRepo{goals: map[string]*models.CharacterGoal{}}
}

func (f *fakeGoalRepo) Create(_ context.Context, goal *models.CharacterGoal) error {
	goal.ID = "goal-new"
	f.goals[goal.ID] = goal
	return nil
}

func (f *fakeGoalRepo) FindByID(_ context.Context, id string) (*models.CharacterGoal, error) {
	goal, ok := f.goals[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *goal
	copied.Milestones = append([]models.Milestone(nil), goal.Milestones...)
	return &copied, nil
}

func (f *fakeGoalRepo) List(_ context.Context, _ models.GoalFilter) ([]models.CharacterGoal, int, error) {
	out := make([]models.CharacterGoal, 0, len(f.goals))
	for _, g := range f.goals {
		out = append(out, *g)
	}
	return out, len(out), nil
}

func (f *fakeGoalRepo) Save(_ context.Context, goal *models.CharacterGoal) error {
	f.saved = goal
	f.goals[goal.ID] = goal
	return nil
}

func (f *fakeGoalRepo) CountByStatus(_ context.Context, _ string) (map[models.GoalStatus]int, error) {
	return f.counts, nil
}

type fakeAuditWriter struct {
	entries []*models.AuditLog
}

func (f *fakeAuditWriter) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.entries = append(f.entries, log)
	return nil
}

func seedGoal(repo *fakeGoalRepo, status models.GoalStatus, milestones ...models.Milestone) *models.CharacterGoal {
	goal := &models.CharacterGoal{
		ID:         "goal-1",
		SantriID:   "santri-1",
		Title:      "Consistent morning prayer",
		Category:   models.CategoryIbadah,
		StartDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		TargetDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:     status,
		CreatedBy:  "musyrif-1",
		Milestones: milestones,
	}
	goal.Progress = goal.ComputeProgress()
	repo.goals[goal.ID] = goal
	return goal
}

func TestGoalServiceCreateRejectsBadDates(t *testing.T) {
	svc := NewGoalService(newFakeGoalRepo(), nil, nil, nil)
	_, err := svc.Create(context.Background(), CreateGoalRequest{
		SantriID:   "santri-1",
		Title:      "Backwards goal",
		Category:   string(models.CategoryAkhlaq),
		StartDate:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		TargetDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy:  "musyrif-1",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestGoalServiceCreateStartsActiveWithZeroProgress(t *testing.T) {
	repo := newFakeGoalRepo()
	svc := NewGoalService(repo, nil, nil, nil)
	goal, err := svc.Create(context.Background(), CreateGoalRequest{
		SantriID:   "santri-1",
		Title:      "Memorise Juz 30",
		Category:   string(models.CategoryAcademic),
		StartDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		TargetDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy:  "musyrif-1",
		Milestones: []CreateMilestoneRequest{{Title: "An-Naba"}, {Title: "An-Naziat"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.GoalStatusActive, goal.Status)
	assert.Equal(t, 0, goal.Progress)
	assert.Len(t, goal.Milestones, 2)
}

func TestGoalServiceCompleteMilestoneRecomputesProgress(t *testing.T) {
	repo := newFakeGoalRepo()
	seedGoal(repo, models.GoalStatusActive,
		models.Milestone{ID: "m-1", GoalID: "goal-1", Title: "Week one", CreatedAt: time.Now()},
		models.Milestone{ID: "m-2", GoalID: "goal-1", Title: "Week two", CreatedAt: time.Now()},
		models.Milestone{ID: "m-3", GoalID: "goal-1", Title: "Week three", CreatedAt: time.Now()},
	)
	svc := NewGoalService(repo, nil, nil, nil)

	goal, err := svc.CompleteMilestone(context.Background(), "goal-1", "m-1", CompleteMilestoneRequest{Evidence: "prayed on time all week"})
	require.NoError(t, err)
	assert.Equal(t, 33, goal.Progress)
	assert.Equal(t, models.GoalStatusActive, goal.Status)
	require.NotNil(t, repo.saved)
	assert.True(t, repo.saved.Milestones[0].IsCompleted)
	assert.NotNil(t, repo.saved.Milestones[0].CompletedAt)
	require.NotNil(t, repo.saved.Milestones[0].Evidence)
	assert.Equal(t, "prayed on time all week", *repo.saved.Milestones[0].Evidence)
}

func TestGoalServiceCompletingLastMilestoneCompletesGoal(t *testing.T) {
	repo := newFakeGoalRepo()
	now := time.Now().UTC()
	seedGoal(repo, models.GoalStatusActive,
		models.Milestone{ID: "m-1", GoalID: "goal-1", Title: "Week one", IsCompleted: true, CompletedAt: &now, CreatedAt: now},
		models.Milestone{ID: "m-2", GoalID: "goal-1", Title: "Week two", CreatedAt: now},
	)
	audit := &fakeAuditWriter{}
	svc := NewGoalService(repo, audit, nil, nil)

	goal, err := svc.CompleteMilestone(context.Background(), "goal-1", "m-2", CompleteMilestoneRequest{Evidence: "musyrif observation"})
	require.NoError(t, err)
	assert.Equal(t, 100, goal.Progress)
	assert.Equal(t, models.GoalStatusCompleted, goal.Status)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionGoalStatus, audit.entries[0].Action)
}

func TestGoalServiceCompleteMilestoneErrors(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name        string
		status      models.GoalStatus
		milestoneID string
		evidence    string
		want        *appErrors.Error
	}{
		{"unknown milestone", models.GoalStatusActive, "m-missing", "seen", appErrors.ErrNotFound},
		{"paused goal", models.GoalStatusPaused, "m-2", "seen", appErrors.ErrInvalidState},
		{"already completed milestone", models.GoalStatusActive, "m-1", "seen", appErrors.ErrInvalidState},
		{"missing evidence", models.GoalStatusActive, "m-2", "  ", appErrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeGoalRepo()
			seedGoal(repo, tt.status,
				models.Milestone{ID: "m-1", GoalID: "goal-1", Title: "Done", IsCompleted: true, CompletedAt: &now, CreatedAt: now},
				models.Milestone{ID: "m-2", GoalID: "goal-1", Title: "Pending", CreatedAt: now},
			)
			svc := NewGoalService(repo, nil, nil, nil)
			_, err := svc.CompleteMilestone(context.Background(), "goal-1", tt.milestoneID, CompleteMilestoneRequest{Evidence: tt.evidence})
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, tt.want))
		})
	}
}

func TestGoalServiceAddMilestoneLowersProgress(t *testing.T) {
	repo := newFakeGoalRepo()
	now := time.Now().UTC()
	seedGoal(repo, models.GoalStatusActive,
		models.Milestone{ID: "m-1", GoalID: "goal-1", Title: "Done", IsCompleted: true, CompletedAt: &now, CreatedAt: now},
	)
	svc := NewGoalService(repo, nil, nil, nil)

	goal, err := svc.AddMilestone(context.Background(), "goal-1", CreateMilestoneRequest{Title: "One more"})
	require.NoError(t, err)
	assert.Len(t, goal.Milestones, 2)
	assert.Equal(t, 50, goal.Progress)
	assert.Equal(t, 1, goal.Milestones[1].Position)
}

func TestGoalServiceAddMilestoneRejectsNonActive(t *testing.T) {
	repo := newFakeGoalRepo()
	seedGoal(repo, models.GoalStatusCancelled)
	svc := NewGoalService(repo, nil, nil, nil)

	_, err := svc.AddMilestone(context.Background(), "goal-1", CreateMilestoneRequest{Title: "Too late"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
}

func TestGoalServiceChangeStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    models.GoalStatus
		to      models.GoalStatus
		wantErr *appErrors.Error
	}{
		{"active to paused", models.GoalStatusActive, models.GoalStatusPaused, nil},
		{"paused to active", models.GoalStatusPaused, models.GoalStatusActive, nil},
		{"active to cancelled", models.GoalStatusActive, models.GoalStatusCancelled, nil},
		{"paused to cancelled", models.GoalStatusPaused, models.GoalStatusCancelled, nil},
		{"active to completed is not manual", models.GoalStatusActive, models.GoalStatusCompleted, appErrors.ErrInvalidTransition},
		{"cancelled is terminal", models.GoalStatusCancelled, models.GoalStatusActive, appErrors.ErrInvalidTransition},
		{"completed is terminal", models.GoalStatusCompleted, models.GoalStatusPaused, appErrors.ErrInvalidTransition},
		{"cancelled to cancelled is not a noop", models.GoalStatusCancelled, models.GoalStatusCancelled, appErrors.ErrInvalidTransition},
		{"completed to completed is not a noop", models.GoalStatusCompleted, models.GoalStatusCompleted, appErrors.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeGoalRepo()
			seedGoal(repo, tt.from)
			audit := &fakeAuditWriter{}
			svc := NewGoalService(repo, audit, nil, nil)

			goal, err := svc.ChangeStatus(context.Background(), "goal-1", tt.to, "admin-1")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, appErrors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, goal.Status)
			assert.Len(t, audit.entries, 1)
		})
	}
}

func TestGoalServiceChangeStatusNoopForSameStatus(t *testing.T) {
	repo := newFakeGoalRepo()
	seedGoal(repo, models.GoalStatusActive)
	audit := &fakeAuditWriter{}
	svc := NewGoalService(repo, audit, nil, nil)

	goal, err := svc.ChangeStatus(context.Background(), "goal-1", models.GoalStatusActive, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.GoalStatusActive, goal.Status)
	assert.Nil(t, repo.saved)
	assert.Empty(t, audit.entries)
}

func TestGoalServiceGetNotFound(t *testing.T) {
	svc := NewGoalService(newFakeGoalRepo(), nil, nil, nil)
	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
