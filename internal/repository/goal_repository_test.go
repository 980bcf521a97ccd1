package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-api/internal/models"
)

func newGoalMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestGoalRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newGoalMock(t)
	defer cleanup()
	repo := NewGoalRepository(db)

	now := time.Now()
	goalRows := sqlmock.NewRows([]string{
		"id", "santri_id", "title", "description", "category", "start_date", "target_date",
		"status", "progress", "created_by", "created_at", "updated_at",
	}).AddRow("goal-1", "santri-1", "Daily adab", "Practice greetings", "AKHLAQ", now, now.AddDate(0, 3, 0),
		"ACTIVE", 50, "musyrif-1", now, now)
	milestoneRows := sqlmock.NewRows([]string{
		"id", "goal_id", "title", "target_date", "position", "is_completed", "completed_at", "evidence", "created_at",
	}).
		AddRow("m-1", "goal-1", "Week one", now, 0, true, now, "Observed daily", now).
		AddRow("m-2", "goal-1", "Week two", now, 1, false, nil, nil, now)

	mock.ExpectQuery("SELECT (.+) FROM character_goals WHERE id = \\$1").
		WithArgs("goal-1").
		WillReturnRows(goalRows)
	mock.ExpectQuery("SELECT (.+) FROM goal_milestones WHERE goal_id = \\$1 ORDER BY position ASC").
		WithArgs("goal-1").
		WillReturnRows(milestoneRows)

	goal, err := repo.FindByID(context.Background(), "goal-1")
	require.NoError(t, err)
	require.Len(t, goal.Milestones, 2)
	assert.Equal(t, "m-1", goal.Milestones[0].ID)
	assert.True(t, goal.Milestones[0].IsCompleted)
	assert.False(t, goal.Milestones[1].IsCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalRepositoryCreateWithMilestones(t *testing.T) {
	db, mock, cleanup := newGoalMock(t)
	defer cleanup()
	repo := NewGoalRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO character_goals").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO goal_milestones").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO goal_milestones").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	goal := &models.CharacterGoal{
		SantriID:   "santri-1",
		Title:      "Memorise daily dua",
		Category:   models.CategoryIbadah,
		StartDate:  time.Now().UTC(),
		TargetDate: time.Now().UTC().AddDate(0, 2, 0),
		Status:     models.GoalStatusActive,
		CreatedBy:  "musyrif-1",
		Milestones: []models.Milestone{
			{Title: "Morning dua"},
			{Title: "Evening dua"},
		},
	}
	err := repo.Create(context.Background(), goal)
	require.NoError(t, err)
	assert.NotEmpty(t, goal.ID)
	assert.Equal(t, goal.ID, goal.Milestones[0].GoalID)
	assert.Equal(t, 1, goal.Milestones[1].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGoalRepositorySaveUpdatesMilestones(t *testing.T) {
	db, mock, cleanup := newGoalMock(t)
	defer cleanup()
	repo := NewGoalRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE character_goals SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE goal_milestones SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	now := time.Now().UTC()
	evidence := "Photo attached"
	goal := &models.CharacterGoal{
		ID:       "goal-1",
		Status:   models.GoalStatusActive,
		Progress: 100,
		Milestones: []models.Milestone{
			{ID: "m-1", GoalID: "goal-1", IsCompleted: true, CompletedAt: &now, Evidence: &evidence, CreatedAt: now},
		},
	}
	err := repo.Save(context.Background(), goal)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
