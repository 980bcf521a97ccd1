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

func newBehaviorMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func behaviorRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "santri_id", "category", "polarity", "points", "description", "occurred_at", "recorded_by",
		"follow_up_needed", "follow_up_due_date", "follow_up_notes", "record_status", "created_at", "updated_at",
	}).AddRow("evt-1", "santri-1", "AKHLAQ", "POSITIVE", 5, "Helped a younger santri", now, "musyrif-1",
		false, nil, nil, "ACTIVE", now, now)
}

func TestBehaviorRepositoryList(t *testing.T) {
	db, mock, cleanup := newBehaviorMock(t)
	defer cleanup()
	repo := NewBehaviorRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM behavior_events WHERE 1=1 AND santri_id = \\$1").
		WithArgs("santri-1").
		WillReturnRows(behaviorRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM behavior_events WHERE 1=1 AND santri_id = \\$1").
		WithArgs("santri-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	events, total, err := repo.List(context.Background(), models.BehaviorFilter{SantriID: "santri-1"})
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.CategoryAkhlaq, events[0].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBehaviorRepositoryListForPeriod(t *testing.T) {
	db, mock, cleanup := newBehaviorMock(t)
	defer cleanup()
	repo := NewBehaviorRepository(db)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	// The upper bound must stay exclusive: an event timestamped exactly at a
	// period boundary belongs to the later window only.
	mock.ExpectQuery("SELECT (.+) FROM behavior_events\\s+WHERE santri_id = \\$1 AND occurred_at >= \\$2 AND occurred_at < \\$3 AND record_status = \\$4").
		WithArgs("santri-1", from, to, models.BehaviorRecordActive).
		WillReturnRows(behaviorRows())

	events, err := repo.ListForPeriod(context.Background(), "santri-1", from, to)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBehaviorRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newBehaviorMock(t)
	defer cleanup()
	repo := NewBehaviorRepository(db)

	mock.ExpectExec("INSERT INTO behavior_events").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &models.BehaviorEvent{
		SantriID:    "santri-1",
		Category:    models.CategoryIbadah,
		Polarity:    models.PolarityPositive,
		Points:      3,
		Description: "Led the prayer",
		OccurredAt:  time.Now().UTC(),
		RecordedBy:  "musyrif-1",
	}
	err := repo.Create(context.Background(), event)
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, models.BehaviorRecordActive, event.RecordStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBehaviorRepositorySetRecordStatus(t *testing.T) {
	db, mock, cleanup := newBehaviorMock(t)
	defer cleanup()
	repo := NewBehaviorRepository(db)

	mock.ExpectExec("UPDATE behavior_events SET record_status").
		WithArgs(models.BehaviorRecordArchived, sqlmock.AnyArg(), "evt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetRecordStatus(context.Background(), "evt-1", models.BehaviorRecordArchived)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
