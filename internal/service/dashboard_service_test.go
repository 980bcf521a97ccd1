package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-api/internal/models"
	"github.com/noah-isme/tahfidz-api/internal/scoring"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
)

type fakeDashSantri struct {
	active   int
	children []models.Santri
}

func (f *fakeDashSantri) CountActive(_ context.Context) (int, error) { return f.active, nil }

func (f *fakeDashSantri) ListByWali(_ context.Context, _ string) ([]models.Santri, error) {
	return f.children, nil
}

type fakeDashHalaqah struct {
	total   int
	circles []models.Halaqah
}

func (f *fakeDashHalaqah) List(_ context.Context, _ models.HalaqahFilter) ([]models.HalaqahDetail, int, error) {
	return nil, f.total, nil
}

func (f *fakeDashHalaqah) FindByMusyrif(_ context.Context, _ string) ([]models.Halaqah, error) {
	return f.circles, nil
}

type fakeDashAttendance struct {
	counts map[models.AttendanceStatus]int
}

func (f *fakeDashAttendance) CountByStatusOn(_ context.Context, _ string, _ time.Time) (map[models.AttendanceStatus]int, error) {
	return f.counts, nil
}

func (f *fakeDashAttendance) Summary(_ context.Context, santriID string, _, _ time.Time) (*models.AttendanceSummary, error) {
	return &models.AttendanceSummary{SantriID: santriID, Hadir: 20, Total: 22}, nil
}

type fakeDashHafalan struct{}

func (f *fakeDashHafalan) CountToday(_ context.Context, _ string, _ time.Time) (int, error) {
	return 4, nil
}

func (f *fakeDashHafalan) Progress(_ context.Context, santriID string) (*models.HafalanProgress, error) {
	return &models.HafalanProgress{SantriID: santriID, TotalAyah: 120}, nil
}

type fakeDashGoals struct {
	bySantri map[string]map[models.GoalStatus]int
}

func (f *fakeDashGoals) CountByStatus(_ context.Context, santriID string) (map[models.GoalStatus]int, error) {
	return f.bySantri[santriID], nil
}

type fakeDashBilling struct{}

func (f *fakeDashBilling) BillingSummary(_ context.Context, _ string) (*models.BillingSummary, error) {
	return &models.BillingSummary{TotalInvoices: 3, UnpaidCount: 1, UnpaidAmount: 150000}, nil
}

type fakeDashBehavior struct{}

func (f *fakeDashBehavior) Summary(_ context.Context, santriID string, _, _ time.Time) (*models.BehaviorSummary, error) {
	return &models.BehaviorSummary{SantriID: santriID}, nil
}

type fakeDashEvents struct {
	points map[string]int
	recent []models.BehaviorEvent
}

func (f *fakeDashEvents) TotalPointsBySantri(_ context.Context, _, _ time.Time) (map[string]int, error) {
	return f.points, nil
}

func (f *fakeDashEvents) ListRecentByHalaqah(_ context.Context, _ string, _ int) ([]models.BehaviorEvent, error) {
	return f.recent, nil
}

func newDashboardFixture(santri *fakeDashSantri, halaqah *fakeDashHalaqah, goals *fakeDashGoals, events *fakeDashEvents) *DashboardService {
	return NewDashboardService(
		santri, halaqah,
		&fakeDashAttendance{counts: map[models.AttendanceStatus]int{models.AttendanceHadir: 10}},
		&fakeDashHafalan{}, goals, &fakeDashBilling{}, &fakeDashBehavior{}, events,
		scoring.DefaultPolicy, nil, 0, nil,
	)
}

func TestDashboardServiceAdmin(t *testing.T) {
	goals := &fakeDashGoals{bySantri: map[string]map[models.GoalStatus]int{
		"": {models.GoalStatusActive: 7},
	}}
	events := &fakeDashEvents{points: map[string]int{"santri-1": 50, "santri-2": -60}}
	svc := newDashboardFixture(&fakeDashSantri{active: 42}, &fakeDashHalaqah{total: 3}, goals, events)

	dashboard, cacheHit, err := svc.Admin(context.Background())
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 42, dashboard.ActiveSantri)
	assert.Equal(t, 3, dashboard.ActiveHalaqah)
	assert.Equal(t, 10, dashboard.AttendanceToday[models.AttendanceHadir])
	assert.Equal(t, 7, dashboard.GoalCounts[models.GoalStatusActive])
	assert.Equal(t, 1, dashboard.ScoreDistribution["A+"])
	assert.Equal(t, 1, dashboard.ScoreDistribution["D"])
	require.NotNil(t, dashboard.Billing)
	assert.Equal(t, 3, dashboard.Billing.TotalInvoices)
}

func TestDashboardServiceMusyrif(t *testing.T) {
	halaqah := &fakeDashHalaqah{circles: []models.Halaqah{{ID: "circle-1", Name: "Al-Fatih"}}}
	events := &fakeDashEvents{recent: []models.BehaviorEvent{{ID: "ev-1", SantriID: "santri-1"}}}
	svc := newDashboardFixture(&fakeDashSantri{}, halaqah, &fakeDashGoals{}, events)

	dashboard, cacheHit, err := svc.Musyrif(context.Background(), "musyrif-1")
	require.NoError(t, err)
	assert.False(t, cacheHit)
	require.Len(t, dashboard.Halaqah, 1)
	overview := dashboard.Halaqah[0]
	assert.Equal(t, "circle-1", overview.Halaqah.ID)
	assert.Equal(t, 10, overview.AttendanceToday[models.AttendanceHadir])
	assert.Equal(t, 4, overview.HafalanToday)
	require.Len(t, overview.RecentBehavior, 1)
	assert.Equal(t, "ev-1", overview.RecentBehavior[0].ID)
}

func TestDashboardServiceMusyrifRequiresUserID(t *testing.T) {
	svc := newDashboardFixture(&fakeDashSantri{}, &fakeDashHalaqah{}, &fakeDashGoals{}, &fakeDashEvents{})
	_, _, err := svc.Musyrif(context.Background(), "")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestDashboardServiceWaliAggregatesChildren(t *testing.T) {
	santri := &fakeDashSantri{children: []models.Santri{
		{ID: "child-1", FullName: "Ahmad"},
		{ID: "child-2", FullName: "Fatimah"},
	}}
	goals := &fakeDashGoals{bySantri: map[string]map[models.GoalStatus]int{
		"child-1": {models.GoalStatusActive: 2},
		"child-2": {models.GoalStatusCompleted: 1},
	}}
	svc := newDashboardFixture(santri, &fakeDashHalaqah{}, goals, &fakeDashEvents{})

	dashboard, cacheHit, err := svc.Wali(context.Background(), "wali-1")
	require.NoError(t, err)
	assert.False(t, cacheHit)
	require.Len(t, dashboard.Children, 2)

	first := dashboard.Children[0]
	assert.Equal(t, "child-1", first.Santri.ID)
	require.NotNil(t, first.Behavior)
	require.NotNil(t, first.Hafalan)
	assert.Equal(t, 120, first.Hafalan.TotalAyah)
	require.NotNil(t, first.Attendance)
	assert.Equal(t, 2, first.Goals[models.GoalStatusActive])
	assert.Equal(t, 1, dashboard.Children[1].Goals[models.GoalStatusCompleted])

	// Billing is summed across both children.
	require.NotNil(t, dashboard.Billing)
	assert.Equal(t, 6, dashboard.Billing.TotalInvoices)
	assert.Equal(t, 2, dashboard.Billing.UnpaidCount)
	assert.Equal(t, int64(300000), dashboard.Billing.UnpaidAmount)
}
