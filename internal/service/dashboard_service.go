package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/tahfidz-api/internal/models"
	"github.com/noah-isme/tahfidz-api/internal/scoring"
	appErrors "github.com/noah-isme/tahfidz-api/pkg/errors"
)

type dashboardSantriRepo interface {
	CountActive(ctx context.Context) (int, error)
	ListByWali(ctx context.Context, waliUserID string) ([]models.Santri, error)
}

type dashboardHalaqahRepo interface {
	List(ctx context.Context, filter models.HalaqahFilter) ([]models.HalaqahDetail, int, error)
	FindByMusyrif(ctx context.Context, musyrifUserID string) ([]models.Halaqah, error)
}

type dashboardAttendanceRepo interface {
	CountByStatusOn(ctx context.Context, halaqahID string, date time.Time) (map[models.AttendanceStatus]int, error)
	Summary(ctx context.Context, santriID string, from, to time.Time) (*models.AttendanceSummary, error)
}

type dashboardHafalanRepo interface {
	CountToday(ctx context.Context, halaqahID string, day time.Time) (int, error)
	Progress(ctx context.Context, santriID string) (*models.HafalanProgress, error)
}

type dashboardGoalRepo interface {
	CountByStatus(ctx context.Context, santriID string) (map[models.GoalStatus]int, error)
}

type dashboardBillingRepo interface {
	BillingSummary(ctx context.Context, santriID string) (*models.BillingSummary, error)
}

type behaviorSummarizer interface {
	Summary(ctx context.Context, santriID string, from, to time.Time) (*models.BehaviorSummary, error)
}

type dashboardBehaviorRepo interface {
	TotalPointsBySantri(ctx context.Context, from, to time.Time) (map[string]int, error)
	ListRecentByHalaqah(ctx context.Context, halaqahID string, limit int) ([]models.BehaviorEvent, error)
}

// DashboardService assembles role-specific overviews. Payloads are cached in
// Redis for a short TTL; a cache hit is reported to the caller so the handler
// can surface it in response meta.
type DashboardService struct {
	santri     dashboardSantriRepo
	halaqah    dashboardHalaqahRepo
	attendance dashboardAttendanceRepo
	hafalan    dashboardHafalanRepo
	goals      dashboardGoalRepo
	billing    dashboardBillingRepo
	behavior   behaviorSummarizer
	events     dashboardBehaviorRepo

	policy   scoring.Policy
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardService constructs the service. cache may be nil, disabling
// caching entirely.
func NewDashboardService(
	santri dashboardSantriRepo,
	halaqah dashboardHalaqahRepo,
	attendance dashboardAttendanceRepo,
	hafalan dashboardHafalanRepo,
	goals dashboardGoalRepo,
	billing dashboardBillingRepo,
	behavior behaviorSummarizer,
	events dashboardBehaviorRepo,
	policy scoring.Policy,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		santri: santri, halaqah: halaqah, attendance: attendance, hafalan: hafalan,
		goals: goals, billing: billing, behavior: behavior, events: events,
		policy: policy, cache: cache, cacheTTL: cacheTTL, logger: logger,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Admin builds the school-wide dashboard.
func (s *DashboardService) Admin(ctx context.Context) (*models.AdminDashboard, bool, error) {
	key := "dashboard:admin"
	var cached models.AdminDashboard
	if s.readCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	now := s.now()
	dashboard := &models.AdminDashboard{GeneratedAt: now}

	activeSantri, err := s.santri.CountActive(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count santri")
	}
	dashboard.ActiveSantri = activeSantri

	active := true
	_, halaqahCount, err := s.halaqah.List(ctx, models.HalaqahFilter{Active: &active, PageSize: 1})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count halaqah")
	}
	dashboard.ActiveHalaqah = halaqahCount

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	attendance, err := s.attendance.CountByStatusOn(ctx, "", today)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	dashboard.AttendanceToday = attendance

	goalCounts, err := s.goals.CountByStatus(ctx, "")
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count goals")
	}
	dashboard.GoalCounts = goalCounts

	if s.events != nil {
		points, err := s.events.TotalPointsBySantri(ctx, now.AddDate(0, 0, -30), now)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum behavior points")
		}
		distribution := make(map[string]int)
		for _, total := range points {
			distribution[scoring.Grade(s.policy.Score(total))]++
		}
		dashboard.ScoreDistribution = distribution
	}

	if s.billing != nil {
		billing, err := s.billing.BillingSummary(ctx, "")
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise billing")
		}
		dashboard.Billing = billing
	}

	s.writeCache(ctx, key, dashboard)
	return dashboard, false, nil
}

// Musyrif builds the per-circle view for one musyrif user.
func (s *DashboardService) Musyrif(ctx context.Context, musyrifUserID string) (*models.MusyrifDashboard, bool, error) {
	if musyrifUserID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "musyrif user id is required")
	}
	key := "dashboard:musyrif:" + musyrifUserID
	var cached models.MusyrifDashboard
	if s.readCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	circles, err := s.halaqah.FindByMusyrif(ctx, musyrifUserID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list halaqah")
	}

	dashboard := &models.MusyrifDashboard{GeneratedAt: now, Halaqah: make([]models.MusyrifHalaqahOverview, 0, len(circles))}
	for _, circle := range circles {
		attendance, err := s.attendance.CountByStatusOn(ctx, circle.ID, today)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
		}
		hafalanToday, err := s.hafalan.CountToday(ctx, circle.ID, today)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count hafalan")
		}
		overview := models.MusyrifHalaqahOverview{
			Halaqah:         circle,
			AttendanceToday: attendance,
			HafalanToday:    hafalanToday,
		}
		if s.events != nil {
			recent, err := s.events.ListRecentByHalaqah(ctx, circle.ID, 5)
			if err != nil {
				return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recent behavior")
			}
			overview.RecentBehavior = recent
		}
		dashboard.Halaqah = append(dashboard.Halaqah, overview)
	}

	s.writeCache(ctx, key, dashboard)
	return dashboard, false, nil
}

// Wali builds the per-child view for one wali user, covering the trailing 30
// days of behaviour and attendance.
func (s *DashboardService) Wali(ctx context.Context, waliUserID string) (*models.WaliDashboard, bool, error) {
	if waliUserID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "wali user id is required")
	}
	key := "dashboard:wali:" + waliUserID
	var cached models.WaliDashboard
	if s.readCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	now := s.now()
	from := now.AddDate(0, 0, -30)
	children, err := s.santri.ListByWali(ctx, waliUserID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list children")
	}

	dashboard := &models.WaliDashboard{GeneratedAt: now, Children: make([]models.WaliChildOverview, 0, len(children))}
	for _, child := range children {
		overview := models.WaliChildOverview{Santri: child}
		if s.behavior != nil {
			behavior, err := s.behavior.Summary(ctx, child.ID, from, now)
			if err != nil {
				return nil, false, err
			}
			overview.Behavior = behavior
		}
		progress, err := s.hafalan.Progress(ctx, child.ID)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hafalan progress")
		}
		overview.Hafalan = progress
		attendance, err := s.attendance.Summary(ctx, child.ID, from, now)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
		}
		overview.Attendance = attendance
		goalCounts, err := s.goals.CountByStatus(ctx, child.ID)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count goals")
		}
		overview.Goals = goalCounts
		dashboard.Children = append(dashboard.Children, overview)
	}

	if s.billing != nil && len(children) > 0 {
		// One wali usually has one or two children; sum per child.
		total := &models.BillingSummary{}
		for _, child := range children {
			summary, err := s.billing.BillingSummary(ctx, child.ID)
			if err != nil {
				return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise billing")
			}
			total.TotalInvoices += summary.TotalInvoices
			total.UnpaidCount += summary.UnpaidCount
			total.PaidCount += summary.PaidCount
			total.UnpaidAmount += summary.UnpaidAmount
			total.PaidAmount += summary.PaidAmount
		}
		dashboard.Billing = total
	}

	s.writeCache(ctx, key, dashboard)
	return dashboard, false, nil
}

// Invalidate drops cached dashboards. Called after writes that would make the
// cached figures stale enough to matter.
func (s *DashboardService) Invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if len(keys) == 0 {
		keys = []string{"dashboard:admin"}
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func (s *DashboardService) readCache(ctx context.Context, key string, out interface{}) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Warn("dashboard cache payload corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *DashboardService) writeCache(ctx context.Context, key string, payload interface{}) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("dashboard cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// CacheKeyMusyrif formats the cache key for one musyrif's dashboard.
func CacheKeyMusyrif(userID string) string { return fmt.Sprintf("dashboard:musyrif:%s", userID) }

// CacheKeyWali formats the cache key for one wali's dashboard.
func CacheKeyWali(userID string) string { return fmt.Sprintf("dashboard:wali:%s", userID) }
