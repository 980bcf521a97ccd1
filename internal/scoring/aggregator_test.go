package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tahfidz-api/internal/models"
)

func testPeriod() Period {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

func event(polarity models.BehaviorPolarity, points int, category models.BehaviorCategory) models.BehaviorEvent {
	return models.BehaviorEvent{
		SantriID:   "santri-1",
		Category:   category,
		Polarity:   polarity,
		Points:     points,
		OccurredAt: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
	}
}

func TestSummarizeMixedEvents(t *testing.T) {
	events := []models.BehaviorEvent{
		event(models.PolarityPositive, 5, models.CategoryAkhlaq),
		event(models.PolarityNegative, -3, models.CategoryDiscipline),
	}

	summary := DefaultPolicy.Summarize(events, testPeriod())

	assert.Equal(t, 2, summary.TotalRecords)
	assert.Equal(t, 1, summary.PositiveCount)
	assert.Equal(t, 1, summary.NegativeCount)
	assert.Equal(t, 0, summary.NeutralCount)
	assert.Equal(t, 2, summary.TotalPoints)
	assert.InDelta(t, 1.0, summary.AveragePoints, 1e-9)
	assert.InDelta(t, 52.0, summary.BehaviorScore, 1e-9)
}

func TestSummarizeEmptyInput(t *testing.T) {
	summary := DefaultPolicy.Summarize(nil, testPeriod())

	assert.Equal(t, 0, summary.TotalRecords)
	assert.Equal(t, 0, summary.PositiveCount)
	assert.Equal(t, 0, summary.NegativeCount)
	assert.Equal(t, 0, summary.NeutralCount)
	assert.Zero(t, summary.AveragePoints)
	assert.InDelta(t, 50.0, summary.BehaviorScore, 1e-9)
	assert.Equal(t, "D", summary.Grade)
	assert.Empty(t, summary.ByCategory)
}

func TestSummarizeCountAdditivity(t *testing.T) {
	events := []models.BehaviorEvent{
		event(models.PolarityPositive, 2, models.CategoryIbadah),
		event(models.PolarityPositive, 4, models.CategoryIbadah),
		event(models.PolarityNeutral, 0, models.CategorySocial),
		event(models.PolarityNegative, -1, models.CategoryDiscipline),
		event(models.PolarityNeutral, 0, models.CategoryAcademic),
	}

	summary := DefaultPolicy.Summarize(events, testPeriod())

	assert.Equal(t, summary.TotalRecords, summary.PositiveCount+summary.NegativeCount+summary.NeutralCount)
	assert.Equal(t, 5, summary.TotalRecords)
}

func TestSummarizeScoreBounded(t *testing.T) {
	cases := []struct {
		name   string
		points int
		want   float64
	}{
		{"heavy positive clamps to 100", 90, 100},
		{"heavy negative clamps to 0", -90, 0},
		{"moderate maps linearly", 12, 62},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events := []models.BehaviorEvent{event(polarityFor(tc.points), tc.points, models.CategoryAkhlaq)}
			summary := DefaultPolicy.Summarize(events, testPeriod())
			assert.GreaterOrEqual(t, summary.BehaviorScore, 0.0)
			assert.LessOrEqual(t, summary.BehaviorScore, 100.0)
			assert.InDelta(t, tc.want, summary.BehaviorScore, 1e-9)
		})
	}
}

func polarityFor(points int) models.BehaviorPolarity {
	switch {
	case points > 0:
		return models.PolarityPositive
	case points < 0:
		return models.PolarityNegative
	default:
		return models.PolarityNeutral
	}
}

func TestSummarizeCategoryBreakdown(t *testing.T) {
	events := []models.BehaviorEvent{
		event(models.PolarityPositive, 3, models.CategoryAkhlaq),
		event(models.PolarityPositive, 2, models.CategoryAkhlaq),
		event(models.PolarityNegative, -2, models.CategoryDiscipline),
	}

	summary := DefaultPolicy.Summarize(events, testPeriod())

	require.Contains(t, summary.ByCategory, models.CategoryAkhlaq)
	require.Contains(t, summary.ByCategory, models.CategoryDiscipline)

	akhlaq := summary.ByCategory[models.CategoryAkhlaq]
	assert.Equal(t, 2, akhlaq.Count)
	assert.Equal(t, 5, akhlaq.Points)
	assert.Equal(t, 67, akhlaq.Percentage)

	discipline := summary.ByCategory[models.CategoryDiscipline]
	assert.Equal(t, 1, discipline.Count)
	assert.Equal(t, -2, discipline.Points)
	assert.Equal(t, 33, discipline.Percentage)
}

func TestGradeBreakpoints(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{100, "A+"},
		{95, "A+"},
		{94.9, "A"},
		{90, "A"},
		{89.9, "A-"},
		{85, "A-"},
		{80, "B+"},
		{75, "B"},
		{70, "B-"},
		{69.9, "C"},
		{60, "C"},
		{59.9, "D"},
		{0, "D"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Grade(tc.score), "score %.1f", tc.score)
	}
}

func TestCompareTrendDirections(t *testing.T) {
	cases := []struct {
		name     string
		current  float64
		previous float64
		want     models.TrendDirection
	}{
		{"clear improvement", 60, 50, models.TrendImproving},
		{"clear decline", 40, 50, models.TrendDeclining},
		{"within threshold up", 52, 50, models.TrendStable},
		{"within threshold down", 48, 50, models.TrendStable},
		{"just over threshold", 52.1, 50, models.TrendImproving},
		{"unchanged", 50, 50, models.TrendStable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trend := DefaultPolicy.CompareTrend(tc.current, tc.previous)
			assert.Equal(t, tc.want, trend.Direction)
			assert.Equal(t, tc.previous, trend.PreviousScore)
		})
	}
}

func TestCompareTrendPercentage(t *testing.T) {
	trend := DefaultPolicy.CompareTrend(60, 50)
	assert.InDelta(t, 20.0, trend.TrendPercentage, 1e-9)

	zero := DefaultPolicy.CompareTrend(60, 0)
	assert.Zero(t, zero.TrendPercentage)
}

func TestPeriodPrevious(t *testing.T) {
	p := Period{
		Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	prev := p.Previous()
	assert.Equal(t, p.Start, prev.End)
	assert.Equal(t, p.End.Sub(p.Start), prev.End.Sub(prev.Start))
}

func TestCustomPolicyBaseline(t *testing.T) {
	policy := Policy{Baseline: 70, StabilityThreshold: 5}
	summary := policy.Summarize(nil, testPeriod())
	assert.InDelta(t, 70.0, summary.BehaviorScore, 1e-9)
	assert.Equal(t, "B-", summary.Grade)
}
