// Package scoring reduces behaviour events into normalized scores, letter
// grades and period-over-period trends. Every function here is a pure
// computation over its inputs: no I/O, no shared state, safe for concurrent
// readers.
package scoring

import (
	"math"
	"time"

	"github.com/noah-isme/tahfidz-api/internal/models"
)

// Policy tunes the score mapping. The mapping must stay monotonic: more
// positive points raise the score, more negative points lower it.
type Policy struct {
	// Baseline is the score of a santri with zero recorded points.
	Baseline int
	// StabilityThreshold is the band (in score points) within which
	// period-over-period movement still counts as stable.
	StabilityThreshold float64
}

// DefaultPolicy anchors the score at a neutral midpoint of 50 and treats
// movements of two points or less as stable.
var DefaultPolicy = Policy{Baseline: 50, StabilityThreshold: 2}

// Period is the contiguous half-open range [Start, End) a summary covers.
type Period struct {
	Start time.Time
	End   time.Time
}

// Previous returns the immediately preceding period of equal length. Because
// periods are half-open, the previous window ends where this one starts and
// an event at the boundary instant falls into exactly one of them.
func (p Period) Previous() Period {
	length := p.End.Sub(p.Start)
	return Period{Start: p.Start.Add(-length), End: p.Start}
}

// gradeBreakpoints is the closed, ordered grade table. Ties resolve to the
// higher grade: a score of exactly 90 reads "A", not "A-".
var gradeBreakpoints = []struct {
	min   float64
	grade string
}{
	{95, "A+"},
	{90, "A"},
	{85, "A-"},
	{80, "B+"},
	{75, "B"},
	{70, "B-"},
	{60, "C"},
}

// Grade maps a 0-100 behaviour score onto a letter grade.
func Grade(score float64) string {
	for _, bp := range gradeBreakpoints {
		if score >= bp.min {
			return bp.grade
		}
	}
	return "D"
}

// Score applies the policy mapping clamp(baseline + totalPoints, 0, 100).
func (p Policy) Score(totalPoints int) float64 {
	return clamp(float64(p.Baseline+totalPoints), 0, 100)
}

// Summarize reduces a pre-filtered event set over a period into a summary.
// The caller is responsible for restricting events to one santri and to the
// period; Summarize does not filter. An empty event set yields a defined
// summary (score at baseline) rather than an error or NaN.
func (p Policy) Summarize(events []models.BehaviorEvent, period Period) models.BehaviorSummary {
	summary := models.BehaviorSummary{
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		ByCategory:  make(map[models.BehaviorCategory]models.CategoryBreakdown),
	}

	for _, e := range events {
		summary.TotalRecords++
		summary.TotalPoints += e.Points
		switch e.Polarity {
		case models.PolarityPositive:
			summary.PositiveCount++
		case models.PolarityNegative:
			summary.NegativeCount++
		default:
			summary.NeutralCount++
		}
		breakdown := summary.ByCategory[e.Category]
		breakdown.Count++
		breakdown.Points += e.Points
		summary.ByCategory[e.Category] = breakdown
	}

	if summary.TotalRecords > 0 {
		summary.AveragePoints = float64(summary.TotalPoints) / float64(summary.TotalRecords)
		for category, breakdown := range summary.ByCategory {
			// Percentages are rounded independently per category and are not
			// reconciled to sum to exactly 100.
			breakdown.Percentage = int(math.Round(100 * float64(breakdown.Count) / float64(summary.TotalRecords)))
			summary.ByCategory[category] = breakdown
		}
	}

	summary.BehaviorScore = p.Score(summary.TotalPoints)
	summary.Grade = Grade(summary.BehaviorScore)
	return summary
}

// CompareTrend classifies the movement from the previous period's score to
// the current one. Exactly one direction applies.
func (p Policy) CompareTrend(current, previous float64) models.BehaviorTrend {
	trend := models.BehaviorTrend{PreviousScore: previous}
	if previous != 0 {
		trend.TrendPercentage = round2(100 * (current - previous) / previous)
	}
	switch {
	case current > previous+p.StabilityThreshold:
		trend.Direction = models.TrendImproving
	case current < previous-p.StabilityThreshold:
		trend.Direction = models.TrendDeclining
	default:
		trend.Direction = models.TrendStable
	}
	return trend
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
