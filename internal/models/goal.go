package models

import (
	"math"
	"time"
)

// GoalStatus captures the lifecycle of a character goal.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "ACTIVE"
	GoalStatusCompleted GoalStatus = "COMPLETED"
	GoalStatusPaused    GoalStatus = "PAUSED"
	GoalStatusCancelled GoalStatus = "CANCELLED"
)

// Valid returns true when the status is a supported value.
func (s GoalStatus) Valid() bool {
	switch s {
	case GoalStatusActive, GoalStatusCompleted, GoalStatusPaused, GoalStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions may leave this status.
func (s GoalStatus) Terminal() bool {
	return s == GoalStatusCompleted || s == GoalStatusCancelled
}

// goalTransitions is the closed transition table. COMPLETED is reachable only
// through milestone completion, never via a manual status change.
var goalTransitions = map[GoalStatus][]GoalStatus{
	GoalStatusActive: {GoalStatusPaused, GoalStatusCancelled},
	GoalStatusPaused: {GoalStatusActive, GoalStatusCancelled},
}

// CanTransition validates a manual status change against the table.
func (s GoalStatus) CanTransition(to GoalStatus) bool {
	for _, allowed := range goalTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Milestone is one ordered step towards a character goal. Once completed it is
// immutable except for its evidence field.
type Milestone struct {
	ID          string     `db:"id" json:"id"`
	GoalID      string     `db:"goal_id" json:"goal_id"`
	Title       string     `db:"title" json:"title"`
	TargetDate  time.Time  `db:"target_date" json:"target_date"`
	Position    int        `db:"position" json:"position"`
	IsCompleted bool       `db:"is_completed" json:"is_completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	Evidence    *string    `db:"evidence" json:"evidence,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// CharacterGoal is a longer-horizon development objective for one santri.
// Goals are never physically deleted; cancellation is a status.
type CharacterGoal struct {
	ID          string           `db:"id" json:"id"`
	SantriID    string           `db:"santri_id" json:"santri_id"`
	Title       string           `db:"title" json:"title"`
	Description string           `db:"description" json:"description"`
	Category    BehaviorCategory `db:"category" json:"category"`
	StartDate   time.Time        `db:"start_date" json:"start_date"`
	TargetDate  time.Time        `db:"target_date" json:"target_date"`
	Status      GoalStatus       `db:"status" json:"status"`
	Progress    int              `db:"progress" json:"progress"`
	CreatedBy   string           `db:"created_by" json:"created_by"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`

	Milestones []Milestone `db:"-" json:"milestones"`
}

// ComputeProgress derives the percent-complete from milestone completion.
// A goal without milestones sits at 0.
func (g *CharacterGoal) ComputeProgress() int {
	if len(g.Milestones) == 0 {
		return 0
	}
	completed := 0
	for _, m := range g.Milestones {
		if m.IsCompleted {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(len(g.Milestones))))
}

// DaysRemaining returns ceil((targetDate - now) / 1 day); negative when the
// target date has passed.
func (g *CharacterGoal) DaysRemaining(now time.Time) int {
	return int(math.Ceil(g.TargetDate.Sub(now).Hours() / 24))
}

// IsOverdue reports whether an ACTIVE goal is past its target date. Completed
// and cancelled goals are never overdue.
func (g *CharacterGoal) IsOverdue(now time.Time) bool {
	return g.Status == GoalStatusActive && g.DaysRemaining(now) < 0
}

// GoalFilter allows listing goals.
type GoalFilter struct {
	SantriID string
	Status   *GoalStatus
	Category *BehaviorCategory
	Page     int
	PageSize int
}
