package models

import "time"

// BehaviorCategory is the closed set of character domains a behaviour event
// can be recorded under. Adding a category is a code change, not data.
type BehaviorCategory string

const (
	CategoryAkhlaq     BehaviorCategory = "AKHLAQ"
	CategoryIbadah     BehaviorCategory = "IBADAH"
	CategoryAcademic   BehaviorCategory = "ACADEMIC"
	CategorySocial     BehaviorCategory = "SOCIAL"
	CategoryDiscipline BehaviorCategory = "DISCIPLINE"
	CategoryLeadership BehaviorCategory = "LEADERSHIP"
)

// BehaviorCategories lists every supported category in a stable order.
var BehaviorCategories = []BehaviorCategory{
	CategoryAkhlaq,
	CategoryIbadah,
	CategoryAcademic,
	CategorySocial,
	CategoryDiscipline,
	CategoryLeadership,
}

// Valid returns true when the category is a supported value.
func (c BehaviorCategory) Valid() bool {
	switch c {
	case CategoryAkhlaq, CategoryIbadah, CategoryAcademic, CategorySocial, CategoryDiscipline, CategoryLeadership:
		return true
	default:
		return false
	}
}

// BehaviorPolarity classifies an event as positive, negative or neutral.
type BehaviorPolarity string

const (
	PolarityPositive BehaviorPolarity = "POSITIVE"
	PolarityNegative BehaviorPolarity = "NEGATIVE"
	PolarityNeutral  BehaviorPolarity = "NEUTRAL"
)

// Valid returns true when the polarity is a supported value.
func (p BehaviorPolarity) Valid() bool {
	switch p {
	case PolarityPositive, PolarityNegative, PolarityNeutral:
		return true
	default:
		return false
	}
}

// AgreesWith checks the polarity/points sign invariant: positive events carry
// points >= 0, negative events points <= 0, neutral events exactly 0.
func (p BehaviorPolarity) AgreesWith(points int) bool {
	switch p {
	case PolarityPositive:
		return points >= 0
	case PolarityNegative:
		return points <= 0
	case PolarityNeutral:
		return points == 0
	default:
		return false
	}
}

// BehaviorRecordStatus soft-archives events instead of deleting them.
type BehaviorRecordStatus string

const (
	BehaviorRecordActive   BehaviorRecordStatus = "ACTIVE"
	BehaviorRecordArchived BehaviorRecordStatus = "ARCHIVED"
)

// BehaviorEvent is one observed incident of santri conduct. Immutable after
// creation except for the follow-up fields and the record status.
type BehaviorEvent struct {
	ID              string               `db:"id" json:"id"`
	SantriID        string               `db:"santri_id" json:"santri_id"`
	Category        BehaviorCategory     `db:"category" json:"category"`
	Polarity        BehaviorPolarity     `db:"polarity" json:"polarity"`
	Points          int                  `db:"points" json:"points"`
	Description     string               `db:"description" json:"description"`
	OccurredAt      time.Time            `db:"occurred_at" json:"occurred_at"`
	RecordedBy      string               `db:"recorded_by" json:"recorded_by"`
	FollowUpNeeded  bool                 `db:"follow_up_needed" json:"follow_up_needed"`
	FollowUpDueDate *time.Time           `db:"follow_up_due_date" json:"follow_up_due_date,omitempty"`
	FollowUpNotes   *string              `db:"follow_up_notes" json:"follow_up_notes,omitempty"`
	RecordStatus    BehaviorRecordStatus `db:"record_status" json:"record_status"`
	CreatedAt       time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `db:"updated_at" json:"updated_at"`
}

// BehaviorFilter allows listing events.
type BehaviorFilter struct {
	SantriID     string
	DateFrom     *time.Time
	DateTo       *time.Time
	Categories   []BehaviorCategory
	Polarity     *BehaviorPolarity
	RecordStatus *BehaviorRecordStatus
	Page         int
	PageSize     int
}

// CategoryBreakdown aggregates events that share a category.
type CategoryBreakdown struct {
	Count      int `json:"count"`
	Points     int `json:"points"`
	Percentage int `json:"percentage"`
}

// TrendDirection marks period-over-period score movement.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)

// BehaviorTrend compares the current period score with the preceding one.
type BehaviorTrend struct {
	PreviousScore   float64        `json:"previous_score"`
	TrendPercentage float64        `json:"trend_percentage"`
	Direction       TrendDirection `json:"direction"`
}

// BehaviorSummary is a derived aggregate over a date range for one santri.
// It is never stored; it is recomputed from events on every read.
type BehaviorSummary struct {
	SantriID      string                                 `json:"santri_id"`
	PeriodStart   time.Time                              `json:"period_start"`
	PeriodEnd     time.Time                              `json:"period_end"`
	TotalRecords  int                                    `json:"total_records"`
	PositiveCount int                                    `json:"positive_count"`
	NegativeCount int                                    `json:"negative_count"`
	NeutralCount  int                                    `json:"neutral_count"`
	TotalPoints   int                                    `json:"total_points"`
	AveragePoints float64                                `json:"average_points"`
	ByCategory    map[BehaviorCategory]CategoryBreakdown `json:"by_category"`
	BehaviorScore float64                                `json:"behavior_score"`
	Grade         string                                 `json:"character_grade"`
	Trend         *BehaviorTrend                         `json:"trend,omitempty"`
}
