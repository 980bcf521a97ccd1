package models

import "time"

// HafalanType classifies a memorization session.
type HafalanType string

const (
	HafalanSetoran  HafalanType = "SETORAN"
	HafalanMurojaah HafalanType = "MUROJAAH"
	HafalanTasmi    HafalanType = "TASMI"
)

// Valid returns true when the type is a supported value.
func (t HafalanType) Valid() bool {
	switch t {
	case HafalanSetoran, HafalanMurojaah, HafalanTasmi:
		return true
	default:
		return false
	}
}

// Hafalan records one evaluated memorization session.
type Hafalan struct {
	ID          string      `db:"id" json:"id"`
	SantriID    string      `db:"santri_id" json:"santri_id"`
	Type        HafalanType `db:"type" json:"type"`
	Surah       string      `db:"surah" json:"surah"`
	SurahNumber int         `db:"surah_number" json:"surah_number"`
	AyahStart   int         `db:"ayah_start" json:"ayah_start"`
	AyahEnd     int         `db:"ayah_end" json:"ayah_end"`
	Grade       string      `db:"grade" json:"grade"`
	Score       int         `db:"score" json:"score"`
	Notes       *string     `db:"notes" json:"notes,omitempty"`
	EvaluatedBy string      `db:"evaluated_by" json:"evaluated_by"`
	RecordedAt  time.Time   `db:"recorded_at" json:"recorded_at"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// HafalanFilter defines query filters.
type HafalanFilter struct {
	SantriID string
	Type     *HafalanType
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

// HafalanProgress summarises memorization progress for one santri.
type HafalanProgress struct {
	SantriID      string     `json:"santri_id"`
	TotalSessions int        `json:"total_sessions"`
	TotalAyah     int        `json:"total_ayah"`
	AverageScore  float64    `json:"average_score"`
	LastSurah     *string    `json:"last_surah,omitempty"`
	LastRecorded  *time.Time `json:"last_recorded,omitempty"`
	JuzCompleted  float64    `json:"juz_completed"`
}
