package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceHadir AttendanceStatus = "HADIR"
	AttendanceSakit AttendanceStatus = "SAKIT"
	AttendanceIzin  AttendanceStatus = "IZIN"
	AttendanceAlpha AttendanceStatus = "ALPHA"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceHadir, AttendanceSakit, AttendanceIzin, AttendanceAlpha:
		return true
	default:
		return false
	}
}

// Attendance represents a single daily attendance row for a santri.
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	SantriID  string           `db:"santri_id" json:"santri_id"`
	HalaqahID string           `db:"halaqah_id" json:"halaqah_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Notes     *string          `db:"notes" json:"notes,omitempty"`
	MarkedBy  string           `db:"marked_by" json:"marked_by"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRecord extends the row with santri metadata for listings.
type AttendanceRecord struct {
	Attendance
	SantriName  string  `db:"santri_name" json:"santri_name"`
	HalaqahName *string `db:"halaqah_name" json:"halaqah_name,omitempty"`
}

// AttendanceFilter defines query filters.
type AttendanceFilter struct {
	HalaqahID string
	SantriID  string
	Status    *AttendanceStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// AttendanceSummary summarises counts for a santri over a range.
type AttendanceSummary struct {
	SantriID string  `json:"santri_id"`
	Hadir    int     `json:"hadir"`
	Sakit    int     `json:"sakit"`
	Izin     int     `json:"izin"`
	Alpha    int     `json:"alpha"`
	Total    int     `json:"total"`
	Rate     float64 `json:"rate"`
}
