package models

import "time"

// AdminDashboard is the school-wide overview for admin users.
type AdminDashboard struct {
	GeneratedAt     time.Time                `json:"generated_at"`
	ActiveSantri    int                      `json:"active_santri"`
	ActiveHalaqah   int                      `json:"active_halaqah"`
	AttendanceToday map[AttendanceStatus]int `json:"attendance_today"`
	GoalCounts      map[GoalStatus]int       `json:"goal_counts"`
	// ScoreDistribution buckets santri by character grade over the
	// trailing thirty days.
	ScoreDistribution map[string]int  `json:"score_distribution"`
	Billing           *BillingSummary `json:"billing,omitempty"`
}

// MusyrifHalaqahOverview is one circle's slice of the musyrif dashboard.
type MusyrifHalaqahOverview struct {
	Halaqah         Halaqah                  `json:"halaqah"`
	AttendanceToday map[AttendanceStatus]int `json:"attendance_today"`
	HafalanToday    int                      `json:"hafalan_today"`
	RecentBehavior  []BehaviorEvent          `json:"recent_behavior"`
}

// MusyrifDashboard summarises the circles a musyrif supervises.
type MusyrifDashboard struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Halaqah     []MusyrifHalaqahOverview `json:"halaqah"`
}

// WaliChildOverview is one child's slice of the wali dashboard.
type WaliChildOverview struct {
	Santri     Santri             `json:"santri"`
	Behavior   *BehaviorSummary   `json:"behavior,omitempty"`
	Hafalan    *HafalanProgress   `json:"hafalan,omitempty"`
	Attendance *AttendanceSummary `json:"attendance,omitempty"`
	Goals      map[GoalStatus]int `json:"goals,omitempty"`
}

// WaliDashboard shows a wali their children's progress and open bills.
type WaliDashboard struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Children    []WaliChildOverview `json:"children"`
	Billing     *BillingSummary     `json:"billing,omitempty"`
}
