package models

import "time"

// SystemMetrics is a lightweight aggregate snapshot for the admin analytics
// endpoint; the full series lives in Prometheus.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	BehaviorEventsRecorded   uint64    `json:"behavior_events_recorded"`
	GoalsCompleted           uint64    `json:"goals_completed"`
	InvoicesPaid             uint64    `json:"invoices_paid"`
	ReportsGenerated         uint64    `json:"reports_generated"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
