package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tahfidz-api/internal/models"
)

// AttendanceRepository manages persistence for attendance rows.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs a new repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// List returns attendance rows per provided filter with santri context.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	base := `FROM attendance a
JOIN santri s ON s.id = a.santri_id
LEFT JOIN halaqah h ON h.id = a.halaqah_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.HalaqahID != "" {
		where = append(where, fmt.Sprintf("a.halaqah_id = $%d", len(args)+1))
		args = append(args, filter.HalaqahID)
	}
	if filter.SantriID != "" {
		where = append(where, fmt.Sprintf("a.santri_id = $%d", len(args)+1))
		args = append(args, filter.SantriID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size
	query := fmt.Sprintf(`SELECT a.id, a.santri_id, a.halaqah_id, a.date, a.status, a.notes, a.marked_by, a.created_at, a.updated_at,
s.full_name AS santri_name, h.name AS halaqah_name
%s WHERE %s ORDER BY a.date DESC, s.full_name ASC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return records, total, nil
}

// BulkUpsert writes one session's attendance atomically, replacing any
// existing row for the same santri and date.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, rows []models.Attendance) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `INSERT INTO attendance (id, santri_id, halaqah_id, date, status, notes, marked_by, created_at, updated_at)
VALUES (:id, :santri_id, :halaqah_id, :date, :status, :notes, :marked_by, :created_at, :updated_at)
ON CONFLICT (santri_id, date) DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes,
marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range rows {
		row := &rows[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("upsert attendance row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance upsert: %w", err)
	}
	return nil
}

// Summary aggregates attendance counts for a santri over a range.
func (r *AttendanceRepository) Summary(ctx context.Context, santriID string, from, to time.Time) (*models.AttendanceSummary, error) {
	query := `SELECT
COALESCE(SUM(CASE WHEN status = 'HADIR' THEN 1 ELSE 0 END),0) AS hadir,
COALESCE(SUM(CASE WHEN status = 'SAKIT' THEN 1 ELSE 0 END),0) AS sakit,
COALESCE(SUM(CASE WHEN status = 'IZIN' THEN 1 ELSE 0 END),0) AS izin,
COALESCE(SUM(CASE WHEN status = 'ALPHA' THEN 1 ELSE 0 END),0) AS alpha,
COUNT(*) AS total
FROM attendance WHERE santri_id = $1 AND date >= $2 AND date <= $3`
	summary := models.AttendanceSummary{SantriID: santriID}
	if err := r.db.QueryRowxContext(ctx, query, santriID, from, to).
		Scan(&summary.Hadir, &summary.Sakit, &summary.Izin, &summary.Alpha, &summary.Total); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	if summary.Total > 0 {
		summary.Rate = float64(summary.Hadir) / float64(summary.Total)
	}
	return &summary, nil
}

// CountByStatusOn aggregates counts across a halaqah for one date.
func (r *AttendanceRepository) CountByStatusOn(ctx context.Context, halaqahID string, date time.Time) (map[models.AttendanceStatus]int, error) {
	where := "date = $1"
	args := []interface{}{date}
	if halaqahID != "" {
		where += " AND halaqah_id = $2"
		args = append(args, halaqahID)
	}
	rows, err := r.db.QueryxContext(ctx, fmt.Sprintf("SELECT status, COUNT(*) FROM attendance WHERE %s GROUP BY status", where), args...)
	if err != nil {
		return nil, fmt.Errorf("count attendance by status: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	counts := make(map[models.AttendanceStatus]int)
	for rows.Next() {
		var status models.AttendanceStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan attendance count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
