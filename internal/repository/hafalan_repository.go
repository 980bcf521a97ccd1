package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tahfidz-api/internal/models"
)

// The Quran holds 6236 ayah across 30 juz; used for the rough juz progress figure.
const ayahPerJuz = 6236.0 / 30.0

// HafalanRepository manages persistence for memorization evaluations.
type HafalanRepository struct {
	db *sqlx.DB
}

// NewHafalanRepository constructs a new repository.
func NewHafalanRepository(db *sqlx.DB) *HafalanRepository {
	return &HafalanRepository{db: db}
}

// List returns hafalan rows per provided filter.
func (r *HafalanRepository) List(ctx context.Context, filter models.HafalanFilter) ([]models.Hafalan, int, error) {
	base := "FROM hafalan"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.SantriID != "" {
		where = append(where, fmt.Sprintf("santri_id = $%d", len(args)+1))
		args = append(args, filter.SantriID)
	}
	if filter.Type != nil {
		where = append(where, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("recorded_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("recorded_at <= $%d", len(args)+1))
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
	query := fmt.Sprintf(`SELECT id, santri_id, type, surah, surah_number, ayah_start, ayah_end, grade, score, notes, evaluated_by, recorded_at, created_at, updated_at
%s WHERE %s ORDER BY recorded_at DESC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var records []models.Hafalan
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list hafalan: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count hafalan: %w", err)
	}
	return records, total, nil
}

// Create inserts a new hafalan record.
func (r *HafalanRepository) Create(ctx context.Context, hafalan *models.Hafalan) error {
	if hafalan.ID == "" {
		hafalan.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	hafalan.CreatedAt = now
	hafalan.UpdatedAt = now
	if hafalan.RecordedAt.IsZero() {
		hafalan.RecordedAt = now
	}
	query := `INSERT INTO hafalan (id, santri_id, type, surah, surah_number, ayah_start, ayah_end, grade, score, notes, evaluated_by, recorded_at, created_at, updated_at)
VALUES (:id, :santri_id, :type, :surah, :surah_number, :ayah_start, :ayah_end, :grade, :score, :notes, :evaluated_by, :recorded_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, hafalan); err != nil {
		return fmt.Errorf("create hafalan: %w", err)
	}
	return nil
}

// Update modifies an existing hafalan record.
func (r *HafalanRepository) Update(ctx context.Context, hafalan *models.Hafalan) error {
	hafalan.UpdatedAt = time.Now().UTC()
	query := `UPDATE hafalan SET type = :type, surah = :surah, surah_number = :surah_number, ayah_start = :ayah_start,
ayah_end = :ayah_end, grade = :grade, score = :score, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, hafalan); err != nil {
		return fmt.Errorf("update hafalan: %w", err)
	}
	return nil
}

// Progress summarises memorization progress for a santri. Only SETORAN
// sessions count toward new memorization; murojaah reviews existing material.
func (r *HafalanRepository) Progress(ctx context.Context, santriID string) (*models.HafalanProgress, error) {
	query := `SELECT COUNT(*) AS total_sessions,
COALESCE(SUM(CASE WHEN type = 'SETORAN' THEN ayah_end - ayah_start + 1 ELSE 0 END),0) AS total_ayah,
COALESCE(AVG(score),0) AS average_score
FROM hafalan WHERE santri_id = $1`
	progress := models.HafalanProgress{SantriID: santriID}
	if err := r.db.QueryRowxContext(ctx, query, santriID).
		Scan(&progress.TotalSessions, &progress.TotalAyah, &progress.AverageScore); err != nil {
		return nil, fmt.Errorf("hafalan progress: %w", err)
	}
	progress.JuzCompleted = float64(progress.TotalAyah) / ayahPerJuz

	var lastSurah sql.NullString
	var lastRecorded sql.NullTime
	lastQuery := `SELECT surah, recorded_at FROM hafalan WHERE santri_id = $1 ORDER BY recorded_at DESC LIMIT 1`
	err := r.db.QueryRowxContext(ctx, lastQuery, santriID).Scan(&lastSurah, &lastRecorded)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("hafalan last record: %w", err)
	}
	if lastSurah.Valid {
		progress.LastSurah = &lastSurah.String
	}
	if lastRecorded.Valid {
		progress.LastRecorded = &lastRecorded.Time
	}
	return &progress, nil
}

// CountPendingToday counts sessions not yet evaluated today for a musyrif's
// halaqah roster, feeding the musyrif dashboard.
func (r *HafalanRepository) CountToday(ctx context.Context, halaqahID string, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	query := `SELECT COUNT(*) FROM hafalan hf JOIN santri s ON s.id = hf.santri_id
WHERE s.halaqah_id = $1 AND hf.recorded_at >= $2 AND hf.recorded_at < $3`
	var total int
	if err := r.db.GetContext(ctx, &total, query, halaqahID, start, end); err != nil {
		return 0, fmt.Errorf("count hafalan today: %w", err)
	}
	return total, nil
}
