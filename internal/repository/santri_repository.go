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

// SantriRepository manages persistence for santri records.
type SantriRepository struct {
	db *sqlx.DB
}

// NewSantriRepository constructs a new repository.
func NewSantriRepository(db *sqlx.DB) *SantriRepository {
	return &SantriRepository{db: db}
}

// List returns santri per provided filter with halaqah context.
func (r *SantriRepository) List(ctx context.Context, filter models.SantriFilter) ([]models.SantriDetail, int, error) {
	base := `FROM santri s
LEFT JOIN halaqah h ON h.id = s.halaqah_id
LEFT JOIN users mu ON mu.id = h.musyrif_user_id
LEFT JOIN users wu ON wu.id = s.wali_user_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(s.full_name ILIKE $%d OR s.nis ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.HalaqahID != "" {
		where = append(where, fmt.Sprintf("s.halaqah_id = $%d", len(args)+1))
		args = append(args, filter.HalaqahID)
	}
	if filter.WaliUserID != "" {
		where = append(where, fmt.Sprintf("s.wali_user_id = $%d", len(args)+1))
		args = append(args, filter.WaliUserID)
	}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	whereClause := strings.Join(where, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size
	query := fmt.Sprintf(`SELECT s.id, s.nis, s.full_name, s.gender, s.birth_date, s.address, s.phone,
s.wali_user_id, s.halaqah_id, s.enrolled_at, s.active, s.created_at, s.updated_at,
h.name AS halaqah_name, mu.full_name AS musyrif_name, wu.full_name AS wali_name
%s WHERE %s ORDER BY s.full_name ASC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var santri []models.SantriDetail
	if err := r.db.SelectContext(ctx, &santri, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list santri: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count santri: %w", err)
	}
	return santri, total, nil
}

// FindByID fetches a single santri.
func (r *SantriRepository) FindByID(ctx context.Context, id string) (*models.Santri, error) {
	var santri models.Santri
	query := `SELECT id, nis, full_name, gender, birth_date, address, phone, wali_user_id, halaqah_id, enrolled_at, active, created_at, updated_at
FROM santri WHERE id = $1`
	if err := r.db.GetContext(ctx, &santri, query, id); err != nil {
		return nil, err
	}
	return &santri, nil
}

// ListByWali returns active santri linked to a wali user.
func (r *SantriRepository) ListByWali(ctx context.Context, waliUserID string) ([]models.Santri, error) {
	var santri []models.Santri
	query := `SELECT id, nis, full_name, gender, birth_date, address, phone, wali_user_id, halaqah_id, enrolled_at, active, created_at, updated_at
FROM santri WHERE wali_user_id = $1 AND active = TRUE ORDER BY full_name ASC`
	if err := r.db.SelectContext(ctx, &santri, query, waliUserID); err != nil {
		return nil, fmt.Errorf("list santri by wali: %w", err)
	}
	return santri, nil
}

// Create inserts a new santri.
func (r *SantriRepository) Create(ctx context.Context, santri *models.Santri) error {
	if santri.ID == "" {
		santri.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	santri.CreatedAt = now
	santri.UpdatedAt = now
	if santri.EnrolledAt.IsZero() {
		santri.EnrolledAt = now
	}
	query := `INSERT INTO santri (id, nis, full_name, gender, birth_date, address, phone, wali_user_id, halaqah_id, enrolled_at, active, created_at, updated_at)
VALUES (:id, :nis, :full_name, :gender, :birth_date, :address, :phone, :wali_user_id, :halaqah_id, :enrolled_at, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, santri); err != nil {
		return fmt.Errorf("create santri: %w", err)
	}
	return nil
}

// Update modifies an existing santri.
func (r *SantriRepository) Update(ctx context.Context, santri *models.Santri) error {
	santri.UpdatedAt = time.Now().UTC()
	query := `UPDATE santri SET nis = :nis, full_name = :full_name, gender = :gender, birth_date = :birth_date,
address = :address, phone = :phone, wali_user_id = :wali_user_id, halaqah_id = :halaqah_id, active = :active, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, santri); err != nil {
		return fmt.Errorf("update santri: %w", err)
	}
	return nil
}

// CountActive returns the number of active santri.
func (r *SantriRepository) CountActive(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM santri WHERE active = TRUE"); err != nil {
		return 0, fmt.Errorf("count active santri: %w", err)
	}
	return total, nil
}
