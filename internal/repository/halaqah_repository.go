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

// HalaqahRepository manages persistence for teaching circles.
type HalaqahRepository struct {
	db *sqlx.DB
}

// NewHalaqahRepository constructs a new repository.
func NewHalaqahRepository(db *sqlx.DB) *HalaqahRepository {
	return &HalaqahRepository{db: db}
}

// List returns halaqah per provided filter with roster counts.
func (r *HalaqahRepository) List(ctx context.Context, filter models.HalaqahFilter) ([]models.HalaqahDetail, int, error) {
	base := `FROM halaqah h
LEFT JOIN users u ON u.id = h.musyrif_user_id`
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("h.name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.MusyrifUserID != "" {
		where = append(where, fmt.Sprintf("h.musyrif_user_id = $%d", len(args)+1))
		args = append(args, filter.MusyrifUserID)
	}
	if filter.Active != nil {
		where = append(where, fmt.Sprintf("h.active = $%d", len(args)+1))
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
	query := fmt.Sprintf(`SELECT h.id, h.name, h.musyrif_user_id, h.capacity, h.schedule, h.room, h.active, h.created_at, h.updated_at,
u.full_name AS musyrif_name,
(SELECT COUNT(*) FROM santri s WHERE s.halaqah_id = h.id AND s.active = TRUE) AS santri_count
%s WHERE %s ORDER BY h.name ASC LIMIT %d OFFSET %d`, base, whereClause, size, offset)
	var halaqah []models.HalaqahDetail
	if err := r.db.SelectContext(ctx, &halaqah, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list halaqah: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count halaqah: %w", err)
	}
	return halaqah, total, nil
}

// FindByID fetches a single halaqah.
func (r *HalaqahRepository) FindByID(ctx context.Context, id string) (*models.Halaqah, error) {
	var halaqah models.Halaqah
	query := `SELECT id, name, musyrif_user_id, capacity, schedule, room, active, created_at, updated_at FROM halaqah WHERE id = $1`
	if err := r.db.GetContext(ctx, &halaqah, query, id); err != nil {
		return nil, err
	}
	return &halaqah, nil
}

// FindByMusyrif returns the active halaqah supervised by a musyrif user.
func (r *HalaqahRepository) FindByMusyrif(ctx context.Context, musyrifUserID string) ([]models.Halaqah, error) {
	var halaqah []models.Halaqah
	query := `SELECT id, name, musyrif_user_id, capacity, schedule, room, active, created_at, updated_at
FROM halaqah WHERE musyrif_user_id = $1 AND active = TRUE ORDER BY name ASC`
	if err := r.db.SelectContext(ctx, &halaqah, query, musyrifUserID); err != nil {
		return nil, fmt.Errorf("list halaqah by musyrif: %w", err)
	}
	return halaqah, nil
}

// Create inserts a new halaqah.
func (r *HalaqahRepository) Create(ctx context.Context, halaqah *models.Halaqah) error {
	if halaqah.ID == "" {
		halaqah.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	halaqah.CreatedAt = now
	halaqah.UpdatedAt = now
	query := `INSERT INTO halaqah (id, name, musyrif_user_id, capacity, schedule, room, active, created_at, updated_at)
VALUES (:id, :name, :musyrif_user_id, :capacity, :schedule, :room, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, halaqah); err != nil {
		return fmt.Errorf("create halaqah: %w", err)
	}
	return nil
}

// Update modifies an existing halaqah.
func (r *HalaqahRepository) Update(ctx context.Context, halaqah *models.Halaqah) error {
	halaqah.UpdatedAt = time.Now().UTC()
	query := `UPDATE halaqah SET name = :name, musyrif_user_id = :musyrif_user_id, capacity = :capacity,
schedule = :schedule, room = :room, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, halaqah); err != nil {
		return fmt.Errorf("update halaqah: %w", err)
	}
	return nil
}
