package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/tahfidz-api/internal/models"
)

const behaviorColumns = `id, santri_id, category, polarity, points, description, occurred_at, recorded_by,
follow_up_needed, follow_up_due_date, follow_up_notes, record_status, created_at, updated_at`

// BehaviorRepository manages persistence for behaviour events.
type BehaviorRepository struct {
	db *sqlx.DB
}

// NewBehaviorRepository constructs a new repository.
func NewBehaviorRepository(db *sqlx.DB) *BehaviorRepository {
	return &BehaviorRepository{db: db}
}

// List returns behaviour events per provided filter.
func (r *BehaviorRepository) List(ctx context.Context, filter models.BehaviorFilter) ([]models.BehaviorEvent, int, error) {
	base := "FROM behavior_events"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.SantriID != "" {
		where = append(where, fmt.Sprintf("santri_id = $%d", len(args)+1))
		args = append(args, filter.SantriID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("occurred_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("occurred_at <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if len(filter.Categories) > 0 {
		values := make([]string, len(filter.Categories))
		for i, c := range filter.Categories {
			values[i] = string(c)
		}
		where = append(where, fmt.Sprintf("category = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(values))
	}
	if filter.Polarity != nil {
		where = append(where, fmt.Sprintf("polarity = $%d", len(args)+1))
		args = append(args, *filter.Polarity)
	}
	if filter.RecordStatus != nil {
		where = append(where, fmt.Sprintf("record_status = $%d", len(args)+1))
		args = append(args, *filter.RecordStatus)
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
	query := fmt.Sprintf(`SELECT %s
%s WHERE %s ORDER BY occurred_at DESC, created_at DESC LIMIT %d OFFSET %d`, behaviorColumns, base, whereClause, size, offset)
	var events []models.BehaviorEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list behavior events: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count behavior events: %w", err)
	}
	return events, total, nil
}

// ListForPeriod returns active events for one santri inside a window, the
// shape the score aggregator consumes. The window is half-open [from, to) so
// adjacent periods never share a boundary event.
func (r *BehaviorRepository) ListForPeriod(ctx context.Context, santriID string, from, to time.Time) ([]models.BehaviorEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM behavior_events
WHERE santri_id = $1 AND occurred_at >= $2 AND occurred_at < $3 AND record_status = $4
ORDER BY occurred_at ASC`, behaviorColumns)
	var events []models.BehaviorEvent
	if err := r.db.SelectContext(ctx, &events, query, santriID, from, to, models.BehaviorRecordActive); err != nil {
		return nil, fmt.Errorf("list behavior events for period: %w", err)
	}
	return events, nil
}

// TotalPointsBySantri sums active event points per santri inside a window.
func (r *BehaviorRepository) TotalPointsBySantri(ctx context.Context, from, to time.Time) (map[string]int, error) {
	query := `SELECT santri_id, COALESCE(SUM(points), 0) FROM behavior_events
WHERE occurred_at >= $1 AND occurred_at <= $2 AND record_status = $3 GROUP BY santri_id`
	rows, err := r.db.QueryxContext(ctx, query, from, to, models.BehaviorRecordActive)
	if err != nil {
		return nil, fmt.Errorf("sum behavior points: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	totals := make(map[string]int)
	for rows.Next() {
		var santriID string
		var points int
		if err := rows.Scan(&santriID, &points); err != nil {
			return nil, fmt.Errorf("scan behavior points: %w", err)
		}
		totals[santriID] = points
	}
	return totals, rows.Err()
}

// ListRecentByHalaqah returns the latest active events for santri in one
// halaqah, newest first.
func (r *BehaviorRepository) ListRecentByHalaqah(ctx context.Context, halaqahID string, limit int) ([]models.BehaviorEvent, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT %s FROM behavior_events e
WHERE e.record_status = $1 AND e.santri_id IN (SELECT id FROM santri WHERE halaqah_id = $2)
ORDER BY e.occurred_at DESC, e.created_at DESC LIMIT %d`, prefixColumns(behaviorColumns, "e"), limit)
	var events []models.BehaviorEvent
	if err := r.db.SelectContext(ctx, &events, query, models.BehaviorRecordActive, halaqahID); err != nil {
		return nil, fmt.Errorf("list recent behavior events: %w", err)
	}
	return events, nil
}

func prefixColumns(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

// FindByID fetches a single event.
func (r *BehaviorRepository) FindByID(ctx context.Context, id string) (*models.BehaviorEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM behavior_events WHERE id = $1", behaviorColumns)
	var event models.BehaviorEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// Create inserts a new behaviour event.
func (r *BehaviorRepository) Create(ctx context.Context, event *models.BehaviorEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	if event.RecordStatus == "" {
		event.RecordStatus = models.BehaviorRecordActive
	}
	query := `INSERT INTO behavior_events (id, santri_id, category, polarity, points, description, occurred_at, recorded_by,
follow_up_needed, follow_up_due_date, follow_up_notes, record_status, created_at, updated_at)
VALUES (:id, :santri_id, :category, :polarity, :points, :description, :occurred_at, :recorded_by,
:follow_up_needed, :follow_up_due_date, :follow_up_notes, :record_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create behavior event: %w", err)
	}
	return nil
}

// UpdateFollowUp modifies only the follow-up fields; the event itself is
// immutable after creation.
func (r *BehaviorRepository) UpdateFollowUp(ctx context.Context, event *models.BehaviorEvent) error {
	event.UpdatedAt = time.Now().UTC()
	query := `UPDATE behavior_events SET follow_up_needed = :follow_up_needed, follow_up_due_date = :follow_up_due_date,
follow_up_notes = :follow_up_notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update behavior follow-up: %w", err)
	}
	return nil
}

// SetRecordStatus archives or restores an event.
func (r *BehaviorRepository) SetRecordStatus(ctx context.Context, id string, status models.BehaviorRecordStatus) error {
	query := "UPDATE behavior_events SET record_status = $1, updated_at = $2 WHERE id = $3"
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set behavior record status: %w", err)
	}
	return nil
}
