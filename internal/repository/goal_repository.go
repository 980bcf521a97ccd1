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

const goalColumns = `id, santri_id, title, description, category, start_date, target_date, status, progress, created_by, created_at, updated_at`

const milestoneColumns = `id, goal_id, title, target_date, position, is_completed, completed_at, evidence, created_at`

// GoalRepository manages persistence for character goals and milestones.
type GoalRepository struct {
	db *sqlx.DB
}

// NewGoalRepository constructs a new repository.
func NewGoalRepository(db *sqlx.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

// Create inserts a goal together with its milestones in one transaction.
func (r *GoalRepository) Create(ctx context.Context, goal *models.CharacterGoal) error {
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	goal.CreatedAt = now
	goal.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin goal create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	goalQuery := `INSERT INTO character_goals (id, santri_id, title, description, category, start_date, target_date, status, progress, created_by, created_at, updated_at)
VALUES (:id, :santri_id, :title, :description, :category, :start_date, :target_date, :status, :progress, :created_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, goalQuery, goal); err != nil {
		return fmt.Errorf("create character goal: %w", err)
	}
	for i := range goal.Milestones {
		m := &goal.Milestones[i]
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.GoalID = goal.ID
		m.Position = i
		m.CreatedAt = now
		if err := insertMilestone(ctx, tx, m); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit goal create: %w", err)
	}
	return nil
}

// FindByID loads a goal with its milestones in insertion order.
func (r *GoalRepository) FindByID(ctx context.Context, id string) (*models.CharacterGoal, error) {
	var goal models.CharacterGoal
	query := fmt.Sprintf("SELECT %s FROM character_goals WHERE id = $1", goalColumns)
	if err := r.db.GetContext(ctx, &goal, query, id); err != nil {
		return nil, err
	}
	milestoneQuery := fmt.Sprintf("SELECT %s FROM goal_milestones WHERE goal_id = $1 ORDER BY position ASC", milestoneColumns)
	if err := r.db.SelectContext(ctx, &goal.Milestones, milestoneQuery, id); err != nil {
		return nil, fmt.Errorf("load goal milestones: %w", err)
	}
	return &goal, nil
}

// List returns goals per provided filter, milestones included.
func (r *GoalRepository) List(ctx context.Context, filter models.GoalFilter) ([]models.CharacterGoal, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.SantriID != "" {
		where = append(where, fmt.Sprintf("santri_id = $%d", len(args)+1))
		args = append(args, filter.SantriID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Category != nil {
		where = append(where, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, *filter.Category)
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
	query := fmt.Sprintf("SELECT %s FROM character_goals WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d", goalColumns, whereClause, size, offset)
	var goals []models.CharacterGoal
	if err := r.db.SelectContext(ctx, &goals, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list character goals: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM character_goals WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count character goals: %w", err)
	}
	milestoneQuery := fmt.Sprintf("SELECT %s FROM goal_milestones WHERE goal_id = $1 ORDER BY position ASC", milestoneColumns)
	for i := range goals {
		if err := r.db.SelectContext(ctx, &goals[i].Milestones, milestoneQuery, goals[i].ID); err != nil {
			return nil, 0, fmt.Errorf("load goal milestones: %w", err)
		}
	}
	return goals, total, nil
}

// Save persists goal status/progress plus any milestone mutations in a single
// transaction so that milestone completion, the progress recomputation and a
// possible auto-transition to COMPLETED are never observable separately.
func (r *GoalRepository) Save(ctx context.Context, goal *models.CharacterGoal) error {
	goal.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin goal save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	goalQuery := `UPDATE character_goals SET title = :title, description = :description, status = :status,
progress = :progress, target_date = :target_date, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, goalQuery, goal); err != nil {
		return fmt.Errorf("update character goal: %w", err)
	}
	for i := range goal.Milestones {
		m := &goal.Milestones[i]
		if m.CreatedAt.IsZero() {
			if m.ID == "" {
				m.ID = uuid.NewString()
			}
			m.GoalID = goal.ID
			m.Position = i
			m.CreatedAt = goal.UpdatedAt
			if err := insertMilestone(ctx, tx, m); err != nil {
				return err
			}
			continue
		}
		milestoneQuery := `UPDATE goal_milestones SET is_completed = :is_completed, completed_at = :completed_at,
evidence = :evidence WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, milestoneQuery, m); err != nil {
			return fmt.Errorf("update goal milestone: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit goal save: %w", err)
	}
	return nil
}

// CountByStatus aggregates goal counts per status. An empty santriID counts
// across the whole school.
func (r *GoalRepository) CountByStatus(ctx context.Context, santriID string) (map[models.GoalStatus]int, error) {
	query := "SELECT status, COUNT(*) FROM character_goals GROUP BY status"
	args := []interface{}{}
	if santriID != "" {
		query = "SELECT status, COUNT(*) FROM character_goals WHERE santri_id = $1 GROUP BY status"
		args = append(args, santriID)
	}
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count goals by status: %w", err)
	}
	defer rows.Close() //nolint:errcheck
	counts := make(map[models.GoalStatus]int)
	for rows.Next() {
		var status models.GoalStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan goal status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func insertMilestone(ctx context.Context, tx *sqlx.Tx, m *models.Milestone) error {
	query := `INSERT INTO goal_milestones (id, goal_id, title, target_date, position, is_completed, completed_at, evidence, created_at)
VALUES (:id, :goal_id, :title, :target_date, :position, :is_completed, :completed_at, :evidence, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("create goal milestone: %w", err)
	}
	return nil
}
