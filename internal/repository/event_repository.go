package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
)

// EventRepository manages persistence for events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns events matching the filter. School-wide events (NULL
// class) are visible to every role; class-bound events follow the
// caller's class linkage.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.EventDetail, int, error) {
	base := "FROM events e LEFT JOIN classes c ON c.id = e.class_id"
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("e.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(e.title) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("e.start_time >= $%d AND e.start_time < $%d", len(args)+1, len(args)+2))
		day := filter.Date.Truncate(24 * time.Hour)
		args = append(args, day, day.Add(24*time.Hour))
	}

	conditions, args = appendClassScope(conditions, args, filter.Scope, "e")

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT e.id, e.title, e.description, e.start_time, e.end_time, e.class_id, e.created_at, e.updated_at,
        c.name AS class_name
        %s ORDER BY e.start_time DESC LIMIT %d OFFSET %d`, base, limit, offset)

	var events []models.EventDetail
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	return events, total, nil
}

// FindByID fetches an event by id.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	const query = `SELECT id, title, description, start_time, end_time, class_id, created_at, updated_at FROM events WHERE id = $1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	const query = `INSERT INTO events (id, title, description, start_time, end_time, class_id, created_at, updated_at)
        VALUES (:id, :title, :description, :start_time, :end_time, :class_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update modifies an existing event.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET title = :title, description = :description, start_time = :start_time, end_time = :end_time, class_id = :class_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Delete removes an event.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM events WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// appendClassScope adds the role restriction for rows optionally bound
// to a class. NULL class ids stay visible to all roles.
func appendClassScope(conditions []string, args []interface{}, scope models.Scope, alias string) ([]string, []interface{}) {
	switch scope.Role {
	case models.RoleTeacher:
		conditions = append(conditions, fmt.Sprintf("(%s.class_id IS NULL OR %s.class_id IN (SELECT class_id FROM lessons WHERE teacher_id = $%d))", alias, alias, len(args)+1))
		args = append(args, scope.UserID)
	case models.RoleStudent:
		conditions = append(conditions, fmt.Sprintf("(%s.class_id IS NULL OR %s.class_id IN (SELECT class_id FROM students WHERE id = $%d))", alias, alias, len(args)+1))
		args = append(args, scope.UserID)
	case models.RoleParent:
		conditions = append(conditions, fmt.Sprintf("(%s.class_id IS NULL OR %s.class_id IN (SELECT class_id FROM students WHERE parent_id = $%d))", alias, alias, len(args)+1))
		args = append(args, scope.UserID)
	}
	return conditions, args
}
