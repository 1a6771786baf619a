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

// ClassRepository manages persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes matching the filter with the caller's role
// restriction ANDed on top of user-supplied parameters.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	base := "FROM classes c JOIN grades g ON g.id = c.grade_id LEFT JOIN teachers t ON t.id = c.supervisor_id"
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.SupervisorID != "" {
		conditions = append(conditions, fmt.Sprintf("c.supervisor_id = $%d", len(args)+1))
		args = append(args, filter.SupervisorID)
	}
	if filter.GradeID != "" {
		conditions = append(conditions, fmt.Sprintf("c.grade_id = $%d", len(args)+1))
		args = append(args, filter.GradeID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	switch filter.Scope.Role {
	case models.RoleTeacher:
		conditions = append(conditions, fmt.Sprintf("(c.supervisor_id = $%d OR EXISTS (SELECT 1 FROM lessons l WHERE l.class_id = c.id AND l.teacher_id = $%d))", len(args)+1, len(args)+1))
		args = append(args, filter.Scope.UserID)
	case models.RoleStudent:
		conditions = append(conditions, fmt.Sprintf("c.id IN (SELECT class_id FROM students WHERE id = $%d)", len(args)+1))
		args = append(args, filter.Scope.UserID)
	case models.RoleParent:
		conditions = append(conditions, fmt.Sprintf("c.id IN (SELECT class_id FROM students WHERE parent_id = $%d)", len(args)+1))
		args = append(args, filter.Scope.UserID)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT c.id, c.name, c.capacity, c.grade_id, c.supervisor_id, c.created_at, c.updated_at,
        g.level AS grade_level, t.name || ' ' || t.surname AS supervisor_name
        %s ORDER BY c.name ASC LIMIT %d OFFSET %d`, base, limit, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// ListRefs returns the reduced class shapes for selection controls.
func (r *ClassRepository) ListRefs(ctx context.Context) ([]models.ClassRef, error) {
	const query = `SELECT id, name FROM classes ORDER BY name ASC`
	var refs []models.ClassRef
	if err := r.db.SelectContext(ctx, &refs, query); err != nil {
		return nil, fmt.Errorf("list class refs: %w", err)
	}
	return refs, nil
}

// ListSeats returns classes annotated with capacity and current
// enrollment for the student form.
func (r *ClassRepository) ListSeats(ctx context.Context) ([]models.ClassSeat, error) {
	const query = `SELECT c.id, c.name, c.capacity,
        (SELECT COUNT(*) FROM students s WHERE s.class_id = c.id) AS enrolled
        FROM classes c ORDER BY c.name ASC`
	var seats []models.ClassSeat
	if err := r.db.SelectContext(ctx, &seats, query); err != nil {
		return nil, fmt.Errorf("list class seats: %w", err)
	}
	return seats, nil
}

// FindByID fetches a class by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, capacity, grade_id, supervisor_id, created_at, updated_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, name, capacity, grade_id, supervisor_id, created_at, updated_at)
        VALUES (:id, :name, :capacity, :grade_id, :supervisor_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update modifies an existing class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, capacity = :capacity, grade_id = :grade_id, supervisor_id = :supervisor_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM classes WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

// CountDependents counts students and lessons still referencing the class.
func (r *ClassRepository) CountDependents(ctx context.Context, id string) (int, error) {
	const query = `SELECT (SELECT COUNT(*) FROM students WHERE class_id = $1) + (SELECT COUNT(*) FROM lessons WHERE class_id = $1)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count class dependents: %w", err)
	}
	return count, nil
}
