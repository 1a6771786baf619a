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

// LessonRepository manages persistence for lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

const lessonJoin = "FROM lessons l JOIN subjects sub ON sub.id = l.subject_id JOIN classes c ON c.id = l.class_id JOIN teachers t ON t.id = l.teacher_id"

// List returns lessons matching the filter with the caller's role
// restriction ANDed on top of user-supplied parameters.
func (r *LessonRepository) List(ctx context.Context, filter models.LessonFilter) ([]models.LessonDetail, int, error) {
	base := lessonJoin
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("l.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("l.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(l.name) LIKE $%d OR LOWER(sub.name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	conditions, args = appendLessonScope(conditions, args, filter.Scope, "l")

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT l.id, l.name, l.day, l.start_time, l.end_time, l.subject_id, l.class_id, l.teacher_id, l.created_at, l.updated_at,
        sub.name AS subject_name, c.name AS class_name, t.name AS teacher_name, t.surname AS teacher_surname
        %s ORDER BY l.day ASC, l.start_time ASC LIMIT %d OFFSET %d`, base, limit, offset)

	var lessons []models.LessonDetail
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list lessons: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count lessons: %w", err)
	}
	return lessons, total, nil
}

// ListRefs returns lessons with joined names for selection controls.
func (r *LessonRepository) ListRefs(ctx context.Context) ([]models.LessonRef, error) {
	query := fmt.Sprintf(`SELECT l.id, l.name, sub.name AS subject_name, c.name AS class_name, t.name AS teacher_name, t.surname AS teacher_surname
        %s ORDER BY l.name ASC`, lessonJoin)
	var refs []models.LessonRef
	if err := r.db.SelectContext(ctx, &refs, query); err != nil {
		return nil, fmt.Errorf("list lesson refs: %w", err)
	}
	return refs, nil
}

// FindRef fetches a single lesson reference, used to complete the form
// candidate set when the current selection fell out of the default list.
func (r *LessonRepository) FindRef(ctx context.Context, id string) (*models.LessonRef, error) {
	query := fmt.Sprintf(`SELECT l.id, l.name, sub.name AS subject_name, c.name AS class_name, t.name AS teacher_name, t.surname AS teacher_surname
        %s WHERE l.id = $1`, lessonJoin)
	var ref models.LessonRef
	if err := r.db.GetContext(ctx, &ref, query, id); err != nil {
		return nil, err
	}
	return &ref, nil
}

// FindByID fetches a lesson by id.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	const query = `SELECT id, name, day, start_time, end_time, subject_id, class_id, teacher_id, created_at, updated_at FROM lessons WHERE id = $1`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// Create inserts a new lesson.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lesson.CreatedAt = now
	lesson.UpdatedAt = now
	const query = `INSERT INTO lessons (id, name, day, start_time, end_time, subject_id, class_id, teacher_id, created_at, updated_at)
        VALUES (:id, :name, :day, :start_time, :end_time, :subject_id, :class_id, :teacher_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// Update modifies an existing lesson.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET name = :name, day = :day, start_time = :start_time, end_time = :end_time, subject_id = :subject_id, class_id = :class_id, teacher_id = :teacher_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

// Delete removes a lesson.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM lessons WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}

// CountDependents counts exams, assignments and attendances still
// referencing the lesson.
func (r *LessonRepository) CountDependents(ctx context.Context, id string) (int, error) {
	const query = `SELECT (SELECT COUNT(*) FROM exams WHERE lesson_id = $1)
        + (SELECT COUNT(*) FROM assignments WHERE lesson_id = $1)
        + (SELECT COUNT(*) FROM attendances WHERE lesson_id = $1)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count lesson dependents: %w", err)
	}
	return count, nil
}

// appendLessonScope adds the role restriction for lesson-rooted rows.
// The alias names the lessons table in the enclosing query.
func appendLessonScope(conditions []string, args []interface{}, scope models.Scope, alias string) ([]string, []interface{}) {
	switch scope.Role {
	case models.RoleTeacher:
		conditions = append(conditions, fmt.Sprintf("%s.teacher_id = $%d", alias, len(args)+1))
		args = append(args, scope.UserID)
	case models.RoleStudent:
		conditions = append(conditions, fmt.Sprintf("%s.class_id IN (SELECT class_id FROM students WHERE id = $%d)", alias, len(args)+1))
		args = append(args, scope.UserID)
	case models.RoleParent:
		conditions = append(conditions, fmt.Sprintf("%s.class_id IN (SELECT class_id FROM students WHERE parent_id = $%d)", alias, len(args)+1))
		args = append(args, scope.UserID)
	}
	return conditions, args
}
