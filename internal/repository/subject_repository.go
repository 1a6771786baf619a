package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
)

// SubjectRepository manages persistence for subjects and their
// many-to-many teacher assignments.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects matching the filter, each including its
// assigned teacher references.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, int, error) {
	base := "FROM subjects sub"
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(sub.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Scope.Role == models.RoleTeacher {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM subject_teachers st WHERE st.subject_id = sub.id AND st.teacher_id = $%d)", len(args)+1))
		args = append(args, filter.Scope.UserID)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT sub.id, sub.name, sub.created_at, sub.updated_at %s ORDER BY sub.name ASC LIMIT %d OFFSET %d`, base, limit, offset)

	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}

	details := make([]models.SubjectDetail, 0, len(subjects))
	for _, subject := range subjects {
		teachers, err := r.ListTeachers(ctx, subject.ID)
		if err != nil {
			return nil, 0, err
		}
		details = append(details, models.SubjectDetail{Subject: subject, Teachers: teachers})
	}
	return details, total, nil
}

// ListRefs returns the reduced subject shapes for selection controls.
func (r *SubjectRepository) ListRefs(ctx context.Context) ([]models.SubjectRef, error) {
	const query = `SELECT id, name FROM subjects ORDER BY name ASC`
	var refs []models.SubjectRef
	if err := r.db.SelectContext(ctx, &refs, query); err != nil {
		return nil, fmt.Errorf("list subject refs: %w", err)
	}
	return refs, nil
}

// ListTeachers returns the teacher references assigned to a subject.
func (r *SubjectRepository) ListTeachers(ctx context.Context, subjectID string) ([]models.TeacherRef, error) {
	const query = `SELECT t.id, t.name, t.surname
        FROM subject_teachers st JOIN teachers t ON t.id = st.teacher_id
        WHERE st.subject_id = $1 ORDER BY t.surname ASC, t.name ASC`
	var teachers []models.TeacherRef
	if err := r.db.SelectContext(ctx, &teachers, query, subjectID); err != nil {
		return nil, fmt.Errorf("list subject teachers: %w", err)
	}
	return teachers, nil
}

// FindByID fetches a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, name, created_at, updated_at FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ExistsByName checks subject name uniqueness, optionally excluding an id.
func (r *SubjectRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM subjects WHERE LOWER(name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check subject name: %w", err)
	}
	return true, nil
}

// Create inserts a subject and its teacher assignments in one transaction.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject, teacherIDs []string) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create subject: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO subjects (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	if err = insertSubjectTeachers(ctx, tx, subject.ID, teacherIDs); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create subject: %w", err)
	}
	return nil
}

// Update modifies a subject and replaces its teacher set wholesale with
// the supplied membership.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject, teacherIDs []string) error {
	subject.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update subject: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE subjects SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM subject_teachers WHERE subject_id = $1`, subject.ID); err != nil {
		return fmt.Errorf("clear subject teachers: %w", err)
	}
	if err = insertSubjectTeachers(ctx, tx, subject.ID, teacherIDs); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update subject: %w", err)
	}
	return nil
}

// Delete removes a subject and its teacher assignments.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete subject: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM subject_teachers WHERE subject_id = $1`, id); err != nil {
		return fmt.Errorf("clear subject teachers: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete subject: %w", err)
	}
	return nil
}

// CountLessons counts lessons still referencing the subject.
func (r *SubjectRepository) CountLessons(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM lessons WHERE subject_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count subject lessons: %w", err)
	}
	return count, nil
}

func insertSubjectTeachers(ctx context.Context, tx *sqlx.Tx, subjectID string, teacherIDs []string) error {
	for _, teacherID := range teacherIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO subject_teachers (subject_id, teacher_id) VALUES ($1, $2)`, subjectID, teacherID); err != nil {
			return fmt.Errorf("assign subject teacher: %w", err)
		}
	}
	return nil
}
