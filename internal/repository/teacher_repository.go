package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
)

// TeacherRepository manages persistence for teacher records. Teacher
// ids are assigned by the identity provider, never generated locally.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers matching the filter.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers t"
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM lessons l WHERE l.teacher_id = t.id AND l.class_id = $%d)", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(t.name) LIKE $%d OR LOWER(t.surname) LIKE $%d OR LOWER(t.username) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT t.id, t.username, t.name, t.surname, t.email, t.phone, t.address, t.img, t.blood_type, t.sex, t.birthday, t.created_at, t.updated_at
        %s ORDER BY t.surname ASC, t.name ASC LIMIT %d OFFSET %d`, base, limit, offset)

	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// ListRefs returns the reduced teacher shapes for selection controls.
func (r *TeacherRepository) ListRefs(ctx context.Context) ([]models.TeacherRef, error) {
	const query = `SELECT id, name, surname FROM teachers ORDER BY surname ASC, name ASC`
	var refs []models.TeacherRef
	if err := r.db.SelectContext(ctx, &refs, query); err != nil {
		return nil, fmt.Errorf("list teacher refs: %w", err)
	}
	return refs, nil
}

// ListSupervisorCandidates returns teachers flagged with whether they
// already supervise a class.
func (r *TeacherRepository) ListSupervisorCandidates(ctx context.Context) ([]models.SupervisorCandidate, error) {
	const query = `SELECT t.id, t.name, t.surname,
        EXISTS (SELECT 1 FROM classes c WHERE c.supervisor_id = t.id) AS is_supervisor
        FROM teachers t ORDER BY t.surname ASC, t.name ASC`
	var candidates []models.SupervisorCandidate
	if err := r.db.SelectContext(ctx, &candidates, query); err != nil {
		return nil, fmt.Errorf("list supervisor candidates: %w", err)
	}
	return candidates, nil
}

// FindByID fetches a teacher by id.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	const query = `SELECT id, username, name, surname, email, phone, address, img, blood_type, sex, birthday, created_at, updated_at FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Create inserts a new teacher with its provider-assigned id.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	const query = `INSERT INTO teachers (id, username, name, surname, email, phone, address, img, blood_type, sex, birthday, created_at, updated_at)
        VALUES (:id, :username, :name, :surname, :email, :phone, :address, :img, :blood_type, :sex, :birthday, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update modifies an existing teacher.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET username = :username, name = :name, surname = :surname, email = :email, phone = :phone, address = :address, img = :img, blood_type = :blood_type, sex = :sex, birthday = :birthday, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}

// Delete removes a teacher and its subject assignments.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete teacher: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM subject_teachers WHERE teacher_id = $1`, id); err != nil {
		return fmt.Errorf("clear teacher subjects: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE classes SET supervisor_id = NULL WHERE supervisor_id = $1`, id); err != nil {
		return fmt.Errorf("clear supervised classes: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete teacher: %w", err)
	}
	return nil
}

// CountLessons counts lessons still referencing the teacher.
func (r *TeacherRepository) CountLessons(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM lessons WHERE teacher_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count teacher lessons: %w", err)
	}
	return count, nil
}
