package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
)

// ErrClassFull is returned when an insert would overrun class capacity.
var ErrClassFull = errors.New("class is at capacity")

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the filter with the caller's role
// restriction ANDed on top of user-supplied parameters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s JOIN classes c ON c.id = s.class_id"
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM lessons l WHERE l.class_id = s.class_id AND l.teacher_id = $%d)", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.name) LIKE $%d OR LOWER(s.surname) LIKE $%d OR LOWER(s.username) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	switch filter.Scope.Role {
	case models.RoleTeacher:
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM lessons l WHERE l.class_id = s.class_id AND l.teacher_id = $%d)", len(args)+1))
		args = append(args, filter.Scope.UserID)
	case models.RoleStudent:
		conditions = append(conditions, fmt.Sprintf("s.class_id IN (SELECT class_id FROM students WHERE id = $%d)", len(args)+1))
		args = append(args, filter.Scope.UserID)
	case models.RoleParent:
		conditions = append(conditions, fmt.Sprintf("s.parent_id = $%d", len(args)+1))
		args = append(args, filter.Scope.UserID)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT s.id, s.username, s.name, s.surname, s.email, s.phone, s.address, s.img, s.blood_type, s.sex, s.birthday, s.grade_id, s.class_id, s.parent_id, s.created_at, s.updated_at,
        c.name AS class_name
        %s ORDER BY s.surname ASC, s.name ASC LIMIT %d OFFSET %d`, base, limit, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, username, name, surname, email, phone, address, img, blood_type, sex, birthday, grade_id, class_id, parent_id, created_at, updated_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// CreateEnrolled inserts a student while holding a lock on the target
// class row, re-checking capacity inside the same transaction so two
// concurrent creates cannot overrun the class.
func (r *StudentRepository) CreateEnrolled(ctx context.Context, student *models.Student) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var capacity int
	if err = tx.GetContext(ctx, &capacity, `SELECT capacity FROM classes WHERE id = $1 FOR UPDATE`, student.ClassID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock class: %w", err)
	}

	var enrolled int
	if err = tx.GetContext(ctx, &enrolled, `SELECT COUNT(*) FROM students WHERE class_id = $1`, student.ClassID); err != nil {
		return fmt.Errorf("count enrollment: %w", err)
	}
	if enrolled >= capacity {
		err = ErrClassFull
		return err
	}

	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, username, name, surname, email, phone, address, img, blood_type, sex, birthday, grade_id, class_id, parent_id, created_at, updated_at)
        VALUES (:id, :username, :name, :surname, :email, :phone, :address, :img, :blood_type, :sex, :birthday, :grade_id, :class_id, :parent_id, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET username = :username, name = :name, surname = :surname, email = :email, phone = :phone, address = :address, img = :img, blood_type = :blood_type, sex = :sex, birthday = :birthday, grade_id = :grade_id, class_id = :class_id, parent_id = :parent_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM students WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
