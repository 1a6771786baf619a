package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "name", "surname", "email", "phone", "address", "img", "blood_type", "sex", "birthday", "grade_id", "class_id", "parent_id", "created_at", "updated_at", "class_name"}).
		AddRow("stu_1", "jdoe", "John", "Doe", nil, nil, "Street 1", nil, "O", "M", time.Now(), "grade_1", "class_1", nil, time.Now(), time.Now(), "1A")
}

func TestStudentRepositoryListAppliesTeacherScope(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT s.id, s.username, (.+) FROM students s JOIN classes c ON c.id = s.class_id WHERE 1=1 AND EXISTS \\(SELECT 1 FROM lessons l WHERE l.class_id = s.class_id AND l.teacher_id = (.+)\\)").
		WithArgs("teacher_9").
		WillReturnRows(studentRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM students s").
		WithArgs("teacher_9").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{
		Scope: models.Scope{Role: models.RoleTeacher, UserID: "teacher_9"},
	})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListCombinesUserFilterWithScope(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("FROM students s JOIN classes c ON c.id = s.class_id WHERE 1=1 AND s.class_id = (.+) AND s.parent_id = (.+)").
		WithArgs("class_1", "parent_7").
		WillReturnRows(studentRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM students s").
		WithArgs("class_1", "parent_7").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, _, err := repo.List(context.Background(), models.StudentFilter{
		ClassID: "class_1",
		Scope:   models.Scope{Role: models.RoleParent, UserID: "parent_7"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateEnrolled(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT capacity FROM classes WHERE id = (.+) FOR UPDATE").
		WithArgs("class_1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE class_id = $1")).
		WithArgs("class_1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.CreateEnrolled(context.Background(), &models.Student{
		ID: "stu_1", Username: "jdoe", Name: "John", Surname: "Doe",
		Address: "Street 1", BloodType: "O", Sex: "M", Birthday: time.Now(),
		GradeID: "grade_1", ClassID: "class_1",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateEnrolledClassFull(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT capacity FROM classes WHERE id = (.+) FOR UPDATE").
		WithArgs("class_1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE class_id = $1")).
		WithArgs("class_1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))
	mock.ExpectRollback()

	err := repo.CreateEnrolled(context.Background(), &models.Student{ID: "stu_2", ClassID: "class_1"})
	require.ErrorIs(t, err, ErrClassFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}
