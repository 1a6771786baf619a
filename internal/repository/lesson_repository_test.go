package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
)

func lessonRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "day", "start_time", "end_time", "subject_id", "class_id", "teacher_id", "created_at", "updated_at", "subject_name", "class_name", "teacher_name", "teacher_surname"}).
		AddRow("les_1", "Math 1A", "MONDAY", time.Now(), time.Now(), "sub_1", "class_1", "teacher_1", time.Now(), time.Now(), "Math", "1A", "Jane", "Smith")
}

func TestLessonRepositoryListTeacherScopeAlwaysApplies(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	// A teacherId query parameter cannot widen the teacher's own scope:
	// both predicates land in the WHERE clause.
	mock.ExpectQuery("FROM lessons l (.+) WHERE 1=1 AND l.teacher_id = (.+) AND l.teacher_id = (.+)").
		WithArgs("teacher_other", "teacher_1").
		WillReturnRows(lessonRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM lessons l").
		WithArgs("teacher_other", "teacher_1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.LessonFilter{
		TeacherID: "teacher_other",
		Scope:     models.Scope{Role: models.RoleTeacher, UserID: "teacher_1"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryListSearchIsParameterized(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectQuery("LOWER\\(l.name\\) LIKE (.+) OR LOWER\\(sub.name\\) LIKE").
		WithArgs("%math%").
		WillReturnRows(lessonRows())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM lessons l").
		WithArgs("%math%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	lessons, total, err := repo.List(context.Background(), models.LessonFilter{
		Search: "Math",
		Scope:  models.Scope{Role: models.RoleAdmin, UserID: "admin_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, lessons, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryCountDependents(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectQuery("SELECT \\(SELECT COUNT\\(\\*\\) FROM exams WHERE lesson_id = (.+)").
		WithArgs("les_1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountDependents(context.Background(), "les_1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
