package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
)

func TestSubjectRepositoryUpdateReplacesTeacherSet(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE subjects SET name = (.+)").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subject_teachers WHERE subject_id = $1")).
		WithArgs("sub_1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO subject_teachers").
		WithArgs("sub_1", "teacher_2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO subject_teachers").
		WithArgs("sub_1", "teacher_3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	subject := &models.Subject{ID: "sub_1", Name: "Math"}
	err := repo.Update(context.Background(), subject, []string{"teacher_2", "teacher_3"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryListScopesTeacherRole(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	subjectRows := sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
		AddRow("sub_1", "Math", time.Now(), time.Now())
	mock.ExpectQuery("FROM subjects sub WHERE 1=1 AND EXISTS \\(SELECT 1 FROM subject_teachers st WHERE st.subject_id = sub.id AND st.teacher_id = (.+)\\)").
		WithArgs("teacher_1").
		WillReturnRows(subjectRows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM subjects sub").
		WithArgs("teacher_1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("FROM subject_teachers st JOIN teachers t ON t.id = st.teacher_id").
		WithArgs("sub_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "surname"}).AddRow("teacher_1", "Jane", "Smith"))

	subjects, total, err := repo.List(context.Background(), models.SubjectFilter{
		Scope: models.Scope{Role: models.RoleTeacher, UserID: "teacher_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, subjects, 1)
	require.Len(t, subjects[0].Teachers, 1)
	assert.Equal(t, "Jane", subjects[0].Teachers[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryDeleteClearsAssignments(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subject_teachers WHERE subject_id = $1")).
		WithArgs("sub_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects WHERE id = $1")).
		WithArgs("sub_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "sub_1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCountLessons(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lessons WHERE subject_id = $1")).
		WithArgs("sub_1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountLessons(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
