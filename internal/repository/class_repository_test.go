package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassRepositoryListSupervisorCandidates(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "surname", "is_supervisor"}).
		AddRow("teacher_1", "Jane", "Smith", true).
		AddRow("teacher_2", "John", "Brown", false)
	mock.ExpectQuery("EXISTS \\(SELECT 1 FROM classes c WHERE c.supervisor_id = t.id\\) AS is_supervisor").
		WillReturnRows(rows)

	candidates, err := repo.ListSupervisorCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.True(t, candidates[0].IsSupervisor)
	assert.False(t, candidates[1].IsSupervisor)
}

func TestClassRepositoryListSeats(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewClassRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "capacity", "enrolled"}).
		AddRow("class_1", "1A", 30, 28).
		AddRow("class_2", "1B", 30, 30)
	mock.ExpectQuery("SELECT c.id, c.name, c.capacity").WillReturnRows(rows)

	seats, err := repo.ListSeats(context.Background())
	require.NoError(t, err)
	require.Len(t, seats, 2)
	assert.Equal(t, 28, seats[0].Enrolled)
	assert.Equal(t, 30, seats[1].Capacity)
}

func TestClassRepositoryCountDependents(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery("SELECT \\(SELECT COUNT\\(\\*\\) FROM students WHERE class_id = (.+)").
		WithArgs("class_1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	count, err := repo.CountDependents(context.Background(), "class_1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}
