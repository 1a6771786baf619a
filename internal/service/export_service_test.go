package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
	"github.com/schoolhub-io/schoolhub-api/pkg/storage"
)

type mockExportTeachers struct {
	rows   []models.Teacher
	filter models.TeacherFilter
}

func (m *mockExportTeachers) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	m.filter = filter
	return m.rows, len(m.rows), nil
}

type mockExportStudents struct {
	rows   []models.StudentDetail
	filter models.StudentFilter
}

func (m *mockExportStudents) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	m.filter = filter
	return m.rows, len(m.rows), nil
}

func TestExportServiceTeacherRosterCSV(t *testing.T) {
	email := "jdoe@example.com"
	teachers := &mockExportTeachers{rows: []models.Teacher{{
		Username: "jdoe",
		Name:     "John",
		Surname:  "Doe",
		Email:    &email,
		Address:  "1 Main St",
		Sex:      "MALE",
		Birthday: time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC),
	}}}
	service := NewExportService(teachers, &mockExportStudents{}, nil, nil, nil, nil, nil)

	result, err := service.TeacherRoster(context.Background(), models.Scope{Role: models.RoleAdmin}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Payload)
	assert.Contains(t, body, "username,name,surname")
	assert.Contains(t, body, "jdoe,John,Doe,jdoe@example.com")
	assert.Contains(t, body, "1990-04-12")
}

func TestExportServiceStudentRosterAppliesScope(t *testing.T) {
	students := &mockExportStudents{rows: []models.StudentDetail{{
		Student:   models.Student{Username: "spupil", Name: "Sara", Surname: "Pupil", Sex: "FEMALE", Birthday: time.Date(2010, 9, 1, 0, 0, 0, 0, time.UTC)},
		ClassName: "5A",
	}}}
	service := NewExportService(&mockExportTeachers{}, students, nil, nil, nil, nil, nil)

	scope := models.Scope{Role: models.RoleTeacher, UserID: "t1"}
	result, err := service.StudentRoster(context.Background(), scope, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, scope, students.filter.Scope)
	assert.Contains(t, string(result.Payload), "spupil,Sara,Pupil,5A")
}

func TestExportServiceStudentRosterPDF(t *testing.T) {
	students := &mockExportStudents{rows: []models.StudentDetail{{
		Student:   models.Student{Username: "spupil", Name: "Sara", Surname: "Pupil", Sex: "FEMALE", Birthday: time.Date(2010, 9, 1, 0, 0, 0, 0, time.UTC)},
		ClassName: "5A",
	}}}
	service := NewExportService(&mockExportTeachers{}, students, nil, nil, nil, nil, nil)

	result, err := service.StudentRoster(context.Background(), models.Scope{Role: models.RoleAdmin}, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Payload), "%PDF"))
}

func TestExportServiceLinkRoundTrip(t *testing.T) {
	archive, err := storage.NewArchive(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewTokenSigner("secret", time.Hour)
	service := NewExportService(&mockExportTeachers{}, &mockExportStudents{}, nil, nil, archive, signer, nil)

	result := &ExportResult{Filename: "teachers-test.csv", ContentType: "text/csv", Payload: []byte("username\njdoe\n")}
	link, err := service.Link(result)
	require.NoError(t, err)
	assert.Equal(t, "teachers-test.csv", link.Filename)
	assert.NotEmpty(t, link.Token)

	fetched, err := service.Fetch(link.Token)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", fetched.ContentType)
	assert.Equal(t, result.Payload, fetched.Payload)
}

func TestExportServiceFetchRejectsBadToken(t *testing.T) {
	archive, err := storage.NewArchive(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewTokenSigner("secret", time.Hour)
	service := NewExportService(&mockExportTeachers{}, &mockExportStudents{}, nil, nil, archive, signer, nil)

	_, err = service.Fetch("not-a-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid or expired")
}

func TestExportServiceLinkDisabledWithoutArchive(t *testing.T) {
	service := NewExportService(&mockExportTeachers{}, &mockExportStudents{}, nil, nil, nil, nil, nil)

	_, err := service.Link(&ExportResult{Filename: "x.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enabled")
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	service := NewExportService(&mockExportTeachers{}, &mockExportStudents{}, nil, nil, nil, nil, nil)

	_, err := service.TeacherRoster(context.Background(), models.Scope{Role: models.RoleAdmin}, ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv or pdf")
}
