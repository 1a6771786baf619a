package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
)

type mockLessonRepo struct {
	items      map[string]*models.Lesson
	dependents map[string]int
	deleted    []string
}

func (m *mockLessonRepo) List(ctx context.Context, filter models.LessonFilter) ([]models.LessonDetail, int, error) {
	return nil, 0, nil
}

func (m *mockLessonRepo) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	if lesson, ok := m.items[id]; ok {
		cp := *lesson
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLessonRepo) Create(ctx context.Context, lesson *models.Lesson) error {
	if m.items == nil {
		m.items = make(map[string]*models.Lesson)
	}
	lesson.ID = "l-1"
	cp := *lesson
	m.items[lesson.ID] = &cp
	return nil
}

func (m *mockLessonRepo) Update(ctx context.Context, lesson *models.Lesson) error {
	cp := *lesson
	m.items[lesson.ID] = &cp
	return nil
}

func (m *mockLessonRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockLessonRepo) CountDependents(ctx context.Context, id string) (int, error) {
	return m.dependents[id], nil
}

type mockSubjectLookup struct {
	ids map[string]bool
}

func (m *mockSubjectLookup) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if m.ids[id] {
		return &models.Subject{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

const testSubjectID = "12121212-3434-4545-8565-787878787878"

func validLessonRequest() LessonRequest {
	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	return LessonRequest{
		Name:      "Algebra",
		Day:       "monday",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		SubjectID: testSubjectID,
		ClassID:   testClassID,
		TeacherID: "t1",
	}
}

func newLessonService(repo *mockLessonRepo) *LessonService {
	subjects := &mockSubjectLookup{ids: map[string]bool{testSubjectID: true}}
	classes := &mockClassLookup{classes: map[string]*models.Class{testClassID: {ID: testClassID, Name: "5A"}}}
	teachers := &mockTeacherLookup{ids: map[string]bool{"t1": true}}
	return NewLessonService(repo, subjects, classes, teachers, nil, validator.New(), zap.NewNop())
}

func TestLessonServiceCreateNormalizesDay(t *testing.T) {
	repo := &mockLessonRepo{}
	service := newLessonService(repo)

	lesson, err := service.Create(context.Background(), validLessonRequest())
	require.NoError(t, err)
	assert.Equal(t, models.Monday, lesson.Day)
}

func TestLessonServiceCreateRejectsWeekend(t *testing.T) {
	service := newLessonService(&mockLessonRepo{})

	req := validLessonRequest()
	req.Day = "SATURDAY"
	_, err := service.Create(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "school day")
}

func TestLessonServiceCreateRejectsInvertedTimes(t *testing.T) {
	service := newLessonService(&mockLessonRepo{})

	req := validLessonRequest()
	req.EndTime = req.StartTime.Add(-time.Hour)
	_, err := service.Create(context.Background(), req)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestLessonServiceCreateRejectsUnknownTeacher(t *testing.T) {
	service := newLessonService(&mockLessonRepo{})

	req := validLessonRequest()
	req.TeacherID = "ghost"
	_, err := service.Create(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teacher not found")
}

func TestLessonServiceDeleteRejectsWithDependents(t *testing.T) {
	repo := &mockLessonRepo{
		items:      map[string]*models.Lesson{"l-1": {ID: "l-1"}},
		dependents: map[string]int{"l-1": 4},
	}
	service := newLessonService(repo)

	err := service.Delete(context.Background(), "l-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.deleted)
}

func TestLessonServiceDelete(t *testing.T) {
	repo := &mockLessonRepo{items: map[string]*models.Lesson{"l-1": {ID: "l-1"}}}
	service := newLessonService(repo)

	err := service.Delete(context.Background(), "l-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"l-1"}, repo.deleted)
}
