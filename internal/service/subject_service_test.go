package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
)

type mockSubjectRepo struct {
	items        map[string]*models.Subject
	nameIndex    map[string]string
	assignments  map[string][]string
	lessons      map[string]int
	lastTeachers []string
	deleted      []string
}

func (m *mockSubjectRepo) List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, int, error) {
	return nil, 0, nil
}

func (m *mockSubjectRepo) ListTeachers(ctx context.Context, subjectID string) ([]models.TeacherRef, error) {
	refs := make([]models.TeacherRef, 0, len(m.assignments[subjectID]))
	for _, id := range m.assignments[subjectID] {
		refs = append(refs, models.TeacherRef{ID: id})
	}
	return refs, nil
}

func (m *mockSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if subject, ok := m.items[id]; ok {
		cp := *subject
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	if owner, ok := m.nameIndex[name]; ok {
		if excludeID == "" || owner != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSubjectRepo) Create(ctx context.Context, subject *models.Subject, teacherIDs []string) error {
	if m.items == nil {
		m.items = make(map[string]*models.Subject)
	}
	if m.assignments == nil {
		m.assignments = make(map[string][]string)
	}
	subject.ID = "sub-1"
	cp := *subject
	m.items[subject.ID] = &cp
	m.assignments[subject.ID] = teacherIDs
	m.lastTeachers = teacherIDs
	return nil
}

func (m *mockSubjectRepo) Update(ctx context.Context, subject *models.Subject, teacherIDs []string) error {
	cp := *subject
	m.items[subject.ID] = &cp
	m.assignments[subject.ID] = teacherIDs
	m.lastTeachers = teacherIDs
	return nil
}

func (m *mockSubjectRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockSubjectRepo) CountLessons(ctx context.Context, id string) (int, error) {
	return m.lessons[id], nil
}

type mockTeacherLookup struct {
	ids map[string]bool
}

func (m *mockTeacherLookup) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if m.ids[id] {
		return &models.Teacher{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

func newSubjectService(repo *mockSubjectRepo, teacherIDs ...string) *SubjectService {
	known := make(map[string]bool, len(teacherIDs))
	for _, id := range teacherIDs {
		known[id] = true
	}
	return NewSubjectService(repo, &mockTeacherLookup{ids: known}, nil, validator.New(), zap.NewNop())
}

func TestSubjectServiceCreate(t *testing.T) {
	repo := &mockSubjectRepo{}
	service := newSubjectService(repo, "t1", "t2")

	subject, err := service.Create(context.Background(), SubjectRequest{
		Name:       "Mathematics",
		TeacherIDs: []string{"t1", "t2", "t1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", subject.Name)
	assert.Equal(t, []string{"t1", "t2"}, repo.lastTeachers)
}

func TestSubjectServiceCreateDuplicateName(t *testing.T) {
	repo := &mockSubjectRepo{nameIndex: map[string]string{"Mathematics": "other"}}
	service := newSubjectService(repo)

	_, err := service.Create(context.Background(), SubjectRequest{Name: "Mathematics"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestSubjectServiceCreateUnknownTeacher(t *testing.T) {
	repo := &mockSubjectRepo{}
	service := newSubjectService(repo, "t1")

	_, err := service.Create(context.Background(), SubjectRequest{
		Name:       "Mathematics",
		TeacherIDs: []string{"t1", "ghost"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestSubjectServiceUpdateReplacesTeacherSet(t *testing.T) {
	repo := &mockSubjectRepo{
		items:       map[string]*models.Subject{"sub-1": {ID: "sub-1", Name: "Mathematics"}},
		nameIndex:   map[string]string{"Mathematics": "sub-1"},
		assignments: map[string][]string{"sub-1": {"t1", "t2"}},
	}
	service := newSubjectService(repo, "t1", "t2", "t3")

	_, err := service.Update(context.Background(), "sub-1", SubjectRequest{
		Name:       "Mathematics",
		TeacherIDs: []string{"t2", "t3"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t3"}, repo.assignments["sub-1"])
}

func TestSubjectServiceDeleteRejectsWithLessons(t *testing.T) {
	repo := &mockSubjectRepo{
		items:   map[string]*models.Subject{"sub-1": {ID: "sub-1", Name: "Mathematics"}},
		lessons: map[string]int{"sub-1": 2},
	}
	service := newSubjectService(repo)

	err := service.Delete(context.Background(), "sub-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.deleted)
}

func TestSubjectServiceDelete(t *testing.T) {
	repo := &mockSubjectRepo{
		items: map[string]*models.Subject{"sub-1": {ID: "sub-1", Name: "Mathematics"}},
	}
	service := newSubjectService(repo)

	err := service.Delete(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sub-1"}, repo.deleted)
}
