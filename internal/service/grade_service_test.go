package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
)

type mockGradeRepo struct {
	items      map[string]*models.Grade
	levels     map[int]string
	dependents map[string]int
	deleted    []string
}

func newMockGradeRepo() *mockGradeRepo {
	return &mockGradeRepo{
		items:      make(map[string]*models.Grade),
		levels:     make(map[int]string),
		dependents: make(map[string]int),
	}
}

func (m *mockGradeRepo) List(ctx context.Context) ([]models.Grade, error) {
	out := make([]models.Grade, 0, len(m.items))
	for _, g := range m.items {
		out = append(out, *g)
	}
	return out, nil
}

func (m *mockGradeRepo) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	grade, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *grade
	return &copied, nil
}

func (m *mockGradeRepo) ExistsByLevel(ctx context.Context, level int, excludeID string) (bool, error) {
	id, ok := m.levels[level]
	return ok && id != excludeID, nil
}

func (m *mockGradeRepo) Create(ctx context.Context, grade *models.Grade) error {
	grade.ID = "g-new"
	m.items[grade.ID] = grade
	m.levels[grade.Level] = grade.ID
	return nil
}

func (m *mockGradeRepo) Update(ctx context.Context, grade *models.Grade) error {
	m.items[grade.ID] = grade
	m.levels[grade.Level] = grade.ID
	return nil
}

func (m *mockGradeRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockGradeRepo) CountDependents(ctx context.Context, id string) (int, error) {
	return m.dependents[id], nil
}

func TestGradeServiceCreate(t *testing.T) {
	repo := newMockGradeRepo()
	service := NewGradeService(repo, nil, nil, nil)

	grade, err := service.Create(context.Background(), GradeRequest{Level: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, grade.Level)
	assert.NotEmpty(t, grade.ID)
}

func TestGradeServiceCreateDuplicateLevel(t *testing.T) {
	repo := newMockGradeRepo()
	repo.items["g1"] = &models.Grade{ID: "g1", Level: 5}
	repo.levels[5] = "g1"
	service := NewGradeService(repo, nil, nil, nil)

	_, err := service.Create(context.Background(), GradeRequest{Level: 5})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "already exists")
}

func TestGradeServiceCreateRejectsOutOfRange(t *testing.T) {
	repo := newMockGradeRepo()
	service := NewGradeService(repo, nil, nil, nil)

	_, err := service.Create(context.Background(), GradeRequest{Level: 13})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.items)
}

func TestGradeServiceUpdateKeepsOwnLevel(t *testing.T) {
	repo := newMockGradeRepo()
	repo.items["g1"] = &models.Grade{ID: "g1", Level: 5}
	repo.levels[5] = "g1"
	service := NewGradeService(repo, nil, nil, nil)

	grade, err := service.Update(context.Background(), "g1", GradeRequest{Level: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, grade.Level)
}

func TestGradeServiceDeleteRejectsWithDependents(t *testing.T) {
	repo := newMockGradeRepo()
	repo.items["g1"] = &models.Grade{ID: "g1", Level: 5}
	repo.dependents["g1"] = 3
	service := NewGradeService(repo, nil, nil, nil)

	err := service.Delete(context.Background(), "g1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "classes or students")
	assert.Empty(t, repo.deleted)
}

func TestGradeServiceDelete(t *testing.T) {
	repo := newMockGradeRepo()
	repo.items["g1"] = &models.Grade{ID: "g1", Level: 5}
	service := NewGradeService(repo, nil, nil, nil)

	require.NoError(t, service.Delete(context.Background(), "g1"))
	assert.Equal(t, []string{"g1"}, repo.deleted)
}
