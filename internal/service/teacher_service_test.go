package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
)

type mockTeacherRepo struct {
	items      map[string]*models.Teacher
	listResult []models.Teacher
	listTotal  int
	listErr    error
	createErr  error
	updateErr  error
	deleteErr  error
	lessons    map[string]int
	deleted    []string
}

func (m *mockTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listResult, m.listTotal, nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.items[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.items == nil {
		m.items = make(map[string]*models.Teacher)
	}
	now := time.Now()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockTeacherRepo) CountLessons(ctx context.Context, id string) (int, error) {
	return m.lessons[id], nil
}

func validTeacherRequest() CreateTeacherRequest {
	return CreateTeacherRequest{
		Username:  "jdoe",
		Password:  "Str0ng!pass",
		Name:      "John",
		Surname:   "Doe",
		Address:   "1 Main St",
		BloodType: "A+",
		Sex:       "MALE",
		Birthday:  "1990-04-12",
	}
}

func newTeacherService(repo *mockTeacherRepo, provider *mockProvider) *TeacherService {
	return NewTeacherService(repo, provider, newTestCompensator(provider), nil, validator.New(), zap.NewNop())
}

func TestTeacherServiceCreate(t *testing.T) {
	repo := &mockTeacherRepo{}
	provider := &mockProvider{createID: "acct-42"}
	service := newTeacherService(repo, provider)

	teacher, err := service.Create(context.Background(), validTeacherRequest())
	require.NoError(t, err)
	assert.Equal(t, "acct-42", teacher.ID)
	assert.Equal(t, "jdoe", teacher.Username)
	require.Len(t, provider.createInputs, 1)
	assert.Equal(t, models.RoleTeacher, provider.createInputs[0].Role)
	assert.Len(t, repo.items, 1)
}

func TestTeacherServiceCreateWeakPassword(t *testing.T) {
	repo := &mockTeacherRepo{}
	provider := &mockProvider{}
	service := newTeacherService(repo, provider)

	req := validTeacherRequest()
	req.Password = "weak"
	_, err := service.Create(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "8 characters")
	assert.Empty(t, provider.createInputs)
	assert.Empty(t, repo.items)
}

func TestTeacherServiceCreateCompensatesFailedInsert(t *testing.T) {
	repo := &mockTeacherRepo{createErr: errors.New("insert failed")}
	provider := &mockProvider{createID: "acct-42"}
	service := newTeacherService(repo, provider)

	_, err := service.Create(context.Background(), validTeacherRequest())
	require.Error(t, err)
	assert.Equal(t, []string{"acct-42"}, provider.deleteIDs)
	assert.Empty(t, repo.items)
}

func TestTeacherServiceCreateCompensationFailureIsPartial(t *testing.T) {
	repo := &mockTeacherRepo{createErr: errors.New("insert failed")}
	provider := &mockProvider{createID: "acct-42", deleteErr: errors.New("provider down")}
	service := newTeacherService(repo, provider)

	_, err := service.Create(context.Background(), validTeacherRequest())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPartialFailure.Code, appErr.Code)
}

func TestTeacherServiceUpdateOmitsEmptyPassword(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{
		"acct-42": {ID: "acct-42", Username: "jdoe", Name: "John", Surname: "Doe"},
	}}
	provider := &mockProvider{}
	service := newTeacherService(repo, provider)

	req := UpdateTeacherRequest{
		Username:  "jdoe2",
		Name:      "John",
		Surname:   "Doe",
		Address:   "2 Main St",
		BloodType: "A+",
		Sex:       "MALE",
		Birthday:  "1990-04-12",
	}
	updated, err := service.Update(context.Background(), "acct-42", req)
	require.NoError(t, err)
	assert.Equal(t, "jdoe2", updated.Username)
	require.Len(t, provider.updateCalls, 1)
	assert.Empty(t, provider.updateCalls[0].Input.Password)
}

func TestTeacherServiceUpdateRestoresOnLocalFailure(t *testing.T) {
	repo := &mockTeacherRepo{
		items: map[string]*models.Teacher{
			"acct-42": {ID: "acct-42", Username: "jdoe", Name: "John", Surname: "Doe"},
		},
		updateErr: errors.New("update failed"),
	}
	provider := &mockProvider{}
	service := newTeacherService(repo, provider)

	req := UpdateTeacherRequest{
		Username:  "jdoe2",
		Name:      "Johnny",
		Surname:   "Doe",
		Address:   "2 Main St",
		BloodType: "A+",
		Sex:       "MALE",
		Birthday:  "1990-04-12",
	}
	_, err := service.Update(context.Background(), "acct-42", req)
	require.Error(t, err)
	require.Len(t, provider.updateCalls, 2)
	assert.Equal(t, "jdoe", provider.updateCalls[1].Input.Username)
	assert.Equal(t, "John", provider.updateCalls[1].Input.FirstName)
}

func TestTeacherServiceDeleteRejectsWithLessons(t *testing.T) {
	repo := &mockTeacherRepo{
		items:   map[string]*models.Teacher{"acct-42": {ID: "acct-42"}},
		lessons: map[string]int{"acct-42": 3},
	}
	provider := &mockProvider{}
	service := newTeacherService(repo, provider)

	err := service.Delete(context.Background(), "acct-42")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, provider.deleteIDs)
}

func TestTeacherServiceDeleteLocalFailureIsPartial(t *testing.T) {
	repo := &mockTeacherRepo{
		items:     map[string]*models.Teacher{"acct-42": {ID: "acct-42"}},
		deleteErr: errors.New("delete failed"),
	}
	provider := &mockProvider{}
	service := newTeacherService(repo, provider)

	err := service.Delete(context.Background(), "acct-42")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPartialFailure.Code, appErr.Code)
	assert.Equal(t, []string{"acct-42"}, provider.deleteIDs)
}

func TestTeacherServiceDeleteNotFound(t *testing.T) {
	service := newTeacherService(&mockTeacherRepo{}, &mockProvider{})

	err := service.Delete(context.Background(), "missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
