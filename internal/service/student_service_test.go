package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
	"github.com/schoolhub-io/schoolhub-api/internal/repository"
	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
)

type mockStudentRepo struct {
	items      map[string]*models.Student
	listResult []models.StudentDetail
	listTotal  int
	createErr  error
	updateErr  error
	deleteErr  error
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := m.items[id]; ok {
		cp := *student
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) CreateEnrolled(ctx context.Context, student *models.Student) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.items == nil {
		m.items = make(map[string]*models.Student)
	}
	cp := *student
	m.items[student.ID] = &cp
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *student
	m.items[student.ID] = &cp
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.items, id)
	return nil
}

type mockGradeLookup struct {
	grades map[string]*models.Grade
}

func (m *mockGradeLookup) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	if grade, ok := m.grades[id]; ok {
		return grade, nil
	}
	return nil, sql.ErrNoRows
}

type mockClassLookup struct {
	classes map[string]*models.Class
}

func (m *mockClassLookup) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if class, ok := m.classes[id]; ok {
		return class, nil
	}
	return nil, sql.ErrNoRows
}

const (
	testGradeID = "11111111-2222-4333-8444-555555555555"
	testClassID = "aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee"
)

func validStudentRequest() CreateStudentRequest {
	return CreateStudentRequest{
		Username:  "spupil",
		Password:  "Str0ng!pass",
		Name:      "Sara",
		Surname:   "Pupil",
		Address:   "3 Main St",
		BloodType: "O-",
		Sex:       "FEMALE",
		Birthday:  "2010-09-01",
		GradeID:   testGradeID,
		ClassID:   testClassID,
	}
}

func newStudentService(repo *mockStudentRepo, provider *mockProvider) *StudentService {
	grades := &mockGradeLookup{grades: map[string]*models.Grade{testGradeID: {ID: testGradeID, Level: 5}}}
	classes := &mockClassLookup{classes: map[string]*models.Class{testClassID: {ID: testClassID, Name: "5A", Capacity: 20}}}
	return NewStudentService(repo, grades, classes, provider, newTestCompensator(provider), nil, validator.New(), zap.NewNop())
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &mockStudentRepo{}
	provider := &mockProvider{createID: "acct-7"}
	service := newStudentService(repo, provider)

	student, err := service.Create(context.Background(), validStudentRequest())
	require.NoError(t, err)
	assert.Equal(t, "acct-7", student.ID)
	require.Len(t, provider.createInputs, 1)
	assert.Equal(t, models.RoleStudent, provider.createInputs[0].Role)
	assert.Len(t, repo.items, 1)
}

func TestStudentServiceCreateUnknownClass(t *testing.T) {
	repo := &mockStudentRepo{}
	provider := &mockProvider{}
	service := newStudentService(repo, provider)

	req := validStudentRequest()
	req.ClassID = "99999999-8888-4777-8666-555555555555"
	_, err := service.Create(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "class not found")
	assert.Empty(t, provider.createInputs)
}

func TestStudentServiceCreateFullClass(t *testing.T) {
	repo := &mockStudentRepo{createErr: repository.ErrClassFull}
	provider := &mockProvider{createID: "acct-7"}
	service := newStudentService(repo, provider)

	_, err := service.Create(context.Background(), validStudentRequest())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "capacity")
	assert.Equal(t, []string{"acct-7"}, provider.deleteIDs)
	assert.Empty(t, repo.items)
}

func TestStudentServiceCreateWeakPasswordSkipsProvider(t *testing.T) {
	repo := &mockStudentRepo{}
	provider := &mockProvider{}
	service := newStudentService(repo, provider)

	req := validStudentRequest()
	req.Password = "short"
	_, err := service.Create(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "8 characters")
	assert.Empty(t, provider.createInputs)
}

func TestStudentServiceUpdateRestoresOnLocalFailure(t *testing.T) {
	repo := &mockStudentRepo{
		items: map[string]*models.Student{
			"acct-7": {ID: "acct-7", Username: "spupil", Name: "Sara", Surname: "Pupil", GradeID: testGradeID, ClassID: testClassID},
		},
		updateErr: errors.New("update failed"),
	}
	provider := &mockProvider{}
	service := newStudentService(repo, provider)

	req := UpdateStudentRequest{
		Username:  "spupil2",
		Name:      "Sarah",
		Surname:   "Pupil",
		Address:   "4 Main St",
		BloodType: "O-",
		Sex:       "FEMALE",
		Birthday:  "2010-09-01",
		GradeID:   testGradeID,
		ClassID:   testClassID,
	}
	_, err := service.Update(context.Background(), "acct-7", req)
	require.Error(t, err)
	require.Len(t, provider.updateCalls, 2)
	assert.Equal(t, "spupil", provider.updateCalls[1].Input.Username)
}

func TestStudentServiceDelete(t *testing.T) {
	repo := &mockStudentRepo{items: map[string]*models.Student{"acct-7": {ID: "acct-7"}}}
	provider := &mockProvider{}
	service := newStudentService(repo, provider)

	err := service.Delete(context.Background(), "acct-7")
	require.NoError(t, err)
	assert.Equal(t, []string{"acct-7"}, provider.deleteIDs)
	assert.Empty(t, repo.items)
}
