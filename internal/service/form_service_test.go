package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
)

type mockFormTeachers struct {
	refs       []models.TeacherRef
	candidates []models.SupervisorCandidate
}

func (m *mockFormTeachers) ListRefs(ctx context.Context) ([]models.TeacherRef, error) {
	return m.refs, nil
}

func (m *mockFormTeachers) ListSupervisorCandidates(ctx context.Context) ([]models.SupervisorCandidate, error) {
	return m.candidates, nil
}

type mockFormGrades struct {
	refs []models.GradeRef
}

func (m *mockFormGrades) ListRefs(ctx context.Context) ([]models.GradeRef, error) {
	return m.refs, nil
}

type mockFormClasses struct {
	refs  []models.ClassRef
	seats []models.ClassSeat
}

func (m *mockFormClasses) ListRefs(ctx context.Context) ([]models.ClassRef, error) {
	return m.refs, nil
}

func (m *mockFormClasses) ListSeats(ctx context.Context) ([]models.ClassSeat, error) {
	return m.seats, nil
}

type mockFormSubjects struct {
	refs []models.SubjectRef
}

func (m *mockFormSubjects) ListRefs(ctx context.Context) ([]models.SubjectRef, error) {
	return m.refs, nil
}

type mockFormLessons struct {
	refs  []models.LessonRef
	extra map[string]*models.LessonRef
}

func (m *mockFormLessons) ListRefs(ctx context.Context) ([]models.LessonRef, error) {
	return m.refs, nil
}

func (m *mockFormLessons) FindRef(ctx context.Context, id string) (*models.LessonRef, error) {
	if ref, ok := m.extra[id]; ok {
		return ref, nil
	}
	for _, ref := range m.refs {
		if ref.ID == id {
			cp := ref
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

type mockFormExams struct {
	items map[string]*models.Exam
}

func (m *mockFormExams) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	if exam, ok := m.items[id]; ok {
		return exam, nil
	}
	return nil, sql.ErrNoRows
}

type mockFormAssignments struct {
	items map[string]*models.Assignment
}

func (m *mockFormAssignments) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if assignment, ok := m.items[id]; ok {
		return assignment, nil
	}
	return nil, sql.ErrNoRows
}

func newFormService(teachers *mockFormTeachers, lessons *mockFormLessons, exams *mockFormExams, assignments *mockFormAssignments) *FormService {
	if teachers == nil {
		teachers = &mockFormTeachers{}
	}
	if lessons == nil {
		lessons = &mockFormLessons{}
	}
	if exams == nil {
		exams = &mockFormExams{}
	}
	if assignments == nil {
		assignments = &mockFormAssignments{}
	}
	grades := &mockFormGrades{refs: []models.GradeRef{{ID: "g1", Level: 5}}}
	classes := &mockFormClasses{
		refs:  []models.ClassRef{{ID: "c1", Name: "5A"}},
		seats: []models.ClassSeat{{ClassRef: models.ClassRef{ID: "c1", Name: "5A"}, Capacity: 20, Enrolled: 18}},
	}
	subjects := &mockFormSubjects{refs: []models.SubjectRef{{ID: "s1", Name: "Mathematics"}}}
	return NewFormService(teachers, grades, classes, subjects, lessons, exams, assignments, nil)
}

func TestFormServiceClassFormFlagsSupervisors(t *testing.T) {
	teachers := &mockFormTeachers{candidates: []models.SupervisorCandidate{
		{TeacherRef: models.TeacherRef{ID: "t1", Name: "John", Surname: "Doe"}, IsSupervisor: true},
		{TeacherRef: models.TeacherRef{ID: "t2", Name: "Sara", Surname: "Lee"}, IsSupervisor: false},
	}}
	service := newFormService(teachers, nil, nil, nil)

	form, err := service.ClassForm(context.Background())
	require.NoError(t, err)
	require.Len(t, form.Teachers, 2)
	assert.True(t, form.Teachers[0].IsSupervisor)
	assert.False(t, form.Teachers[1].IsSupervisor)
	assert.Len(t, form.Grades, 1)
}

func TestFormServiceStudentFormIncludesSeats(t *testing.T) {
	service := newFormService(nil, nil, nil, nil)

	form, err := service.StudentForm(context.Background())
	require.NoError(t, err)
	require.Len(t, form.Classes, 1)
	assert.Equal(t, 20, form.Classes[0].Capacity)
	assert.Equal(t, 18, form.Classes[0].Enrolled)
}

func TestFormServiceExamFormAppendsMissingLesson(t *testing.T) {
	lessons := &mockFormLessons{
		refs:  []models.LessonRef{{ID: "l1", Name: "Algebra"}},
		extra: map[string]*models.LessonRef{"l9": {ID: "l9", Name: "Retired Lesson"}},
	}
	exams := &mockFormExams{items: map[string]*models.Exam{
		"e1": {ID: "e1", Title: "Midterm", LessonID: "l9"},
	}}
	service := newFormService(nil, lessons, exams, nil)

	form, err := service.ExamForm(context.Background(), "e1")
	require.NoError(t, err)
	require.Len(t, form.Lessons, 2)
	assert.Equal(t, "l9", form.Lessons[1].ID)
}

func TestFormServiceExamFormSkipsAppendWhenPresent(t *testing.T) {
	lessons := &mockFormLessons{refs: []models.LessonRef{{ID: "l1", Name: "Algebra"}}}
	exams := &mockFormExams{items: map[string]*models.Exam{
		"e1": {ID: "e1", Title: "Midterm", LessonID: "l1"},
	}}
	service := newFormService(nil, lessons, exams, nil)

	form, err := service.ExamForm(context.Background(), "e1")
	require.NoError(t, err)
	assert.Len(t, form.Lessons, 1)
}

func TestFormServiceAssignmentFormAppendsMissingLesson(t *testing.T) {
	lessons := &mockFormLessons{
		refs:  []models.LessonRef{{ID: "l1", Name: "Algebra"}},
		extra: map[string]*models.LessonRef{"l7": {ID: "l7", Name: "Old Lesson"}},
	}
	assignments := &mockFormAssignments{items: map[string]*models.Assignment{
		"a1": {ID: "a1", Title: "Homework", LessonID: "l7"},
	}}
	service := newFormService(nil, lessons, nil, assignments)

	form, err := service.AssignmentForm(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, form.Lessons, 2)
	assert.Equal(t, "l7", form.Lessons[1].ID)
}
