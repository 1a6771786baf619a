package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/schoolhub-io/schoolhub-api/internal/dto"
	"github.com/schoolhub-io/schoolhub-api/internal/models"
	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
)

type formTeacherSource interface {
	ListRefs(ctx context.Context) ([]models.TeacherRef, error)
	ListSupervisorCandidates(ctx context.Context) ([]models.SupervisorCandidate, error)
}

type formGradeSource interface {
	ListRefs(ctx context.Context) ([]models.GradeRef, error)
}

type formClassSource interface {
	ListRefs(ctx context.Context) ([]models.ClassRef, error)
	ListSeats(ctx context.Context) ([]models.ClassSeat, error)
}

type formSubjectSource interface {
	ListRefs(ctx context.Context) ([]models.SubjectRef, error)
}

type formLessonSource interface {
	ListRefs(ctx context.Context) ([]models.LessonRef, error)
	FindRef(ctx context.Context, id string) (*models.LessonRef, error)
}

type formExamSource interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

type formAssignmentSource interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

// FormService assembles the reference collections create/update forms
// need to populate their selection controls. All methods are reads.
type FormService struct {
	teachers    formTeacherSource
	grades      formGradeSource
	classes     formClassSource
	subjects    formSubjectSource
	lessons     formLessonSource
	exams       formExamSource
	assignments formAssignmentSource
	logger      *zap.Logger
}

// NewFormService constructs a FormService.
func NewFormService(teachers formTeacherSource, grades formGradeSource, classes formClassSource, subjects formSubjectSource, lessons formLessonSource, exams formExamSource, assignments formAssignmentSource, logger *zap.Logger) *FormService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormService{
		teachers:    teachers,
		grades:      grades,
		classes:     classes,
		subjects:    subjects,
		lessons:     lessons,
		exams:       exams,
		assignments: assignments,
		logger:      logger,
	}
}

// SubjectForm returns the teacher candidates for subject assignment.
func (s *FormService) SubjectForm(ctx context.Context) (*dto.SubjectFormData, error) {
	teachers, err := s.teachers.ListRefs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher candidates")
	}
	return &dto.SubjectFormData{Teachers: teachers}, nil
}

// ClassForm returns grades plus supervisor candidates. Each candidate
// carries whether it already supervises some class so the form can
// block double-assignment without another round trip.
func (s *FormService) ClassForm(ctx context.Context) (*dto.ClassFormData, error) {
	grades, err := s.grades.ListRefs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}
	teachers, err := s.teachers.ListSupervisorCandidates(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor candidates")
	}
	return &dto.ClassFormData{Grades: grades, Teachers: teachers}, nil
}

// TeacherForm returns the subject candidates for teacher assignment.
func (s *FormService) TeacherForm(ctx context.Context) (*dto.TeacherFormData, error) {
	subjects, err := s.subjects.ListRefs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	return &dto.TeacherFormData{Subjects: subjects}, nil
}

// StudentForm returns grades plus classes annotated with capacity and
// current enrollment.
func (s *FormService) StudentForm(ctx context.Context) (*dto.StudentFormData, error) {
	grades, err := s.grades.ListRefs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}
	classes, err := s.classes.ListSeats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	return &dto.StudentFormData{Grades: grades, Classes: classes}, nil
}

// LessonForm returns the subject, class and teacher candidates.
func (s *FormService) LessonForm(ctx context.Context) (*dto.LessonFormData, error) {
	subjects, err := s.subjects.ListRefs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	classes, err := s.classes.ListRefs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	teachers, err := s.teachers.ListRefs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	return &dto.LessonFormData{Subjects: subjects, Classes: classes, Teachers: teachers}, nil
}

// ExamForm returns lesson candidates. When an exam id is supplied the
// exam's current lesson is appended if the default candidate set no
// longer contains it, so the control can still show the selection.
func (s *FormService) ExamForm(ctx context.Context, examID string) (*dto.ExamFormData, error) {
	lessons, err := s.lessons.ListRefs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	if examID != "" {
		exam, err := s.exams.FindByID(ctx, examID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
		}
		lessons, err = s.ensureLessonCandidate(ctx, lessons, exam.LessonID)
		if err != nil {
			return nil, err
		}
	}
	return &dto.ExamFormData{Lessons: lessons}, nil
}

// AssignmentForm mirrors ExamForm for assignments.
func (s *FormService) AssignmentForm(ctx context.Context, assignmentID string) (*dto.AssignmentFormData, error) {
	lessons, err := s.lessons.ListRefs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	if assignmentID != "" {
		assignment, err := s.assignments.FindByID(ctx, assignmentID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
		}
		lessons, err = s.ensureLessonCandidate(ctx, lessons, assignment.LessonID)
		if err != nil {
			return nil, err
		}
	}
	return &dto.AssignmentFormData{Lessons: lessons}, nil
}

// EventForm returns the class candidates for optional scoping.
func (s *FormService) EventForm(ctx context.Context) (*dto.EventFormData, error) {
	classes, err := s.classes.ListRefs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	return &dto.EventFormData{Classes: classes}, nil
}

// AnnouncementForm returns the class candidates for optional scoping.
func (s *FormService) AnnouncementForm(ctx context.Context) (*dto.AnnouncementFormData, error) {
	classes, err := s.classes.ListRefs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	return &dto.AnnouncementFormData{Classes: classes}, nil
}

func (s *FormService) ensureLessonCandidate(ctx context.Context, lessons []models.LessonRef, lessonID string) ([]models.LessonRef, error) {
	for _, l := range lessons {
		if l.ID == lessonID {
			return lessons, nil
		}
	}
	ref, err := s.lessons.FindRef(ctx, lessonID)
	if err != nil {
		if err == sql.ErrNoRows {
			return lessons, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current lesson")
	}
	return append(lessons, *ref), nil
}
