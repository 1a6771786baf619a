package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
)

type lessonRepository interface {
	List(ctx context.Context, filter models.LessonFilter) ([]models.LessonDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	Update(ctx context.Context, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
	CountDependents(ctx context.Context, id string) (int, error)
}

type lessonSubjectLookup interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type lessonClassLookup interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type lessonTeacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// LessonRequest represents payload for creating or updating lessons.
type LessonRequest struct {
	Name      string    `json:"name" validate:"required,max=100"`
	Day       string    `json:"day" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	SubjectID string    `json:"subject_id" validate:"required,uuid4"`
	ClassID   string    `json:"class_id" validate:"required,uuid4"`
	TeacherID string    `json:"teacher_id" validate:"required"`
}

// LessonService manages the lesson schedule.
type LessonService struct {
	repo      lessonRepository
	subjects  lessonSubjectLookup
	classes   lessonClassLookup
	teachers  lessonTeacherLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonService constructs a LessonService.
func NewLessonService(repo lessonRepository, subjects lessonSubjectLookup, classes lessonClassLookup, teachers lessonTeacherLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{repo: repo, subjects: subjects, classes: classes, teachers: teachers, cache: cache, validator: validate, logger: logger}
}

type cachedLessonList struct {
	Rows  []models.LessonDetail `json:"rows"`
	Total int                   `json:"total"`
}

// List returns lessons visible to the caller plus pagination data.
func (s *LessonService) List(ctx context.Context, filter models.LessonFilter) ([]models.LessonDetail, *models.Pagination, error) {
	key := listKey("lessons",
		fmt.Sprintf("p%d", filter.Page),
		fmt.Sprintf("s%d", filter.PageSize),
		"search="+strings.ToLower(filter.Search),
		"class="+filter.ClassID,
		"teacher="+filter.TeacherID,
		"role="+string(filter.Scope.Role),
		"uid="+filter.Scope.UserID,
	)

	var cached cachedLessonList
	if s.cache.Get(ctx, key, &cached) {
		return cached.Rows, paginationFor(filter.Page, filter.PageSize, cached.Total), nil
	}

	lessons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	s.cache.Set(ctx, key, cachedLessonList{Rows: lessons, Total: total})
	return lessons, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a lesson by id.
func (s *LessonService) Get(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	return lesson, nil
}

// Create schedules a new lesson after resolving all three references.
func (s *LessonService) Create(ctx context.Context, req LessonRequest) (*models.Lesson, error) {
	day, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	lesson := &models.Lesson{
		Name:      strings.TrimSpace(req.Name),
		Day:       day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		SubjectID: req.SubjectID,
		ClassID:   req.ClassID,
		TeacherID: req.TeacherID,
	}
	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	s.cache.InvalidateList(ctx, "lessons")
	return lesson, nil
}

// Update reschedules an existing lesson.
func (s *LessonService) Update(ctx context.Context, id string, req LessonRequest) (*models.Lesson, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	day, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	lesson.Name = strings.TrimSpace(req.Name)
	lesson.Day = day
	lesson.StartTime = req.StartTime
	lesson.EndTime = req.EndTime
	lesson.SubjectID = req.SubjectID
	lesson.ClassID = req.ClassID
	lesson.TeacherID = req.TeacherID

	if err := s.repo.Update(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}
	s.cache.InvalidateList(ctx, "lessons")
	return lesson, nil
}

// Delete removes a lesson that no exam, assignment or attendance
// references.
func (s *LessonService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	dependents, err := s.repo.CountDependents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lesson dependents")
	}
	if dependents > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "lesson still has exams, assignments or attendance records")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}
	s.cache.InvalidateList(ctx, "lessons")
	return nil
}

func (s *LessonService) validate(ctx context.Context, req LessonRequest) (models.Weekday, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	day := models.Weekday(strings.ToUpper(strings.TrimSpace(req.Day)))
	if !day.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "day must be a school day between MONDAY and FRIDAY")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if err == sql.ErrNoRows {
			return "", appErrors.Clone(appErrors.ErrValidation, "subject not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if err == sql.ErrNoRows {
			return "", appErrors.Clone(appErrors.ErrValidation, "class not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class")
	}
	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if err == sql.ErrNoRows {
			return "", appErrors.Clone(appErrors.ErrValidation, "teacher not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher")
	}
	return day, nil
}
