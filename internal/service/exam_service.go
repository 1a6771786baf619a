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

type examRepository interface {
	List(ctx context.Context, filter models.ExamFilter) ([]models.ExamDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id string) error
}

type examLessonLookup interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
}

// ExamRequest represents payload for creating or updating exams.
type ExamRequest struct {
	Title     string    `json:"title" validate:"required,max=200"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	LessonID  string    `json:"lesson_id" validate:"required,uuid4"`
}

// ExamService manages exams attached to lessons.
type ExamService struct {
	repo      examRepository
	lessons   examLessonLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs an ExamService.
func NewExamService(repo examRepository, lessons examLessonLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{repo: repo, lessons: lessons, cache: cache, validator: validate, logger: logger}
}

type cachedExamList struct {
	Rows  []models.ExamDetail `json:"rows"`
	Total int                 `json:"total"`
}

// List returns exams visible to the caller plus pagination data.
func (s *ExamService) List(ctx context.Context, filter models.ExamFilter) ([]models.ExamDetail, *models.Pagination, error) {
	key := listKey("exams",
		fmt.Sprintf("p%d", filter.Page),
		fmt.Sprintf("s%d", filter.PageSize),
		"search="+strings.ToLower(filter.Search),
		"class="+filter.ClassID,
		"teacher="+filter.TeacherID,
		"role="+string(filter.Scope.Role),
		"uid="+filter.Scope.UserID,
	)

	var cached cachedExamList
	if s.cache.Get(ctx, key, &cached) {
		return cached.Rows, paginationFor(filter.Page, filter.PageSize, cached.Total), nil
	}

	exams, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	s.cache.Set(ctx, key, cachedExamList{Rows: exams, Total: total})
	return exams, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns an exam by id.
func (s *ExamService) Get(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

// Create schedules an exam for an existing lesson.
func (s *ExamService) Create(ctx context.Context, req ExamRequest) (*models.Exam, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	exam := &models.Exam{
		Title:     strings.TrimSpace(req.Title),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		LessonID:  req.LessonID,
	}
	if err := s.repo.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	s.cache.InvalidateList(ctx, "exams")
	return exam, nil
}

// Update reschedules an existing exam.
func (s *ExamService) Update(ctx context.Context, id string, req ExamRequest) (*models.Exam, error) {
	exam, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	exam.Title = strings.TrimSpace(req.Title)
	exam.StartTime = req.StartTime
	exam.EndTime = req.EndTime
	exam.LessonID = req.LessonID

	if err := s.repo.Update(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam")
	}
	s.cache.InvalidateList(ctx, "exams")
	return exam, nil
}

// Delete removes an exam.
func (s *ExamService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam")
	}
	s.cache.InvalidateList(ctx, "exams")
	return nil
}

func (s *ExamService) validateRequest(ctx context.Context, req ExamRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	if _, err := s.lessons.FindByID(ctx, req.LessonID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lesson")
	}
	return nil
}
