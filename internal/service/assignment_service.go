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

type assignmentRepository interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

type assignmentLessonLookup interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
}

// AssignmentRequest represents payload for creating or updating assignments.
type AssignmentRequest struct {
	Title     string    `json:"title" validate:"required,max=200"`
	StartDate time.Time `json:"start_date" validate:"required"`
	DueDate   time.Time `json:"due_date" validate:"required,gtfield=StartDate"`
	LessonID  string    `json:"lesson_id" validate:"required,uuid4"`
}

// AssignmentService manages assignments attached to lessons.
type AssignmentService struct {
	repo      assignmentRepository
	lessons   assignmentLessonLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(repo assignmentRepository, lessons assignmentLessonLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, lessons: lessons, cache: cache, validator: validate, logger: logger}
}

type cachedAssignmentList struct {
	Rows  []models.AssignmentDetail `json:"rows"`
	Total int                       `json:"total"`
}

// List returns assignments visible to the caller plus pagination data.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, *models.Pagination, error) {
	key := listKey("assignments",
		fmt.Sprintf("p%d", filter.Page),
		fmt.Sprintf("s%d", filter.PageSize),
		"search="+strings.ToLower(filter.Search),
		"class="+filter.ClassID,
		"teacher="+filter.TeacherID,
		"role="+string(filter.Scope.Role),
		"uid="+filter.Scope.UserID,
	)

	var cached cachedAssignmentList
	if s.cache.Get(ctx, key, &cached) {
		return cached.Rows, paginationFor(filter.Page, filter.PageSize, cached.Total), nil
	}

	assignments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	s.cache.Set(ctx, key, cachedAssignmentList{Rows: assignments, Total: total})
	return assignments, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns an assignment by id.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// Create registers an assignment for an existing lesson.
func (s *AssignmentService) Create(ctx context.Context, req AssignmentRequest) (*models.Assignment, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		Title:     strings.TrimSpace(req.Title),
		StartDate: req.StartDate,
		DueDate:   req.DueDate,
		LessonID:  req.LessonID,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	s.cache.InvalidateList(ctx, "assignments")
	return assignment, nil
}

// Update modifies an existing assignment.
func (s *AssignmentService) Update(ctx context.Context, id string, req AssignmentRequest) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	assignment.Title = strings.TrimSpace(req.Title)
	assignment.StartDate = req.StartDate
	assignment.DueDate = req.DueDate
	assignment.LessonID = req.LessonID

	if err := s.repo.Update(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	s.cache.InvalidateList(ctx, "assignments")
	return assignment, nil
}

// Delete removes an assignment.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	s.cache.InvalidateList(ctx, "assignments")
	return nil
}

func (s *AssignmentService) validateRequest(ctx context.Context, req AssignmentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if _, err := s.lessons.FindByID(ctx, req.LessonID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lesson")
	}
	return nil
}
