package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schoolhub-io/schoolhub-api/internal/models"
	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
	CountDependents(ctx context.Context, id string) (int, error)
}

type classGradeLookup interface {
	FindByID(ctx context.Context, id string) (*models.Grade, error)
}

type classTeacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// ClassRequest represents payload for creating or updating classes.
type ClassRequest struct {
	Name         string  `json:"name" validate:"required,max=100"`
	Capacity     int     `json:"capacity" validate:"required,min=1,max=1000"`
	GradeID      string  `json:"grade_id" validate:"required,uuid4"`
	SupervisorID *string `json:"supervisor_id" validate:"omitempty"`
}

// ClassService manages class sections.
type ClassService struct {
	repo      classRepository
	grades    classGradeLookup
	teachers  classTeacherLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, grades classGradeLookup, teachers classTeacherLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, grades: grades, teachers: teachers, cache: cache, validator: validate, logger: logger}
}

type cachedClassList struct {
	Rows  []models.ClassDetail `json:"rows"`
	Total int                  `json:"total"`
}

// List returns classes visible to the caller plus pagination data.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	key := listKey("classes",
		fmt.Sprintf("p%d", filter.Page),
		fmt.Sprintf("s%d", filter.PageSize),
		"search="+strings.ToLower(filter.Search),
		"supervisor="+filter.SupervisorID,
		"grade="+filter.GradeID,
		"role="+string(filter.Scope.Role),
		"uid="+filter.Scope.UserID,
	)

	var cached cachedClassList
	if s.cache.Get(ctx, key, &cached) {
		return cached.Rows, paginationFor(filter.Page, filter.PageSize, cached.Total), nil
	}

	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	s.cache.Set(ctx, key, cachedClassList{Rows: classes, Total: total})
	return classes, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a class by id.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create registers a new class section.
func (s *ClassService) Create(ctx context.Context, req ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if err := s.ensureReferences(ctx, req.GradeID, req.SupervisorID); err != nil {
		return nil, err
	}

	class := &models.Class{
		Name:         strings.TrimSpace(req.Name),
		Capacity:     req.Capacity,
		GradeID:      req.GradeID,
		SupervisorID: normalizeOptional(req.SupervisorID),
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.cache.InvalidateList(ctx, "classes")
	return class, nil
}

// Update modifies an existing class section.
func (s *ClassService) Update(ctx context.Context, id string, req ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.ensureReferences(ctx, req.GradeID, req.SupervisorID); err != nil {
		return nil, err
	}

	class.Name = strings.TrimSpace(req.Name)
	class.Capacity = req.Capacity
	class.GradeID = req.GradeID
	class.SupervisorID = normalizeOptional(req.SupervisorID)

	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	s.cache.InvalidateList(ctx, "classes")
	return class, nil
}

// Delete removes a class that no student or lesson references.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	dependents, err := s.repo.CountDependents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class dependents")
	}
	if dependents > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "class still has students or lessons")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	s.cache.InvalidateList(ctx, "classes")
	return nil
}

func (s *ClassService) ensureReferences(ctx context.Context, gradeID string, supervisorID *string) error {
	if _, err := s.grades.FindByID(ctx, gradeID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "grade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grade")
	}
	if supervisorID != nil && strings.TrimSpace(*supervisorID) != "" {
		if _, err := s.teachers.FindByID(ctx, strings.TrimSpace(*supervisorID)); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrValidation, "supervisor teacher not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check supervisor")
		}
	}
	return nil
}
