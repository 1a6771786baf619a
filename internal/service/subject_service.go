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

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, int, error)
	ListTeachers(ctx context.Context, subjectID string) ([]models.TeacherRef, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
	Create(ctx context.Context, subject *models.Subject, teacherIDs []string) error
	Update(ctx context.Context, subject *models.Subject, teacherIDs []string) error
	Delete(ctx context.Context, id string) error
	CountLessons(ctx context.Context, id string) (int, error)
}

type subjectTeacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// SubjectRequest represents payload for creating or updating subjects.
// TeacherIDs fully replaces the assignment set on update.
type SubjectRequest struct {
	Name       string   `json:"name" validate:"required,max=100"`
	TeacherIDs []string `json:"teacher_ids" validate:"omitempty,dive,required"`
}

// SubjectService manages the subject catalog and teacher assignments.
type SubjectService struct {
	repo      subjectRepository
	teachers  subjectTeacherLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(repo subjectRepository, teachers subjectTeacherLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, teachers: teachers, cache: cache, validator: validate, logger: logger}
}

type cachedSubjectList struct {
	Rows  []models.SubjectDetail `json:"rows"`
	Total int                    `json:"total"`
}

// List returns subjects visible to the caller plus pagination data.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.SubjectDetail, *models.Pagination, error) {
	key := listKey("subjects",
		fmt.Sprintf("p%d", filter.Page),
		fmt.Sprintf("s%d", filter.PageSize),
		"search="+strings.ToLower(filter.Search),
		"role="+string(filter.Scope.Role),
		"uid="+filter.Scope.UserID,
	)

	var cached cachedSubjectList
	if s.cache.Get(ctx, key, &cached) {
		return cached.Rows, paginationFor(filter.Page, filter.PageSize, cached.Total), nil
	}

	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	s.cache.Set(ctx, key, cachedSubjectList{Rows: subjects, Total: total})
	return subjects, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a subject with its assigned teachers.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.SubjectDetail, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	teachers, err := s.repo.ListTeachers(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject teachers")
	}
	return &models.SubjectDetail{Subject: *subject, Teachers: teachers}, nil
}

// Create registers a subject and its initial teacher assignments.
func (s *SubjectService) Create(ctx context.Context, req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.ExistsByName(ctx, name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject name already used")
	}
	teacherIDs := dedupe(req.TeacherIDs)
	if err := s.ensureTeachers(ctx, teacherIDs); err != nil {
		return nil, err
	}

	subject := &models.Subject{Name: name}
	if err := s.repo.Create(ctx, subject, teacherIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.cache.InvalidateList(ctx, "subjects")
	return subject, nil
}

// Update renames a subject and replaces its teacher assignment set.
func (s *SubjectService) Update(ctx context.Context, id string, req SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.ExistsByName(ctx, name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject name already used")
	}
	teacherIDs := dedupe(req.TeacherIDs)
	if err := s.ensureTeachers(ctx, teacherIDs); err != nil {
		return nil, err
	}

	subject.Name = name
	if err := s.repo.Update(ctx, subject, teacherIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	s.cache.InvalidateList(ctx, "subjects")
	return subject, nil
}

// Delete removes a subject that no lesson references. The teacher
// assignment rows go with it.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	lessons, err := s.repo.CountLessons(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject lessons")
	}
	if lessons > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "subject still has scheduled lessons")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	s.cache.InvalidateList(ctx, "subjects")
	return nil
}

func (s *SubjectService) ensureTeachers(ctx context.Context, teacherIDs []string) error {
	for _, id := range teacherIDs {
		if _, err := s.teachers.FindByID(ctx, id); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s not found", id))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher")
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
