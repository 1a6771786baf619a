package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schoolhub-io/schoolhub-api/internal/identity"
	"github.com/schoolhub-io/schoolhub-api/internal/models"
	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
	CountLessons(ctx context.Context, id string) (int, error)
}

// CreateTeacherRequest represents payload for creating teachers.
type CreateTeacherRequest struct {
	Username  string  `json:"username" validate:"required,min=3,max=20"`
	Password  string  `json:"password" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Surname   string  `json:"surname" validate:"required"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone" validate:"omitempty,max=50"`
	Address   string  `json:"address" validate:"required"`
	Img       *string `json:"img" validate:"omitempty,url"`
	BloodType string  `json:"blood_type" validate:"required,max=10"`
	Sex       string  `json:"sex" validate:"required,oneof=MALE FEMALE"`
	Birthday  string  `json:"birthday" validate:"required"`
}

// UpdateTeacherRequest represents payload for updating teachers. An
// empty password leaves the provider credential untouched.
type UpdateTeacherRequest struct {
	Username  string  `json:"username" validate:"required,min=3,max=20"`
	Password  string  `json:"password"`
	Name      string  `json:"name" validate:"required"`
	Surname   string  `json:"surname" validate:"required"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone" validate:"omitempty,max=50"`
	Address   string  `json:"address" validate:"required"`
	Img       *string `json:"img" validate:"omitempty,url"`
	BloodType string  `json:"blood_type" validate:"required,max=10"`
	Sex       string  `json:"sex" validate:"required,oneof=MALE FEMALE"`
	Birthday  string  `json:"birthday" validate:"required"`
}

// TeacherService orchestrates teacher records together with their
// identity-provider accounts.
type TeacherService struct {
	repo        teacherRepository
	provider    identity.Provider
	compensator *Compensator
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, provider identity.Provider, compensator *Compensator, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, provider: provider, compensator: compensator, cache: cache, validator: validate, logger: logger}
}

type cachedTeacherList struct {
	Rows  []models.Teacher `json:"rows"`
	Total int              `json:"total"`
}

// List returns teachers visible to the caller plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	key := listKey("teachers",
		fmt.Sprintf("p%d", filter.Page),
		fmt.Sprintf("s%d", filter.PageSize),
		"search="+strings.ToLower(filter.Search),
		"class="+filter.ClassID,
		"role="+string(filter.Scope.Role),
		"uid="+filter.Scope.UserID,
	)

	var cached cachedTeacherList
	if s.cache.Get(ctx, key, &cached) {
		return cached.Rows, paginationFor(filter.Page, filter.PageSize, cached.Total), nil
	}

	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	s.cache.Set(ctx, key, cachedTeacherList{Rows: teachers, Total: total})
	return teachers, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Create provisions the identity account first, then persists the local
// record under the provider-issued id. A failed local write triggers
// compensation of the already-created account.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	birthday, err := parseDate(req.Birthday)
	if err != nil {
		return nil, err
	}

	account, err := s.provider.CreateUser(ctx, identity.CreateUserInput{
		Username:  strings.TrimSpace(req.Username),
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.Name),
		LastName:  strings.TrimSpace(req.Surname),
		Role:      models.RoleTeacher,
	})
	if err != nil {
		return nil, err
	}

	teacher := &models.Teacher{
		ID:        account.ID,
		Username:  strings.TrimSpace(req.Username),
		Name:      strings.TrimSpace(req.Name),
		Surname:   strings.TrimSpace(req.Surname),
		Email:     normalizeOptional(req.Email),
		Phone:     normalizeOptional(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		Img:       normalizeOptional(req.Img),
		BloodType: strings.TrimSpace(req.BloodType),
		Sex:       req.Sex,
		Birthday:  birthday,
	}

	if err := s.repo.Create(ctx, teacher); err != nil {
		s.logger.Error("teacher insert failed after account creation",
			zap.String("teacher_id", account.ID),
			zap.Error(err),
		)
		if compErr := s.compensator.DeleteAccount(ctx, account.ID); compErr != nil {
			return nil, compErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}

	s.cache.InvalidateList(ctx, "teachers")
	return teacher, nil
}

// Update mirrors profile changes to the provider before the local
// write. A failed local write pushes the previous profile back.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	if req.Password != "" {
		if err := validatePassword(req.Password); err != nil {
			return nil, err
		}
	}
	birthday, err := parseDate(req.Birthday)
	if err != nil {
		return nil, err
	}

	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	previous := identity.UpdateUserInput{
		Username:  teacher.Username,
		FirstName: teacher.Name,
		LastName:  teacher.Surname,
	}

	if err := s.provider.UpdateUser(ctx, id, identity.UpdateUserInput{
		Username:  strings.TrimSpace(req.Username),
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.Name),
		LastName:  strings.TrimSpace(req.Surname),
	}); err != nil {
		return nil, err
	}

	teacher.Username = strings.TrimSpace(req.Username)
	teacher.Name = strings.TrimSpace(req.Name)
	teacher.Surname = strings.TrimSpace(req.Surname)
	teacher.Email = normalizeOptional(req.Email)
	teacher.Phone = normalizeOptional(req.Phone)
	teacher.Address = strings.TrimSpace(req.Address)
	teacher.Img = normalizeOptional(req.Img)
	teacher.BloodType = strings.TrimSpace(req.BloodType)
	teacher.Sex = req.Sex
	teacher.Birthday = birthday

	if err := s.repo.Update(ctx, teacher); err != nil {
		s.logger.Error("teacher update failed after account update",
			zap.String("teacher_id", id),
			zap.Error(err),
		)
		if compErr := s.compensator.RestoreAccount(ctx, id, previous); compErr != nil {
			return nil, compErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}

	s.cache.InvalidateList(ctx, "teachers")
	return teacher, nil
}

// Delete removes the account and the local record. Teachers still
// referenced by lessons are rejected so schedules never dangle.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	lessons, err := s.repo.CountLessons(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher lessons")
	}
	if lessons > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "teacher still has scheduled lessons")
	}

	if err := s.provider.DeleteUser(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("teacher delete failed after account removal",
			zap.String("teacher_id", id),
			zap.Error(err),
		)
		return appErrors.Clone(appErrors.ErrPartialFailure, "account was removed but the teacher record remains; manual cleanup required")
	}

	s.cache.InvalidateList(ctx, "teachers")
	return nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

// parseDate accepts a plain date or a full RFC 3339 timestamp.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	return t, nil
}
