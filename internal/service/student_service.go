package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/schoolhub-io/schoolhub-api/internal/identity"
	"github.com/schoolhub-io/schoolhub-api/internal/models"
	"github.com/schoolhub-io/schoolhub-api/internal/repository"
	appErrors "github.com/schoolhub-io/schoolhub-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	CreateEnrolled(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type studentGradeLookup interface {
	FindByID(ctx context.Context, id string) (*models.Grade, error)
}

type studentClassLookup interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// CreateStudentRequest represents payload for enrolling students.
type CreateStudentRequest struct {
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
	GradeID   string  `json:"grade_id" validate:"required,uuid4"`
	ClassID   string  `json:"class_id" validate:"required,uuid4"`
	ParentID  *string `json:"parent_id" validate:"omitempty"`
}

// UpdateStudentRequest represents payload for updating students.
type UpdateStudentRequest struct {
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
	GradeID   string  `json:"grade_id" validate:"required,uuid4"`
	ClassID   string  `json:"class_id" validate:"required,uuid4"`
	ParentID  *string `json:"parent_id" validate:"omitempty"`
}

// StudentService orchestrates student enrollment together with the
// identity-provider account lifecycle.
type StudentService struct {
	repo        studentRepository
	grades      studentGradeLookup
	classes     studentClassLookup
	provider    identity.Provider
	compensator *Compensator
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, grades studentGradeLookup, classes studentClassLookup, provider identity.Provider, compensator *Compensator, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:        repo,
		grades:      grades,
		classes:     classes,
		provider:    provider,
		compensator: compensator,
		cache:       cache,
		validator:   validate,
		logger:      logger,
	}
}

type cachedStudentList struct {
	Rows  []models.StudentDetail `json:"rows"`
	Total int                    `json:"total"`
}

// List returns students visible to the caller plus pagination data.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	key := listKey("students",
		fmt.Sprintf("p%d", filter.Page),
		fmt.Sprintf("s%d", filter.PageSize),
		"search="+strings.ToLower(filter.Search),
		"class="+filter.ClassID,
		"teacher="+filter.TeacherID,
		"role="+string(filter.Scope.Role),
		"uid="+filter.Scope.UserID,
	)

	var cached cachedStudentList
	if s.cache.Get(ctx, key, &cached) {
		return cached.Rows, paginationFor(filter.Page, filter.PageSize, cached.Total), nil
	}

	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	s.cache.Set(ctx, key, cachedStudentList{Rows: students, Total: total})
	return students, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create provisions the identity account, then enrolls the student.
// Enrollment re-checks class capacity under lock; a full class rolls
// the account back and reports a conflict.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	birthday, err := parseDate(req.Birthday)
	if err != nil {
		return nil, err
	}
	if err := s.ensureReferences(ctx, req.GradeID, req.ClassID); err != nil {
		return nil, err
	}

	account, err := s.provider.CreateUser(ctx, identity.CreateUserInput{
		Username:  strings.TrimSpace(req.Username),
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.Name),
		LastName:  strings.TrimSpace(req.Surname),
		Role:      models.RoleStudent,
	})
	if err != nil {
		return nil, err
	}

	student := &models.Student{
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
		GradeID:   req.GradeID,
		ClassID:   req.ClassID,
		ParentID:  normalizeOptional(req.ParentID),
	}

	if err := s.repo.CreateEnrolled(ctx, student); err != nil {
		s.logger.Error("student insert failed after account creation",
			zap.String("student_id", account.ID),
			zap.Error(err),
		)
		if compErr := s.compensator.DeleteAccount(ctx, account.ID); compErr != nil {
			return nil, compErr
		}
		if errors.Is(err, repository.ErrClassFull) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class is at capacity")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	s.cache.InvalidateList(ctx, "students")
	return student, nil
}

// Update mirrors profile changes to the provider before the local
// write. Moving the student to another class re-validates references.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
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

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if err := s.ensureReferences(ctx, req.GradeID, req.ClassID); err != nil {
		return nil, err
	}

	previous := identity.UpdateUserInput{
		Username:  student.Username,
		FirstName: student.Name,
		LastName:  student.Surname,
	}

	if err := s.provider.UpdateUser(ctx, id, identity.UpdateUserInput{
		Username:  strings.TrimSpace(req.Username),
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.Name),
		LastName:  strings.TrimSpace(req.Surname),
	}); err != nil {
		return nil, err
	}

	student.Username = strings.TrimSpace(req.Username)
	student.Name = strings.TrimSpace(req.Name)
	student.Surname = strings.TrimSpace(req.Surname)
	student.Email = normalizeOptional(req.Email)
	student.Phone = normalizeOptional(req.Phone)
	student.Address = strings.TrimSpace(req.Address)
	student.Img = normalizeOptional(req.Img)
	student.BloodType = strings.TrimSpace(req.BloodType)
	student.Sex = req.Sex
	student.Birthday = birthday
	student.GradeID = req.GradeID
	student.ClassID = req.ClassID
	student.ParentID = normalizeOptional(req.ParentID)

	if err := s.repo.Update(ctx, student); err != nil {
		s.logger.Error("student update failed after account update",
			zap.String("student_id", id),
			zap.Error(err),
		)
		if compErr := s.compensator.RestoreAccount(ctx, id, previous); compErr != nil {
			return nil, compErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	s.cache.InvalidateList(ctx, "students")
	return student, nil
}

// Delete removes the account and the local record.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if err := s.provider.DeleteUser(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("student delete failed after account removal",
			zap.String("student_id", id),
			zap.Error(err),
		)
		return appErrors.Clone(appErrors.ErrPartialFailure, "account was removed but the student record remains; manual cleanup required")
	}

	s.cache.InvalidateList(ctx, "students")
	return nil
}

func (s *StudentService) ensureReferences(ctx context.Context, gradeID, classID string) error {
	if _, err := s.grades.FindByID(ctx, gradeID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "grade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check grade")
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class")
	}
	return nil
}
