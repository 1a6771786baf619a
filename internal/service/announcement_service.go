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

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.AnnouncementDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

type announcementClassLookup interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// AnnouncementRequest represents payload for creating or updating
// announcements. A nil class id makes the announcement school-wide.
type AnnouncementRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"required"`
	Date        time.Time `json:"date" validate:"required"`
	ClassID     *string   `json:"class_id" validate:"omitempty,uuid4"`
}

// AnnouncementService manages announcements.
type AnnouncementService struct {
	repo      announcementRepository
	classes   announcementClassLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs an AnnouncementService.
func NewAnnouncementService(repo announcementRepository, classes announcementClassLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{repo: repo, classes: classes, cache: cache, validator: validate, logger: logger}
}

type cachedAnnouncementList struct {
	Rows  []models.AnnouncementDetail `json:"rows"`
	Total int                         `json:"total"`
}

// List returns announcements visible to the caller plus pagination data.
func (s *AnnouncementService) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.AnnouncementDetail, *models.Pagination, error) {
	key := listKey("announcements",
		fmt.Sprintf("p%d", filter.Page),
		fmt.Sprintf("s%d", filter.PageSize),
		"search="+strings.ToLower(filter.Search),
		"class="+filter.ClassID,
		"role="+string(filter.Scope.Role),
		"uid="+filter.Scope.UserID,
	)

	var cached cachedAnnouncementList
	if s.cache.Get(ctx, key, &cached) {
		return cached.Rows, paginationFor(filter.Page, filter.PageSize, cached.Total), nil
	}

	announcements, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	s.cache.Set(ctx, key, cachedAnnouncementList{Rows: announcements, Total: total})
	return announcements, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns an announcement by id.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	announcement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	return announcement, nil
}

// Create publishes a new announcement.
func (s *AnnouncementService) Create(ctx context.Context, req AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	announcement := &models.Announcement{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Date:        req.Date,
		ClassID:     normalizeOptional(req.ClassID),
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	s.cache.InvalidateList(ctx, "announcements")
	return announcement, nil
}

// Update modifies an existing announcement.
func (s *AnnouncementService) Update(ctx context.Context, id string, req AnnouncementRequest) (*models.Announcement, error) {
	announcement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	announcement.Title = strings.TrimSpace(req.Title)
	announcement.Description = strings.TrimSpace(req.Description)
	announcement.Date = req.Date
	announcement.ClassID = normalizeOptional(req.ClassID)

	if err := s.repo.Update(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	s.cache.InvalidateList(ctx, "announcements")
	return announcement, nil
}

// Delete removes an announcement.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	s.cache.InvalidateList(ctx, "announcements")
	return nil
}

func (s *AnnouncementService) validateRequest(ctx context.Context, req AnnouncementRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	if req.ClassID != nil && strings.TrimSpace(*req.ClassID) != "" {
		if _, err := s.classes.FindByID(ctx, strings.TrimSpace(*req.ClassID)); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrValidation, "class not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class")
		}
	}
	return nil
}
