package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/schoolhub-io/schoolhub-api/api/swagger"
	"github.com/schoolhub-io/schoolhub-api/internal/handler"
	"github.com/schoolhub-io/schoolhub-api/internal/identity"
	"github.com/schoolhub-io/schoolhub-api/internal/repository"
	"github.com/schoolhub-io/schoolhub-api/internal/service"
	"github.com/schoolhub-io/schoolhub-api/pkg/cache"
	"github.com/schoolhub-io/schoolhub-api/pkg/config"
	"github.com/schoolhub-io/schoolhub-api/pkg/database"
	"github.com/schoolhub-io/schoolhub-api/pkg/logger"
	"github.com/schoolhub-io/schoolhub-api/pkg/storage"
)

// @title SchoolHub API
// @version 1.0.0
// @description Role-aware school management backend
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheSvc *service.CacheService
	metricsSvc := service.NewMetricsService()
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.ListTTL, logr, true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := identity.NewClient(cfg.Identity, logr)
	compensator := service.NewCompensator(provider, cfg.Cleanup, logr)
	compensator.Start(ctx)
	defer compensator.Stop()

	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	examRepo := repository.NewExamRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	eventRepo := repository.NewEventRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	validate := validator.New()

	teacherSvc := service.NewTeacherService(teacherRepo, provider, compensator, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, gradeRepo, classRepo, provider, compensator, cacheSvc, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, cacheSvc, validate, logr)
	classSvc := service.NewClassService(classRepo, gradeRepo, teacherRepo, cacheSvc, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, teacherRepo, cacheSvc, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, subjectRepo, classRepo, teacherRepo, cacheSvc, validate, logr)
	examSvc := service.NewExamService(examRepo, lessonRepo, cacheSvc, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, lessonRepo, cacheSvc, validate, logr)
	eventSvc := service.NewEventService(eventRepo, classRepo, cacheSvc, validate, logr)
	announcementSvc := service.NewAnnouncementService(announcementRepo, classRepo, cacheSvc, validate, logr)
	formSvc := service.NewFormService(teacherRepo, gradeRepo, classRepo, subjectRepo, lessonRepo, examRepo, assignmentRepo, logr)

	archive, err := storage.NewArchive(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export archive", "error", err)
	}
	signer := storage.NewTokenSigner(cfg.Auth.JWTSecret, cfg.Export.LinkTTL)
	exportSvc := service.NewExportService(teacherRepo, studentRepo, nil, nil, archive, signer, logr)

	go sweepArchive(ctx, archive, cfg.Export.LinkTTL, logr)

	handlers := handler.Handlers{
		Teachers:      handler.NewTeacherHandler(teacherSvc),
		Students:      handler.NewStudentHandler(studentSvc),
		Grades:        handler.NewGradeHandler(gradeSvc),
		Classes:       handler.NewClassHandler(classSvc),
		Subjects:      handler.NewSubjectHandler(subjectSvc),
		Lessons:       handler.NewLessonHandler(lessonSvc),
		Exams:         handler.NewExamHandler(examSvc),
		Assignments:   handler.NewAssignmentHandler(assignmentSvc),
		Events:        handler.NewEventHandler(eventSvc),
		Announcements: handler.NewAnnouncementHandler(announcementSvc),
		Forms:         handler.NewFormHandler(formSvc),
		Exports:       handler.NewExportHandler(exportSvc),
	}

	router := handler.NewRouter(cfg, logr, handlers, metricsSvc, auditRepo)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// sweepArchive drops archived exports whose signed links have expired.
func sweepArchive(ctx context.Context, archive *storage.Archive, ttl time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := archive.Sweep(ttl)
			if err != nil {
				logr.Sugar().Warnw("export archive sweep failed", "error", err)
				continue
			}
			if len(removed) > 0 {
				logr.Sugar().Infow("export archive swept", "removed", len(removed))
			}
		}
	}
}
