package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/schoolhub-io/schoolhub-api/internal/access"
	"github.com/schoolhub-io/schoolhub-api/internal/middleware"
	"github.com/schoolhub-io/schoolhub-api/internal/models"
	"github.com/schoolhub-io/schoolhub-api/internal/repository"
	"github.com/schoolhub-io/schoolhub-api/internal/service"
	"github.com/schoolhub-io/schoolhub-api/pkg/config"
	"github.com/schoolhub-io/schoolhub-api/pkg/logger"
	corsmiddleware "github.com/schoolhub-io/schoolhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/schoolhub-io/schoolhub-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler mounted by the router.
type Handlers struct {
	Teachers      *TeacherHandler
	Students      *StudentHandler
	Grades        *GradeHandler
	Classes       *ClassHandler
	Subjects      *SubjectHandler
	Lessons       *LessonHandler
	Exams         *ExamHandler
	Assignments   *AssignmentHandler
	Events        *EventHandler
	Announcements *AnnouncementHandler
	Forms         *FormHandler
	Exports       *ExportHandler
}

// NewRouter assembles the gin engine: global middleware, health and
// metrics endpoints, swagger outside production, and the authenticated
// API group with per-route authorization and audit trails.
func NewRouter(cfg *config.Config, logr *zap.Logger, handlers Handlers, metricsSvc *service.MetricsService, auditRepo *repository.AuditRepository) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Signed tokens carry their own authorization.
	r.GET(cfg.APIPrefix+"/exports/download", handlers.Exports.Download)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.Auth))

	mountCRUD(api, "/teachers", crudHandlers{
		list:   handlers.Teachers.List,
		get:    handlers.Teachers.Get,
		create: handlers.Teachers.Create,
		update: handlers.Teachers.Update,
		delete: handlers.Teachers.Delete,
	}, access.Teachers, auditRepo, "teacher")

	mountCRUD(api, "/students", crudHandlers{
		list:   handlers.Students.List,
		get:    handlers.Students.Get,
		create: handlers.Students.Create,
		update: handlers.Students.Update,
		delete: handlers.Students.Delete,
	}, access.Students, auditRepo, "student")

	mountCRUD(api, "/grades", crudHandlers{
		list:   handlers.Grades.List,
		get:    handlers.Grades.Get,
		create: handlers.Grades.Create,
		update: handlers.Grades.Update,
		delete: handlers.Grades.Delete,
	}, access.Grades, auditRepo, "grade")

	mountCRUD(api, "/classes", crudHandlers{
		list:   handlers.Classes.List,
		get:    handlers.Classes.Get,
		create: handlers.Classes.Create,
		update: handlers.Classes.Update,
		delete: handlers.Classes.Delete,
	}, access.Classes, auditRepo, "class")

	mountCRUD(api, "/subjects", crudHandlers{
		list:   handlers.Subjects.List,
		get:    handlers.Subjects.Get,
		create: handlers.Subjects.Create,
		update: handlers.Subjects.Update,
		delete: handlers.Subjects.Delete,
	}, access.Subjects, auditRepo, "subject")

	mountCRUD(api, "/lessons", crudHandlers{
		list:   handlers.Lessons.List,
		get:    handlers.Lessons.Get,
		create: handlers.Lessons.Create,
		update: handlers.Lessons.Update,
		delete: handlers.Lessons.Delete,
	}, access.Lessons, auditRepo, "lesson")

	mountCRUD(api, "/exams", crudHandlers{
		list:   handlers.Exams.List,
		get:    handlers.Exams.Get,
		create: handlers.Exams.Create,
		update: handlers.Exams.Update,
		delete: handlers.Exams.Delete,
	}, access.Exams, auditRepo, "exam")

	mountCRUD(api, "/assignments", crudHandlers{
		list:   handlers.Assignments.List,
		get:    handlers.Assignments.Get,
		create: handlers.Assignments.Create,
		update: handlers.Assignments.Update,
		delete: handlers.Assignments.Delete,
	}, access.Assignments, auditRepo, "assignment")

	mountCRUD(api, "/events", crudHandlers{
		list:   handlers.Events.List,
		get:    handlers.Events.Get,
		create: handlers.Events.Create,
		update: handlers.Events.Update,
		delete: handlers.Events.Delete,
	}, access.Events, auditRepo, "event")

	mountCRUD(api, "/announcements", crudHandlers{
		list:   handlers.Announcements.List,
		get:    handlers.Announcements.Get,
		create: handlers.Announcements.Create,
		update: handlers.Announcements.Update,
		delete: handlers.Announcements.Delete,
	}, access.Announcements, auditRepo, "announcement")

	forms := api.Group("/forms", middleware.Authorize(access.Forms, access.Read))
	forms.GET("/subjects", handlers.Forms.Subject)
	forms.GET("/classes", handlers.Forms.Class)
	forms.GET("/teachers", handlers.Forms.Teacher)
	forms.GET("/students", handlers.Forms.Student)
	forms.GET("/lessons", handlers.Forms.Lesson)
	forms.GET("/exams", handlers.Forms.Exam)
	forms.GET("/assignments", handlers.Forms.Assignment)
	forms.GET("/events", handlers.Forms.Event)
	forms.GET("/announcements", handlers.Forms.Announcement)

	exports := api.Group("/exports", middleware.Authorize(access.Exports, access.Read))
	exports.GET("/teachers", handlers.Exports.Teachers)
	exports.GET("/students", handlers.Exports.Students)

	return r
}

type crudHandlers struct {
	list   gin.HandlerFunc
	get    gin.HandlerFunc
	create gin.HandlerFunc
	update gin.HandlerFunc
	delete gin.HandlerFunc
}

func mountCRUD(api *gin.RouterGroup, path string, h crudHandlers, entity access.Entity, auditRepo *repository.AuditRepository, resource string) {
	group := api.Group(path)
	group.GET("", middleware.Authorize(entity, access.List), h.list)
	group.GET("/:id", middleware.Authorize(entity, access.Read), h.get)
	group.POST("", middleware.Authorize(entity, access.Create), middleware.Audit(auditRepo, models.AuditActionCreate, resource), h.create)
	group.PUT("/:id", middleware.Authorize(entity, access.Update), middleware.Audit(auditRepo, models.AuditActionUpdate, resource), h.update)
	group.DELETE("/:id", middleware.Authorize(entity, access.Delete), middleware.Audit(auditRepo, models.AuditActionDelete, resource), h.delete)
}
