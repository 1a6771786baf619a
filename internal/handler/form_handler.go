package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/schoolhub-io/schoolhub-api/internal/service"
	"github.com/schoolhub-io/schoolhub-api/pkg/response"
)

// FormHandler serves the related-data bundles the client needs to
// render create and update forms.
type FormHandler struct {
	forms *service.FormService
}

// NewFormHandler constructs a new FormHandler.
func NewFormHandler(forms *service.FormService) *FormHandler {
	return &FormHandler{forms: forms}
}

// Subject godoc
// @Summary Related data for the subject form
// @Tags Forms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /forms/subjects [get]
func (h *FormHandler) Subject(c *gin.Context) {
	data, err := h.forms.SubjectForm(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil)
}

// Class godoc
// @Summary Related data for the class form
// @Tags Forms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /forms/classes [get]
func (h *FormHandler) Class(c *gin.Context) {
	data, err := h.forms.ClassForm(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil)
}

// Teacher godoc
// @Summary Related data for the teacher form
// @Tags Forms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /forms/teachers [get]
func (h *FormHandler) Teacher(c *gin.Context) {
	data, err := h.forms.TeacherForm(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil)
}

// Student godoc
// @Summary Related data for the student form
// @Tags Forms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /forms/students [get]
func (h *FormHandler) Student(c *gin.Context) {
	data, err := h.forms.StudentForm(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil)
}

// Lesson godoc
// @Summary Related data for the lesson form
// @Tags Forms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /forms/lessons [get]
func (h *FormHandler) Lesson(c *gin.Context) {
	data, err := h.forms.LessonForm(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil)
}

// Exam godoc
// @Summary Related data for the exam form
// @Tags Forms
// @Produce json
// @Param id query string false "Exam being edited; keeps its lesson selectable"
// @Success 200 {object} response.Envelope
// @Router /forms/exams [get]
func (h *FormHandler) Exam(c *gin.Context) {
	data, err := h.forms.ExamForm(c.Request.Context(), strings.TrimSpace(c.Query("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil)
}

// Assignment godoc
// @Summary Related data for the assignment form
// @Tags Forms
// @Produce json
// @Param id query string false "Assignment being edited; keeps its lesson selectable"
// @Success 200 {object} response.Envelope
// @Router /forms/assignments [get]
func (h *FormHandler) Assignment(c *gin.Context) {
	data, err := h.forms.AssignmentForm(c.Request.Context(), strings.TrimSpace(c.Query("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil)
}

// Event godoc
// @Summary Related data for the event form
// @Tags Forms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /forms/events [get]
func (h *FormHandler) Event(c *gin.Context) {
	data, err := h.forms.EventForm(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil)
}

// Announcement godoc
// @Summary Related data for the announcement form
// @Tags Forms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /forms/announcements [get]
func (h *FormHandler) Announcement(c *gin.Context) {
	data, err := h.forms.AnnouncementForm(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil)
}
