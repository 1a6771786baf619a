// Package dto defines the typed reference bundles the form layer needs
// to populate selection controls, one descriptor per entity kind.
package dto

import "github.com/schoolhub-io/schoolhub-api/internal/models"

// SubjectFormData backs the subject create/update form.
type SubjectFormData struct {
	Teachers []models.TeacherRef `json:"teachers"`
}

// ClassFormData backs the class form. Teachers carry the is_supervisor
// flag so an already-assigned supervisor can be blocked client side.
type ClassFormData struct {
	Grades   []models.GradeRef            `json:"grades"`
	Teachers []models.SupervisorCandidate `json:"teachers"`
}

// TeacherFormData backs the teacher form.
type TeacherFormData struct {
	Subjects []models.SubjectRef `json:"subjects"`
}

// StudentFormData backs the student form. Classes include capacity and
// current enrollment.
type StudentFormData struct {
	Grades  []models.GradeRef  `json:"grades"`
	Classes []models.ClassSeat `json:"classes"`
}

// LessonFormData backs the lesson form.
type LessonFormData struct {
	Subjects []models.SubjectRef `json:"subjects"`
	Classes  []models.ClassRef   `json:"classes"`
	Teachers []models.TeacherRef `json:"teachers"`
}

// ExamFormData backs the exam form.
type ExamFormData struct {
	Lessons []models.LessonRef `json:"lessons"`
}

// AssignmentFormData backs the assignment form.
type AssignmentFormData struct {
	Lessons []models.LessonRef `json:"lessons"`
}

// EventFormData backs the event form.
type EventFormData struct {
	Classes []models.ClassRef `json:"classes"`
}

// AnnouncementFormData backs the announcement form.
type AnnouncementFormData struct {
	Classes []models.ClassRef `json:"classes"`
}
