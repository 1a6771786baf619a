package models

import "time"

// Weekday is the school-day enum used by lesson schedules.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
)

// Valid reports whether the weekday is a school day.
func (d Weekday) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday:
		return true
	}
	return false
}

// Lesson is a scheduled slot binding exactly one subject, class and
// teacher. It cannot exist with any of those references unresolved.
type Lesson struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Day       Weekday   `db:"day" json:"day"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LessonDetail joins the related names for list rows.
type LessonDetail struct {
	Lesson
	SubjectName    string `db:"subject_name" json:"subject_name"`
	ClassName      string `db:"class_name" json:"class_name"`
	TeacherName    string `db:"teacher_name" json:"teacher_name"`
	TeacherSurname string `db:"teacher_surname" json:"teacher_surname"`
}

// LessonFilter captures the recognized list parameters for lessons.
type LessonFilter struct {
	Search    string
	ClassID   string
	TeacherID string
	Page      int
	PageSize  int
	Scope     Scope
}

// LessonRef carries enough context to label a lesson in a selection
// control (subject, class and teacher names).
type LessonRef struct {
	ID             string `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	SubjectName    string `db:"subject_name" json:"subject_name"`
	ClassName      string `db:"class_name" json:"class_name"`
	TeacherName    string `db:"teacher_name" json:"teacher_name"`
	TeacherSurname string `db:"teacher_surname" json:"teacher_surname"`
}
