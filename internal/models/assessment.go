package models

import "time"

// Exam belongs to exactly one lesson.
type Exam struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	LessonID  string    `db:"lesson_id" json:"lesson_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ExamDetail joins the lesson context for list rows.
type ExamDetail struct {
	Exam
	LessonName     string `db:"lesson_name" json:"lesson_name"`
	SubjectName    string `db:"subject_name" json:"subject_name"`
	ClassName      string `db:"class_name" json:"class_name"`
	TeacherName    string `db:"teacher_name" json:"teacher_name"`
	TeacherSurname string `db:"teacher_surname" json:"teacher_surname"`
}

// ExamFilter captures the recognized list parameters for exams.
type ExamFilter struct {
	Search    string
	ClassID   string
	TeacherID string
	Page      int
	PageSize  int
	Scope     Scope
}

// Assignment belongs to exactly one lesson and has a due date.
type Assignment struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	DueDate   time.Time `db:"due_date" json:"due_date"`
	LessonID  string    `db:"lesson_id" json:"lesson_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AssignmentDetail joins the lesson context for list rows.
type AssignmentDetail struct {
	Assignment
	LessonName     string `db:"lesson_name" json:"lesson_name"`
	SubjectName    string `db:"subject_name" json:"subject_name"`
	ClassName      string `db:"class_name" json:"class_name"`
	TeacherName    string `db:"teacher_name" json:"teacher_name"`
	TeacherSurname string `db:"teacher_surname" json:"teacher_surname"`
}

// AssignmentFilter captures the recognized list parameters for assignments.
type AssignmentFilter struct {
	Search    string
	ClassID   string
	TeacherID string
	Page      int
	PageSize  int
	Scope     Scope
}
