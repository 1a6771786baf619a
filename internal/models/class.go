package models

import "time"

// Grade is an academic level owning classes.
type Grade struct {
	ID        string    `db:"id" json:"id"`
	Level     int       `db:"level" json:"level"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Class is a section with a seat capacity and an optional supervising
// teacher. The capacity invariant is enforced at student-creation time.
type Class struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Capacity     int       `db:"capacity" json:"capacity"`
	GradeID      string    `db:"grade_id" json:"grade_id"`
	SupervisorID *string   `db:"supervisor_id" json:"supervisor_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail joins supervisor and grade information for list rows.
type ClassDetail struct {
	Class
	GradeLevel     int     `db:"grade_level" json:"grade_level"`
	SupervisorName *string `db:"supervisor_name" json:"supervisor_name,omitempty"`
}

// ClassRef is the reduced shape used to populate selection controls.
type ClassRef struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// ClassSeat annotates a class with its current enrollment for the
// student form, so capacity can be shown before submission.
type ClassSeat struct {
	ClassRef
	Capacity int `db:"capacity" json:"capacity"`
	Enrolled int `db:"enrolled" json:"enrolled"`
}

// ClassFilter captures the recognized list parameters for classes.
type ClassFilter struct {
	Search       string
	SupervisorID string
	GradeID      string
	Page         int
	PageSize     int
	Scope        Scope
}

// GradeRef is the reduced grade shape for selection controls.
type GradeRef struct {
	ID    string `db:"id" json:"id"`
	Level int    `db:"level" json:"level"`
}
