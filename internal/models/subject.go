package models

import "time"

// Subject is an academic subject taught by zero or more teachers.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectDetail includes the assigned teacher references.
type SubjectDetail struct {
	Subject
	Teachers []TeacherRef `json:"teachers"`
}

// SubjectRef is the reduced shape used to populate selection controls.
type SubjectRef struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// SubjectFilter captures the recognized list parameters for subjects.
type SubjectFilter struct {
	Search   string
	Page     int
	PageSize int
	Scope    Scope
}
