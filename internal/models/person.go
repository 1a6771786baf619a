package models

import "time"

// Teacher is an instructor whose authentication account lives in the
// external identity provider. The local id equals the provider user id.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Name      string    `db:"name" json:"name"`
	Surname   string    `db:"surname" json:"surname"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Address   string    `db:"address" json:"address"`
	Img       *string   `db:"img" json:"img,omitempty"`
	BloodType string    `db:"blood_type" json:"blood_type"`
	Sex       string    `db:"sex" json:"sex"`
	Birthday  time.Time `db:"birthday" json:"birthday"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures the recognized list parameters for teachers.
type TeacherFilter struct {
	Search   string
	ClassID  string
	Page     int
	PageSize int
	Scope    Scope
}

// TeacherRef is the reduced shape used to populate selection controls.
type TeacherRef struct {
	ID      string `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Surname string `db:"surname" json:"surname"`
}

// SupervisorCandidate annotates a teacher with whether it already
// supervises some class, so the form layer can block double-assignment
// without a second round trip.
type SupervisorCandidate struct {
	TeacherRef
	IsSupervisor bool `db:"is_supervisor" json:"is_supervisor"`
}

// Student is a learner bound to a class and, like Teacher, paired 1:1
// with an identity-provider account.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Name      string    `db:"name" json:"name"`
	Surname   string    `db:"surname" json:"surname"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Address   string    `db:"address" json:"address"`
	Img       *string   `db:"img" json:"img,omitempty"`
	BloodType string    `db:"blood_type" json:"blood_type"`
	Sex       string    `db:"sex" json:"sex"`
	Birthday  time.Time `db:"birthday" json:"birthday"`
	GradeID   string    `db:"grade_id" json:"grade_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	ParentID  *string   `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail joins the class name for list rows.
type StudentDetail struct {
	Student
	ClassName string `db:"class_name" json:"class_name"`
}

// StudentFilter captures the recognized list parameters for students.
type StudentFilter struct {
	Search    string
	ClassID   string
	TeacherID string
	Page      int
	PageSize  int
	Scope     Scope
}
