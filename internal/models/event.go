package models

import "time"

// Event is optionally scoped to a single class; a NULL class id means
// the event is school-wide.
type Event struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	EndTime     time.Time `db:"end_time" json:"end_time"`
	ClassID     *string   `db:"class_id" json:"class_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// EventDetail joins the class name for list rows.
type EventDetail struct {
	Event
	ClassName *string `db:"class_name" json:"class_name,omitempty"`
}

// EventFilter captures the recognized list parameters for events.
type EventFilter struct {
	Search   string
	ClassID  string
	Date     *time.Time
	Page     int
	PageSize int
	Scope    Scope
}

// Announcement mirrors Event but is dated rather than ranged.
type Announcement struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Date        time.Time `db:"date" json:"date"`
	ClassID     *string   `db:"class_id" json:"class_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AnnouncementDetail joins the class name for list rows.
type AnnouncementDetail struct {
	Announcement
	ClassName *string `db:"class_name" json:"class_name,omitempty"`
}

// AnnouncementFilter captures the recognized list parameters for announcements.
type AnnouncementFilter struct {
	Search   string
	ClassID  string
	Page     int
	PageSize int
	Scope    Scope
}
