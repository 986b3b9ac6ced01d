package models

import (
	"time"

	"github.com/google/uuid"
)

// Course is a content course taught to a batch.
type Course struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	BatchID   uuid.UUID `json:"batch_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Lesson is a content unit inside a course. A live class may link to a lesson;
// the link is optional and may be severed by later content edits, so cohort
// resolution must always be able to fall back to the class's direct batch link.
type Lesson struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CourseID  uuid.UUID `json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
