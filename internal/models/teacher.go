package models

import "time"

// Teacher is the local directory row for a teacher, refreshed from token claims on every schedule save.
type Teacher struct {
	ID          string    `db:"id" json:"id"`
	SchoolCode  string    `db:"school_code" json:"schoolCode"`
	DisplayName string    `db:"display_name" json:"displayName"`
	ClassLabel  string    `db:"class_label" json:"classLabel"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Summary trims the directory row for availability results.
func (t Teacher) Summary() TeacherSummary {
	return TeacherSummary{ID: t.ID, DisplayName: t.DisplayName, ClassLabel: t.ClassLabel}
}

// TeacherSummary is what availability search returns.
type TeacherSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	ClassLabel  string `json:"classLabel,omitempty"`
}

// TeacherSchedule is the personal weekly grid of one teacher.
type TeacherSchedule struct {
	TeacherID string    `db:"teacher_id" json:"teacherId"`
	Grid      Grid      `db:"grid" json:"grid"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// SchoolSchedule pairs a directory row with its schedule. Grid is nil when the teacher never saved one.
type SchoolSchedule struct {
	Teacher
	Grid *Grid `db:"grid"`
}
