package models

import (
	"fmt"
	"strings"
	"time"
)

// ClassID derives the deterministic class identifier from school code, grade and section.
func ClassID(schoolCode, grade, section string) string {
	return fmt.Sprintf("%s_%s_%s", strings.TrimSpace(schoolCode), strings.TrimSpace(grade), strings.TrimSpace(section))
}

// Class represents a homeroom registered by its assigned teacher.
type Class struct {
	ID         string    `db:"id" json:"id"`
	SchoolCode string    `db:"school_code" json:"schoolCode"`
	Grade      string    `db:"grade" json:"grade"`
	Section    string    `db:"section" json:"section"`
	TeacherID  string    `db:"teacher_id" json:"teacherId"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// Label renders the class as "grade-section".
func (c Class) Label() string {
	return fmt.Sprintf("%s-%s", c.Grade, c.Section)
}

// ClassTimetable is the weekly grid of one class.
type ClassTimetable struct {
	ClassID   string    `db:"class_id" json:"classId"`
	Grid      Grid      `db:"grid" json:"grid"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
