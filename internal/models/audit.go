package models

import "time"

// AuditAction constants represent swap lifecycle events written to the audit trail.
const (
	AuditActionSwapCreate        = "SWAP_CREATE"
	AuditActionSwapAccept        = "SWAP_ACCEPT"
	AuditActionSwapDelete        = "SWAP_DELETE"
	AuditActionTimetableSave     = "TIMETABLE_SAVE"
	AuditActionClassRegister     = "CLASS_REGISTER"
	AuditResourceSwapRequest     = "swap_request"
	AuditResourceClassTimetable  = "class_timetable"
	AuditResourceTeacherSchedule = "teacher_schedule"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	SchoolCode string    `db:"school_code" json:"school_code"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
