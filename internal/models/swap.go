package models

import "time"

// SwapStatus captures the swap request state machine.
type SwapStatus string

const (
	SwapStatusPending SwapStatus = "pending"
	SwapStatusMatched SwapStatus = "matched"
)

// Valid reports whether s is a known status.
func (s SwapStatus) Valid() bool {
	return s == SwapStatusPending || s == SwapStatusMatched
}

// SwapKind distinguishes open marketplace requests from direct ones.
type SwapKind string

const (
	SwapKindOpen   SwapKind = "open"
	SwapKindDirect SwapKind = "direct"
)

// SwapTarget is the tagged variant {Open, Direct{TeacherID}}.
type SwapTarget struct {
	Kind        SwapKind
	TeacherID   string
	DisplayName string
}

// SwapRequest is an offer to give away one occupied slot.
type SwapRequest struct {
	ID                  string     `db:"id" json:"id"`
	SchoolCode          string     `db:"school_code" json:"schoolCode"`
	RequesterID         string     `db:"requester_id" json:"requesterId"`
	RequesterName       string     `db:"requester_name" json:"requesterName"`
	RequesterClassLabel string     `db:"requester_class_label" json:"requesterClass"`
	ToID                *string    `db:"to_id" json:"toId,omitempty"`
	ToName              *string    `db:"to_name" json:"toName,omitempty"`
	Day                 Day        `db:"day" json:"day"`
	Period              int        `db:"period" json:"period"`
	SubjectLabel        string     `db:"subject_label" json:"subject"`
	Note                string     `db:"note" json:"note"`
	Status              SwapStatus `db:"status" json:"status"`
	AccepterID          *string    `db:"accepter_id" json:"accepterId,omitempty"`
	AccepterName        *string    `db:"accepter_name" json:"accepterName,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
	MatchedAt           *time.Time `db:"matched_at" json:"matchedAt,omitempty"`
}

// IsDirect reports whether the request is addressed to a single teacher.
func (r *SwapRequest) IsDirect() bool {
	return r.ToID != nil && *r.ToID != ""
}

// Target returns the tagged variant of the request.
func (r *SwapRequest) Target() SwapTarget {
	if !r.IsDirect() {
		return SwapTarget{Kind: SwapKindOpen}
	}
	target := SwapTarget{Kind: SwapKindDirect, TeacherID: *r.ToID}
	if r.ToName != nil {
		target.DisplayName = *r.ToName
	}
	return target
}

// DayLabel returns the display label of the requested day.
func (r *SwapRequest) DayLabel() string {
	return r.Day.Label()
}

// VisibleTo reports whether teacherID may see the request. Direct requests are private to both parties.
func (r *SwapRequest) VisibleTo(teacherID string) bool {
	if !r.IsDirect() {
		return true
	}
	return teacherID == r.RequesterID || teacherID == *r.ToID
}

// SwapFilterScope selects which requests a listing returns.
type SwapFilterScope string

const (
	SwapScopeAll   SwapFilterScope = "all"
	SwapScopeMine  SwapFilterScope = "mine"
	SwapScopeInbox SwapFilterScope = "inbox"
)

// SwapFilter constrains listing queries. ViewerID is always applied for direct request visibility.
type SwapFilter struct {
	Scope    SwapFilterScope
	ViewerID string
	Status   *SwapStatus
	Limit    int
}
