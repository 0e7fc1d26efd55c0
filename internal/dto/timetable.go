package dto

import (
	"time"

	"github.com/noah-isme/sma-swap-api/internal/models"
)

// RegisterClassRequest registers the caller as the owning teacher of a class.
type RegisterClassRequest struct {
	Grade   string `json:"grade" validate:"required,max=8,alphanumunicode"`
	Section string `json:"section" validate:"required,max=8,alphanumunicode"`
}

// SaveGridRequest replaces a whole weekly grid. Shape is validated by the service.
type SaveGridRequest struct {
	Grid models.GridPayload `json:"grid" validate:"required"`
}

// MergeCellsRequest changes individual cells of the caller's schedule.
type MergeCellsRequest struct {
	Cells []models.CellUpdate `json:"cells" validate:"required,min=1,max=35,dive"`
}

// ClassResponse describes a class in listings.
type ClassResponse struct {
	ID        string `json:"id"`
	Grade     string `json:"grade"`
	Section   string `json:"section"`
	Label     string `json:"label"`
	TeacherID string `json:"teacherId"`
	Owned     bool   `json:"owned"`
}

// NewClassResponse maps a class for the given viewer.
func NewClassResponse(class models.Class, viewerID string) ClassResponse {
	return ClassResponse{
		ID:        class.ID,
		Grade:     class.Grade,
		Section:   class.Section,
		Label:     class.Label(),
		TeacherID: class.TeacherID,
		Owned:     class.TeacherID == viewerID,
	}
}

// GridResponse returns a grid with its owner key.
type GridResponse struct {
	OwnerID   string              `json:"ownerId"`
	Grid      map[string][]string `json:"grid"`
	UpdatedAt *time.Time          `json:"updatedAt,omitempty"`
}

// NewGridResponse maps a stored grid. A zero timestamp is omitted.
func NewGridResponse(ownerID string, grid models.Grid, updatedAt time.Time) GridResponse {
	resp := GridResponse{OwnerID: ownerID, Grid: grid.Map()}
	if !updatedAt.IsZero() {
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

// ImportPreviewResponse returns a grid parsed from an uploaded workbook.
type ImportPreviewResponse struct {
	Sheet    string              `json:"sheet"`
	Grid     map[string][]string `json:"grid"`
	Occupied int                 `json:"occupied"`
}
