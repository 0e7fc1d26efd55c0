package dto

import (
	"time"

	"github.com/noah-isme/sma-swap-api/internal/models"
)

// CreateSwapRequest posts a slot to the marketplace, or to a single colleague when ToID is set.
type CreateSwapRequest struct {
	Day     string `json:"day"`
	Period  int    `json:"period"`
	Subject string `json:"subject"`
	Note    string `json:"note" validate:"max=500"`
	ToID    string `json:"toId" validate:"omitempty,max=128"`
}

// SwapQuery mirrors supported listing filters.
type SwapQuery struct {
	Filter string `form:"filter" validate:"omitempty,oneof=all mine inbox"`
	Status string `form:"status" validate:"omitempty,oneof=pending matched"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=500"`
}

// SwapRequestResponse is the wire form of a swap request.
type SwapRequestResponse struct {
	ID             string     `json:"id"`
	Kind           string     `json:"kind"`
	RequesterID    string     `json:"requesterId"`
	RequesterName  string     `json:"requesterName"`
	RequesterClass string     `json:"requesterClass"`
	ToID           *string    `json:"toId,omitempty"`
	ToName         *string    `json:"toName,omitempty"`
	Day            string     `json:"day"`
	DayLabel       string     `json:"dayLabel"`
	Period         int        `json:"period"`
	Subject        string     `json:"subject"`
	Note           string     `json:"note"`
	Status         string     `json:"status"`
	AccepterID     *string    `json:"accepterId,omitempty"`
	AccepterName   *string    `json:"accepterName,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	MatchedAt      *time.Time `json:"matchedAt,omitempty"`
}

// NewSwapRequestResponse maps the domain entity.
func NewSwapRequestResponse(req *models.SwapRequest) SwapRequestResponse {
	return SwapRequestResponse{
		ID:             req.ID,
		Kind:           string(req.Target().Kind),
		RequesterID:    req.RequesterID,
		RequesterName:  req.RequesterName,
		RequesterClass: req.RequesterClassLabel,
		ToID:           req.ToID,
		ToName:         req.ToName,
		Day:            string(req.Day),
		DayLabel:       req.DayLabel(),
		Period:         req.Period,
		Subject:        req.SubjectLabel,
		Note:           req.Note,
		Status:         string(req.Status),
		AccepterID:     req.AccepterID,
		AccepterName:   req.AccepterName,
		CreatedAt:      req.CreatedAt,
		MatchedAt:      req.MatchedAt,
	}
}

// NewSwapRequestResponses maps a listing.
func NewSwapRequestResponses(reqs []models.SwapRequest) []SwapRequestResponse {
	out := make([]SwapRequestResponse, 0, len(reqs))
	for i := range reqs {
		out = append(out, NewSwapRequestResponse(&reqs[i]))
	}
	return out
}

// AvailabilityQuery selects the slot to search.
type AvailabilityQuery struct {
	Day    string `form:"day" validate:"required"`
	Period int    `form:"period" validate:"required"`
}

// AvailabilityResponse lists free colleagues for a slot.
type AvailabilityResponse struct {
	Day      string                  `json:"day"`
	DayLabel string                  `json:"dayLabel"`
	Period   int                     `json:"period"`
	Teachers []models.TeacherSummary `json:"teachers"`
}
