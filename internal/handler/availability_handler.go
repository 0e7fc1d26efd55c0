package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-swap-api/internal/dto"
	"github.com/noah-isme/sma-swap-api/internal/models"
	appErrors "github.com/noah-isme/sma-swap-api/pkg/errors"
	"github.com/noah-isme/sma-swap-api/pkg/response"
)

type availabilityService interface {
	FindAvailable(ctx context.Context, schoolCode string, day models.Day, period int, excludeTeacherID string) ([]models.TeacherSummary, error)
}

// AvailabilityHandler answers who is free in a slot.
type AvailabilityHandler struct {
	availability availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(availability availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// Find godoc
// @Summary List colleagues free at a slot
// @Tags Availability
// @Produce json
// @Param day query string true "mon..fri"
// @Param period query int true "1..7"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) Find(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.AvailabilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "day and period are required"))
		return
	}
	day, valid := models.ParseDay(query.Day)
	if !valid {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day must be one of mon, tue, wed, thu, fri"))
		return
	}
	teachers, err := h.availability.FindAvailable(c.Request.Context(), actor.SchoolCode, day, query.Period, actor.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.AvailabilityResponse{
		Day:      string(day),
		DayLabel: day.Label(),
		Period:   query.Period,
		Teachers: teachers,
	})
}
