package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-swap-api/internal/dto"
	"github.com/noah-isme/sma-swap-api/internal/models"
	"github.com/noah-isme/sma-swap-api/internal/service"
	appErrors "github.com/noah-isme/sma-swap-api/pkg/errors"
	"github.com/noah-isme/sma-swap-api/pkg/response"
)

type timetableService interface {
	ListClasses(ctx context.Context, actor models.Actor) ([]models.Class, error)
	RegisterClass(ctx context.Context, actor models.Actor, req dto.RegisterClassRequest) (*models.Class, error)
	GetClassTimetable(ctx context.Context, actor models.Actor, classID string) (*models.ClassTimetable, error)
	SaveClassTimetable(ctx context.Context, actor models.Actor, classID string, raw map[string][]string) (*models.ClassTimetable, error)
	GetTeacherSchedule(ctx context.Context, actor models.Actor, teacherID string) (*models.TeacherSchedule, error)
	SaveTeacherSchedule(ctx context.Context, actor models.Actor, raw map[string][]string) (*models.TeacherSchedule, error)
	MergeTeacherSchedule(ctx context.Context, actor models.Actor, req dto.MergeCellsRequest) (*models.TeacherSchedule, error)
	ImportGrid(r io.Reader) (string, models.Grid, error)
}

type exportService interface {
	ExportClassTimetable(ctx context.Context, actor models.Actor, classID string, format service.ExportFormat) (*service.ExportResult, error)
	ExportTeacherSchedule(ctx context.Context, actor models.Actor, teacherID string, format service.ExportFormat) (*service.ExportResult, error)
}

// TimetableHandler exposes class timetables and personal schedules.
type TimetableHandler struct {
	timetables    timetableService
	exports       exportService
	maxImportSize int64
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(timetables timetableService, exports exportService, maxImportSize int64) *TimetableHandler {
	if maxImportSize <= 0 {
		maxImportSize = 2 * 1024 * 1024
	}
	return &TimetableHandler{timetables: timetables, exports: exports, maxImportSize: maxImportSize}
}

// ListClasses godoc
// @Summary List classes of the caller's school
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *TimetableHandler) ListClasses(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	classes, err := h.timetables.ListClasses(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]dto.ClassResponse, 0, len(classes))
	for _, class := range classes {
		out = append(out, dto.NewClassResponse(class, actor.TeacherID))
	}
	response.JSON(c, http.StatusOK, out)
}

// RegisterClass godoc
// @Summary Register a class owned by the caller
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.RegisterClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes [post]
func (h *TimetableHandler) RegisterClass(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RegisterClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid class payload"))
		return
	}
	class, err := h.timetables.RegisterClass(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewClassResponse(*class, actor.TeacherID))
}

// GetClassTimetable godoc
// @Summary Get a class timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/timetable [get]
func (h *TimetableHandler) GetClassTimetable(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	tt, err := h.timetables.GetClassTimetable(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewGridResponse(tt.ClassID, tt.Grid, tt.UpdatedAt))
}

// SaveClassTimetable godoc
// @Summary Replace a class timetable
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.SaveGridRequest true "Grid payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes/{id}/timetable [put]
func (h *TimetableHandler) SaveClassTimetable(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SaveGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid timetable payload"))
		return
	}
	tt, err := h.timetables.SaveClassTimetable(c.Request.Context(), actor, c.Param("id"), req.Grid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewGridResponse(tt.ClassID, tt.Grid, tt.UpdatedAt))
}

// ExportClassTimetable godoc
// @Summary Download a class timetable
// @Tags Timetables
// @Produce octet-stream
// @Param id path string true "Class ID"
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} binary
// @Router /classes/{id}/timetable/export [get]
func (h *TimetableHandler) ExportClassTimetable(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := h.exports.ExportClassTimetable(c.Request.Context(), actor, c.Param("id"), exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

// GetMySchedule godoc
// @Summary Get the caller's schedule
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/schedule [get]
func (h *TimetableHandler) GetMySchedule(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	h.respondSchedule(c, actor, actor.TeacherID)
}

// GetTeacherSchedule godoc
// @Summary Get a colleague's schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/schedule [get]
func (h *TimetableHandler) GetTeacherSchedule(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	h.respondSchedule(c, actor, c.Param("id"))
}

func (h *TimetableHandler) respondSchedule(c *gin.Context, actor models.Actor, teacherID string) {
	schedule, err := h.timetables.GetTeacherSchedule(c.Request.Context(), actor, teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewGridResponse(schedule.TeacherID, schedule.Grid, schedule.UpdatedAt))
}

// SaveMySchedule godoc
// @Summary Replace the caller's schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.SaveGridRequest true "Grid payload"
// @Success 200 {object} response.Envelope
// @Router /me/schedule [put]
func (h *TimetableHandler) SaveMySchedule(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SaveGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid schedule payload"))
		return
	}
	schedule, err := h.timetables.SaveTeacherSchedule(c.Request.Context(), actor, req.Grid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewGridResponse(schedule.TeacherID, schedule.Grid, schedule.UpdatedAt))
}

// MergeMySchedule godoc
// @Summary Change individual cells of the caller's schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.MergeCellsRequest true "Cells"
// @Success 200 {object} response.Envelope
// @Router /me/schedule [patch]
func (h *TimetableHandler) MergeMySchedule(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.MergeCellsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid cell payload"))
		return
	}
	schedule, err := h.timetables.MergeTeacherSchedule(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewGridResponse(schedule.TeacherID, schedule.Grid, schedule.UpdatedAt))
}

// ExportMySchedule godoc
// @Summary Download the caller's schedule
// @Tags Schedules
// @Produce octet-stream
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} binary
// @Router /me/schedule/export [get]
func (h *TimetableHandler) ExportMySchedule(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := h.exports.ExportTeacherSchedule(c.Request.Context(), actor, actor.TeacherID, exportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

// Import godoc
// @Summary Parse a timetable workbook into a grid preview
// @Tags Timetables
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "xlsx workbook"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetables/import [post]
func (h *TimetableHandler) Import(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, bindError(err, "file is required"))
		return
	}
	if header.Size > h.maxImportSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is too large"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, bindError(err, "unreadable upload"))
		return
	}
	defer file.Close()

	sheet, grid, err := h.timetables.ImportGrid(io.LimitReader(file, h.maxImportSize))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ImportPreviewResponse{Sheet: sheet, Grid: grid.Map(), Occupied: grid.Occupied()})
}

func exportFormat(c *gin.Context) service.ExportFormat {
	return service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
}
