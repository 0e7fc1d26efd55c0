package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-swap-api/internal/dto"
	"github.com/noah-isme/sma-swap-api/internal/models"
	"github.com/noah-isme/sma-swap-api/internal/repository"
	appErrors "github.com/noah-isme/sma-swap-api/pkg/errors"
	"github.com/noah-isme/sma-swap-api/pkg/export"
)

type classStore interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ListBySchool(ctx context.Context, schoolCode string) ([]models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	GetTimetable(ctx context.Context, classID string) (*models.ClassTimetable, error)
	SaveTimetable(ctx context.Context, timetable *models.ClassTimetable) error
}

type scheduleStore interface {
	FindTeacher(ctx context.Context, id string) (*models.Teacher, error)
	Get(ctx context.Context, teacherID string) (*models.TeacherSchedule, error)
	Save(ctx context.Context, teacher *models.Teacher, grid models.Grid) (*models.TeacherSchedule, error)
	Merge(ctx context.Context, teacher *models.Teacher, cells []models.CellUpdate) (*models.TeacherSchedule, error)
}

// TimetableService owns class timetables and personal teacher schedules.
type TimetableService struct {
	classes   classStore
	schedules scheduleStore
	cache     *CacheService
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs the service.
func NewTimetableService(classes classStore, schedules scheduleStore, cache *CacheService, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{classes: classes, schedules: schedules, cache: cache, audit: audit, validator: validate, logger: logger}
}

// ListClasses returns the classes of the caller's school.
func (s *TimetableService) ListClasses(ctx context.Context, actor models.Actor) ([]models.Class, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	classes, err := s.classes.ListBySchool(ctx, actor.SchoolCode)
	if err != nil {
		return nil, storeError(err, "failed to list classes")
	}
	return classes, nil
}

// RegisterClass creates a class owned by the caller.
func (s *TimetableService) RegisterClass(ctx context.Context, actor models.Actor, req dto.RegisterClassRequest) (*models.Class, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	req.Grade = strings.TrimSpace(req.Grade)
	req.Section = strings.TrimSpace(req.Section)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class payload")
	}
	class := &models.Class{
		ID:         models.ClassID(actor.SchoolCode, req.Grade, req.Section),
		SchoolCode: actor.SchoolCode,
		Grade:      req.Grade,
		Section:    req.Section,
		TeacherID:  actor.TeacherID,
	}
	if err := s.classes.Create(ctx, class); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.WithEntity(appErrors.ErrConflict, class.ID, "class already registered")
		}
		return nil, storeError(err, "failed to register class")
	}
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		SchoolCode: actor.SchoolCode,
		UserID:     strPtr(actor.TeacherID),
		Action:     models.AuditActionClassRegister,
		Resource:   models.AuditResourceClassTimetable,
		ResourceID: strPtr(class.ID),
		NewValues:  auditSnapshot(class),
	})
	return class, nil
}

// loadClass returns the class when it belongs to the caller's school.
func (s *TimetableService) loadClass(ctx context.Context, actor models.Actor, classID string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.WithEntity(appErrors.ErrNotFound, classID, "class not found")
		}
		return nil, storeError(err, "failed to load class")
	}
	if class.SchoolCode != actor.SchoolCode {
		return nil, appErrors.WithEntity(appErrors.ErrNotFound, classID, "class not found")
	}
	return class, nil
}

// GetClassTimetable returns the grid of a class in the caller's school.
func (s *TimetableService) GetClassTimetable(ctx context.Context, actor models.Actor, classID string) (*models.ClassTimetable, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if _, err := s.loadClass(ctx, actor, classID); err != nil {
		return nil, err
	}
	timetable, err := s.classes.GetTimetable(ctx, classID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.WithEntity(appErrors.ErrNotFound, classID, "timetable not found")
		}
		return nil, storeError(err, "failed to load timetable")
	}
	return timetable, nil
}

// SaveClassTimetable replaces the grid of a class. Only the owning teacher may write it.
func (s *TimetableService) SaveClassTimetable(ctx context.Context, actor models.Actor, classID string, raw map[string][]string) (*models.ClassTimetable, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	grid, err := models.GridFromMap(raw)
	if err != nil {
		return nil, validationError(err, "invalid timetable grid")
	}
	class, err := s.loadClass(ctx, actor, classID)
	if err != nil {
		return nil, err
	}
	if class.TeacherID != actor.TeacherID {
		return nil, appErrors.WithEntity(appErrors.ErrForbidden, classID, "only the class teacher can edit this timetable")
	}
	timetable := &models.ClassTimetable{ClassID: classID, Grid: grid, UpdatedBy: actor.TeacherID}
	if err := s.classes.SaveTimetable(ctx, timetable); err != nil {
		return nil, storeError(err, "failed to save timetable")
	}
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		SchoolCode: actor.SchoolCode,
		UserID:     strPtr(actor.TeacherID),
		Action:     models.AuditActionTimetableSave,
		Resource:   models.AuditResourceClassTimetable,
		ResourceID: strPtr(classID),
		NewValues:  auditSnapshot(grid),
	})
	return timetable, nil
}

// GetTeacherSchedule returns the grid of the caller or a same-school colleague.
func (s *TimetableService) GetTeacherSchedule(ctx context.Context, actor models.Actor, teacherID string) (*models.TeacherSchedule, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if teacherID != actor.TeacherID {
		teacher, err := s.schedules.FindTeacher(ctx, teacherID)
		if err != nil {
			if isNoRows(err) {
				return nil, appErrors.WithEntity(appErrors.ErrNotFound, teacherID, "teacher not found")
			}
			return nil, storeError(err, "failed to load teacher")
		}
		if teacher.SchoolCode != actor.SchoolCode {
			return nil, appErrors.WithEntity(appErrors.ErrNotFound, teacherID, "teacher not found")
		}
	}
	schedule, err := s.schedules.Get(ctx, teacherID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.WithEntity(appErrors.ErrNotFound, teacherID, "schedule not found")
		}
		return nil, storeError(err, "failed to load schedule")
	}
	return schedule, nil
}

// SaveTeacherSchedule replaces the caller's own grid.
func (s *TimetableService) SaveTeacherSchedule(ctx context.Context, actor models.Actor, raw map[string][]string) (*models.TeacherSchedule, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	grid, err := models.GridFromMap(raw)
	if err != nil {
		return nil, validationError(err, "invalid schedule grid")
	}
	schedule, err := s.schedules.Save(ctx, teacherFromActor(actor), grid)
	if err != nil {
		return nil, storeError(err, "failed to save schedule")
	}
	s.afterScheduleWrite(ctx, actor, schedule)
	return schedule, nil
}

// MergeTeacherSchedule writes individual cells of the caller's grid. All cells apply or none do.
func (s *TimetableService) MergeTeacherSchedule(ctx context.Context, actor models.Actor, req dto.MergeCellsRequest) (*models.TeacherSchedule, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid cell payload")
	}
	for _, cell := range req.Cells {
		if !cell.Day.Valid() || !models.ValidPeriod(cell.Period) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "cell is outside the weekly grid")
		}
	}
	schedule, err := s.schedules.Merge(ctx, teacherFromActor(actor), req.Cells)
	if err != nil {
		if errors.Is(err, models.ErrInvalidGrid) {
			return nil, validationError(err, "invalid schedule cell")
		}
		return nil, storeError(err, "failed to merge schedule")
	}
	s.afterScheduleWrite(ctx, actor, schedule)
	return schedule, nil
}

func (s *TimetableService) afterScheduleWrite(ctx context.Context, actor models.Actor, schedule *models.TeacherSchedule) {
	s.cache.InvalidateAvailability(ctx, actor.SchoolCode)
	emitAudit(ctx, s.audit, s.logger, &models.AuditLog{
		SchoolCode: actor.SchoolCode,
		UserID:     strPtr(actor.TeacherID),
		Action:     models.AuditActionTimetableSave,
		Resource:   models.AuditResourceTeacherSchedule,
		ResourceID: strPtr(actor.TeacherID),
		NewValues:  auditSnapshot(schedule.Grid),
	})
}

// ImportGrid parses an uploaded workbook into a grid preview. Nothing is saved.
func (s *TimetableService) ImportGrid(r io.Reader) (string, models.Grid, error) {
	imported, err := export.ParseTimetableWorkbook(r)
	if err != nil {
		if errors.Is(err, export.ErrNoTimetableData) {
			return "", models.Grid{}, validationError(err, "no timetable found in workbook")
		}
		return "", models.Grid{}, validationError(err, "unreadable workbook")
	}
	return imported.Sheet, models.Grid(imported.Cells), nil
}
