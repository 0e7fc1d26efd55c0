package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-swap-api/internal/models"
	"github.com/noah-isme/sma-swap-api/pkg/export"
	appErrors "github.com/noah-isme/sma-swap-api/pkg/errors"
)

// ExportFormat names a rendered timetable format.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

type timetableReader interface {
	GetClassTimetable(ctx context.Context, actor models.Actor, classID string) (*models.ClassTimetable, error)
	GetTeacherSchedule(ctx context.Context, actor models.Actor, teacherID string) (*models.TeacherSchedule, error)
}

// ExportResult is a rendered file ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders class timetables and teacher schedules as downloadable files.
type ExportService struct {
	timetables timetableReader
	renderers  map[ExportFormat]renderer
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService with csv, pdf and xlsx renderers.
func NewExportService(timetables timetableReader, pdfFontPath string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		timetables: timetables,
		renderers: map[ExportFormat]renderer{
			ExportFormatCSV:  export.NewCSVExporter(),
			ExportFormatPDF:  export.NewPDFExporter(pdfFontPath),
			ExportFormatXLSX: export.NewXLSXExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// ExportClassTimetable renders the timetable of a class in the caller's school.
func (s *ExportService) ExportClassTimetable(ctx context.Context, actor models.Actor, classID string, format ExportFormat) (*ExportResult, error) {
	r, err := s.renderer(format)
	if err != nil {
		return nil, err
	}
	timetable, err := s.timetables.GetClassTimetable(ctx, actor, classID)
	if err != nil {
		return nil, err
	}
	return s.render(r, fmt.Sprintf("Class %s timetable", classID), "class_"+classID, timetable.Grid)
}

// ExportTeacherSchedule renders the weekly schedule of a same-school teacher.
func (s *ExportService) ExportTeacherSchedule(ctx context.Context, actor models.Actor, teacherID string, format ExportFormat) (*ExportResult, error) {
	r, err := s.renderer(format)
	if err != nil {
		return nil, err
	}
	schedule, err := s.timetables.GetTeacherSchedule(ctx, actor, teacherID)
	if err != nil {
		return nil, err
	}
	return s.render(r, fmt.Sprintf("Schedule of %s", teacherID), "schedule_"+teacherID, schedule.Grid)
}

func (s *ExportService) renderer(format ExportFormat) (renderer, error) {
	r, ok := s.renderers[ExportFormat(strings.ToLower(string(format)))]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be one of csv, pdf, xlsx")
	}
	return r, nil
}

func (s *ExportService) render(r renderer, title, base string, grid models.Grid) (*ExportResult, error) {
	table := export.Timetable{Title: title, Cells: grid}
	for i, day := range models.Days {
		table.DayLabels[i] = day.Label()
	}
	body, err := r.Render(table.Dataset())
	if err != nil {
		s.logger.Error("failed to render timetable", zap.String("title", title), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("%s_%s.%s", sanitizeFilename(base), s.now().UTC().Format("20060102_150405"), r.Extension())
	return &ExportResult{Filename: filename, ContentType: r.ContentType(), Body: body}, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
