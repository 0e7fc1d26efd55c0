package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const timetableSheet = "Timetable"

// ErrNoTimetableData is returned when a workbook holds no recognisable timetable cells.
var ErrNoTimetableData = errors.New("no timetable data found in workbook")

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// ContentType is the MIME type of rendered output.
func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Extension is the file suffix of rendered output.
func (e *XLSXExporter) Extension() string { return "xlsx" }

// Render writes the header row in bold followed by the data rows.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate("xlsx"); err != nil {
		return nil, err
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", timetableSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for c, h := range data.Headers {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		if err := f.SetCellStr(timetableSheet, cell, h); err != nil {
			return nil, fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	for r, row := range data.Rows {
		for c, val := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellStr(timetableSheet, cell, val); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	end, _ := excelize.CoordinatesToCellName(len(data.Headers), 1)
	if bold, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err == nil {
		_ = f.SetCellStyle(timetableSheet, "A1", end, bold)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(data.Headers))
	_ = f.SetColWidth(timetableSheet, "A", "A", 8)
	if len(data.Headers) > 1 {
		_ = f.SetColWidth(timetableSheet, "B", lastCol, 16)
	}
	if data.Title != "" {
		_ = f.SetDocProps(&excelize.DocProperties{Title: data.Title})
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// dayHeaders lists the whole-cell spellings accepted for each weekday column.
var dayHeaders = [GridDays][]string{
	{"월", "월요일", "mon", "monday"},
	{"화", "화요일", "tue", "tues", "tuesday"},
	{"수", "수요일", "wed", "wednesday"},
	{"목", "목요일", "thu", "thur", "thurs", "thursday"},
	{"금", "금요일", "fri", "friday"},
}

// ImportedTimetable is the result of parsing a workbook. Cells is indexed [day][period].
type ImportedTimetable struct {
	Sheet string
	Cells [GridDays][GridPeriods]string
}

// ParseTimetableWorkbook reads the first sheet of an xlsx file.
// The header row is the first row naming a weekday; the following seven rows are periods.
// A day without a header column falls back to column index day+1, leaving column 0 for period numbers.
func ParseTimetableWorkbook(r io.Reader) (*ImportedTimetable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoTimetableData
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	headerRow := 0
	for i, row := range rows {
		if rowHasDayHeader(row) {
			headerRow = i
			break
		}
	}

	columns := [GridDays]int{}
	for d := range columns {
		columns[d] = d + 1
	}
	if headerRow < len(rows) {
		for idx, cell := range rows[headerRow] {
			for d := range dayHeaders {
				if cellNamesDay(cell, d) {
					columns[d] = idx
				}
			}
		}
	}

	result := &ImportedTimetable{Sheet: sheet}
	found := false
	for p := 0; p < GridPeriods; p++ {
		rowIdx := headerRow + 1 + p
		if rowIdx >= len(rows) {
			break
		}
		row := rows[rowIdx]
		for d, col := range columns {
			if col >= len(row) {
				continue
			}
			if value := strings.TrimSpace(row[col]); value != "" {
				result.Cells[d][p] = value
				found = true
			}
		}
	}
	if !found {
		return nil, ErrNoTimetableData
	}
	return result, nil
}

func rowHasDayHeader(row []string) bool {
	for _, cell := range row {
		for d := range dayHeaders {
			if cellNamesDay(cell, d) {
				return true
			}
		}
	}
	return false
}

// cellNamesDay matches the whole cell, so titles like "수업 시간표" or "과목" never count as headers.
func cellNamesDay(cell string, day int) bool {
	value := strings.ToLower(strings.Trim(strings.TrimSpace(cell), "()[]."))
	if value == "" {
		return false
	}
	for _, alias := range dayHeaders[day] {
		if value == alias {
			return true
		}
	}
	return false
}
