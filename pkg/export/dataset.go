package export

import "fmt"

const (
	// GridDays is the number of day columns in a timetable.
	GridDays = 5
	// GridPeriods is the number of period rows in a timetable.
	GridPeriods = 7
)

// Dataset defines ordered tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Timetable is a period-by-day table. Cells is indexed [day][period].
type Timetable struct {
	Title     string
	DayLabels [GridDays]string
	Cells     [GridDays][GridPeriods]string
}

// Dataset lays the timetable out with one row per period.
func (t Timetable) Dataset() Dataset {
	headers := make([]string, 0, GridDays+1)
	headers = append(headers, "Period")
	headers = append(headers, t.DayLabels[:]...)

	rows := make([][]string, 0, GridPeriods)
	for p := 0; p < GridPeriods; p++ {
		row := make([]string, 0, GridDays+1)
		row = append(row, fmt.Sprintf("%d", p+1))
		for d := 0; d < GridDays; d++ {
			row = append(row, t.Cells[d][p])
		}
		rows = append(rows, row)
	}
	return Dataset{Title: t.Title, Headers: headers, Rows: rows}
}

func (d Dataset) validate(format string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", format)
	}
	for i, row := range d.Rows {
		if len(row) > len(d.Headers) {
			return fmt.Errorf("%s row %d has %d cells for %d headers", format, i+1, len(row), len(d.Headers))
		}
	}
	return nil
}
