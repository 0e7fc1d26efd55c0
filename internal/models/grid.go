package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// DaysPerWeek is the number of school days in a grid (mon..fri).
	DaysPerWeek = 5
	// PeriodsPerDay is the number of periods per day (1..7).
	PeriodsPerDay = 7
)

// Day identifies a school day. The wire form is the lowercase three letter key.
type Day string

const (
	DayMonday    Day = "mon"
	DayTuesday   Day = "tue"
	DayWednesday Day = "wed"
	DayThursday  Day = "thu"
	DayFriday    Day = "fri"
)

// Days lists the school days in grid order.
var Days = [DaysPerWeek]Day{DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday}

var dayLabels = map[Day]string{
	DayMonday:    "Mon",
	DayTuesday:   "Tue",
	DayWednesday: "Wed",
	DayThursday:  "Thu",
	DayFriday:    "Fri",
}

var dayAliases = map[string]Day{
	"mon": DayMonday, "monday": DayMonday, "월": DayMonday,
	"tue": DayTuesday, "tuesday": DayTuesday, "화": DayTuesday,
	"wed": DayWednesday, "wednesday": DayWednesday, "수": DayWednesday,
	"thu": DayThursday, "thursday": DayThursday, "목": DayThursday,
	"fri": DayFriday, "friday": DayFriday, "금": DayFriday,
}

// ParseDay accepts day keys, English names, and Korean weekday labels.
func ParseDay(raw string) (Day, bool) {
	day, ok := dayAliases[strings.ToLower(strings.TrimSpace(raw))]
	return day, ok
}

// Valid reports whether d is one of the five school days.
func (d Day) Valid() bool {
	return d.Index() >= 0
}

// Index returns the zero-based grid row of d, or -1.
func (d Day) Index() int {
	for i, day := range Days {
		if day == d {
			return i
		}
	}
	return -1
}

// Label returns a short display label.
func (d Day) Label() string {
	return dayLabels[d]
}

// ValidPeriod reports whether period is within 1..PeriodsPerDay.
func ValidPeriod(period int) bool {
	return period >= 1 && period <= PeriodsPerDay
}

// ErrInvalidGrid marks grid shape violations.
var ErrInvalidGrid = errors.New("invalid grid")

// Grid is a week of subject labels indexed by [day][period-1]. An empty cell is a free period.
type Grid [DaysPerWeek][PeriodsPerDay]string

// GridPayload is a grid as posted by clients, before shape validation.
// Decoding rejects null days and null cells: every entry must be a string.
type GridPayload map[string][]string

// UnmarshalJSON decodes the payload, failing with ErrInvalidGrid on nulls.
func (p *GridPayload) UnmarshalJSON(data []byte) error {
	var raw map[string][]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGrid, err)
	}
	if raw == nil {
		*p = nil
		return nil
	}
	out := make(GridPayload, len(raw))
	for day, cells := range raw {
		if cells == nil {
			return fmt.Errorf("%w: day %s is null", ErrInvalidGrid, day)
		}
		values := make([]string, len(cells))
		for i, cell := range cells {
			if cell == nil {
				return fmt.Errorf("%w: day %s period %d is null", ErrInvalidGrid, day, i+1)
			}
			values[i] = *cell
		}
		out[day] = values
	}
	*p = out
	return nil
}

// GridFromMap validates the wire form: exactly five day keys with exactly seven entries each.
func GridFromMap(raw map[string][]string) (Grid, error) {
	var grid Grid
	if len(raw) != DaysPerWeek {
		return grid, fmt.Errorf("%w: expected %d days, got %d", ErrInvalidGrid, DaysPerWeek, len(raw))
	}
	for key, periods := range raw {
		day := Day(key)
		idx := day.Index()
		if idx < 0 {
			return grid, fmt.Errorf("%w: unknown day %q", ErrInvalidGrid, key)
		}
		if len(periods) != PeriodsPerDay {
			return grid, fmt.Errorf("%w: day %s has %d periods, expected %d", ErrInvalidGrid, key, len(periods), PeriodsPerDay)
		}
		copy(grid[idx][:], periods)
	}
	return grid, nil
}

// Map renders the wire form of the grid.
func (g Grid) Map() map[string][]string {
	out := make(map[string][]string, DaysPerWeek)
	for i, day := range Days {
		periods := make([]string, PeriodsPerDay)
		copy(periods, g[i][:])
		out[string(day)] = periods
	}
	return out
}

// Cell returns the label at (day, period). Invalid coordinates read as empty.
func (g Grid) Cell(day Day, period int) string {
	idx := day.Index()
	if idx < 0 || !ValidPeriod(period) {
		return ""
	}
	return g[idx][period-1]
}

// IsFree reports whether the slot is empty or whitespace only.
func (g Grid) IsFree(day Day, period int) bool {
	return strings.TrimSpace(g.Cell(day, period)) == ""
}

// Set writes a single cell.
func (g *Grid) Set(day Day, period int, label string) error {
	idx := day.Index()
	if idx < 0 {
		return fmt.Errorf("%w: unknown day %q", ErrInvalidGrid, day)
	}
	if !ValidPeriod(period) {
		return fmt.Errorf("%w: period %d out of range", ErrInvalidGrid, period)
	}
	g[idx][period-1] = label
	return nil
}

// Occupied counts non-empty cells.
func (g Grid) Occupied() int {
	n := 0
	for _, day := range Days {
		for p := 1; p <= PeriodsPerDay; p++ {
			if !g.IsFree(day, p) {
				n++
			}
		}
	}
	return n
}

// MarshalJSON encodes the grid as {"mon": [...7], ...}.
func (g Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Map())
}

// UnmarshalJSON decodes and validates the wire form.
func (g *Grid) UnmarshalJSON(data []byte) error {
	var raw GridPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := GridFromMap(raw)
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// Value stores the grid as JSONB.
func (g Grid) Value() (driver.Value, error) {
	return json.Marshal(g.Map())
}

// Scan loads a JSONB grid.
func (g *Grid) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*g = Grid{}
		return nil
	default:
		return fmt.Errorf("scan grid: unsupported type %T", src)
	}
	return g.UnmarshalJSON(data)
}

// CellUpdate changes one slot of a grid.
type CellUpdate struct {
	Day    Day    `json:"day" validate:"required"`
	Period int    `json:"period" validate:"min=1,max=7"`
	Label  string `json:"label"`
}

// Apply writes all updates to a copy of g.
func (g Grid) Apply(updates []CellUpdate) (Grid, error) {
	next := g
	for _, u := range updates {
		if err := next.Set(u.Day, u.Period, strings.TrimSpace(u.Label)); err != nil {
			return g, err
		}
	}
	return next, nil
}
