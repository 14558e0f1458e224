package calendar

import "time"

const (
	// DaysPerWeek is the number of rows of a grid (Sunday first).
	DaysPerWeek = 7

	// MinWeeks is the number of week columns every grid allocates.
	// A leap year that starts on a Saturday spills into one extra column.
	MinWeeks = 53
)

// Cell is one day of the year grid.
type Cell struct {
	DateKey  DateKey
	IsFuture bool
	IsToday  bool
}

// Week is one column of the grid, indexed by weekday (0 = Sunday).
// Nil slots are padding before January 1st or after December 31st.
type Week [DaysPerWeek]*Cell

// MonthLabel marks the column holding the first day of a month.
type MonthLabel struct {
	Month time.Month
	Week  int
}

// Grid is the projection of one calendar year into week columns.
type Grid struct {
	Year        int
	Weeks       []Week
	MonthLabels []MonthLabel
}

// BuildYearGrid lays out every day of year. Cells are compared against the
// local calendar day of now to set IsToday and IsFuture.
func BuildYearGrid(year int, now time.Time) Grid {
	loc := now.Location()
	today := KeyOf(now)

	// Noon keeps DST transitions at midnight from moving a day.
	jan1 := time.Date(year, time.January, 1, 12, 0, 0, 0, loc)
	offset := int(jan1.Weekday())
	days := DaysInYear(year)

	columns := (days-1+offset)/DaysPerWeek + 1
	if columns < MinWeeks {
		columns = MinWeeks
	}

	grid := Grid{
		Year:        year,
		Weeks:       make([]Week, columns),
		MonthLabels: make([]MonthLabel, 0, 12),
	}

	for ordinal := 0; ordinal < days; ordinal++ {
		day := time.Date(year, time.January, 1+ordinal, 12, 0, 0, 0, loc)
		key := KeyOf(day)
		week := (ordinal + offset) / DaysPerWeek

		grid.Weeks[week][day.Weekday()] = &Cell{
			DateKey:  key,
			IsFuture: key > today,
			IsToday:  key == today,
		}

		if day.Day() == 1 {
			grid.MonthLabels = append(grid.MonthLabels, MonthLabel{Month: day.Month(), Week: week})
		}
	}
	return grid
}

// Cells returns the non-empty cells in chronological order.
func (g Grid) Cells() []Cell {
	cells := make([]Cell, 0, DaysInYear(g.Year))
	for _, w := range g.Weeks {
		for _, c := range w {
			if c != nil {
				cells = append(cells, *c)
			}
		}
	}
	return cells
}

// Find returns the cell for key, if the grid holds it.
func (g Grid) Find(key DateKey) (Cell, bool) {
	for _, w := range g.Weeks {
		for _, c := range w {
			if c != nil && c.DateKey == key {
				return *c, true
			}
		}
	}
	return Cell{}, false
}
