package wizard

import "time"

// Month identifies one page of the calendar picker.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Prev returns the previous month, wrapping January into December.
func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

// Next returns the following month, wrapping December into January.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Valid reports whether the month is in range.
func (m Month) Valid() bool {
	return m.Month >= time.January && m.Month <= time.December && m.Year > 0
}

// Day returns the given day of the month at midnight UTC.
func (m Month) Day(day int) time.Time {
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the month.
func (m Month) DaysIn() int {
	return m.Day(1).AddDate(0, 1, -1).Day()
}

// Grid lays the month out in Monday-first weeks. Cells outside the month are zero.
func (m Month) Grid() [][7]int {
	first := m.Day(1)
	offset := (int(first.Weekday()) + 6) % 7

	var (
		weeks [][7]int
		week  [7]int
	)
	col := offset
	for day := 1; day <= m.DaysIn(); day++ {
		week[col] = day
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week = [7]int{}
			col = 0
		}
	}
	if col > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}
