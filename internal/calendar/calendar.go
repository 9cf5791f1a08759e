// Package calendar holds the date helpers shared by the booking screens:
// grouping of slots by day and local calendar-date parsing.
//
// Slot dates travel as "YYYY-MM-DD" strings. They are always interpreted as
// calendar days in the local zone, never as UTC instants, so a slot dated
// 2024-06-01 lands on the June 1st tile whatever the UTC offset is.
package calendar

import (
	"fmt"
	"time"

	"nails-service/api"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Grouped maps a date to its slots. Dates keeps first-seen order.
type Grouped struct {
	Dates  []string
	ByDate map[string][]api.TimeSlot
}

// GroupByDate keeps every slot exactly once and preserves order within a day.
// It does not sort.
func GroupByDate(slots []api.TimeSlot) Grouped {
	g := Grouped{
		Dates:  make([]string, 0),
		ByDate: make(map[string][]api.TimeSlot),
	}

	for _, slot := range slots {
		if _, ok := g.ByDate[slot.Date]; !ok {
			g.Dates = append(g.Dates, slot.Date)
		}
		g.ByDate[slot.Date] = append(g.ByDate[slot.Date], slot)
	}

	return g
}

func (g Grouped) Len() int {
	return len(g.Dates)
}

func (g Grouped) Has(date string) bool {
	_, ok := g.ByDate[date]
	return ok
}

// ParseDate parses "YYYY-MM-DD" as local midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar.ParseDate: %w", err)
	}
	return t, nil
}

// DateKey formats t by its local calendar components.
func DateKey(t time.Time) string {
	y, m, d := t.In(time.Local).Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// NormalizeTime accepts "HH:MM" or "HH:MM:SS" and returns "HH:MM:SS".
func NormalizeTime(s string) (string, error) {
	for _, layout := range []string{TimeLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimeLayout), nil
		}
	}
	return "", fmt.Errorf("calendar.NormalizeTime: invalid time %q", s)
}

// ShortTime cuts seconds off: "10:00:00" -> "10:00".
func ShortTime(s string) string {
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}

var months = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

var weekdays = [...]string{"вс", "пн", "вт", "ср", "чт", "пт", "сб"}

// DayLabel renders a slot date for display, e.g. "1 июня, сб".
func DayLabel(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%d %s, %s", t.Day(), months[t.Month()-1], weekdays[t.Weekday()])
}

// NumericDate renders "2024-06-01" as "01.06.2024".
func NumericDate(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format("02.01.2006")
}
