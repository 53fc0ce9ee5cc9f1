package timeutil

import (
	"fmt"
	"time"
)

// Формати часу, які зустрічаються в полі updatedOn апстріму.
var upstreamLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// LoadReportingLocation завантажує звітний часовий пояс. Якщо база часових
// поясів недоступна, повертає фіксований зсув EET.
func LoadReportingLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("EET", 2*60*60)
	}

	return loc
}

// ParseUpstreamTime розбирає мітку часу апстріму. Мітки без зсуву
// трактуються у звітному поясі.
func ParseUpstreamTime(raw string, loc *time.Location) (time.Time, error) {
	for i, layout := range upstreamLayouts {
		var (
			t   time.Time
			err error
		)

		if i == 0 {
			t, err = time.Parse(layout, raw)
		} else {
			t, err = time.ParseInLocation(layout, raw, loc)
		}

		if err == nil {
			return t.In(loc), nil
		}
	}

	return time.Time{}, fmt.Errorf("нерозпізнана мітка часу: %q", raw)
}

// FormatMinute форматує час у звітному поясі з точністю до хвилини.
func FormatMinute(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02.01.2006 15:04")
}

// MinutesToTime перетворює хвилини від півночі на HH:MM.
// Верхня межа доби (1440) рендериться як 24:00.
func MinutesToTime(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
