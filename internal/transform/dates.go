package transform

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// Spreadsheet serial 25569 is 1970-01-01; day zero is 1899-12-30.
	excelUnixEpochOffset = 25569
	maxExcelSerial       = 2958465 // 9999-12-31

	// Two-digit years at or above the pivot belong to the 1900s.
	centuryPivot = 50
)

var (
	excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

	dayMonthYear = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2}|\d{4})$`)

	genericLayouts = []string{
		time.DateOnly,
		time.RFC3339,
		"2006-01-02T15:04:05",
		time.DateTime,
		"2006/01/02",
		"2-Jan-06",
		"2-Jan-2006",
		"2 Jan 2006",
		"Jan 2, 2006",
		"January 2, 2006",
	}

	spanishMonths = strings.NewReplacer(
		"ene", "Jan", "feb", "Feb", "mar", "Mar", "abr", "Apr", "may", "May", "jun", "Jun",
		"jul", "Jul", "ago", "Aug", "sep", "Sep", "oct", "Oct", "nov", "Nov", "dic", "Dec",
	)
)

// ParseDate converts a raw cell into a calendar date (UTC midnight). It
// accepts time values, spreadsheet serials, DD/MM/YY(YY) strings and a set
// of common layouts. ok is false when nothing matches.
func ParseDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return dateOnly(t), true
	case float64:
		return fromSerial(t)
	case int:
		return fromSerial(float64(t))
	case int64:
		return fromSerial(float64(t))
	case string:
		return parseDateString(strings.TrimSpace(t))
	}
	return time.Time{}, false
}

func fromSerial(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || serial < 1 || serial > maxExcelSerial {
		return time.Time{}, false
	}
	return excelEpoch.AddDate(0, 0, int(math.Floor(serial))), true
}

func parseDateString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	if m := dayMonthYear.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			if year >= centuryPivot {
				year += 1900
			} else {
				year += 2000
			}
		}
		return validDate(year, month, day)
	}

	candidate := spanishMonths.Replace(strings.ToLower(s))
	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			return dateOnly(t), true
		}
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}
	return time.Time{}, false
}

func validDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
