package models

import (
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyManual  Frequency = "manual"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// FrequencyFrom falls back to manual for anything it does not recognise.
func FrequencyFrom(s string) Frequency {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case FrequencyDaily:
		return FrequencyDaily
	case FrequencyWeekly:
		return FrequencyWeekly
	case FrequencyMonthly:
		return FrequencyMonthly
	default:
		return FrequencyManual
	}
}

// ScheduleConfig is the singleton configuration of automated triggers.
type ScheduleConfig struct {
	Frequency Frequency    `db:"frequency" json:"frequency"`
	DayOfWeek time.Weekday `db:"day_of_week" json:"day_of_week"`
	RunTime   string       `db:"run_time" json:"run_time"`
	LastRun   *time.Time   `db:"last_run" json:"last_run,omitempty"`
	NextRun   *time.Time   `db:"next_run" json:"next_run,omitempty"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "domingo": time.Sunday,
	"monday": time.Monday, "lunes": time.Monday,
	"tuesday": time.Tuesday, "martes": time.Tuesday,
	"wednesday": time.Wednesday, "miercoles": time.Wednesday,
	"thursday": time.Thursday, "jueves": time.Thursday,
	"friday": time.Friday, "viernes": time.Friday,
	"saturday": time.Saturday, "sabado": time.Saturday,
}

// WeekdayFrom parses an English or Spanish weekday name, defaulting to Monday.
func WeekdayFrom(s string) time.Weekday {
	if d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d
	}
	return time.Monday
}
