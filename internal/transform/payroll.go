package transform

import (
	"fmt"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
)

// weekdayPrefixes are the column prefixes of the preweek extract, Monday first.
var weekdayPrefixes = [7]string{"LUN", "MAR", "MIE", "JUE", "VIE", "SAB", "DOM"}

var payrollFields = struct {
	Number, Name Field
	Days         [7]payrollDayFields
}{
	Number: field("numero", "Número", "Numero", "#", "Gafete"),
	Name:   field("nombre", "Nombre"),
	Days:   buildPayrollDayFields(),
}

type payrollDayFields struct {
	Date, Ordinary, Overtime, Incident Field
}

func buildPayrollDayFields() [7]payrollDayFields {
	var days [7]payrollDayFields
	for i, p := range weekdayPrefixes {
		days[i] = payrollDayFields{
			Date:     field("", p, p+"-FECHA", p+" - FECHA"),
			Ordinary: field("", p+"-ORD", p+" - ORD"),
			Overtime: field("", p+"-TE", p+" - TE"),
			Incident: field("", p+"-INC", p+" - INC"),
		}
	}
	return days
}

// PayrollPreweeks maps the horizontal preweek layout. The week starts at the
// first day column holding a parseable date and ends six days later; rows
// without an employee number or any day date are rejected.
func PayrollPreweeks(rows []models.RawRow) Result[models.PayrollPreweekRecord] {
	f := payrollFields
	var res Result[models.PayrollPreweekRecord]
	records := make([]models.PayrollPreweekRecord, 0, len(rows))

	for _, row := range rows {
		num := employeeNumber(row, f.Number)
		if num == nil {
			res.Rejected++
			continue
		}

		rec := models.PayrollPreweekRecord{
			EmployeeNumber: *num,
			Name:           f.Name.Text(row),
		}

		var start *time.Time
		for i, df := range f.Days {
			day := models.PayrollDay{
				Date:          df.Date.Date(row),
				OrdinaryHours: df.Ordinary.Float(row),
				OvertimeHours: df.Overtime.Float(row),
				Incident:      df.Incident.Text(row),
			}
			if start == nil && day.Date != nil {
				s := day.Date.AddDate(0, 0, -i)
				start = &s
			}
			rec.Days[i] = day
			rec.TotalOrdinary = addHours(rec.TotalOrdinary, day.OrdinaryHours)
			rec.TotalOvertime = addHours(rec.TotalOvertime, day.OvertimeHours)
		}

		if start == nil {
			res.Rejected++
			continue
		}
		rec.WeekStart = *start
		rec.WeekEnd = start.AddDate(0, 0, 6)

		records = append(records, rec)
	}

	res.Records, res.Duplicates = dedupe(records, models.PayrollPreweekRecord.Key)
	return res
}

func addHours(total, h *float64) *float64 {
	if h == nil {
		return total
	}
	sum := *h
	if total != nil {
		sum += *total
	}
	return &sum
}

// WeekLabel renders a preweek as "2025-01-06..2025-01-12" for logs.
func WeekLabel(r models.PayrollPreweekRecord) string {
	return fmt.Sprintf("%s..%s", r.WeekStart.Format(time.DateOnly), r.WeekEnd.Format(time.DateOnly))
}
