package transform

import "github.com/Guizzs26/go-sync-hr/internal/models"

var terminationFields = struct {
	Number, Date, Type, Reason, Description, Observations Field
}{
	Number:       field("numero", "#", "Numero", "Número", "Gafete", "No"),
	Date:         field("fecha", "Fecha", "Fecha Baja", "Fecha de Baja"),
	Type:         field("tipo", "Tipo"),
	Reason:       field("motivo", "Motivo"),
	Description:  field("descripcion", "Descripción", "Descripcion"),
	Observations: field("observacion", "Observaciones"),
}

// Terminations maps termination-reason rows. Employee number and a
// parseable date are mandatory; a missing reason becomes DefaultReason.
func Terminations(rows []models.RawRow) Result[models.TerminationRecord] {
	f := terminationFields
	var res Result[models.TerminationRecord]
	records := make([]models.TerminationRecord, 0, len(rows))

	for _, row := range rows {
		num := employeeNumber(row, f.Number)
		date := f.Date.Date(row)
		if num == nil || date == nil {
			res.Rejected++
			continue
		}

		reason := f.Reason.Text(row)
		if reason == "" {
			reason = DefaultReason
		}

		records = append(records, models.TerminationRecord{
			EmployeeNumber:  *num,
			TerminationDate: *date,
			Reason:          reason,
			ReasonCategory:  ReasonCategory(reason),
			Type:            f.Type.Text(row),
			Description:     f.Description.Text(row),
			Observations:    f.Observations.Text(row),
		})
	}

	res.Records, res.Duplicates = dedupe(records, models.TerminationRecord.Key)
	return res
}
