package transform

import "github.com/Guizzs26/go-sync-hr/internal/models"

var incidentFields = struct {
	Number, Name, Date, Shift, Schedule, Description Field
	CheckIn, CheckOut, OrdinaryHours, Code, Status   Field
}{
	Number:        field("emp", "EMP", "Emp", "Numero", "Número"),
	Name:          field("nombre", "Nombre"),
	Date:          field("fecha", "Fecha"),
	Shift:         field("turno", "Turno"),
	Schedule:      field("horario", "Horario"),
	Description:   field("", "Incidencia", "Descripción", "Descripcion"),
	CheckIn:       field("entra", "Entra", "Entrada"),
	CheckOut:      field("sale", "Sale", "Salida"),
	OrdinaryHours: field("ordinarias", "Ordinarias", "Horas Ordinarias"),
	Code:          field("", "INCI", "Inci", "Código", "Codigo"),
	Status:        field("status", "Status", "Estatus"),
}

// Incidents maps attendance-log rows. Employee number and a parseable date
// are mandatory.
func Incidents(rows []models.RawRow) Result[models.IncidentRecord] {
	f := incidentFields
	var res Result[models.IncidentRecord]
	records := make([]models.IncidentRecord, 0, len(rows))

	for _, row := range rows {
		num := employeeNumber(row, f.Number)
		date := f.Date.Date(row)
		if num == nil || date == nil {
			res.Rejected++
			continue
		}

		records = append(records, models.IncidentRecord{
			EmployeeNumber: *num,
			Date:           *date,
			Code:           NormalizeIncidentCode(f.Code.Text(row)),
			Name:           f.Name.Text(row),
			Shift:          f.Shift.Int(row),
			Schedule:       f.Schedule.Text(row),
			Description:    f.Description.Text(row),
			CheckIn:        f.CheckIn.Text(row),
			CheckOut:       f.CheckOut.Text(row),
			OrdinaryHours:  f.OrdinaryHours.Float(row),
			Status:         f.Status.Int(row),
		})
	}

	res.Records, res.Duplicates = dedupe(records, models.IncidentRecord.Key)
	return res
}
