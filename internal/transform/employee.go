package transform

import (
	"strings"

	"github.com/Guizzs26/go-sync-hr/internal/models"
)

var employeeFields = struct {
	Number, LastNames, FirstNames, FullName, Gender, IMSS, BirthDate, State       Field
	HireDate, SeniorityDate, Company, EmployerRegistration, PositionCode, Position Field
	DepartmentCode, Department, CostCenterCode, CostCenter, CostSubaccount        Field
	Classification, AreaCode, Area, Location, PayrollType, Shift                  Field
	StatutoryBenefits, BenefitsPackage, TerminationDate, Active                   Field
}{
	Number:               field("numero", "Número", "Numero", "Gafete", "#", "No. Empleado", "numero_empleado"),
	LastNames:            field("apellido", "Apellidos", "Apellido"),
	FirstNames:           field("nombres", "Nombres", "Nombre"),
	FullName:             field("nombre completo", "Nombre Completo", "Nombre completo"),
	Gender:               field("genero", "Género", "Genero", "Sexo"),
	IMSS:                 field("imss", "IMSS", "NSS", "No. IMSS"),
	BirthDate:            field("nacimiento", "Fecha de Nacimiento", "Fecha Nacimiento"),
	State:                field("estado", "Estado"),
	HireDate:             field("ingreso", "Fecha Ingreso", "Fecha de Ingreso"),
	SeniorityDate:        field("antiguedad", "Fecha Antigüedad", "Fecha Antiguedad"),
	Company:              field("empresa", "Empresa"),
	EmployerRegistration: field("registro patronal", "No. Registro Patronal", "Registro Patronal"),
	PositionCode:         field("codigopuesto", "CodigoPuesto", "Código Puesto", "Codigo Puesto"),
	Position:             field("puesto", "Puesto"),
	DepartmentCode:       field("depto", "Código Depto", "Codigo Depto"),
	Department:           field("departamento", "Departamento"),
	CostCenterCode:       field("codigo de cc", "Código de CC", "Codigo de CC"),
	CostCenter:           field("", "CC", "Centro de Costos"),
	CostSubaccount:       field("subcuenta", "Subcuenta CC"),
	Classification:       field("clasificacion", "Clasificación", "Clasificacion"),
	AreaCode:             field("codigo area", "Codigo Area", "Código Área", "Código Area"),
	Area:                 field("", "Area", "Área"),
	Location:             field("ubicacion", "Ubicación", "Ubicacion"),
	PayrollType:          field("tipo de nomina", "Tipo de Nómina", "Tipo de Nomina"),
	Shift:                field("turno", "Turno"),
	StatutoryBenefits:    field("prestacion de ley", "Prestación de Ley", "Prestacion de Ley"),
	BenefitsPackage:      field("paquete", "Paquete de Prestaciones"),
	TerminationDate:      field("fecha baja", "Fecha Baja", "Fecha de Baja"),
	Active:               field("activo", "Activo"),
}

// Employees maps roster rows. Rows without an employee number are rejected.
func Employees(rows []models.RawRow) Result[models.EmployeeRecord] {
	f := employeeFields
	var res Result[models.EmployeeRecord]
	records := make([]models.EmployeeRecord, 0, len(rows))

	for _, row := range rows {
		num := employeeNumber(row, f.Number)
		if num == nil {
			res.Rejected++
			continue
		}

		rec := models.EmployeeRecord{
			EmployeeNumber:       *num,
			LastNames:            f.LastNames.Text(row),
			FirstNames:           f.FirstNames.Text(row),
			FullName:             f.FullName.Text(row),
			Gender:               f.Gender.Text(row),
			IMSS:                 f.IMSS.Text(row),
			BirthDate:            f.BirthDate.Date(row),
			State:                f.State.Text(row),
			HireDate:             f.HireDate.Date(row),
			SeniorityDate:        f.SeniorityDate.Date(row),
			Company:              f.Company.Text(row),
			EmployerRegistration: f.EmployerRegistration.Text(row),
			PositionCode:         f.PositionCode.Text(row),
			Position:             f.Position.Text(row),
			DepartmentCode:       f.DepartmentCode.Text(row),
			Department:           f.Department.Text(row),
			CostCenterCode:       f.CostCenterCode.Text(row),
			CostCenter:           f.CostCenter.Text(row),
			CostSubaccount:       f.CostSubaccount.Text(row),
			Classification:       f.Classification.Text(row),
			AreaCode:             f.AreaCode.Text(row),
			Area:                 f.Area.Text(row),
			Location:             f.Location.Text(row),
			PayrollType:          f.PayrollType.Text(row),
			Shift:                f.Shift.Text(row),
			StatutoryBenefits:    f.StatutoryBenefits.Text(row),
			BenefitsPackage:      f.BenefitsPackage.Text(row),
			TerminationDate:      f.TerminationDate.Date(row),
		}

		if rec.FullName == "" {
			rec.FullName = strings.TrimSpace(rec.FirstNames + " " + rec.LastNames)
		}

		if active := f.Active.Text(row); active != "" {
			rec.Active = ParseActive(active)
		} else {
			rec.Active = rec.TerminationDate == nil
		}

		records = append(records, rec)
	}

	res.Records, res.Duplicates = dedupe(records, func(r models.EmployeeRecord) int { return r.EmployeeNumber })
	return res
}
