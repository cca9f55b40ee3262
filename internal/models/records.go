package models

import "time"

// EmployeeRecord is keyed by EmployeeNumber and upserted on every reimport.
type EmployeeRecord struct {
	EmployeeNumber       int        `db:"employee_number" json:"employee_number"`
	LastNames            string     `db:"last_names" json:"last_names"`
	FirstNames           string     `db:"first_names" json:"first_names"`
	FullName             string     `db:"full_name" json:"full_name"`
	Gender               string     `db:"gender" json:"gender,omitempty"`
	IMSS                 string     `db:"imss" json:"imss,omitempty"`
	BirthDate            *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	State                string     `db:"state" json:"state,omitempty"`
	HireDate             *time.Time `db:"hire_date" json:"hire_date,omitempty"`
	SeniorityDate        *time.Time `db:"seniority_date" json:"seniority_date,omitempty"`
	Company              string     `db:"company" json:"company,omitempty"`
	EmployerRegistration string     `db:"employer_registration" json:"employer_registration,omitempty"`
	PositionCode         string     `db:"position_code" json:"position_code,omitempty"`
	Position             string     `db:"position" json:"position,omitempty"`
	DepartmentCode       string     `db:"department_code" json:"department_code,omitempty"`
	Department           string     `db:"department" json:"department,omitempty"`
	CostCenterCode       string     `db:"cost_center_code" json:"cost_center_code,omitempty"`
	CostCenter           string     `db:"cost_center" json:"cost_center,omitempty"`
	CostSubaccount       string     `db:"cost_subaccount" json:"cost_subaccount,omitempty"`
	Classification       string     `db:"classification" json:"classification,omitempty"`
	AreaCode             string     `db:"area_code" json:"area_code,omitempty"`
	Area                 string     `db:"area" json:"area,omitempty"`
	Location             string     `db:"location" json:"location,omitempty"`
	PayrollType          string     `db:"payroll_type" json:"payroll_type,omitempty"`
	Shift                string     `db:"shift" json:"shift,omitempty"`
	StatutoryBenefits    string     `db:"statutory_benefits" json:"statutory_benefits,omitempty"`
	BenefitsPackage      string     `db:"benefits_package" json:"benefits_package,omitempty"`
	TerminationDate      *time.Time `db:"termination_date" json:"termination_date,omitempty"`
	Active               bool       `db:"active" json:"active"`
}

// TerminationRecord is keyed by (EmployeeNumber, TerminationDate, Reason).
type TerminationRecord struct {
	EmployeeNumber  int       `db:"employee_number" json:"employee_number"`
	TerminationDate time.Time `db:"termination_date" json:"termination_date"`
	Reason          string    `db:"reason" json:"reason"`
	ReasonCategory  string    `db:"reason_category" json:"reason_category"`
	Type            string    `db:"termination_type" json:"termination_type,omitempty"`
	Description     string    `db:"description" json:"description,omitempty"`
	Observations    string    `db:"observations" json:"observations,omitempty"`
}

type TerminationKey struct {
	EmployeeNumber  int
	TerminationDate time.Time
	Reason          string
}

func (r TerminationRecord) Key() TerminationKey {
	return TerminationKey{r.EmployeeNumber, r.TerminationDate, r.Reason}
}

// IncidentRecord is keyed by (EmployeeNumber, Date, Code).
type IncidentRecord struct {
	EmployeeNumber int       `db:"employee_number" json:"employee_number"`
	Date           time.Time `db:"incident_date" json:"incident_date"`
	Code           string    `db:"code" json:"code"`
	Name           string    `db:"name" json:"name,omitempty"`
	Shift          *int      `db:"shift" json:"shift,omitempty"`
	Schedule       string    `db:"schedule" json:"schedule,omitempty"`
	Description    string    `db:"description" json:"description,omitempty"`
	CheckIn        string    `db:"check_in" json:"check_in,omitempty"`
	CheckOut       string    `db:"check_out" json:"check_out,omitempty"`
	OrdinaryHours  *float64  `db:"ordinary_hours" json:"ordinary_hours,omitempty"`
	Status         *int      `db:"status" json:"status,omitempty"`
}

type IncidentKey struct {
	EmployeeNumber int
	Date           time.Time
	Code           string
}

func (r IncidentRecord) Key() IncidentKey {
	return IncidentKey{r.EmployeeNumber, r.Date, r.Code}
}

// PayrollDay is one weekday column group of the preweek extract.
type PayrollDay struct {
	Date          *time.Time `json:"date,omitempty"`
	OrdinaryHours *float64   `json:"ordinary_hours,omitempty"`
	OvertimeHours *float64   `json:"overtime_hours,omitempty"`
	Incident      string     `json:"incident,omitempty"`
}

// PayrollPreweekRecord is keyed by (EmployeeNumber, WeekStart).
type PayrollPreweekRecord struct {
	EmployeeNumber int           `db:"employee_number" json:"employee_number"`
	Name           string        `db:"name" json:"name,omitempty"`
	WeekStart      time.Time     `db:"week_start" json:"week_start"`
	WeekEnd        time.Time     `db:"week_end" json:"week_end"`
	Days           [7]PayrollDay `db:"days" json:"days"`
	TotalOrdinary  *float64      `db:"total_ordinary_hours" json:"total_ordinary_hours,omitempty"`
	TotalOvertime  *float64      `db:"total_overtime_hours" json:"total_overtime_hours,omitempty"`
}

type PayrollKey struct {
	EmployeeNumber int
	WeekStart      time.Time
}

func (r PayrollPreweekRecord) Key() PayrollKey {
	return PayrollKey{r.EmployeeNumber, r.WeekStart}
}
