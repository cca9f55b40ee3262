package models

import "fmt"

// DomainType identifies which canonical record family a source file feeds.
type DomainType string

const (
	DomainEmployee       DomainType = "employee"
	DomainTermination    DomainType = "termination"
	DomainIncident       DomainType = "incident"
	DomainPayrollPreweek DomainType = "payroll_preweek"
)

// DomainOrder is the write order of a run. Employees go first so the
// lookup-only references of the other domains resolve on the dashboard.
var DomainOrder = []DomainType{DomainEmployee, DomainTermination, DomainIncident, DomainPayrollPreweek}

func DomainTypeFrom(s string) (DomainType, error) {
	switch s {
	case "employee":
		return DomainEmployee, nil
	case "termination":
		return DomainTermination, nil
	case "incident":
		return DomainIncident, nil
	case "payroll_preweek":
		return DomainPayrollPreweek, nil
	}
	return "", fmt.Errorf("unknown domain type %q", s)
}
