package transform

import (
	"strings"

	"github.com/Guizzs26/go-sync-hr/pkg/encoding"
)

// NoIncidentCode is stored when the INCI cell is blank.
const NoIncidentCode = "0"

var incidentAliases = map[string]string{
	"ENF":     "ENFE",
	"ENFE":    "ENFE",
	"PSG":     "PSIN",
	"PCG":     "PCON",
	"SUSP":    "SUS",
	"ACC":     "ACCI",
	"ACCI.":   "ACCI",
	"PATER":   "PAT",
	"PATERNO": "PAT",
}

// NormalizeIncidentCode maps the spellings seen in attendance exports onto
// the canonical incident codes.
func NormalizeIncidentCode(raw string) string {
	c := strings.ToUpper(strings.TrimSpace(raw))
	if c == "" {
		return NoIncidentCode
	}
	if alias, ok := incidentAliases[c]; ok {
		return alias
	}
	compact := strings.Join(strings.Fields(c), "")
	if alias, ok := incidentAliases[compact]; ok {
		return alias
	}
	return compact
}

// DefaultReason is stored when a termination row carries no reason.
const DefaultReason = "No especificado"

type reasonRule struct {
	all   []string
	label string
}

// Evaluated in order; the first rule whose keywords all appear wins. Keywords
// are stems that survive both accent folding and mangled exports.
var reasonRules = []reasonRule{
	{[]string{"abandono"}, "Abandono / No regresó"},
	{[]string{"regres"}, "Abandono / No regresó"},
	{[]string{"rescisi", "desempe"}, "Rescisión por desempeño"},
	{[]string{"rescisi", "disciplin"}, "Rescisión por disciplina"},
	{[]string{"rescisi", "contrat"}, "Rescisión de contrato"},
	{[]string{"rmino"}, "Término del contrato"},
	{[]string{"contrato"}, "Término del contrato"},
	{[]string{"trabajo", "mejor"}, "Otro trabajo mejor compensado"},
	{[]string{"ambiente"}, "No le gustó el ambiente"},
	{[]string{"instal"}, "No le gustaron las instalaciones"},
	{[]string{"salud"}, "Motivos de salud"},
	{[]string{"ciudad"}, "Cambio de ciudad"},
	{[]string{"jubilaci"}, "Jubilación"},
	{[]string{"separaci", "voluntari"}, "Baja Voluntaria"},
	{[]string{"baja"}, "Baja Voluntaria"},
	{[]string{"otra"}, "Otra razón"},
	{[]string{"razon"}, "Otra razón"},
}

// ReasonCategory groups free-text termination reasons for reporting.
func ReasonCategory(raw string) string {
	cleaned := strings.Join(strings.Fields(strings.ReplaceAll(encoding.Fold(raw), "?", "")), " ")
	if cleaned == "" {
		return DefaultReason
	}
	for _, rule := range reasonRules {
		if containsAll(cleaned, rule.all) {
			return rule.label
		}
	}
	return strings.TrimSpace(raw)
}

func containsAll(s string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(s, w) {
			return false
		}
	}
	return true
}

// ParseActive reads the roster's "Activo" flag.
func ParseActive(raw string) bool {
	switch encoding.Fold(raw) {
	case "si", "s", "true", "1", "activo", "a", "yes", "y":
		return true
	}
	return false
}
