package service

import (
	"path"
	"strings"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/Guizzs26/go-sync-hr/internal/source"
	"github.com/Guizzs26/go-sync-hr/pkg/encoding"
)

type classifierRule struct {
	domain models.DomainType
	// any of these term groups matches when all terms of the group appear
	groups [][]string
}

// Evaluated in order, first match wins.
var classifierRules = []classifierRule{
	{models.DomainPayrollPreweek, [][]string{{"prenomina"}}},
	{models.DomainTermination, [][]string{{"motivos", "baja"}, {"bajas"}}},
	{models.DomainIncident, [][]string{{"incidencia"}}},
	{models.DomainEmployee, [][]string{{"empleados"}, {"validacion", "alta"}, {"plantilla"}}},
}

// ClassifyFile maps a filename to its domain by accent- and case-insensitive
// name conventions.
func ClassifyFile(name string) (models.DomainType, bool) {
	if !source.Supported(name) {
		return "", false
	}
	folded := encoding.Fold(path.Base(name))
	for _, rule := range classifierRules {
		for _, group := range rule.groups {
			if containsAll(folded, group) {
				return rule.domain, true
			}
		}
	}
	return "", false
}

// Classify keeps the files that feed a known domain, in listing order.
func Classify(files []models.RemoteFile) []models.ClassifiedFile {
	var out []models.ClassifiedFile
	for _, f := range files {
		if domain, ok := ClassifyFile(f.Name); ok {
			out = append(out, models.ClassifiedFile{RemoteFile: f, Domain: domain})
		}
	}
	return out
}

func containsAll(s string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}
