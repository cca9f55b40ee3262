package service

import (
	"slices"
	"strings"

	"github.com/Guizzs26/go-sync-hr/internal/models"
)

// Comparison is the structural verdict for one file.
type Comparison struct {
	File        models.ClassifiedFile
	Table       models.Table
	FirstImport bool
	// Diff is nil when the columns match the snapshot.
	Diff *models.FileDiff
}

// CompareStructure diffs the observed header against the stored snapshot.
// Column names are compared trimmed but otherwise exact; order is ignored.
func CompareStructure(file models.ClassifiedFile, table models.Table, snap *models.FileStructureSnapshot) Comparison {
	c := Comparison{File: file, Table: table}
	if snap == nil {
		c.FirstImport = true
		return c
	}

	observed := columnSet(table.Columns)
	stored := columnSet(snap.Columns)

	var added, removed []string
	for _, col := range table.Columns {
		if _, ok := stored[columnKey(col)]; !ok {
			added = append(added, col)
		}
	}
	for _, col := range snap.Columns {
		if _, ok := observed[columnKey(col)]; !ok {
			removed = append(removed, col)
		}
	}
	if len(added) == 0 && len(removed) == 0 {
		return c
	}

	c.Diff = &models.FileDiff{
		Filename:   file.Name,
		DomainType: file.Domain,
		Added:      nonNil(added),
		Removed:    nonNil(removed),
		Columns:    slices.Clone(table.Columns),
		RowCount:   len(table.Rows),
	}
	return c
}

func columnKey(s string) string {
	return strings.TrimSpace(s)
}

func columnSet(cols []string) map[string]struct{} {
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[columnKey(c)] = struct{}{}
	}
	return set
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Snapshot captures the observed layout of a compared file.
func (c Comparison) Snapshot() models.FileStructureSnapshot {
	return models.FileStructureSnapshot{
		Filename:   c.File.Name,
		DomainType: c.File.Domain,
		Columns:    slices.Clone(c.Table.Columns),
		RowCount:   len(c.Table.Rows),
	}
}
