package service

import (
	"testing"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareStructure(t *testing.T) {
	file := models.ClassifiedFile{RemoteFile: models.RemoteFile{Name: "Incidencias.csv"}, Domain: models.DomainIncident}
	table := models.Table{Columns: []string{"EMP", "Fecha", "Turno"}, Rows: []models.RawRow{{}, {}}}

	t.Run("first import", func(t *testing.T) {
		c := CompareStructure(file, table, nil)
		assert.True(t, c.FirstImport)
		assert.Nil(t, c.Diff)
		assert.Equal(t, 2, c.Snapshot().RowCount)
	})

	t.Run("same columns in another order", func(t *testing.T) {
		snap := &models.FileStructureSnapshot{Columns: []string{"Turno", "EMP ", " Fecha"}}
		c := CompareStructure(file, table, snap)
		assert.False(t, c.FirstImport)
		assert.Nil(t, c.Diff)
	})

	t.Run("case change is drift", func(t *testing.T) {
		snap := &models.FileStructureSnapshot{Columns: []string{"turno", "EMP", "Fecha"}}
		c := CompareStructure(file, table, snap)
		require.NotNil(t, c.Diff)
		assert.Equal(t, []string{"Turno"}, c.Diff.Added)
		assert.Equal(t, []string{"turno"}, c.Diff.Removed)
	})

	t.Run("uppercased accented header", func(t *testing.T) {
		roster := models.ClassifiedFile{RemoteFile: models.RemoteFile{Name: "empleados.csv"}, Domain: models.DomainEmployee}
		observed := models.Table{Columns: []string{"NÚMERO", "NOMBRE"}}
		snap := &models.FileStructureSnapshot{Columns: []string{"Número", "Nombre"}}
		c := CompareStructure(roster, observed, snap)
		require.NotNil(t, c.Diff)
		assert.Equal(t, []string{"NÚMERO", "NOMBRE"}, c.Diff.Added)
		assert.Equal(t, []string{"Número", "Nombre"}, c.Diff.Removed)
	})

	t.Run("drift", func(t *testing.T) {
		snap := &models.FileStructureSnapshot{Columns: []string{"EMP", "Fecha", "INCI"}}
		c := CompareStructure(file, table, snap)
		require.NotNil(t, c.Diff)
		assert.Equal(t, []string{"Turno"}, c.Diff.Added)
		assert.Equal(t, []string{"INCI"}, c.Diff.Removed)
		assert.Equal(t, table.Columns, c.Diff.Columns)
		assert.Equal(t, models.DomainIncident, c.Diff.DomainType)
	})
}
