package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rosterFile      = "Validacion Alta de empleados.csv"
	incidentFile    = "Incidencias.csv"
	terminationFile = "Motivos de baja.csv"
)

func sampleFiles() map[string][]byte {
	return map[string][]byte{
		rosterFile:      []byte("Número,Apellidos,Nombres\n1001,García,Ana\n1002,Pérez,Luis\n,Sin,Numero\n"),
		incidentFile:    []byte("EMP,Fecha,INCI\n1001,02/02/2026,FI\n1002,03/02/2026,\n"),
		terminationFile: []byte("#,Fecha,Motivo\n1002,31/01/2026,Renuncia voluntaria\n"),
		"notas.txt":     []byte("ignored"),
	}
}

type harness struct {
	store    *memStore
	source   *memSource
	notifier *recordingNotifier
	pipeline *Pipeline
	now      time.Time
}

func newHarness(files map[string][]byte) *harness {
	h := &harness{
		store:    newMemStore(),
		source:   &memSource{files: files},
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	}
	gate := newTestGate(h.store, h.now)
	h.pipeline = NewPipeline(h.store, h.source, h.notifier, gate, 50, discardLogger())
	return h
}

func (h *harness) run(t *testing.T, req Request) Result {
	t.Helper()
	return h.pipeline.Run(context.Background(), req)
}

func domainResult(t *testing.T, s *models.RunSummary, d models.DomainType) models.DomainResult {
	t.Helper()
	require.NotNil(t, s)
	for _, r := range s.Domains {
		if r.Domain == d {
			return r
		}
	}
	t.Fatalf("domain %s missing from summary", d)
	return models.DomainResult{}
}

func TestPipeline_FirstImport(t *testing.T) {
	h := newHarness(sampleFiles())

	res := h.run(t, Request{Trigger: models.TriggerManual})

	require.Equal(t, ResultCompleted, res.Kind, res.Error)
	assert.Equal(t, models.StatusCompleted, h.store.statusOf(res.LogID))

	roster := domainResult(t, res.Summary, models.DomainEmployee)
	assert.Equal(t, 2, roster.Written)
	assert.Equal(t, 2, roster.Inserted)
	assert.Equal(t, 1, roster.Skipped)
	assert.Equal(t, 2, domainResult(t, res.Summary, models.DomainIncident).Written)
	assert.Equal(t, 1, domainResult(t, res.Summary, models.DomainTermination).Written)
	assert.Empty(t, res.Summary.Errors)

	assert.Len(t, h.store.employees, 2)
	assert.Len(t, h.store.incidents, 2)
	assert.Len(t, h.store.terminations, 1)

	snap, err := h.store.GetSnapshot(context.Background(), incidentFile, models.DomainIncident)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, []string{"EMP", "Fecha", "INCI"}, snap.Columns)
	assert.Equal(t, 2, snap.RowCount)

	require.Len(t, h.store.versions, 3)
	for _, v := range h.store.versions {
		require.NotNil(t, v.ImportLogID)
		assert.Equal(t, res.LogID, *v.ImportLogID)
	}
	assert.Equal(t, 3, h.source.fetches, "each file is fetched once per run")
	assert.Equal(t, []models.EventKind{models.EventCompleted}, h.notifier.kinds())
}

func TestPipeline_IdempotentReimport(t *testing.T) {
	h := newHarness(sampleFiles())

	first := h.run(t, Request{})
	require.Equal(t, ResultCompleted, first.Kind)
	second := h.run(t, Request{})
	require.Equal(t, ResultCompleted, second.Kind)

	assert.Len(t, h.store.employees, 2)
	assert.Len(t, h.store.incidents, 2)
	assert.Len(t, h.store.terminations, 1)

	roster := domainResult(t, second.Summary, models.DomainEmployee)
	assert.Zero(t, roster.Inserted)
	assert.Equal(t, 2, roster.Updated)

	require.Len(t, second.Summary.Files, 3)
	for _, f := range second.Summary.Files {
		assert.True(t, f.Unchanged, f.Filename)
	}
}

func TestPipeline_StructureChangeShortCircuits(t *testing.T) {
	files := sampleFiles()
	h := newHarness(files)
	require.Equal(t, ResultCompleted, h.run(t, Request{}).Kind)
	writes := h.store.recordWrites

	files[incidentFile] = []byte("EMP,Fecha,Turno\n1001,02/02/2026,1\n")

	res := h.run(t, Request{})

	require.Equal(t, ResultRequiresApproval, res.Kind)
	require.Len(t, res.Diffs, 1)
	assert.Equal(t, incidentFile, res.Diffs[0].Filename)
	assert.Equal(t, []string{"Turno"}, res.Diffs[0].Added)
	assert.Equal(t, []string{"INCI"}, res.Diffs[0].Removed)

	assert.Equal(t, writes, h.store.recordWrites, "no domain is written")
	assert.Equal(t, models.StatusAwaitingApproval, h.store.statusOf(res.LogID))
	snap, _ := h.store.GetSnapshot(context.Background(), incidentFile, models.DomainIncident)
	assert.Equal(t, []string{"EMP", "Fecha", "INCI"}, snap.Columns, "snapshot untouched")
	assert.Equal(t, models.EventStructureChanged, h.notifier.kinds()[1])

	blocked := h.run(t, Request{})
	require.Equal(t, ResultBlocked, blocked.Kind)
	assert.Equal(t, res.LogID, blocked.LogID)

	approvals := NewApprovalService(h.store, h.store, discardLogger())
	_, err := approvals.Approve(context.Background(), res.LogID, "rh-admin")
	require.NoError(t, err)

	after := h.run(t, Request{})
	require.Equal(t, ResultCompleted, after.Kind, after.Error)
	assert.Greater(t, h.store.recordWrites, writes)
}

func TestPipeline_BlockedByActiveRun(t *testing.T) {
	h := newHarness(sampleFiles())
	existing, err := h.store.CreateImportLog(context.Background(), models.TriggerScheduled)
	require.NoError(t, err)

	res := h.run(t, Request{Trigger: models.TriggerManual})

	require.Equal(t, ResultBlocked, res.Kind)
	require.NotNil(t, res.Existing)
	assert.Equal(t, existing.ID, res.Existing.ID)
	assert.Equal(t, models.StatusPending, res.Existing.Status)
	assert.Len(t, h.store.logs, 1, "no new log is created")
	assert.Zero(t, h.source.fetches)
	assert.Equal(t, []models.EventKind{models.EventBlocked}, h.notifier.kinds())
}

func TestPipeline_ScheduledBeforeNextRun(t *testing.T) {
	h := newHarness(sampleFiles())
	next := h.now.Add(48 * time.Hour)
	h.store.schedule = &models.ScheduleConfig{Frequency: models.FrequencyWeekly, DayOfWeek: time.Friday, RunTime: "10:00", NextRun: &next}

	res := h.run(t, Request{Trigger: models.TriggerScheduled})

	require.Equal(t, ResultSkipped, res.Kind)
	require.NotNil(t, res.NextRun)
	assert.True(t, next.Equal(*res.NextRun))
	assert.Zero(t, h.store.scheduleWrites)
	assert.Empty(t, h.store.logs)
	assert.Zero(t, h.source.fetches)
	assert.Empty(t, h.notifier.kinds())
}

func TestPipeline_ScheduledManualFrequencyIsSkipped(t *testing.T) {
	h := newHarness(sampleFiles())
	res := h.run(t, Request{Trigger: models.TriggerScheduled})
	assert.Equal(t, ResultSkipped, res.Kind)
	assert.Empty(t, h.store.logs)
}

func TestPipeline_ScheduledDueAdvancesSchedule(t *testing.T) {
	h := newHarness(sampleFiles())
	due := h.now.Add(-time.Minute)
	h.store.schedule = &models.ScheduleConfig{Frequency: models.FrequencyDaily, RunTime: "09:59", NextRun: &due}

	res := h.run(t, Request{Trigger: models.TriggerScheduled})

	require.Equal(t, ResultCompleted, res.Kind, res.Error)
	require.NotNil(t, res.Schedule)
	require.NotNil(t, res.Schedule.LastRun)
	assert.Equal(t, h.now, *res.Schedule.LastRun)
	assert.Equal(t, time.Date(2026, 3, 5, 9, 59, 0, 0, time.UTC), *h.store.schedule.NextRun)
}

func TestPipeline_DiscoveryFailureReleasesMutex(t *testing.T) {
	h := newHarness(sampleFiles())
	h.source.listErr = errors.New("sftp: connection reset")

	res := h.run(t, Request{})

	require.Equal(t, ResultFailed, res.Kind)
	assert.Equal(t, StepDiscovery, res.Step)
	assert.Contains(t, res.Error, "connection reset")
	assert.Equal(t, models.StatusFailed, h.store.statusOf(res.LogID))
	assert.Equal(t, []models.EventKind{models.EventFailed}, h.notifier.kinds())

	active, err := h.store.FindActiveImport(context.Background())
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestPipeline_DomainFailureDoesNotStopOthers(t *testing.T) {
	h := newHarness(sampleFiles())
	h.store.failIncidentClear = errors.New("statement timeout")

	res := h.run(t, Request{})

	require.Equal(t, ResultCompleted, res.Kind)
	incidents := domainResult(t, res.Summary, models.DomainIncident)
	assert.True(t, incidents.Failed)
	assert.Zero(t, incidents.Written)
	assert.Equal(t, 2, domainResult(t, res.Summary, models.DomainEmployee).Written)
	require.Len(t, res.Summary.Errors, 1)
	assert.Contains(t, res.Summary.Errors[0], "statement timeout")
	assert.Len(t, h.store.versions, 2, "the failed file is not versioned")
}

func TestPipeline_AllDomainsFailed(t *testing.T) {
	h := newHarness(map[string][]byte{incidentFile: sampleFiles()[incidentFile]})
	h.store.failIncidentClear = errors.New("statement timeout")

	res := h.run(t, Request{})

	require.Equal(t, ResultFailed, res.Kind)
	assert.Equal(t, StepWrite, res.Step)
	assert.Equal(t, models.StatusFailed, h.store.statusOf(res.LogID))
	assert.Equal(t, []models.EventKind{models.EventFailed}, h.notifier.kinds())
}

func TestPipeline_NoFiles(t *testing.T) {
	h := newHarness(map[string][]byte{"notas.txt": []byte("x")})

	res := h.run(t, Request{InvalidateCache: true})

	require.Equal(t, ResultCompleted, res.Kind)
	assert.Empty(t, res.Summary.Domains)
	assert.Equal(t, 1, h.source.invalidated)
}

func TestPipeline_OverlappingFilesShareOneReplaceWindow(t *testing.T) {
	h := newHarness(map[string][]byte{
		"Incidencias.csv":         []byte("EMP,Fecha,INCI\n1001,02/02/2026,FI\n1001,04/02/2026,FI\n"),
		"Incidencias semana2.csv": []byte("EMP,Fecha,INCI\n1002,03/02/2026,VAC\n1002,05/02/2026,VAC\n"),
	})
	d := func(day int) time.Time { return time.Date(2026, 2, day, 0, 0, 0, 0, time.UTC) }
	h.store.incidents[models.IncidentKey{EmployeeNumber: 9, Date: d(3), Code: "OLD"}] = models.IncidentRecord{}

	res := h.run(t, Request{})

	require.Equal(t, ResultCompleted, res.Kind, res.Error)
	incidents := domainResult(t, res.Summary, models.DomainIncident)
	assert.Len(t, incidents.Files, 2)
	assert.Equal(t, 4, incidents.Written)
	assert.Len(t, h.store.incidents, 4, "both files kept, stale row in the window cleared")
	assert.Contains(t, h.store.incidents, models.IncidentKey{EmployeeNumber: 1001, Date: d(4), Code: "FI"})
	assert.NotContains(t, h.store.incidents, models.IncidentKey{EmployeeNumber: 9, Date: d(3), Code: "OLD"})

	again := h.run(t, Request{})
	require.Equal(t, ResultCompleted, again.Kind, again.Error)
	assert.Len(t, h.store.incidents, 4)
}

func TestPipeline_ReclaimedRunStopsWriting(t *testing.T) {
	h := newHarness(sampleFiles())
	reclaimed := false
	h.store.beforeTouch = func(int64) {
		if reclaimed || len(h.store.employees) == 0 {
			return
		}
		reclaimed = true
		_, err := h.store.ReclaimStaleImports(context.Background(), -time.Hour)
		require.NoError(t, err)
	}

	res := h.run(t, Request{})

	require.Equal(t, ResultFailed, res.Kind)
	assert.Equal(t, StepWrite, res.Step)
	assert.Contains(t, res.Error, models.ErrRunReclaimed.Error())
	assert.Len(t, h.store.employees, 2)
	assert.Empty(t, h.store.terminations, "domains after the reclaim are not written")
	assert.Empty(t, h.store.incidents)

	log, err := h.store.GetImportLog(context.Background(), res.LogID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, log.Status)
	assert.Equal(t, "stale run reclaimed", log.ErrorMessage)
	assert.Equal(t, []models.EventKind{models.EventFailed}, h.notifier.kinds())

	next := h.run(t, Request{})
	require.Equal(t, ResultCompleted, next.Kind, next.Error)
	assert.Len(t, h.store.terminations, 1)
}

func TestPipeline_HeartbeatsEveryFile(t *testing.T) {
	h := newHarness(sampleFiles())

	res := h.run(t, Request{})

	require.Equal(t, ResultCompleted, res.Kind, res.Error)
	// one per compared file, then one per domain and one per written file
	assert.Equal(t, 9, h.store.touches)
}
