package service

import (
	"context"
	"testing"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_TickRunsWhenDue(t *testing.T) {
	h := newHarness(sampleFiles())
	due := h.now.Add(-time.Minute)
	h.store.schedule = &models.ScheduleConfig{Frequency: models.FrequencyDaily, RunTime: "09:59", NextRun: &due}
	s := NewScheduler(h.pipeline, h.pipeline.gate, h.store, time.Minute, time.Minute, time.Hour, discardLogger())

	s.Tick(context.Background())

	require.Len(t, h.store.logs, 1)
	assert.Equal(t, models.TriggerScheduled, h.store.logs[0].TriggerType)
	assert.Equal(t, models.StatusCompleted, h.store.logs[0].Status)

	s.Tick(context.Background())
	assert.Len(t, h.store.logs, 1, "next run moved to tomorrow")
}

func TestScheduler_TickIdleWhileAwaitingApproval(t *testing.T) {
	h := newHarness(sampleFiles())
	parkedRun(t, h.store)
	s := NewScheduler(h.pipeline, h.pipeline.gate, h.store, time.Minute, time.Minute, time.Hour, discardLogger())

	s.Tick(context.Background())

	assert.Empty(t, h.notifier.kinds(), "manual schedule never reaches the guard")
}

func TestScheduler_TickSkipsWhileDueScheduleIsParked(t *testing.T) {
	h := newHarness(sampleFiles())
	due := h.now.Add(-time.Minute)
	h.store.schedule = &models.ScheduleConfig{Frequency: models.FrequencyDaily, RunTime: "09:59", NextRun: &due}
	parked := parkedRun(t, h.store)
	s := NewScheduler(h.pipeline, h.pipeline.gate, h.store, time.Minute, time.Minute, time.Hour, discardLogger())

	for range 5 {
		s.Tick(context.Background())
	}

	assert.Empty(t, h.notifier.kinds(), "no blocked notification per tick")
	assert.Len(t, h.store.logs, 1)
	assert.Equal(t, models.StatusAwaitingApproval, h.store.statusOf(parked.ID))
	assert.Zero(t, h.source.fetches)
	require.NotNil(t, h.store.schedule.NextRun)
	assert.True(t, h.store.schedule.NextRun.Equal(due), "schedule stays due until the parked run resolves")
	assert.Zero(t, s.backoff.Attempts())
}

func TestScheduler_Reclaim(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	stuck, err := store.CreateImportLog(ctx, models.TriggerScheduled)
	require.NoError(t, err)
	store.logs[0].CreatedAt = time.Now().Add(-2 * time.Hour)

	s := NewScheduler(nil, nil, store, time.Minute, time.Minute, time.Hour, discardLogger())
	assert.Equal(t, int64(1), s.Reclaim(ctx))
	assert.Equal(t, models.StatusFailed, store.statusOf(stuck.ID))

	alive, err := store.CreateImportLog(ctx, models.TriggerScheduled)
	require.NoError(t, err)
	store.logs[1].CreatedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, store.TouchImportLog(ctx, alive.ID, models.StatusPending))
	assert.Zero(t, s.Reclaim(ctx), "a heartbeating run is not stale")
	require.NoError(t, store.TransitionImportLog(ctx, alive.ID, models.StatusPending, models.StatusFailed, models.ImportLogUpdate{}))

	parkedRun(t, store)
	store.logs[2].CreatedAt = time.Now().Add(-48 * time.Hour)
	assert.Zero(t, s.Reclaim(ctx), "awaiting approval is never reclaimed")
}
