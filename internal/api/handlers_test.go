package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/Guizzs26/go-sync-hr/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	result service.Result
	got    []service.Request
}

func (m *mockRunner) Run(_ context.Context, req service.Request) service.Result {
	m.got = append(m.got, req)
	return m.result
}

type mockApprovals struct {
	pending []models.ImportLog
	err     error
	calls   []string
}

func (m *mockApprovals) Pending(context.Context) ([]models.ImportLog, error) {
	return m.pending, m.err
}

func (m *mockApprovals) Approve(_ context.Context, id int64, by string) (models.ImportLog, error) {
	m.calls = append(m.calls, "approve:"+by)
	return models.ImportLog{ID: id, Status: models.StatusCompleted, ApprovedBy: by}, m.err
}

func (m *mockApprovals) Reject(_ context.Context, id int64, by, reason string) (models.ImportLog, error) {
	m.calls = append(m.calls, "reject:"+by+":"+reason)
	return models.ImportLog{ID: id, Status: models.StatusFailed}, m.err
}

type mockSchedules struct {
	cfg     models.ScheduleConfig
	updated *models.ScheduleConfig
}

func (m *mockSchedules) Current(context.Context) (models.ScheduleConfig, error) {
	return m.cfg, nil
}

func (m *mockSchedules) Update(_ context.Context, f models.Frequency, d time.Weekday, rt string) (models.ScheduleConfig, error) {
	cfg := models.ScheduleConfig{Frequency: f, DayOfWeek: d, RunTime: rt}
	m.updated = &cfg
	return cfg, nil
}

type mockHistory struct {
	versions []models.FileVersion
	filename string
	limit    int
}

func (m *mockHistory) History(_ context.Context, filename string, limit int) ([]models.FileVersion, error) {
	m.filename, m.limit = filename, limit
	return m.versions, nil
}

type testAPI struct {
	runner    *mockRunner
	approvals *mockApprovals
	schedules *mockSchedules
	history   *mockHistory
	handler   http.Handler
}

func setupTestAPI(t *testing.T, secret string) *testAPI {
	t.Helper()
	a := &testAPI{
		runner:    &mockRunner{result: service.Result{Kind: service.ResultCompleted, LogID: 1}},
		approvals: &mockApprovals{},
		schedules: &mockSchedules{cfg: models.ScheduleConfig{Frequency: models.FrequencyWeekly, DayOfWeek: time.Monday, RunTime: "02:00"}},
		history:   &mockHistory{},
	}
	h := NewHandlers(a.runner, a.approvals, a.schedules, a.history, secret, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.handler = h.Router()
	return a
}

func (a *testAPI) do(method, target string, body any, header ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func TestHandleIngest_ManualByDefault(t *testing.T) {
	a := setupTestAPI(t, "s3cret")

	rr := a.do(http.MethodPost, "/api/ingest", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, a.runner.got, 1)
	assert.Equal(t, models.TriggerManual, a.runner.got[0].Trigger)

	var res service.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, service.ResultCompleted, res.Kind)
}

func TestHandleIngest_ScheduledRequiresSecret(t *testing.T) {
	a := setupTestAPI(t, "s3cret")

	rr := a.do(http.MethodPost, "/api/ingest?trigger=scheduled", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, a.runner.got)

	rr = a.do(http.MethodPost, "/api/ingest?trigger=scheduled", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = a.do(http.MethodPost, "/api/ingest", ingestRequest{Trigger: "scheduled", InvalidateCache: true}, "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, a.runner.got, 1)
	assert.Equal(t, models.TriggerScheduled, a.runner.got[0].Trigger)
	assert.True(t, a.runner.got[0].InvalidateCache)
}

func TestHandleIngest_NoSecretConfigured(t *testing.T) {
	a := setupTestAPI(t, "")

	rr := a.do(http.MethodPost, "/api/ingest?trigger=scheduled", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandleIngest_StatusCodes(t *testing.T) {
	tests := []struct {
		kind service.ResultKind
		want int
	}{
		{service.ResultCompleted, http.StatusOK},
		{service.ResultSkipped, http.StatusOK},
		{service.ResultRequiresApproval, http.StatusOK},
		{service.ResultBlocked, http.StatusConflict},
		{service.ResultFailed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			a := setupTestAPI(t, "")
			a.runner.result = service.Result{Kind: tt.kind}
			assert.Equal(t, tt.want, a.do(http.MethodPost, "/api/ingest", nil).Code)
		})
	}
}

func TestHandleIngest_UnknownTrigger(t *testing.T) {
	a := setupTestAPI(t, "")
	rr := a.do(http.MethodPost, "/api/ingest?trigger=hourly", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, a.runner.got)
}

func TestHandlePending(t *testing.T) {
	a := setupTestAPI(t, "")

	rr := a.do(http.MethodGet, "/api/imports/pending", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"imports":[],"count":0}`, rr.Body.String())

	a.approvals.err = errors.New("db down")
	rr = a.do(http.MethodGet, "/api/imports/pending", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestHandleApproveReject(t *testing.T) {
	a := setupTestAPI(t, "")

	rr := a.do(http.MethodPost, "/api/imports/7/approve", resolveRequest{Actor: "ana"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = a.do(http.MethodPost, "/api/imports/8/reject", resolveRequest{Actor: "ana", Reason: "bad layout"})
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, []string{"approve:ana", "reject:ana:bad layout"}, a.approvals.calls)
}

func TestHandleApprove_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   any
		err    error
		want   int
	}{
		{"bad id", "/api/imports/abc/approve", resolveRequest{Actor: "ana"}, nil, http.StatusBadRequest},
		{"missing actor", "/api/imports/1/approve", resolveRequest{}, nil, http.StatusBadRequest},
		{"not found", "/api/imports/1/approve", resolveRequest{Actor: "ana"}, models.ErrNotFound, http.StatusNotFound},
		{"not awaiting", "/api/imports/1/approve", resolveRequest{Actor: "ana"}, service.ErrNotAwaitingApproval, http.StatusConflict},
		{"store error", "/api/imports/1/approve", resolveRequest{Actor: "ana"}, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := setupTestAPI(t, "")
			a.approvals.err = tt.err
			assert.Equal(t, tt.want, a.do(http.MethodPost, tt.target, tt.body).Code)
		})
	}
}

func TestHandleSchedule(t *testing.T) {
	a := setupTestAPI(t, "")

	rr := a.do(http.MethodGet, "/api/schedule", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var cfg models.ScheduleConfig
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cfg))
	assert.Equal(t, models.FrequencyWeekly, cfg.Frequency)

	rr = a.do(http.MethodPut, "/api/schedule", scheduleRequest{Frequency: "daily", DayOfWeek: "viernes", RunTime: "06:30"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, a.schedules.updated)
	assert.Equal(t, models.FrequencyDaily, a.schedules.updated.Frequency)
	assert.Equal(t, time.Friday, a.schedules.updated.DayOfWeek)
	assert.Equal(t, "06:30", a.schedules.updated.RunTime)
}

func TestHandleVersions(t *testing.T) {
	a := setupTestAPI(t, "")
	a.history.versions = []models.FileVersion{{ID: 2, Filename: "Incidencias.csv", Checksum: "abc"}}

	rr := a.do(http.MethodGet, "/api/files/Incidencias.csv/versions?limit=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Incidencias.csv", a.history.filename)
	assert.Equal(t, 5, a.history.limit)
	assert.Contains(t, rr.Body.String(), `"checksum":"abc"`)
}
