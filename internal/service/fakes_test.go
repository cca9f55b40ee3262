package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type snapshotKey struct {
	filename string
	domain   models.DomainType
}

// memStore is an in-memory Store with the same key semantics as Postgres.
type memStore struct {
	mu sync.Mutex

	logs      []models.ImportLog
	snapshots map[snapshotKey]models.FileStructureSnapshot
	versions  []models.FileVersion
	schedule  *models.ScheduleConfig

	employees    map[int]models.EmployeeRecord
	terminations map[models.TerminationKey]models.TerminationRecord
	incidents    map[models.IncidentKey]models.IncidentRecord
	payroll      map[models.PayrollKey]models.PayrollPreweekRecord

	scheduleWrites int
	snapshotWrites int
	recordWrites   int

	touched     map[int64]time.Time
	touches     int
	beforeTouch func(id int64)

	failEmployeeBatch func(batch []models.EmployeeRecord) error
	failIncidentClear error
	failTerminations  error
}

func newMemStore() *memStore {
	return &memStore{
		touched:      map[int64]time.Time{},
		snapshots:    map[snapshotKey]models.FileStructureSnapshot{},
		employees:    map[int]models.EmployeeRecord{},
		terminations: map[models.TerminationKey]models.TerminationRecord{},
		incidents:    map[models.IncidentKey]models.IncidentRecord{},
		payroll:      map[models.PayrollKey]models.PayrollPreweekRecord{},
	}
}

func (s *memStore) FindActiveImport(context.Context) (*models.ImportLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].Status.IsActive() {
			log := s.logs[i]
			return &log, nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateImportLog(_ context.Context, trigger models.TriggerType) (models.ImportLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.logs {
		if l.Status.IsActive() {
			return models.ImportLog{}, models.ErrActiveImportExists
		}
	}
	log := models.ImportLog{
		ID:          int64(len(s.logs) + 1),
		TriggerType: trigger,
		Status:      models.StatusPending,
		CreatedAt:   time.Now(),
	}
	s.logs = append(s.logs, log)
	return log, nil
}

func (s *memStore) TransitionImportLog(_ context.Context, id int64, from, to models.ImportStatus, u models.ImportLogUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !from.CanTransition(to) {
		return errors.New("invalid transition")
	}
	for i := range s.logs {
		l := &s.logs[i]
		if l.ID != id {
			continue
		}
		if l.Status != from {
			return models.ErrStatusConflict
		}
		l.Status = to
		if u.StructuralDiff != nil {
			l.StructuralDiff = u.StructuralDiff
		}
		if u.Results != nil {
			l.Results = u.Results
		}
		if u.ErrorMessage != "" {
			l.ErrorMessage = u.ErrorMessage
		}
		if u.ApprovedBy != "" {
			l.ApprovedBy = u.ApprovedBy
		}
		if u.Resolve {
			now := time.Now()
			l.ResolvedAt = &now
		}
		return nil
	}
	return models.ErrStatusConflict
}

func (s *memStore) GetImportLog(_ context.Context, id int64) (models.ImportLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.logs {
		if l.ID == id {
			return l, nil
		}
	}
	return models.ImportLog{}, models.ErrNotFound
}

func (s *memStore) ListImportLogs(_ context.Context, statuses []models.ImportStatus, limit int) ([]models.ImportLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ImportLog
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if slices.Contains(statuses, s.logs[i].Status) {
			out = append(out, s.logs[i])
		}
	}
	return out, nil
}

func (s *memStore) TouchImportLog(_ context.Context, id int64, status models.ImportStatus) error {
	if s.beforeTouch != nil {
		s.beforeTouch(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touches++
	for _, l := range s.logs {
		if l.ID == id && l.Status == status {
			s.touched[id] = time.Now()
			return nil
		}
	}
	return models.ErrStatusConflict
}

// ReclaimStaleImports ages a log from its last heartbeat, or from creation
// when it was never touched.
func (s *memStore) ReclaimStaleImports(_ context.Context, maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.logs {
		l := &s.logs[i]
		seen := l.CreatedAt
		if t, ok := s.touched[l.ID]; ok && t.After(seen) {
			seen = t
		}
		if (l.Status == models.StatusPending || l.Status == models.StatusAnalyzing) && time.Since(seen) > maxAge {
			l.Status = models.StatusFailed
			l.ErrorMessage = "stale run reclaimed"
			n++
		}
	}
	return n, nil
}

func (s *memStore) GetSnapshot(_ context.Context, filename string, domain models.DomainType) (*models.FileStructureSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[snapshotKey{filename, domain}]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *memStore) SaveSnapshot(_ context.Context, snap models.FileStructureSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotWrites++
	snap.CapturedAt = time.Now()
	s.snapshots[snapshotKey{snap.Filename, snap.DomainType}] = snap
	return nil
}

func (s *memStore) AppendFileVersion(_ context.Context, v models.FileVersion) (models.FileVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = int64(len(s.versions) + 1)
	v.CreatedAt = time.Now()
	s.versions = append(s.versions, v)
	return v, nil
}

func (s *memStore) LatestFileVersion(ctx context.Context, filename string) (*models.FileVersion, error) {
	vs, _ := s.ListFileVersions(ctx, filename, 1)
	if len(vs) == 0 {
		return nil, nil
	}
	return &vs[0], nil
}

func (s *memStore) ListFileVersions(_ context.Context, filename string, limit int) ([]models.FileVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.FileVersion
	for i := len(s.versions) - 1; i >= 0 && len(out) < limit; i-- {
		if s.versions[i].Filename == filename {
			out = append(out, s.versions[i])
		}
	}
	return out, nil
}

func (s *memStore) GetSchedule(context.Context) (models.ScheduleConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return models.ScheduleConfig{Frequency: models.FrequencyManual, DayOfWeek: time.Monday, RunTime: DefaultRunTime}, nil
	}
	return *s.schedule, nil
}

func (s *memStore) SaveSchedule(_ context.Context, cfg models.ScheduleConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleWrites++
	s.schedule = &cfg
	return nil
}

func (s *memStore) UpsertEmployees(_ context.Context, batch []models.EmployeeRecord) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failEmployeeBatch != nil {
		if err := s.failEmployeeBatch(batch); err != nil {
			return 0, 0, err
		}
	}
	s.recordWrites++
	var ins, upd int
	for _, e := range batch {
		if _, ok := s.employees[e.EmployeeNumber]; ok {
			upd++
		} else {
			ins++
		}
		s.employees[e.EmployeeNumber] = e
	}
	return ins, upd, nil
}

func (s *memStore) DeleteTerminations(_ context.Context, keys []models.TerminationKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := s.terminations[k]; ok {
			delete(s.terminations, k)
			n++
		}
	}
	return n, nil
}

func (s *memStore) InsertTerminations(_ context.Context, batch []models.TerminationRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTerminations != nil {
		return 0, s.failTerminations
	}
	s.recordWrites++
	n := 0
	for _, t := range batch {
		if _, ok := s.terminations[t.Key()]; !ok {
			s.terminations[t.Key()] = t
			n++
		}
	}
	return n, nil
}

func (s *memStore) DeleteIncidentsBetween(_ context.Context, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIncidentClear != nil {
		return 0, s.failIncidentClear
	}
	var n int64
	for k := range s.incidents {
		if !k.Date.Before(from) && !k.Date.After(to) {
			delete(s.incidents, k)
			n++
		}
	}
	return n, nil
}

func (s *memStore) InsertIncidents(_ context.Context, batch []models.IncidentRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordWrites++
	n := 0
	for _, in := range batch {
		if _, ok := s.incidents[in.Key()]; !ok {
			s.incidents[in.Key()] = in
			n++
		}
	}
	return n, nil
}

func (s *memStore) DeletePayrollWeeks(_ context.Context, weeks []time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.payroll {
		if slices.ContainsFunc(weeks, k.WeekStart.Equal) {
			delete(s.payroll, k)
			n++
		}
	}
	return n, nil
}

func (s *memStore) InsertPayrollPreweeks(_ context.Context, batch []models.PayrollPreweekRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordWrites++
	n := 0
	for _, p := range batch {
		if _, ok := s.payroll[p.Key()]; !ok {
			s.payroll[p.Key()] = p
			n++
		}
	}
	return n, nil
}

func (s *memStore) statusOf(id int64) models.ImportStatus {
	l, _ := s.GetImportLog(context.Background(), id)
	return l.Status
}

// memSource serves files from memory.
type memSource struct {
	files       map[string][]byte
	listErr     error
	fetches     int
	invalidated int
}

func (m *memSource) ListFiles(context.Context) ([]models.RemoteFile, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]models.RemoteFile, len(names))
	for i, n := range names {
		out[i] = models.RemoteFile{Name: n, Size: int64(len(m.files[n]))}
	}
	return out, nil
}

func (m *memSource) Fetch(_ context.Context, name string) ([]byte, error) {
	m.fetches++
	data, ok := m.files[name]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

func (m *memSource) Invalidate(context.Context) (int, error) {
	m.invalidated++
	return 2, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e models.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) kinds() []models.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.EventKind, len(n.events))
	for i, e := range n.events {
		out[i] = e.Kind
	}
	return out
}
