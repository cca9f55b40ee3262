package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/Guizzs26/go-sync-hr/internal/source"
	"github.com/Guizzs26/go-sync-hr/internal/transform"
	"github.com/Guizzs26/go-sync-hr/pkg/metrics"
)

type ResultKind string

const (
	ResultBlocked          ResultKind = "blocked"
	ResultSkipped          ResultKind = "skipped"
	ResultRequiresApproval ResultKind = "requires_approval"
	ResultCompleted        ResultKind = "completed"
	ResultFailed           ResultKind = "failed"
)

// Pipeline steps, reported with run-level failures.
const (
	StepGuard     = "guard"
	StepSchedule  = "schedule"
	StepStart     = "start"
	StepDiscovery = "discovery"
	StepFetch     = "fetch"
	StepCompare   = "compare"
	StepApproval  = "approval"
	StepWrite     = "write"
	StepFinish    = "finish"
)

// Request is one trigger of the pipeline.
type Request struct {
	Trigger         models.TriggerType `json:"trigger"`
	InvalidateCache bool               `json:"invalidate_cache"`
}

// Result is the response of a run. Exactly one kind is always returned.
type Result struct {
	Kind  ResultKind `json:"kind"`
	LogID int64      `json:"import_log_id,omitempty"`

	// Existing is the run holding the mutex when Kind is blocked.
	Existing *models.ImportLog `json:"existing,omitempty"`
	NextRun  *time.Time        `json:"next_run,omitempty"`
	Reason   string            `json:"reason,omitempty"`

	Diffs    []models.FileDiff      `json:"diffs,omitempty"`
	Summary  *models.RunSummary     `json:"summary,omitempty"`
	Schedule *models.ScheduleConfig `json:"schedule,omitempty"`

	Error string `json:"error,omitempty"`
	Step  string `json:"step,omitempty"`
}

// StepError is a run-level failure tagged with the step it escaped from.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }
func (e *StepError) Unwrap() error { return e.Err }

func stepErr(step string, err error) error {
	return &StepError{Step: step, Err: err}
}

// Pipeline orchestrates guard, gate, discovery, comparison, writes, the
// version ledger and notifications for one trigger at a time per process.
// Cross-process exclusion comes from the import log mutex in the store.
type Pipeline struct {
	store    Store
	source   FileSource
	notifier Notifier
	gate     *ScheduleGate
	writer   *RecordWriter
	ledger   *Ledger
	logger   *slog.Logger
}

func NewPipeline(store Store, src FileSource, n Notifier, gate *ScheduleGate, batchSize int, l *slog.Logger) *Pipeline {
	return &Pipeline{
		store:    store,
		source:   src,
		notifier: n,
		gate:     gate,
		writer:   NewRecordWriter(store, batchSize, l),
		ledger:   NewLedger(store, store),
		logger:   l,
	}
}

// runState tracks where the import log is so failure cleanup can release it.
type runState struct {
	log    models.ImportLog
	status models.ImportStatus
}

func (p *Pipeline) Run(ctx context.Context, req Request) Result {
	if req.Trigger == "" {
		req.Trigger = models.TriggerManual
	}
	start := time.Now()
	metrics.RunInFlight.Inc()

	res := p.run(ctx, req)

	metrics.RunInFlight.Dec()
	metrics.RunsTotal.WithLabelValues(string(req.Trigger), string(res.Kind)).Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("Ingestion run finished",
		"trigger", req.Trigger,
		"result", res.Kind,
		"import_log_id", res.LogID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (p *Pipeline) run(ctx context.Context, req Request) Result {
	active, err := p.store.FindActiveImport(ctx)
	if err != nil {
		return p.fail(nil, stepErr(StepGuard, err))
	}
	if active != nil {
		return p.blocked(ctx, *active)
	}

	var decision GateDecision
	if req.Trigger == models.TriggerScheduled {
		decision, err = p.gate.Check(ctx)
		if err != nil {
			return p.fail(nil, stepErr(StepSchedule, err))
		}
		if !decision.Due {
			p.logger.Info("Scheduled run skipped", "reason", decision.Reason)
			return Result{Kind: ResultSkipped, NextRun: decision.Schedule.NextRun, Reason: decision.Reason}
		}
	}

	log, err := p.store.CreateImportLog(ctx, req.Trigger)
	if errors.Is(err, models.ErrActiveImportExists) {
		// Lost the race between the guard read and the insert.
		if active, ferr := p.store.FindActiveImport(ctx); ferr == nil && active != nil {
			return p.blocked(ctx, *active)
		}
		return Result{Kind: ResultBlocked, Reason: err.Error()}
	}
	if err != nil {
		return p.fail(nil, stepErr(StepStart, err))
	}

	state := &runState{log: log, status: models.StatusPending}
	res, err := p.execute(ctx, req, state, decision)
	if err != nil {
		return p.fail(state, err)
	}
	return res
}

func (p *Pipeline) blocked(ctx context.Context, existing models.ImportLog) Result {
	p.logger.Warn("Another import is in flight, run blocked",
		"existing_id", existing.ID,
		"existing_status", existing.Status,
		"started_at", existing.CreatedAt,
	)
	p.notifier.Notify(ctx, models.BlockedEvent(existing))
	return Result{Kind: ResultBlocked, LogID: existing.ID, Existing: &existing}
}

// heartbeat refreshes the log so the stale-run janitor leaves it alone, and
// aborts the run once the log was released under it.
func (p *Pipeline) heartbeat(ctx context.Context, st *runState) error {
	err := p.store.TouchImportLog(ctx, st.log.ID, st.status)
	if errors.Is(err, models.ErrStatusConflict) {
		return models.ErrRunReclaimed
	}
	return err
}

func (p *Pipeline) transition(ctx context.Context, st *runState, to models.ImportStatus, u models.ImportLogUpdate) error {
	if err := p.store.TransitionImportLog(ctx, st.log.ID, st.status, to, u); err != nil {
		return err
	}
	st.status = to
	return nil
}

func (p *Pipeline) execute(ctx context.Context, req Request, st *runState, decision GateDecision) (Result, error) {
	l := p.logger.With("import_log_id", st.log.ID, "trigger", req.Trigger)

	if err := p.transition(ctx, st, models.StatusAnalyzing, models.ImportLogUpdate{}); err != nil {
		return Result{}, stepErr(StepStart, err)
	}

	if req.InvalidateCache {
		if inv, ok := p.source.(CacheInvalidator); ok {
			n, err := inv.Invalidate(ctx)
			if err != nil {
				l.Warn("Source cache invalidation failed", "error", err)
			} else {
				l.Info("Source cache invalidated", "keys", n)
			}
		}
	}

	files, err := p.source.ListFiles(ctx)
	if err != nil {
		return Result{}, stepErr(StepDiscovery, err)
	}
	classified := Classify(files)
	l.Info("Files discovered", "listed", len(files), "classified", len(classified))

	comparisons, diffs, err := p.compare(ctx, st, classified, l)
	if err != nil {
		return Result{}, err
	}

	if len(diffs) > 0 {
		if err := p.transition(ctx, st, models.StatusAwaitingApproval, models.ImportLogUpdate{StructuralDiff: diffs}); err != nil {
			return Result{}, stepErr(StepApproval, err)
		}
		l.Warn("Structure changed, run awaiting approval", "files", len(diffs))
		p.notifier.Notify(ctx, models.StructureChangedEvent(st.log.ID, diffs))
		return Result{Kind: ResultRequiresApproval, LogID: st.log.ID, Diffs: diffs}, nil
	}

	for _, c := range comparisons {
		if !c.FirstImport {
			continue
		}
		if err := p.store.SaveSnapshot(ctx, c.Snapshot()); err != nil {
			return Result{}, stepErr(StepCompare, err)
		}
		l.Info("First import of file, snapshot created", "file", c.File.Name, "columns", len(c.Table.Columns))
	}

	summary, err := p.writeDomains(ctx, st, comparisons, l)
	if err != nil {
		return Result{}, stepErr(StepWrite, err)
	}

	if allDomainsFailed(summary) {
		msg := "every domain failed: " + summary.Errors[0]
		err := p.transition(ctx, st, models.StatusFailed, models.ImportLogUpdate{Results: &summary, ErrorMessage: msg, Resolve: true})
		if err != nil {
			return Result{}, stepErr(StepFinish, err)
		}
		p.notifier.Notify(ctx, models.FailedEvent(st.log.ID, msg, StepWrite))
		return Result{Kind: ResultFailed, LogID: st.log.ID, Summary: &summary, Error: msg, Step: StepWrite}, nil
	}

	if err := p.transition(ctx, st, models.StatusCompleted, models.ImportLogUpdate{Results: &summary, Resolve: true}); err != nil {
		return Result{}, stepErr(StepFinish, err)
	}

	res := Result{Kind: ResultCompleted, LogID: st.log.ID, Summary: &summary}
	if req.Trigger == models.TriggerScheduled {
		cfg, err := p.gate.Advance(ctx, decision.Schedule)
		if err != nil {
			l.Error("Run completed but schedule could not be advanced", "error", err)
		}
		res.Schedule = &cfg
		res.NextRun = cfg.NextRun
	} else if cfg, err := p.gate.Current(ctx); err == nil {
		res.Schedule = &cfg
		res.NextRun = cfg.NextRun
	}

	p.notifier.Notify(ctx, models.CompletedEvent(st.log.ID, summary))
	return res, nil
}

// compare fetches each classified file once and diffs it against its snapshot.
// The fetched table is carried forward to the writer and the ledger.
func (p *Pipeline) compare(ctx context.Context, st *runState, files []models.ClassifiedFile, l *slog.Logger) ([]Comparison, []models.FileDiff, error) {
	var (
		comparisons []Comparison
		diffs       []models.FileDiff
	)
	for _, f := range files {
		if err := p.heartbeat(ctx, st); err != nil {
			return nil, nil, stepErr(StepCompare, err)
		}
		data, err := p.source.Fetch(ctx, f.Name)
		if err != nil {
			return nil, nil, stepErr(StepFetch, fmt.Errorf("%s: %w", f.Name, err))
		}
		table, err := source.Decode(f.Name, data)
		if err != nil {
			return nil, nil, stepErr(StepFetch, fmt.Errorf("%s: %w", f.Name, err))
		}

		snap, err := p.store.GetSnapshot(ctx, f.Name, f.Domain)
		if err != nil {
			return nil, nil, stepErr(StepCompare, err)
		}

		c := CompareStructure(f, table, snap)
		if c.Diff != nil {
			metrics.StructureChanges.WithLabelValues(string(f.Domain)).Inc()
			l.Warn("Column drift detected",
				"file", f.Name,
				"domain", f.Domain,
				"added", c.Diff.Added,
				"removed", c.Diff.Removed,
			)
			diffs = append(diffs, *c.Diff)
		}
		comparisons = append(comparisons, c)
	}
	return comparisons, diffs, nil
}

// writeDomains writes every domain in DomainOrder. A domain failure is
// recorded and the next domain is still attempted; only cancellation or a
// lost import log aborts.
func (p *Pipeline) writeDomains(ctx context.Context, st *runState, comparisons []Comparison, l *slog.Logger) (models.RunSummary, error) {
	summary := models.RunSummary{Domains: []models.DomainResult{}}

	for _, domain := range models.DomainOrder {
		var files []Comparison
		for _, c := range comparisons {
			if c.File.Domain == domain {
				files = append(files, c)
			}
		}
		if len(files) == 0 {
			continue
		}
		if err := p.heartbeat(ctx, st); err != nil {
			return summary, err
		}

		dl := l.With("domain", domain)
		dr := p.writeDomain(ctx, st, domain, files, &summary, dl)
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if dr.abort != nil {
			return summary, dr.abort
		}

		res := dr.DomainResult
		res.Failed = res.Written == 0 && len(res.Errors) > 0
		if res.Skipped > 0 {
			metrics.RowsSkipped.WithLabelValues(string(domain)).Add(float64(res.Skipped))
			dl.Warn("Rows dropped during transformation", "skipped", res.Skipped)
		}
		for _, e := range res.Errors {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", domain, e))
		}
		summary.Domains = append(summary.Domains, res)
	}
	return summary, nil
}

type domainWrite struct {
	models.DomainResult
	abort error
}

// writeDomain clears the replace window of the whole domain once, then
// inserts file by file so each file is versioned on its own outcome.
func (p *Pipeline) writeDomain(ctx context.Context, st *runState, domain models.DomainType, files []Comparison, summary *models.RunSummary, l *slog.Logger) domainWrite {
	dw := domainWrite{DomainResult: models.DomainResult{Domain: domain, Files: []string{}}}

	plan, err := p.planDomain(domain, files)
	for _, f := range plan.files {
		dw.Files = append(dw.Files, f.c.File.Name)
		dw.Skipped += f.skipped
	}
	if err == nil && plan.clear != nil {
		err = plan.clear(ctx)
	}
	if err != nil {
		l.Error("Domain write failed", "error", err)
		dw.Errors = append(dw.Errors, err.Error())
		return dw
	}

	for _, f := range plan.files {
		fl := l.With("file", f.c.File.Name)
		if err := p.heartbeat(ctx, st); err != nil {
			dw.abort = err
			return dw
		}

		out, err := f.write(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return dw
			}
			fl.Error("Domain write failed", "error", err)
			dw.Errors = append(dw.Errors, fmt.Sprintf("%s: %v", f.c.File.Name, err))
			continue
		}
		dw.Written += out.Written
		dw.Inserted += out.Inserted
		dw.Updated += out.Updated
		for _, e := range out.Errors {
			dw.Errors = append(dw.Errors, fmt.Sprintf("%s: %s", f.c.File.Name, e))
		}
		fl.Info("File written", "written", out.Written, "skipped", f.skipped, "batch_errors", len(out.Errors))

		if out.Written == 0 {
			continue
		}
		fr, err := p.ledger.Record(ctx, f.c, st.log.ID)
		if err != nil {
			fl.Error("Version ledger update failed", "error", err)
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: ledger: %v", f.c.File.Name, err))
			continue
		}
		summary.Files = append(summary.Files, fr)
	}
	return dw
}

// filePlan is one transformed file ready to insert.
type filePlan struct {
	c       Comparison
	skipped int
	write   func(context.Context) (WriteOutcome, error)
}

type domainPlan struct {
	// clear deletes the replace window spanned by every file of the domain.
	// Nil for upsert domains.
	clear func(context.Context) error
	files []filePlan
}

func planFiles[T any](files []Comparison, fn func([]models.RawRow) transform.Result[T], insert func(context.Context, []T) (WriteOutcome, error)) ([]filePlan, []T) {
	plans := make([]filePlan, len(files))
	var all []T
	for i, c := range files {
		res := fn(c.Table.Rows)
		records := res.Records
		all = append(all, records...)
		plans[i] = filePlan{
			c:       c,
			skipped: res.Skipped(),
			write: func(ctx context.Context) (WriteOutcome, error) {
				return insert(ctx, records)
			},
		}
	}
	return plans, all
}

func (p *Pipeline) planDomain(domain models.DomainType, files []Comparison) (domainPlan, error) {
	w := p.writer
	switch domain {
	case models.DomainEmployee:
		plans, _ := planFiles(files, transform.Employees, w.WriteEmployees)
		return domainPlan{files: plans}, nil
	case models.DomainTermination:
		plans, all := planFiles(files, transform.Terminations, w.InsertTerminations)
		return domainPlan{files: plans, clear: func(ctx context.Context) error { return w.ClearTerminations(ctx, all) }}, nil
	case models.DomainIncident:
		plans, all := planFiles(files, transform.Incidents, w.InsertIncidents)
		return domainPlan{files: plans, clear: func(ctx context.Context) error { return w.ClearIncidents(ctx, all) }}, nil
	case models.DomainPayrollPreweek:
		plans, all := planFiles(files, transform.PayrollPreweeks, w.InsertPayrollPreweeks)
		return domainPlan{files: plans, clear: func(ctx context.Context) error { return w.ClearPayrollPreweeks(ctx, all) }}, nil
	}

	plans := make([]filePlan, len(files))
	for i, c := range files {
		plans[i] = filePlan{c: c}
	}
	return domainPlan{files: plans}, fmt.Errorf("no writer for domain %q", domain)
}

func allDomainsFailed(s models.RunSummary) bool {
	if len(s.Domains) == 0 {
		return false
	}
	for _, d := range s.Domains {
		if !d.Failed {
			return false
		}
	}
	return true
}

// fail releases the mutex held by st, if any, and reports the failure. It
// uses a fresh context so cleanup still runs after cancellation.
func (p *Pipeline) fail(st *runState, err error) Result {
	step := StepFinish
	var se *StepError
	if errors.As(err, &se) {
		step = se.Step
	}

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res := Result{Kind: ResultFailed, Error: err.Error(), Step: step}
	if st != nil {
		res.LogID = st.log.ID
		if st.status.CanTransition(models.StatusFailed) {
			terr := p.transition(cleanupCtx, st, models.StatusFailed, models.ImportLogUpdate{ErrorMessage: err.Error(), Resolve: true})
			switch {
			case errors.Is(terr, models.ErrStatusConflict):
				p.logger.Warn("Import log already released, leaving it as found", "import_log_id", st.log.ID)
			case terr != nil:
				p.logger.Error("CRITICAL: failed to release import log after run failure",
					"import_log_id", st.log.ID,
					"error", terr,
				)
			}
		}
	}

	p.logger.Error("Ingestion run failed", "import_log_id", res.LogID, "step", step, "error", err)
	p.notifier.Notify(cleanupCtx, models.FailedEvent(res.LogID, err.Error(), step))
	return res
}
