package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/Guizzs26/go-sync-hr/pkg/metrics"
)

// WriteOutcome is what one domain write produced.
type WriteOutcome struct {
	Written  int
	Inserted int
	Updated  int
	// Errors holds one entry per failed batch: "batch i/n: cause".
	Errors []string
}

type batchFunc[T any] func(ctx context.Context, batch []T) (WriteOutcome, error)

// writeBatches runs fn over fixed-size chunks. A failing batch is recorded
// and the next one is attempted; only cancellation stops the loop.
func writeBatches[T any](ctx context.Context, domain models.DomainType, records []T, size int, fn batchFunc[T], l *slog.Logger) (WriteOutcome, error) {
	var out WriteOutcome
	if size < 1 {
		size = 1
	}
	total := (len(records) + size - 1) / size

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		batch := records[i*size : min((i+1)*size, len(records))]
		metrics.BatchSize.Observe(float64(len(batch)))

		res, err := fn(ctx, batch)
		if err != nil {
			metrics.BatchFailures.WithLabelValues(string(domain)).Inc()
			l.Warn("Batch write failed, continuing with next batch",
				"batch", i+1,
				"batches", total,
				"size", len(batch),
				"error", err,
			)
			out.Errors = append(out.Errors, fmt.Sprintf("batch %d/%d: %v", i+1, total, err))
			continue
		}
		out.Written += res.Written
		out.Inserted += res.Inserted
		out.Updated += res.Updated
	}

	metrics.RecordsWritten.WithLabelValues(string(domain)).Add(float64(out.Written))
	return out, nil
}

// RecordWriter applies the write strategy of each domain.
type RecordWriter struct {
	store     RecordStore
	batchSize int
	logger    *slog.Logger
}

func NewRecordWriter(store RecordStore, batchSize int, l *slog.Logger) *RecordWriter {
	return &RecordWriter{store: store, batchSize: batchSize, logger: l}
}

// WriteEmployees upserts the roster by employee number.
func (w *RecordWriter) WriteEmployees(ctx context.Context, records []models.EmployeeRecord) (WriteOutcome, error) {
	l := w.logger.With("domain", models.DomainEmployee)
	return writeBatches(ctx, models.DomainEmployee, records, w.batchSize,
		func(ctx context.Context, batch []models.EmployeeRecord) (WriteOutcome, error) {
			ins, upd, err := w.store.UpsertEmployees(ctx, batch)
			return WriteOutcome{Written: ins + upd, Inserted: ins, Updated: upd}, err
		}, l)
}

// WriteTerminations deletes the exact incoming keys, then inserts.
func (w *RecordWriter) WriteTerminations(ctx context.Context, records []models.TerminationRecord) (WriteOutcome, error) {
	if err := w.ClearTerminations(ctx, records); err != nil {
		return WriteOutcome{}, err
	}
	return w.InsertTerminations(ctx, records)
}

// ClearTerminations deletes the keys of records. A run clears once with the
// records of every termination file before inserting any of them.
func (w *RecordWriter) ClearTerminations(ctx context.Context, records []models.TerminationRecord) error {
	if len(records) == 0 {
		return nil
	}
	keys := make([]models.TerminationKey, len(records))
	for i, r := range records {
		keys[i] = r.Key()
	}
	deleted, err := w.store.DeleteTerminations(ctx, keys)
	if err != nil {
		return fmt.Errorf("clear window: %w", err)
	}
	w.logger.Debug("Termination window cleared", "domain", models.DomainTermination, "deleted", deleted)
	return nil
}

func (w *RecordWriter) InsertTerminations(ctx context.Context, records []models.TerminationRecord) (WriteOutcome, error) {
	l := w.logger.With("domain", models.DomainTermination)
	return writeBatches(ctx, models.DomainTermination, records, w.batchSize, insertOnly(w.store.InsertTerminations), l)
}

// WriteIncidents clears the date range spanned by the incoming rows, then inserts.
func (w *RecordWriter) WriteIncidents(ctx context.Context, records []models.IncidentRecord) (WriteOutcome, error) {
	if err := w.ClearIncidents(ctx, records); err != nil {
		return WriteOutcome{}, err
	}
	return w.InsertIncidents(ctx, records)
}

// ClearIncidents deletes every stored incident between the earliest and the
// latest date of records.
func (w *RecordWriter) ClearIncidents(ctx context.Context, records []models.IncidentRecord) error {
	if len(records) == 0 {
		return nil
	}
	from, to := records[0].Date, records[0].Date
	for _, r := range records[1:] {
		if r.Date.Before(from) {
			from = r.Date
		}
		if r.Date.After(to) {
			to = r.Date
		}
	}
	deleted, err := w.store.DeleteIncidentsBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("clear window: %w", err)
	}
	w.logger.Debug("Incident window cleared",
		"domain", models.DomainIncident,
		"from", from.Format(time.DateOnly),
		"to", to.Format(time.DateOnly),
		"deleted", deleted,
	)
	return nil
}

func (w *RecordWriter) InsertIncidents(ctx context.Context, records []models.IncidentRecord) (WriteOutcome, error) {
	l := w.logger.With("domain", models.DomainIncident)
	return writeBatches(ctx, models.DomainIncident, records, w.batchSize, insertOnly(w.store.InsertIncidents), l)
}

// WritePayrollPreweeks clears every week present in the incoming rows, then inserts.
func (w *RecordWriter) WritePayrollPreweeks(ctx context.Context, records []models.PayrollPreweekRecord) (WriteOutcome, error) {
	if err := w.ClearPayrollPreweeks(ctx, records); err != nil {
		return WriteOutcome{}, err
	}
	return w.InsertPayrollPreweeks(ctx, records)
}

func (w *RecordWriter) ClearPayrollPreweeks(ctx context.Context, records []models.PayrollPreweekRecord) error {
	if len(records) == 0 {
		return nil
	}
	var weeks []time.Time
	for _, r := range records {
		if !slices.ContainsFunc(weeks, r.WeekStart.Equal) {
			weeks = append(weeks, r.WeekStart)
		}
	}
	deleted, err := w.store.DeletePayrollWeeks(ctx, weeks)
	if err != nil {
		return fmt.Errorf("clear window: %w", err)
	}
	w.logger.Debug("Payroll weeks cleared", "domain", models.DomainPayrollPreweek, "weeks", len(weeks), "deleted", deleted)
	return nil
}

func (w *RecordWriter) InsertPayrollPreweeks(ctx context.Context, records []models.PayrollPreweekRecord) (WriteOutcome, error) {
	l := w.logger.With("domain", models.DomainPayrollPreweek)
	return writeBatches(ctx, models.DomainPayrollPreweek, records, w.batchSize, insertOnly(w.store.InsertPayrollPreweeks), l)
}

func insertOnly[T any](insert func(context.Context, []T) (int, error)) batchFunc[T] {
	return func(ctx context.Context, batch []T) (WriteOutcome, error) {
		n, err := insert(ctx, batch)
		return WriteOutcome{Written: n, Inserted: n}, err
	}
}
