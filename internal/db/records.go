package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/mapper"
	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/jackc/pgx/v5"
)

var (
	employeesTable = mapper.TableSpec{
		Name: "employees",
		Columns: []string{
			"employee_number", "last_names", "first_names", "full_name", "gender", "imss",
			"birth_date", "state", "hire_date", "seniority_date", "company", "employer_registration",
			"position_code", "position", "department_code", "department", "cost_center_code",
			"cost_center", "cost_subaccount", "classification", "area_code", "area", "location",
			"payroll_type", "shift", "statutory_benefits", "benefits_package", "termination_date", "active",
		},
		Key: []string{"employee_number"},
	}

	terminationsTable = mapper.TableSpec{
		Name: "terminations",
		Columns: []string{
			"employee_number", "termination_date", "reason", "reason_category",
			"termination_type", "description", "observations",
		},
		Key: []string{"employee_number", "termination_date", "reason"},
	}

	incidentsTable = mapper.TableSpec{
		Name: "incidents",
		Columns: []string{
			"employee_number", "incident_date", "code", "name", "shift", "schedule",
			"description", "check_in", "check_out", "ordinary_hours", "status",
		},
		Key: []string{"employee_number", "incident_date", "code"},
	}

	payrollTable = mapper.TableSpec{
		Name: "payroll_preweek",
		Columns: []string{
			"employee_number", "week_start", "week_end", "name", "days",
			"total_ordinary_hours", "total_overtime_hours",
		},
		Key: []string{"employee_number", "week_start"},
	}
)

func (r *PostgresRepository) prepareRecordQueries() error {
	r.queries = make(map[string]string, 4)

	upsert, err := r.builder.BuildUpsert(employeesTable)
	if err != nil {
		return fmt.Errorf("failed to build employee upsert: %w", err)
	}
	r.queries[employeesTable.Name] = upsert

	for _, spec := range []mapper.TableSpec{terminationsTable, incidentsTable, payrollTable} {
		insert, err := r.builder.BuildInsert(spec)
		if err != nil {
			return fmt.Errorf("failed to build %s insert: %w", spec.Name, err)
		}
		r.queries[spec.Name] = insert
	}
	return nil
}

// UpsertEmployees writes one batch atomically and reports how many rows were
// new versus updated.
func (r *PostgresRepository) UpsertEmployees(ctx context.Context, batch []models.EmployeeRecord) (inserted, updated int, err error) {
	query := r.queries[employeesTable.Name]

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, e := range batch {
		b.Queue(query,
			e.EmployeeNumber, e.LastNames, e.FirstNames, e.FullName, e.Gender, e.IMSS,
			e.BirthDate, e.State, e.HireDate, e.SeniorityDate, e.Company, e.EmployerRegistration,
			e.PositionCode, e.Position, e.DepartmentCode, e.Department, e.CostCenterCode,
			e.CostCenter, e.CostSubaccount, e.Classification, e.AreaCode, e.Area, e.Location,
			e.PayrollType, e.Shift, e.StatutoryBenefits, e.BenefitsPackage, e.TerminationDate, e.Active,
		)
	}

	br := tx.SendBatch(ctx, b)
	for _, e := range batch {
		var isNew bool
		if err := br.QueryRow().Scan(&isNew); err != nil {
			br.Close()
			return 0, 0, fmt.Errorf("employee %d: %w", e.EmployeeNumber, err)
		}
		if isNew {
			inserted++
		} else {
			updated++
		}
	}
	if err := br.Close(); err != nil {
		return 0, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to commit employee batch: %w", err)
	}
	return inserted, updated, nil
}

// DeleteTerminations removes the rows matching the exact incoming keys.
func (r *PostgresRepository) DeleteTerminations(ctx context.Context, keys []models.TerminationKey) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	numbers := make([]int, len(keys))
	dates := make([]time.Time, len(keys))
	reasons := make([]string, len(keys))
	for i, k := range keys {
		numbers[i], dates[i], reasons[i] = k.EmployeeNumber, k.TerminationDate, k.Reason
	}

	query := `
		DELETE FROM terminations t
		USING unnest($1::int[], $2::date[], $3::text[]) AS k(employee_number, termination_date, reason)
		WHERE t.employee_number = k.employee_number
		  AND t.termination_date = k.termination_date
		  AND t.reason = k.reason
	`
	tag, err := r.pool.Exec(ctx, query, numbers, dates, reasons)
	if err != nil {
		return 0, fmt.Errorf("failed to clear termination keys: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteIncidentsBetween clears the inclusive date window an incoming file covers.
func (r *PostgresRepository) DeleteIncidentsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	query := `DELETE FROM incidents WHERE incident_date BETWEEN $1 AND $2`
	tag, err := r.pool.Exec(ctx, query, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to clear incidents %s..%s: %w", from.Format(time.DateOnly), to.Format(time.DateOnly), err)
	}
	return tag.RowsAffected(), nil
}

// DeletePayrollWeeks clears every row of the given week starts.
func (r *PostgresRepository) DeletePayrollWeeks(ctx context.Context, weeks []time.Time) (int64, error) {
	if len(weeks) == 0 {
		return 0, nil
	}
	query := `DELETE FROM payroll_preweek WHERE week_start = ANY($1::date[])`
	tag, err := r.pool.Exec(ctx, query, weeks)
	if err != nil {
		return 0, fmt.Errorf("failed to clear payroll weeks: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) InsertTerminations(ctx context.Context, batch []models.TerminationRecord) (int, error) {
	args := make([][]any, len(batch))
	for i, t := range batch {
		args[i] = []any{
			t.EmployeeNumber, t.TerminationDate, t.Reason, t.ReasonCategory,
			t.Type, t.Description, t.Observations,
		}
	}
	return r.insertBatch(ctx, terminationsTable.Name, args)
}

func (r *PostgresRepository) InsertIncidents(ctx context.Context, batch []models.IncidentRecord) (int, error) {
	args := make([][]any, len(batch))
	for i, in := range batch {
		args[i] = []any{
			in.EmployeeNumber, in.Date, in.Code, in.Name, in.Shift, in.Schedule,
			in.Description, in.CheckIn, in.CheckOut, in.OrdinaryHours, in.Status,
		}
	}
	return r.insertBatch(ctx, incidentsTable.Name, args)
}

func (r *PostgresRepository) InsertPayrollPreweeks(ctx context.Context, batch []models.PayrollPreweekRecord) (int, error) {
	args := make([][]any, len(batch))
	for i, p := range batch {
		days, err := json.Marshal(p.Days)
		if err != nil {
			return 0, fmt.Errorf("employee %d: encode days: %w", p.EmployeeNumber, err)
		}
		args[i] = []any{
			p.EmployeeNumber, p.WeekStart, p.WeekEnd, p.Name, string(days),
			p.TotalOrdinary, p.TotalOvertime,
		}
	}
	return r.insertBatch(ctx, payrollTable.Name, args)
}

// insertBatch runs one prepared insert per row inside a single transaction
// and returns the number of rows actually inserted.
func (r *PostgresRepository) insertBatch(ctx context.Context, table string, rows [][]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	query := r.queries[table]

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, args := range rows {
		b.Queue(query, args...)
	}

	br := tx.SendBatch(ctx, b)
	written := 0
	for range rows {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, fmt.Errorf("insert into %s: %w", table, err)
		}
		written += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit %s batch: %w", table, err)
	}
	return written, nil
}
