package mapper

import (
	"fmt"
	"strings"
)

// TableSpec describes a canonical record table: its columns in argument
// order and the natural key the writes conflict on.
type TableSpec struct {
	Name    string
	Columns []string
	Key     []string
}

// SQLBuilder generates the Postgres statements used by the batch writers.
type SQLBuilder struct{}

func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{}
}

// BuildUpsert generates an INSERT ... ON CONFLICT DO UPDATE for spec. The
// statement returns one boolean per row: true when the row was inserted,
// false when an existing row was updated.
func (b *SQLBuilder) BuildUpsert(spec TableSpec) (string, error) {
	if err := validate(spec); err != nil {
		return "", err
	}

	var setClauses []string
	for _, c := range spec.Columns {
		if contains(spec.Key, c) {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	setClauses = append(setClauses, "updated_at = CURRENT_TIMESTAMP")

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING (xmax = 0) AS inserted",
		spec.Name,
		strings.Join(spec.Columns, ", "),
		placeholders(len(spec.Columns)),
		strings.Join(spec.Key, ", "),
		strings.Join(setClauses, ", "),
	)
	return query, nil
}

// BuildInsert generates an INSERT that ignores rows already present under
// the natural key. Replace-window writers delete the window first, so a
// conflict here means the same key arrived twice in one run.
func (b *SQLBuilder) BuildInsert(spec TableSpec) (string, error) {
	if err := validate(spec); err != nil {
		return "", err
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		spec.Name,
		strings.Join(spec.Columns, ", "),
		placeholders(len(spec.Columns)),
		strings.Join(spec.Key, ", "),
	)
	return query, nil
}

func validate(spec TableSpec) error {
	if spec.Name == "" || len(spec.Columns) == 0 {
		return fmt.Errorf("table spec requires a name and columns")
	}
	if len(spec.Key) == 0 {
		return fmt.Errorf("table %s has no natural key", spec.Name)
	}
	for _, k := range spec.Key {
		if !contains(spec.Columns, k) {
			return fmt.Errorf("key column %s is not a column of %s", k, spec.Name)
		}
	}
	return nil
}

func placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(ps, ", ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
