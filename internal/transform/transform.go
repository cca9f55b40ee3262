// Package transform turns raw extract rows into canonical records. Every
// function here is pure: rows in, records and drop counters out.
package transform

import "github.com/Guizzs26/go-sync-hr/internal/models"

// Result is the output of one domain transformer.
type Result[T any] struct {
	Records []T
	// Rejected rows lacked a mandatory natural-key field.
	Rejected int
	// Duplicates are rows whose natural key repeated within the file; the last one wins.
	Duplicates int
}

// Skipped is the total number of raw rows that did not become records.
func (r Result[T]) Skipped() int {
	return r.Rejected + r.Duplicates
}

// dedupe keeps the last record per key, preserving first-seen order.
func dedupe[T any, K comparable](records []T, key func(T) K) ([]T, int) {
	index := make(map[K]int, len(records))
	out := make([]T, 0, len(records))
	for _, r := range records {
		k := key(r)
		if i, ok := index[k]; ok {
			out[i] = r
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out, len(records) - len(out)
}

// employeeNumber resolves the mandatory employee key; nil when absent or not positive.
func employeeNumber(row models.RawRow, f Field) *int {
	n := f.Int(row)
	if n == nil || *n <= 0 {
		return nil
	}
	return n
}
