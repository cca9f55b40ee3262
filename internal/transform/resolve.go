package transform

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/Guizzs26/go-sync-hr/pkg/encoding"
)

// Field describes how a canonical field is found in a raw row: exact header
// variants first, then the first header whose folded form contains Token.
type Field struct {
	Variants []string
	Token    string
}

func field(token string, variants ...string) Field {
	return Field{Variants: variants, Token: token}
}

// Lookup returns the first present value for f. Empty strings and "null"
// count as absent.
func (f Field) Lookup(row models.RawRow) (any, bool) {
	for _, name := range f.Variants {
		if v, ok := row[name]; ok && present(v) {
			return v, true
		}
	}

	if f.Token == "" {
		return nil, false
	}

	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if strings.Contains(encoding.Fold(k), f.Token) && present(row[k]) {
			return row[k], true
		}
	}
	return nil, false
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		s := strings.TrimSpace(t)
		return s != "" && !strings.EqualFold(s, "null")
	case time.Time:
		return !t.IsZero()
	default:
		return true
	}
}

// Text renders the resolved value as a trimmed string, "" when absent.
func (f Field) Text(row models.RawRow) string {
	v, ok := f.Lookup(row)
	if !ok {
		return ""
	}
	return stringify(v)
}

func (f Field) Int(row models.RawRow) *int {
	v, ok := f.Lookup(row)
	if !ok {
		return nil
	}
	return OptionalInt(v)
}

func (f Field) Float(row models.RawRow) *float64 {
	v, ok := f.Lookup(row)
	if !ok {
		return nil
	}
	return OptionalFloat(v)
}

func (f Field) Date(row models.RawRow) *time.Time {
	v, ok := f.Lookup(row)
	if !ok {
		return nil
	}
	if d, ok := ParseDate(v); ok {
		return &d
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.DateOnly)
	default:
		return ""
	}
}
