package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/Guizzs26/go-sync-hr/pkg/encoding"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for extensions the decoder cannot read.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Supported reports whether Decode can read the file by extension.
func Supported(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv", ".txt", ".xlsx":
		return true
	}
	return false
}

// Decode turns a raw extract into a table. CSV cells stay strings;
// spreadsheet cells that hold numbers become float64 so date serials reach
// the transformers untouched.
func Decode(name string, data []byte) (models.Table, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv", ".txt":
		return decodeCSV(data)
	case ".xlsx":
		return decodeXLSX(data)
	}
	return models.Table{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

func decodeCSV(data []byte) (models.Table, error) {
	text := encoding.ToUTF8(data)

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return models.Table{}, fmt.Errorf("empty file: no header row found")
		}
		return models.Table{}, fmt.Errorf("failed to read header row: %w", err)
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.Table{}, fmt.Errorf("csv parse error: %w", err)
		}
		records = append(records, rec)
	}

	return buildTable(header, records, func(s string) any { return s }), nil
}

func decodeXLSX(data []byte) (models.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return models.Table{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return models.Table{}, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return models.Table{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return models.Table{}, fmt.Errorf("empty file: no header row found")
	}

	return buildTable(rows[0], rows[1:], numericCell), nil
}

// numericCell keeps codes with leading zeros ("007") as text.
func numericCell(s string) any {
	t := strings.TrimSpace(s)
	if t == "" {
		return s
	}
	if len(t) > 1 && t[0] == '0' && t[1] != '.' {
		return s
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return f
	}
	return s
}

func buildTable(header []string, records [][]string, cell func(string) any) models.Table {
	columns := make([]string, 0, len(header))
	index := make([]int, 0, len(header))
	seen := make(map[string]int, len(header))

	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		// Repeated headers get a positional suffix so no cell is lost.
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		columns = append(columns, name)
		index = append(index, i)
	}

	table := models.Table{Columns: columns, Rows: make([]models.RawRow, 0, len(records))}
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		row := make(models.RawRow, len(columns))
		for c, i := range index {
			if i < len(rec) {
				row[columns[c]] = cell(rec[i])
			} else {
				row[columns[c]] = nil
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sniffDelimiter picks ';', '\t' or ',' from the header line.
func sniffDelimiter(text []byte) rune {
	line := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
