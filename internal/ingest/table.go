package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/codexkg/codex/internal/schema"
)

// Table is a parsed CSV: a header row and the data rows beneath it.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ReadCSV parses a CSV document. The first record is the header; every
// data row must have the same width as the header.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &Error{Code: ErrCodeBadCSV, Message: err.Error()}
	}
	if len(records) == 0 {
		return nil, &Error{Code: ErrCodeEmptyTable, Message: "csv has no header row"}
	}

	columns := make([]string, len(records[0]))
	for i, col := range records[0] {
		columns[i] = strings.TrimSpace(col)
	}
	return &Table{Columns: columns, Rows: records[1:]}, nil
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]string, error) {
	for i, col := range t.Columns {
		if col == name {
			values := make([]string, len(t.Rows))
			for j, row := range t.Rows {
				values[j] = row[i]
			}
			return values, nil
		}
	}
	return nil, &Error{
		Code:    ErrCodeMissingColumn,
		Column:  name,
		Message: fmt.Sprintf("column %q not in table", name),
	}
}

const dateLayout = "2006-01-02T15:04:05.000"

// dateInputLayouts are the cell formats accepted for date columns.
var dateInputLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	dateLayout,
}

// InferTypes derives an attribute type for every column from its cell
// values. A column is long if every non-empty cell parses as an integer,
// double if every cell parses as a float, bool for true/false columns,
// date for cells matching a known date layout, and string otherwise.
// An all-empty column falls back to string.
func (t *Table) InferTypes() map[string]schema.AttrType {
	types := make(map[string]schema.AttrType, len(t.Columns))
	for i, col := range t.Columns {
		types[col] = inferColumn(t.Rows, i)
	}
	return types
}

func inferColumn(rows [][]string, idx int) schema.AttrType {
	isLong, isDouble, isBool, isDate := true, true, true, true
	seen := false

	for _, row := range rows {
		cell := strings.TrimSpace(row[idx])
		if cell == "" {
			continue
		}
		seen = true

		if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
			isLong = false
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			isDouble = false
		}
		if _, err := strconv.ParseBool(cell); err != nil {
			isBool = false
		}
		if !parsesAsDate(cell) {
			isDate = false
		}
	}

	switch {
	case !seen:
		return schema.TypeString
	case isLong:
		return schema.TypeLong
	case isDouble:
		return schema.TypeDouble
	case isBool:
		return schema.TypeBool
	case isDate:
		return schema.TypeDate
	default:
		return schema.TypeString
	}
}

func parsesAsDate(cell string) bool {
	for _, layout := range dateInputLayouts {
		if _, err := time.Parse(layout, cell); err == nil {
			return true
		}
	}
	return false
}
