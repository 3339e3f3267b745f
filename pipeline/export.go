package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/RyanBlaney/sonido-wavelet/features"
	"github.com/tidwall/gjson"
)

// filenameColumn heads the filename column of consolidated exports
const filenameColumn = "filename"

// StatsCell is one named value of a statistics row, already formatted
type StatsCell struct {
	Name  string
	Value string
}

// StatsRow is one row of a statistics export
type StatsRow struct {
	Filename string
	Cells    []StatsCell
}

// NewStatsRow formats a feature set as an export row
func NewStatsRow(filename string, fs features.FeatureSet) StatsRow {
	row := StatsRow{Filename: filename, Cells: make([]StatsCell, 0, len(fs))}
	for _, f := range fs {
		row.Cells = append(row.Cells, StatsCell{Name: f.Name, Value: formatNumber(f.Value)})
	}
	return row
}

// Get returns the formatted value of the named cell
func (r StatsRow) Get(name string) (string, bool) {
	for _, c := range r.Cells {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ParseStatsRows reads a JSON array of statistics objects, or a single
// object, keeping each object's key order. The "filename" key names the row.
// Numbers and numeric strings are normalised, null becomes 0 and any other
// value is kept as its JSON text.
func ParseStatsRows(data []byte) ([]StatsRow, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: statistics payload is not valid JSON", ErrInvalidParameter)
	}

	root := gjson.ParseBytes(data)
	var items []gjson.Result
	switch {
	case root.IsArray():
		items = root.Array()
	case root.IsObject():
		items = []gjson.Result{root}
	default:
		return nil, fmt.Errorf("%w: expected an object or an array of objects", ErrInvalidParameter)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no statistics provided", ErrInvalidParameter)
	}

	rows := make([]StatsRow, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, fmt.Errorf("%w: row %d is not an object", ErrInvalidParameter, i)
		}

		var row StatsRow
		item.ForEach(func(key, value gjson.Result) bool {
			name := key.String()
			if name == filenameColumn {
				row.Filename = value.String()
				return true
			}
			row.Cells = append(row.Cells, StatsCell{Name: name, Value: cellText(value)})
			return true
		})
		rows = append(rows, row)
	}
	return rows, nil
}

func cellText(value gjson.Result) string {
	switch value.Type {
	case gjson.Number, gjson.Null:
		return formatNumber(value.Float())
	case gjson.String:
		if v, err := strconv.ParseFloat(value.Str, 64); err == nil {
			return formatNumber(v)
		}
		return value.Str
	default:
		return value.Raw
	}
}

// WriteStatsCSV writes one header line and one line per row. Columns are
// the union of cell names in first-appearance order, preceded by a
// filename column when any row has a filename. Missing values are empty.
func WriteStatsCSV(w io.Writer, rows []StatsRow) error {
	withFilename := false
	var columns []string
	seen := make(map[string]bool)
	for _, row := range rows {
		if row.Filename != "" {
			withFilename = true
		}
		for _, c := range row.Cells {
			if !seen[c.Name] {
				seen[c.Name] = true
				columns = append(columns, c.Name)
			}
		}
	}

	cw := csv.NewWriter(w)

	header := make([]string, 0, len(columns)+1)
	if withFilename {
		header = append(header, filenameColumn)
	}
	header = append(header, columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := make([]string, 0, len(header))
		if withFilename {
			record = append(record, row.Filename)
		}
		for _, name := range columns {
			v, _ := row.Get(name)
			record = append(record, v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
