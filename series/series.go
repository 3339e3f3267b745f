package series

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidColumnIndex is returned when a selected column index is out of range
	ErrInvalidColumnIndex = errors.New("invalid column index")

	// ErrNonNumericColumn is returned when a selected column is not fully numeric
	ErrNonNumericColumn = errors.New("column is not numeric")

	// ErrEmptySeries is returned when too few rows remain for the analysis
	ErrEmptySeries = errors.New("series has too few samples")
)

// ColumnKind classifies the cells of a column
type ColumnKind int

const (
	KindEmpty ColumnKind = iota
	KindNumeric
	KindText
)

// String returns the kind name used in upload summaries
func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	default:
		return "empty"
	}
}

// MarshalText encodes the kind by name
func (k ColumnKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Column is one parsed column. Values[i] is meaningful only when Valid[i].
// Text columns keep their raw cells in Text and leave Values zeroed.
type Column struct {
	Name   string
	Kind   ColumnKind
	Values []float64
	Valid  []bool
	Text   []string
}

// NullCount returns the number of empty cells
func (c *Column) NullCount() int {
	nulls := 0
	for _, ok := range c.Valid {
		if !ok {
			nulls++
		}
	}
	return nulls
}

// Series is an immutable table parsed from an upload.
// All columns have RowCount entries.
type Series struct {
	FileID      string
	Filename    string
	Format      Format
	Compressed  bool
	HasHeader   bool
	ColumnNames []string
	RowCount    int
	Columns     []Column
}

// ColumnKinds returns the kind of every column in order
func (s *Series) ColumnKinds() []ColumnKind {
	kinds := make([]ColumnKind, len(s.Columns))
	for i, c := range s.Columns {
		kinds[i] = c.Kind
	}
	return kinds
}

// Column returns the column at index, or ErrInvalidColumnIndex
func (s *Series) Column(index int) (*Column, error) {
	if index < 0 || index >= len(s.Columns) {
		return nil, fmt.Errorf("%w: %d (file has %d columns)", ErrInvalidColumnIndex, index, len(s.Columns))
	}
	return &s.Columns[index], nil
}

// Select returns the time and signal columns as float slices.
// Both columns must be numeric without empty cells and hold at least
// minSamples rows. The same index may be used for both.
func (s *Series) Select(timeColumn, signalColumn, minSamples int) (time, signal []float64, err error) {
	timeCol, err := s.Column(timeColumn)
	if err != nil {
		return nil, nil, fmt.Errorf("time column: %w", err)
	}
	signalCol, err := s.Column(signalColumn)
	if err != nil {
		return nil, nil, fmt.Errorf("signal column: %w", err)
	}

	if err := requireNumeric(timeCol, "time"); err != nil {
		return nil, nil, err
	}
	if err := requireNumeric(signalCol, "signal"); err != nil {
		return nil, nil, err
	}

	if s.RowCount < minSamples || s.RowCount == 0 {
		return nil, nil, fmt.Errorf("%w: %d rows, need at least %d", ErrEmptySeries, s.RowCount, max(minSamples, 1))
	}

	time = append([]float64(nil), timeCol.Values...)
	signal = append([]float64(nil), signalCol.Values...)
	return time, signal, nil
}

func requireNumeric(c *Column, role string) error {
	switch c.Kind {
	case KindNumeric:
	case KindEmpty:
		return fmt.Errorf("%w: %s column %q is empty", ErrNonNumericColumn, role, c.Name)
	default:
		return fmt.Errorf("%w: %s column %q contains text", ErrNonNumericColumn, role, c.Name)
	}
	if nulls := c.NullCount(); nulls > 0 {
		return fmt.Errorf("%w: %s column %q has %d empty cells", ErrNonNumericColumn, role, c.Name, nulls)
	}
	return nil
}
