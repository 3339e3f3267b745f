package series

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/RyanBlaney/sonido-wavelet/logging"
	"github.com/xuri/excelize/v2"
)

// lvmHeaderEnd terminates each LabVIEW measurement header block
const lvmHeaderEnd = "***End_of_Header***"

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// csvDelimiters are tried in order; the first producing more than one column wins
var csvDelimiters = []rune{',', '\t', ';'}

type cellKind int

const (
	cellEmpty cellKind = iota
	cellNumber
	cellText
)

// Parse decodes an upload into a Series. The format follows the filename
// extension and gzip content is inflated first, up to DefaultMaxInflatedBytes.
func Parse(filename string, content []byte) (*Series, error) {
	return ParseLimited(filename, content, DefaultMaxInflatedBytes)
}

// ParseLimited is Parse with gzip content bounded to maxInflated bytes
func ParseLimited(filename string, content []byte, maxInflated int64) (*Series, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "series_loader",
		"function":  "ParseLimited",
		"filename":  filename,
	})

	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	data, compressed, err := Decompress(content, maxInflated)
	if errors.Is(err, ErrTooLarge) {
		return nil, err
	}
	if err != nil {
		logger.Warn("gzip decompression failed, parsing raw bytes", logging.Fields{
			"error": err.Error(),
		})
	}

	var rows [][]string
	switch format {
	case FormatXLSX:
		rows, err = readWorkbook(data)
	case FormatCSV:
		rows, err = readDelimited(data)
	default:
		rows, err = readColumnar(data)
	}
	if err != nil {
		return nil, err
	}

	rows = normalizeRows(rows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s contains no data", ErrMalformed, filename)
	}

	s := buildSeries(rows)
	s.Filename = filename
	s.Format = format
	s.Compressed = compressed

	logger.Debug("parsed upload", logging.Fields{
		"rows":       s.RowCount,
		"columns":    len(s.Columns),
		"header":     s.HasHeader,
		"compressed": compressed,
	})
	return s, nil
}

func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrMalformed, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformed)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrMalformed, sheets[0], err)
	}
	return rows, nil
}

func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: content is not valid UTF-8 text", ErrMalformed)
	}
	return string(data), nil
}

func readDelimited(data []byte) ([][]string, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	var fallback [][]string
	var lastErr error
	for _, delimiter := range csvDelimiters {
		reader := csv.NewReader(strings.NewReader(text))
		reader.Comma = delimiter
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		reader.TrimLeadingSpace = true

		rows, err := reader.ReadAll()
		if err != nil {
			lastErr = err
			continue
		}
		if maxWidth(rows) > 1 {
			return rows, nil
		}
		if fallback == nil {
			fallback = rows
		}
	}

	if fallback == nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, lastErr)
	}
	return fallback, nil
}

// readColumnar reads tab separated txt and lvm files. LabVIEW header blocks are
// skipped and files without tabs are split on runs of whitespace.
func readColumnar(data []byte) ([][]string, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	if idx := strings.LastIndex(text, lvmHeaderEnd); idx >= 0 {
		text = text[idx+len(lvmHeaderEnd):]
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	tabbed := strings.Contains(text, "\t")

	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if tabbed {
			rows = append(rows, strings.Split(line, "\t"))
		} else {
			rows = append(rows, strings.Fields(line))
		}
	}
	return rows, nil
}

func maxWidth(rows [][]string) int {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	return width
}

// normalizeRows trims cells, pads ragged rows and drops rows and columns
// that are entirely empty
func normalizeRows(rows [][]string) [][]string {
	width := maxWidth(rows)

	kept := make([][]string, 0, len(rows))
	for _, row := range rows {
		padded := make([]string, width)
		empty := true
		for i, cell := range row {
			padded[i] = strings.TrimSpace(cell)
			if padded[i] != "" {
				empty = false
			}
		}
		if !empty {
			kept = append(kept, padded)
		}
	}

	used := make([]bool, width)
	for _, row := range kept {
		for i, cell := range row {
			if cell != "" {
				used[i] = true
			}
		}
	}

	for r, row := range kept {
		compact := row[:0]
		for i, cell := range row {
			if used[i] {
				compact = append(compact, cell)
			}
		}
		kept[r] = compact
	}
	return kept
}

func classifyCell(cell string) (float64, cellKind) {
	if cell == "" || strings.EqualFold(cell, "nan") {
		return 0, cellEmpty
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, cellText
	}
	return v, cellNumber
}

func countKinds(row []string) (numbers, texts int) {
	for _, cell := range row {
		switch _, kind := classifyCell(cell); kind {
		case cellNumber:
			numbers++
		case cellText:
			texts++
		}
	}
	return numbers, texts
}

// isHeader treats the first row as column names when it holds text and the
// row after it is more numeric
func isHeader(rows [][]string) bool {
	numbers, texts := countKinds(rows[0])
	if texts == 0 {
		return false
	}
	if len(rows) == 1 {
		return true
	}
	nextNumbers, _ := countKinds(rows[1])
	return nextNumbers > numbers
}

func buildSeries(rows [][]string) *Series {
	width := len(rows[0])
	s := &Series{HasHeader: isHeader(rows)}

	names := make([]string, width)
	for i := range names {
		names[i] = fmt.Sprintf("Column %d", i+1)
	}
	if s.HasHeader {
		for i, cell := range rows[0] {
			if cell != "" {
				names[i] = cell
			}
		}
		rows = rows[1:]
	}

	s.ColumnNames = names
	s.RowCount = len(rows)
	s.Columns = make([]Column, width)

	for c := 0; c < width; c++ {
		col := Column{
			Name:   names[c],
			Kind:   KindEmpty,
			Values: make([]float64, len(rows)),
			Valid:  make([]bool, len(rows)),
		}

		text := false
		for r, row := range rows {
			v, kind := classifyCell(row[c])
			switch kind {
			case cellNumber:
				col.Values[r] = v
				col.Valid[r] = true
				if col.Kind == KindEmpty {
					col.Kind = KindNumeric
				}
			case cellText:
				text = true
			}
		}

		if text {
			col.Kind = KindText
			col.Text = make([]string, len(rows))
			for r, row := range rows {
				col.Text[r] = row[c]
			}
		}
		s.Columns[c] = col
	}
	return s
}
