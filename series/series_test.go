package series

import (
	"bytes"
	"compress/gzip"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"run.csv", FormatCSV, false},
		{"RUN.CSV", FormatCSV, false},
		{"trace.txt", FormatTXT, false},
		{"bench.lvm", FormatLVM, false},
		{"sheet.xlsx", FormatXLSX, false},
		{"run.csv.gz", FormatCSV, false},
		{"image.png", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		got, err := DetectFormat(tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("DetectFormat(%q) error = %v, want ErrUnsupportedFormat", tt.name, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("DetectFormat(%q) = %v, %v; want %v", tt.name, got, err, tt.want)
		}
	}
}

func TestParseCSVWithHeader(t *testing.T) {
	content := []byte("time,voltage,label\n0,1.5,a\n0.001,2.5,b\n0.002,-3,c\n")

	s, err := Parse("run.csv", content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !s.HasHeader || s.RowCount != 3 || len(s.Columns) != 3 {
		t.Fatalf("header=%v rows=%d columns=%d", s.HasHeader, s.RowCount, len(s.Columns))
	}
	if s.ColumnNames[1] != "voltage" {
		t.Fatalf("column names = %v", s.ColumnNames)
	}

	kinds := s.ColumnKinds()
	if kinds[0] != KindNumeric || kinds[1] != KindNumeric || kinds[2] != KindText {
		t.Fatalf("kinds = %v", kinds)
	}
	if s.Columns[1].Values[2] != -3 {
		t.Fatalf("voltage values = %v", s.Columns[1].Values)
	}
}

func TestParseCSVWithoutHeader(t *testing.T) {
	s, err := Parse("run.csv", []byte("0;10\n1;20\n2;30\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.HasHeader || s.RowCount != 3 {
		t.Fatalf("header=%v rows=%d", s.HasHeader, s.RowCount)
	}
	if s.ColumnNames[0] != "Column 1" || s.ColumnNames[1] != "Column 2" {
		t.Fatalf("column names = %v", s.ColumnNames)
	}
	if s.Columns[1].Values[1] != 20 {
		t.Fatalf("values = %v", s.Columns[1].Values)
	}
}

func TestParseTabDelimitedCSV(t *testing.T) {
	s, err := Parse("run.csv", []byte("t\tx\n0\t1\n1\t2\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(s.Columns) != 2 || s.RowCount != 2 {
		t.Fatalf("columns=%d rows=%d", len(s.Columns), s.RowCount)
	}
}

func TestParseDropsEmptyRowsAndColumns(t *testing.T) {
	content := []byte("0,,5\n\n,,\n1,,6\n2,,7,\n")

	s, err := Parse("run.csv", content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.RowCount != 3 || len(s.Columns) != 2 {
		t.Fatalf("rows=%d columns=%d, want 3 x 2", s.RowCount, len(s.Columns))
	}
	if s.Columns[1].Values[2] != 7 {
		t.Fatalf("values = %v", s.Columns[1].Values)
	}
}

func TestParseLVM(t *testing.T) {
	content := []byte("LabVIEW Measurement\t\nWriter_Version\t2\n***End_of_Header***\t\n\n" +
		"Channels\t1\nSamples\t3\n***End_of_Header***\t\n" +
		"X_Value\tVoltage\tComment\n0.000\t0.10\n0.001\t0.20\n0.002\t0.30\n")

	s, err := Parse("bench.lvm", content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !s.HasHeader || s.RowCount != 3 {
		t.Fatalf("header=%v rows=%d", s.HasHeader, s.RowCount)
	}
	if len(s.Columns) != 3 || s.Columns[2].Kind != KindEmpty {
		t.Fatalf("columns = %d, comment kind %v", len(s.Columns), s.Columns[len(s.Columns)-1].Kind)
	}
	if s.ColumnNames[1] != "Voltage" || s.Columns[1].Values[2] != 0.3 {
		t.Fatalf("voltage column %q = %v", s.ColumnNames[1], s.Columns[1].Values)
	}
}

func TestParseWhitespaceTXT(t *testing.T) {
	s, err := Parse("trace.txt", []byte("0  1.0\n1   2.0\n2 3.0\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(s.Columns) != 2 || s.RowCount != 3 {
		t.Fatalf("columns=%d rows=%d", len(s.Columns), s.RowCount)
	}
}

func TestParseGzip(t *testing.T) {
	raw := []byte("time,value\n0,1\n1,2\n")

	s, err := Parse("run.csv", gzipBytes(t, raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !s.Compressed || s.RowCount != 2 {
		t.Fatalf("compressed=%v rows=%d", s.Compressed, s.RowCount)
	}
}

func TestDecompressFallsBackOnCorruptStream(t *testing.T) {
	corrupt := []byte{0x1f, 0x8b, 0x00, 0x01, 0x02}

	data, compressed, err := Decompress(corrupt, 0)
	if err == nil || compressed {
		t.Fatalf("expected failure, got compressed=%v err=%v", compressed, err)
	}
	if !bytes.Equal(data, corrupt) {
		t.Fatalf("fallback did not return the raw bytes")
	}
}

func TestDecompressBoundsInflatedSize(t *testing.T) {
	raw := bytes.Repeat([]byte("0,0\n"), 1<<16)
	packed := gzipBytes(t, raw)
	if len(packed) >= len(raw)/16 {
		t.Fatalf("fixture did not compress: %d -> %d bytes", len(raw), len(packed))
	}

	data, compressed, err := Decompress(packed, int64(len(raw)))
	if err != nil || !compressed || len(data) != len(raw) {
		t.Fatalf("at the limit: len=%d compressed=%v err=%v", len(data), compressed, err)
	}

	data, compressed, err = Decompress(packed, int64(len(raw))-1)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("over the limit error = %v", err)
	}
	if data != nil || compressed {
		t.Fatalf("over the limit returned %d bytes, compressed=%v", len(data), compressed)
	}
}

func TestParseLimitedRejectsOversizedGzip(t *testing.T) {
	raw := bytes.Repeat([]byte("0,1\n"), 4096)
	packed := gzipBytes(t, raw)

	if _, err := ParseLimited("run.csv", packed, 1024); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("ParseLimited error = %v", err)
	}
	s, err := ParseLimited("run.csv", packed, int64(len(raw)))
	if err != nil {
		t.Fatalf("ParseLimited: %v", err)
	}
	if s.RowCount != 4096 {
		t.Fatalf("rows = %d", s.RowCount)
	}
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"time", "signal"},
		{0.0, 1.25},
		{0.5, -2.5},
		{1.0, 3.75},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	s, err := Parse("sheet.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !s.HasHeader || s.RowCount != 3 || s.ColumnNames[1] != "signal" {
		t.Fatalf("header=%v rows=%d names=%v", s.HasHeader, s.RowCount, s.ColumnNames)
	}
	if s.Columns[1].Values[1] != -2.5 {
		t.Fatalf("signal values = %v", s.Columns[1].Values)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	if _, err := Parse("sheet.xlsx", []byte("not a zip archive")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("xlsx error = %v, want ErrMalformed", err)
	}
	if _, err := Parse("run.csv", []byte{0xff, 0xfe, 0x00, 0x41}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("binary csv error = %v, want ErrMalformed", err)
	}
	if _, err := Parse("run.csv", []byte("\n\n ,\n")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("empty csv error = %v, want ErrMalformed", err)
	}
}

func TestSelect(t *testing.T) {
	s, err := Parse("run.csv", []byte("time,value,label,partial\n0,1,a,1\n1,2,b,\n2,3,c,3\n3,4,d,4\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	time, signal, err := s.Select(0, 1, 4)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(time) != 4 || signal[3] != 4 {
		t.Fatalf("time=%v signal=%v", time, signal)
	}

	// returned slices are copies
	signal[0] = 100
	if s.Columns[1].Values[0] != 1 {
		t.Fatalf("Select returned a view of the series")
	}

	tests := []struct {
		name       string
		time, sig  int
		minSamples int
		want       error
	}{
		{"signal index out of range", 0, 9, 1, ErrInvalidColumnIndex},
		{"negative time index", -1, 1, 1, ErrInvalidColumnIndex},
		{"text signal", 0, 2, 1, ErrNonNumericColumn},
		{"signal with nulls", 0, 3, 1, ErrNonNumericColumn},
		{"too few samples", 0, 1, 8, ErrEmptySeries},
	}
	for _, tt := range tests {
		if _, _, err := s.Select(tt.time, tt.sig, tt.minSamples); !errors.Is(err, tt.want) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestParseNaNIsNull(t *testing.T) {
	s, err := Parse("run.csv", []byte("0,1\n1,NaN\n2,3\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c := s.Columns[1]; c.Kind != KindNumeric || c.NullCount() != 1 {
		t.Fatalf("kind=%v nulls=%d", c.Kind, c.NullCount())
	}
}
