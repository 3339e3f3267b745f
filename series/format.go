package series

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for file extensions outside csv, txt, lvm and xlsx
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrMalformed is returned when a file cannot be decoded as its format
	ErrMalformed = errors.New("malformed upload")

	// ErrTooLarge is returned when gzip content inflates past the size limit
	ErrTooLarge = errors.New("decompressed upload exceeds size limit")
)

// DefaultMaxInflatedBytes bounds decompressed content when no limit is given
const DefaultMaxInflatedBytes int64 = 1 << 30

// Format identifies an upload's table format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTXT  Format = "txt"
	FormatLVM  Format = "lvm"
	FormatXLSX Format = "xlsx"
)

// gzipMagic prefixes every gzip stream
var gzipMagic = []byte{0x1f, 0x8b}

// DetectFormat returns the format implied by a filename's extension.
// A trailing .gz is ignored so that "run.csv.gz" parses as csv.
func DetectFormat(filename string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(filename))
	name = strings.TrimSuffix(name, ".gz")

	switch ext := strings.TrimPrefix(filepath.Ext(name), "."); ext {
	case "csv":
		return FormatCSV, nil
	case "txt":
		return FormatTXT, nil
	case "lvm":
		return FormatLVM, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// IsGzip reports whether content starts with the gzip magic bytes
func IsGzip(content []byte) bool {
	return len(content) > 2 && bytes.HasPrefix(content, gzipMagic)
}

// Decompress inflates gzip content to at most maxBytes (DefaultMaxInflatedBytes
// when maxBytes is not positive). Content without the gzip magic is returned
// unchanged. A corrupt stream falls back to the raw bytes together with the
// error so that callers can report the failed attempt; a stream over the
// limit returns ErrTooLarge and no data.
func Decompress(content []byte, maxBytes int64) (data []byte, compressed bool, err error) {
	if !IsGzip(content) {
		return content, false, nil
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxInflatedBytes
	}

	reader, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return content, false, fmt.Errorf("gzip header: %w", err)
	}
	defer reader.Close()

	inflated, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return content, false, fmt.Errorf("gzip stream: %w", err)
	}
	if int64(len(inflated)) > maxBytes {
		return nil, false, fmt.Errorf("%w: more than %d bytes after decompression", ErrTooLarge, maxBytes)
	}
	return inflated, true, nil
}
