// Package csvimport loads reference data such as the product catalog from
// CSV files.
package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const encodingSample = 4096

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParserOption configures a Reader
type ParserOption func(*csv.Reader)

// WithDelimiter sets the field separator; the default is a comma
func WithDelimiter(d rune) ParserOption {
	return func(r *csv.Reader) { r.Comma = d }
}

// Reader yields the data rows of a CSV file keyed by header name. Header
// names are trimmed and lower-cased; cell values are trimmed.
type Reader struct {
	csv     *csv.Reader
	columns []string
}

// NewReader checks the input and consumes the header row. It fails with
// ErrEmptyFile, ErrInvalidEncoding or ErrMissingHeader before any row is read.
func NewReader(r io.Reader, opts ...ParserOption) (*Reader, error) {
	br := bufio.NewReaderSize(r, encodingSample)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	sample, err := br.Peek(encodingSample)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(sample) == 0 {
		return nil, ErrEmptyFile
	}
	if !validUTF8Prefix(sample, len(sample) == encodingSample) {
		return nil, ErrInvalidEncoding
	}

	cr := csv.NewReader(br)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	for _, opt := range opts {
		opt(cr)
	}

	header, err := cr.Read()
	switch {
	case errors.Is(err, io.EOF):
		return nil, ErrMissingHeader
	case err != nil:
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return &Reader{csv: cr, columns: columns}, nil
}

// validUTF8Prefix allows a truncated final rune when the sample was cut short
func validUTF8Prefix(b []byte, truncated bool) bool {
	if utf8.Valid(b) {
		return true
	}
	return truncated && utf8.Valid(b[:len(b)-utf8.UTFMax])
}

// Missing returns the names in required that the header lacks
func (r *Reader) Missing(required ...string) []string {
	var missing []string
	for _, name := range required {
		found := false
		for _, c := range r.columns {
			if c == name {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, name)
		}
	}
	return missing
}

// Row is one data record and the file line it started on
type Row struct {
	Line   int
	values map[string]string
}

// Get returns the trimmed cell of column, "" when the row is short
func (r Row) Get(column string) string { return r.values[column] }

// Blank reports whether every cell is empty
func (r Row) Blank() bool {
	for _, v := range r.values {
		if v != "" {
			return false
		}
	}
	return true
}

// Next returns the next row, io.EOF at the end of the file, or a RowError
// for a record the csv package cannot parse
func (r *Reader) Next() (Row, error) {
	record, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return Row{}, io.EOF
	}
	if err != nil {
		line := 0
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			line = pe.StartLine
		}
		return Row{}, NewRowError(line, "", ErrCodeImportMalformedRow, err.Error())
	}

	line, _ := r.csv.FieldPos(0)
	row := Row{Line: line, values: make(map[string]string, len(r.columns))}
	for i, c := range r.columns {
		if i < len(record) {
			row.values[c] = strings.TrimSpace(record[i])
		} else {
			row.values[c] = ""
		}
	}
	return row, nil
}
