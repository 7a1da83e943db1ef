package csvimport

import (
	"errors"
	"fmt"
)

const (
	ErrCodeImportMalformedRow    = "ERR_IMPORT_MALFORMED_ROW"
	ErrCodeImportRequiredField   = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeImportInvalidLength   = "ERR_IMPORT_INVALID_LENGTH"
	ErrCodeImportDuplicateInFile = "ERR_IMPORT_DUPLICATE_IN_FILE"
	ErrCodeImportSaveFailed      = "ERR_IMPORT_SAVE_FAILED"
)

// File level failures; these abort the import before any row is saved.
var (
	ErrEmptyFile       = errors.New("csv file is empty")
	ErrInvalidEncoding = errors.New("csv file is not valid UTF-8")
	ErrMissingHeader   = errors.New("csv file has no header row")
	ErrTooManyRows     = errors.New("csv file has too many rows")
)

const defaultMaxErrors = 100

// RowError pins a problem to a 1-based file line and, when known, a column
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
}

func NewRowError(row int, column, code, message string) RowError {
	return RowError{Row: row, Column: column, Code: code, Message: message}
}

// ErrorCollection retains at most a fixed number of row errors but counts all of them.
type ErrorCollection struct {
	kept  []RowError
	limit int
	total int
}

func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = defaultMaxErrors
	}
	return &ErrorCollection{limit: maxErrors}
}

func (ec *ErrorCollection) Add(err RowError) {
	ec.total++
	if len(ec.kept) == ec.limit {
		return
	}
	ec.kept = append(ec.kept, err)
}

func (ec *ErrorCollection) Errors() []RowError { return ec.kept }
func (ec *ErrorCollection) TotalCount() int    { return ec.total }
func (ec *ErrorCollection) IsTruncated() bool  { return ec.total > len(ec.kept) }
