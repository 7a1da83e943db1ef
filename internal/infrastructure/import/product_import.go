package csvimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Product catalog columns
const (
	ColumnProductRef  = "product_ref"
	ColumnProductName = "name"
)

const (
	maxRefLength  = 100
	maxNameLength = 200
)

// ProductSaver upserts a catalog product by its reference
type ProductSaver interface {
	SaveProduct(ctx context.Context, ref, name string) error
}

// ProductImportResult summarizes a catalog import
type ProductImportResult struct {
	TotalRows int        `json:"total_rows"`
	Imported  int        `json:"imported"`
	Skipped   int        `json:"skipped"`
	DryRun    bool       `json:"dry_run"`
	Errors    []RowError `json:"errors,omitempty"`
	// ErrorCount includes errors beyond the retained ones
	ErrorCount int `json:"error_count"`
}

// ProductImporter validates a product CSV and saves the valid rows
type ProductImporter struct {
	saver     ProductSaver
	maxRows   int
	maxErrors int
	dryRun    bool
	logger    *zap.Logger
}

// ImporterOption configures a ProductImporter
type ImporterOption func(*ProductImporter)

// WithMaxRows caps the number of data rows accepted
func WithMaxRows(n int) ImporterOption {
	return func(i *ProductImporter) {
		i.maxRows = n
	}
}

// WithMaxErrors caps the number of row errors reported
func WithMaxErrors(n int) ImporterOption {
	return func(i *ProductImporter) {
		i.maxErrors = n
	}
}

// WithDryRun validates without saving
func WithDryRun(dryRun bool) ImporterOption {
	return func(i *ProductImporter) {
		i.dryRun = dryRun
	}
}

// NewProductImporter creates an importer writing through saver
func NewProductImporter(saver ProductSaver, logger *zap.Logger, opts ...ImporterOption) *ProductImporter {
	i := &ProductImporter{
		saver:     saver,
		maxRows:   10000,
		maxErrors: 100,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import reads product_ref,name rows from r. Every row is validated before
// anything is saved, so a file with row errors saves nothing.
func (i *ProductImporter) Import(ctx context.Context, r io.Reader, opts ...ParserOption) (*ProductImportResult, error) {
	rows, err := NewReader(r, opts...)
	if err != nil {
		return nil, err
	}
	if missing := rows.Missing(ColumnProductRef, ColumnProductName); len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %v", missing)
	}

	result := &ProductImportResult{DryRun: i.dryRun}
	errs := NewErrorCollection(i.maxErrors)
	seen := make(map[string]int)
	var valid []Row

	for {
		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var rowErr RowError
		if errors.As(err, &rowErr) {
			errs.Add(rowErr)
			continue
		}
		if err != nil {
			return nil, err
		}
		if row.Blank() {
			result.Skipped++
			continue
		}

		result.TotalRows++
		if result.TotalRows > i.maxRows {
			return nil, fmt.Errorf("%w (%d)", ErrTooManyRows, i.maxRows)
		}
		if i.validateRow(row, seen, errs) {
			valid = append(valid, row)
		}
	}

	if errs.TotalCount() == 0 && !i.dryRun {
		for _, row := range valid {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := i.saver.SaveProduct(ctx, row.Get(ColumnProductRef), row.Get(ColumnProductName)); err != nil {
				errs.Add(NewRowError(row.Line, "", ErrCodeImportSaveFailed, err.Error()))
				continue
			}
			result.Imported++
		}
	}

	result.Errors = errs.Errors()
	result.ErrorCount = errs.TotalCount()

	i.logger.Info("Product catalog import finished",
		zap.Int("rows", result.TotalRows),
		zap.Int("imported", result.Imported),
		zap.Int("errors", result.ErrorCount),
		zap.Bool("dry_run", i.dryRun),
	)
	return result, nil
}

func (i *ProductImporter) validateRow(row Row, seen map[string]int, errs *ErrorCollection) bool {
	ok := true
	ref := row.Get(ColumnProductRef)
	name := row.Get(ColumnProductName)

	switch {
	case ref == "":
		errs.Add(NewRowError(row.Line, ColumnProductRef, ErrCodeImportRequiredField, "product_ref is required"))
		ok = false
	case utf8.RuneCountInString(ref) > maxRefLength:
		errs.Add(NewRowError(row.Line, ColumnProductRef, ErrCodeImportInvalidLength,
			fmt.Sprintf("product_ref must be at most %d characters", maxRefLength)))
		ok = false
	default:
		if first, dup := seen[ref]; dup {
			errs.Add(NewRowError(row.Line, ColumnProductRef, ErrCodeImportDuplicateInFile,
				fmt.Sprintf("product_ref %q already appears on row %d", ref, first)))
			ok = false
		} else {
			seen[ref] = row.Line
		}
	}

	switch {
	case name == "":
		errs.Add(NewRowError(row.Line, ColumnProductName, ErrCodeImportRequiredField, "name is required"))
		ok = false
	case utf8.RuneCountInString(name) > maxNameLength:
		errs.Add(NewRowError(row.Line, ColumnProductName, ErrCodeImportInvalidLength,
			fmt.Sprintf("name must be at most %d characters", maxNameLength)))
		ok = false
	}
	return ok
}
