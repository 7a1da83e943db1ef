package ledger

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// EntryEdits is the closed set of fields a reviewer may correct on a pre-entry,
// either through SaveEdits or as part of Approve. Nil fields are left unchanged.
type EntryEdits struct {
	Description      *string    `json:"description,omitempty"`
	CategoryID       *uuid.UUID `json:"category_id,omitempty"`
	SupplierID       *uuid.UUID `json:"supplier_id,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	InstallmentCount *int       `json:"installment_count,omitempty"`
	AlreadyPaid      *bool      `json:"already_paid,omitempty"`
}

// IsEmpty returns true if no field is set
func (e EntryEdits) IsEmpty() bool {
	return e.Description == nil && e.CategoryID == nil && e.SupplierID == nil &&
		e.DueDate == nil && e.InstallmentCount == nil && e.AlreadyPaid == nil
}

// Validate checks the edited values in isolation
func (e EntryEdits) Validate() error {
	if e.Description != nil {
		if err := validateDescription(*e.Description); err != nil {
			return err
		}
	}
	if e.InstallmentCount != nil && *e.InstallmentCount < 1 {
		return newValidationError(CodeInvalidInstallmentCount,
			fmt.Sprintf("installment count must be at least 1, got %d", *e.InstallmentCount))
	}
	if e.DueDate != nil && e.DueDate.IsZero() {
		return newValidationError(CodeInvalidDate, "due date cannot be empty")
	}
	return nil
}

// maxDescriptionLength matches the VARCHAR(500) columns, which count characters
const maxDescriptionLength = 500

func validateDescription(description string) error {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return newValidationError(CodeInvalidDescription, "description cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > maxDescriptionLength {
		return newValidationError(CodeInvalidDescription,
			fmt.Sprintf("description cannot exceed %d characters", maxDescriptionLength))
	}
	return nil
}
