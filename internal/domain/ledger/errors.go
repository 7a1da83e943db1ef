package ledger

import (
	"fmt"

	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Error codes raised by the ledger domain
const (
	CodeInvalidInstallmentCount = "INVALID_INSTALLMENT_COUNT"
	CodeInvalidAmount           = "INVALID_AMOUNT"
	CodeInvalidFrequency        = "INVALID_FREQUENCY"
	CodeInvalidDueDay           = "INVALID_DUE_DAY"
	CodeInvalidSchedule         = "INVALID_SCHEDULE"
	CodeInvalidPercentage       = "INVALID_PERCENTAGE"
	CodeInvalidKind             = "INVALID_KIND"
	CodeInvalidOrigin           = "INVALID_ORIGIN"
	CodeInvalidDescription      = "INVALID_DESCRIPTION"
	CodeInvalidDate             = "INVALID_DATE"
	CodeInvalidQuantity         = "INVALID_QUANTITY"
	CodeInvalidUser             = "INVALID_USER"
	CodeInvalidRemainderPolicy  = "INVALID_REMAINDER_POLICY"
	CodeUnknownCategory         = "UNKNOWN_CATEGORY"
	CodeUnknownSupplier         = "UNKNOWN_SUPPLIER"

	CodeEntryNotFound               = "ENTRY_NOT_FOUND"
	CodeRecurringDefinitionNotFound = "RECURRING_DEFINITION_NOT_FOUND"
	CodeInstallmentNotFound         = "INSTALLMENT_NOT_FOUND"

	CodeAlreadyFinalized       = "ALREADY_FINALIZED"
	CodeInstallmentAlreadyPaid = "INSTALLMENT_ALREADY_PAID"
	CodeEntryNotValidated      = "ENTRY_NOT_VALIDATED"
	CodeDefinitionNotDue       = "DEFINITION_NOT_DUE"

	CodeRepositoryUnavailable   = "REPOSITORY_UNAVAILABLE"
	CodeCollaboratorUnavailable = "COLLABORATOR_UNAVAILABLE"
)

func newValidationError(code, message string) error {
	return shared.NewValidationError(code, message)
}

// ErrEntryNotFound reports an unresolved entry ID
func ErrEntryNotFound(id uuid.UUID) error {
	return shared.NewNotFoundError(CodeEntryNotFound, fmt.Sprintf("entry %s not found", id))
}

// ErrRecurringDefinitionNotFound reports an unresolved recurring definition ID
func ErrRecurringDefinitionNotFound(id uuid.UUID) error {
	return shared.NewNotFoundError(CodeRecurringDefinitionNotFound, fmt.Sprintf("recurring definition %s not found", id))
}

// ErrInstallmentNotFound reports an unresolved installment ID
func ErrInstallmentNotFound(id uuid.UUID) error {
	return shared.NewNotFoundError(CodeInstallmentNotFound, fmt.Sprintf("installment %s not found", id))
}

// ErrAlreadyFinalized reports a transition attempted on an entry that left pre_entry
func ErrAlreadyFinalized(id uuid.UUID, status EntryStatus) error {
	return shared.NewConflictError(CodeAlreadyFinalized, fmt.Sprintf("entry %s is already %s", id, status))
}

// ErrUnknownCategory reports a category ID missing from the catalog
func ErrUnknownCategory(id uuid.UUID) error {
	return shared.NewValidationError(CodeUnknownCategory, fmt.Sprintf("category %s does not exist", id))
}

// ErrUnknownSupplier reports a supplier ID missing from the catalog
func ErrUnknownSupplier(id uuid.UUID) error {
	return shared.NewValidationError(CodeUnknownSupplier, fmt.Sprintf("supplier %s does not exist", id))
}

// ErrRepository wraps an Entry Repository failure
func ErrRepository(op string, cause error) error {
	return shared.NewDependencyError(CodeRepositoryUnavailable, fmt.Sprintf("entry repository: %s failed", op), cause)
}

// ErrCollaborator wraps a failure of an external collaborator
func ErrCollaborator(name string, cause error) error {
	return shared.NewDependencyError(CodeCollaboratorUnavailable, fmt.Sprintf("%s unavailable", name), cause)
}
