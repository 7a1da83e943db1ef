package ledger

import (
	"fmt"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/clinic-ledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SystemUserID is recorded as validator for entries the engine validates on its own
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// EntryKind distinguishes money going out from money coming in
type EntryKind string

const (
	EntryKindExpense EntryKind = "expense"
	EntryKindRevenue EntryKind = "revenue"
)

// IsValid checks if the kind is known
func (k EntryKind) IsValid() bool {
	return k == EntryKindExpense || k == EntryKindRevenue
}

// String returns the string representation of EntryKind
func (k EntryKind) String() string {
	return string(k)
}

// EntryStatus represents the lifecycle state of an entry
type EntryStatus string

const (
	EntryStatusPreEntry  EntryStatus = "pre_entry" // Awaiting review
	EntryStatusValidated EntryStatus = "validated" // Approved, side effects materialized
	EntryStatusCanceled  EntryStatus = "canceled"  // Soft-deleted, kept for audit
)

// IsValid checks if the status is known
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusPreEntry, EntryStatusValidated, EntryStatusCanceled:
		return true
	}
	return false
}

// String returns the string representation of EntryStatus
func (s EntryStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no transition leaves the status
func (s EntryStatus) IsTerminal() bool {
	return s == EntryStatusValidated || s == EntryStatusCanceled
}

// CanApprove returns true if the entry can be validated
func (s EntryStatus) CanApprove() bool {
	return s == EntryStatusPreEntry
}

// CanCancel returns true if the entry can be canceled
func (s EntryStatus) CanCancel() bool {
	return s == EntryStatusPreEntry
}

// CanEdit returns true if reviewer corrections are still accepted
func (s EntryStatus) CanEdit() bool {
	return s == EntryStatusPreEntry
}

// EntryOrigin records who created the entry
type EntryOrigin string

const (
	EntryOriginManual    EntryOrigin = "manual"
	EntryOriginAPI       EntryOrigin = "api"
	EntryOriginRecurring EntryOrigin = "recurring"
)

// IsValid checks if the origin is known
func (o EntryOrigin) IsValid() bool {
	switch o {
	case EntryOriginManual, EntryOriginAPI, EntryOriginRecurring:
		return true
	}
	return false
}

// Entry is an expense or revenue record moving through review.
// Once validated, AmountTotal, InstallmentCount and CategoryID never change.
type Entry struct {
	shared.BaseAggregateRoot
	Kind                  EntryKind         `json:"kind"`
	Description           string            `json:"description"`
	IssueDate             time.Time         `json:"issue_date"`
	AccrualDate           time.Time         `json:"accrual_date"`
	DueDate               *time.Time        `json:"due_date,omitempty"`
	AmountTotal           valueobject.Money `json:"amount_total"`
	InstallmentCount      int               `json:"installment_count"`
	PartnerSplitEnabled   bool              `json:"partner_split_enabled"`
	AlreadyPaid           bool              `json:"already_paid"`
	Status                EntryStatus       `json:"status"`
	Origin                EntryOrigin       `json:"origin"`
	SupplierID            *uuid.UUID        `json:"supplier_id,omitempty"`
	CategoryID            *uuid.UUID        `json:"category_id,omitempty"`
	RecurringDefinitionID *uuid.UUID        `json:"recurring_definition_id,omitempty"`
	AttachmentRef         string            `json:"attachment_ref,omitempty"`
	ProductRef            string            `json:"product_ref,omitempty"`
	ValidatedBy           *uuid.UUID        `json:"validated_by,omitempty"`
	ValidatedAt           *time.Time        `json:"validated_at,omitempty"`
	CanceledBy            *uuid.UUID        `json:"canceled_by,omitempty"`
	CanceledAt            *time.Time        `json:"canceled_at,omitempty"`
}

// NewEntryParams carries the fields of a new pre-entry
type NewEntryParams struct {
	Kind                  EntryKind
	Description           string
	IssueDate             time.Time
	AccrualDate           time.Time // defaults to IssueDate
	DueDate               *time.Time
	Amount                valueobject.Money
	InstallmentCount      int // defaults to 1
	PartnerSplitEnabled   bool
	AlreadyPaid           bool
	Origin                EntryOrigin // defaults to manual
	SupplierID            *uuid.UUID
	CategoryID            *uuid.UUID
	RecurringDefinitionID *uuid.UUID
	AttachmentRef         string
	ProductRef            string
	CreatedBy             *uuid.UUID
}

// NewPreEntry creates an entry in pre_entry status
func NewPreEntry(p NewEntryParams) (*Entry, error) {
	if !p.Kind.IsValid() {
		return nil, newValidationError(CodeInvalidKind, fmt.Sprintf("unknown entry kind %q", p.Kind))
	}
	if p.Origin == "" {
		p.Origin = EntryOriginManual
	}
	if !p.Origin.IsValid() {
		return nil, newValidationError(CodeInvalidOrigin, fmt.Sprintf("unknown entry origin %q", p.Origin))
	}
	if err := validateDescription(p.Description); err != nil {
		return nil, err
	}
	if p.Amount.IsNegative() {
		return nil, newValidationError(CodeInvalidAmount, "amount cannot be negative")
	}
	if p.InstallmentCount == 0 {
		p.InstallmentCount = 1
	}
	if p.InstallmentCount < 1 {
		return nil, newValidationError(CodeInvalidInstallmentCount,
			fmt.Sprintf("installment count must be at least 1, got %d", p.InstallmentCount))
	}
	if p.IssueDate.IsZero() {
		return nil, newValidationError(CodeInvalidDate, "issue date is required")
	}
	if p.AccrualDate.IsZero() {
		p.AccrualDate = p.IssueDate
	}

	entry := &Entry{
		BaseAggregateRoot:     shared.NewBaseAggregateRoot(),
		Kind:                  p.Kind,
		Description:           p.Description,
		IssueDate:             DateOf(p.IssueDate),
		AccrualDate:           DateOf(p.AccrualDate),
		AmountTotal:           p.Amount,
		InstallmentCount:      p.InstallmentCount,
		PartnerSplitEnabled:   p.PartnerSplitEnabled,
		AlreadyPaid:           p.AlreadyPaid,
		Status:                EntryStatusPreEntry,
		Origin:                p.Origin,
		SupplierID:            p.SupplierID,
		CategoryID:            p.CategoryID,
		RecurringDefinitionID: p.RecurringDefinitionID,
		AttachmentRef:         p.AttachmentRef,
		ProductRef:            p.ProductRef,
	}
	entry.CreatedBy = p.CreatedBy
	if p.DueDate != nil {
		due := DateOf(*p.DueDate)
		entry.DueDate = &due
	}

	entry.AddDomainEvent(NewEntryCreatedEvent(entry))

	return entry, nil
}

func (e *Entry) applyEdits(edits EntryEdits) error {
	if err := edits.Validate(); err != nil {
		return err
	}
	if edits.Description != nil {
		e.Description = *edits.Description
	}
	if edits.CategoryID != nil {
		id := *edits.CategoryID
		e.CategoryID = &id
	}
	if edits.SupplierID != nil {
		id := *edits.SupplierID
		e.SupplierID = &id
	}
	if edits.DueDate != nil {
		due := DateOf(*edits.DueDate)
		e.DueDate = &due
	}
	if edits.InstallmentCount != nil {
		e.InstallmentCount = *edits.InstallmentCount
	}
	if edits.AlreadyPaid != nil {
		e.AlreadyPaid = *edits.AlreadyPaid
	}
	e.Touch()
	return nil
}

// SaveEdits applies reviewer corrections without changing status
func (e *Entry) SaveEdits(edits EntryEdits) error {
	if !e.Status.CanEdit() {
		return ErrAlreadyFinalized(e.ID, e.Status)
	}
	if err := e.applyEdits(edits); err != nil {
		return err
	}

	e.AddDomainEvent(NewEntryEditedEvent(e, edits))

	return nil
}

// InstallmentBaseDate is the due date when set, otherwise the issue date
func (e *Entry) InstallmentBaseDate() time.Time {
	if e.DueDate != nil {
		return *e.DueDate
	}
	return e.IssueDate
}

// ApprovalInput carries everything Approve needs besides the entry itself.
// SplitConfigs is the partner split snapshot read for this approval.
type ApprovalInput struct {
	ValidatorID      uuid.UUID
	Edits            EntryEdits
	ItemMaterialized bool
	SplitConfigs     []PartnerSplitConfig
	RemainderPolicy  RemainderPolicy
	At               time.Time
}

// ApprovalOutcome lists the records validation produced. Item is nil when the
// entry already had one.
type ApprovalOutcome struct {
	Item         *EntryItem
	Installments []Installment
	Splits       []PartnerSplit
}

// Approve validates a pre-entry: applies edits, materializes the item,
// allocates installments and partner splits, and moves the entry to validated.
// On error the entry is left exactly as it was.
func (e *Entry) Approve(in ApprovalInput) (outcome *ApprovalOutcome, err error) {
	if !e.Status.CanApprove() {
		return nil, ErrAlreadyFinalized(e.ID, e.Status)
	}
	if in.ValidatorID == uuid.Nil {
		return nil, newValidationError(CodeInvalidUser, "validator user ID cannot be empty")
	}
	if in.At.IsZero() {
		in.At = time.Now()
	}
	if in.RemainderPolicy == "" {
		in.RemainderPolicy = DefaultRemainderPolicy
	}

	snapshot := *e
	defer func() {
		if err != nil {
			*e = snapshot
		}
	}()

	if err = e.applyEdits(in.Edits); err != nil {
		return nil, err
	}

	outcome = &ApprovalOutcome{}
	if !in.ItemMaterialized {
		item, itemErr := NewEntryItem(e.ID, e.Description, decimal.NewFromInt(1), e.AmountTotal)
		if itemErr != nil {
			return nil, itemErr
		}
		item.CategoryID = e.CategoryID
		item.ProductRef = e.ProductRef
		outcome.Item = item
	}

	baseDate := e.InstallmentBaseDate()
	installments, err := AllocateWithPolicy(e.AmountTotal, e.InstallmentCount, baseDate, in.RemainderPolicy)
	if err != nil {
		return nil, err
	}
	for i := range installments {
		installments[i].EntryID = e.ID
		// Pre-paid entries settled every installment on the base date
		if e.AlreadyPaid {
			if err = installments[i].MarkPaid(baseDate, installments[i].Amount); err != nil {
				return nil, err
			}
		}
	}
	outcome.Installments = installments

	if e.PartnerSplitEnabled {
		splits, splitErr := AllocateSplits(e.AmountTotal, e.IssueDate, in.SplitConfigs)
		if splitErr != nil {
			return nil, splitErr
		}
		for i := range splits {
			splits[i].EntryID = e.ID
		}
		outcome.Splits = splits
	}

	validatedAt := in.At
	validator := in.ValidatorID
	e.Status = EntryStatusValidated
	e.ValidatedBy = &validator
	e.ValidatedAt = &validatedAt
	e.UpdatedAt = validatedAt

	e.AddDomainEvent(NewEntryValidatedEvent(e, len(outcome.Installments), len(outcome.Splits)))

	return outcome, nil
}

// Cancel moves a pre-entry to canceled. The entry is never deleted.
func (e *Entry) Cancel(canceledBy uuid.UUID) error {
	if !e.Status.CanCancel() {
		return ErrAlreadyFinalized(e.ID, e.Status)
	}
	if canceledBy == uuid.Nil {
		return newValidationError(CodeInvalidUser, "canceling user ID cannot be empty")
	}

	now := time.Now()
	e.Status = EntryStatusCanceled
	e.CanceledBy = &canceledBy
	e.CanceledAt = &now
	e.UpdatedAt = now

	e.AddDomainEvent(NewEntryCanceledEvent(e))

	return nil
}

// AttachDocument sets the attachment reference of a pre-entry. Validated and
// canceled entries are final.
func (e *Entry) AttachDocument(ref string) error {
	if !e.IsPreEntry() {
		return ErrAlreadyFinalized(e.ID, e.Status)
	}
	if ref == "" {
		return newValidationError("INVALID_ATTACHMENT", "attachment reference cannot be empty")
	}
	e.AttachmentRef = ref
	e.Touch()
	return nil
}

// IsPreEntry returns true if the entry awaits review
func (e *Entry) IsPreEntry() bool {
	return e.Status == EntryStatusPreEntry
}

// IsValidated returns true if the entry was approved
func (e *Entry) IsValidated() bool {
	return e.Status == EntryStatusValidated
}

// IsCanceled returns true if the entry was canceled
func (e *Entry) IsCanceled() bool {
	return e.Status == EntryStatusCanceled
}
