package ledger

import (
	"fmt"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/clinic-ledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// RecurringDefinition describes an expense or revenue that repeats on a fixed
// schedule. Deactivating it pauses generation; materialized entries are kept.
type RecurringDefinition struct {
	shared.BaseAggregateRoot
	Kind                EntryKind         `json:"kind"`
	Description         string            `json:"description"`
	Amount              valueobject.Money `json:"amount"`
	Frequency           Frequency         `json:"frequency"`
	DueDayOfMonth       int               `json:"due_day_of_month"`
	AdjustForWeekend    bool              `json:"adjust_for_weekend"`
	StartDate           time.Time         `json:"start_date"`
	EndDate             *time.Time        `json:"end_date,omitempty"`
	Active              bool              `json:"active"`
	NextOccurrenceDate  time.Time         `json:"next_occurrence_date"`
	CategoryID          *uuid.UUID        `json:"category_id,omitempty"`
	SupplierID          *uuid.UUID        `json:"supplier_id,omitempty"`
	InstallmentCount    int               `json:"installment_count"`
	AutoValidate        bool              `json:"auto_validate"`
	PartnerSplitEnabled bool              `json:"partner_split_enabled"`
}

// RecurringDefinitionParams carries the fields of a new recurring definition
type RecurringDefinitionParams struct {
	Kind                EntryKind
	Description         string
	Amount              valueobject.Money
	Frequency           Frequency
	DueDayOfMonth       int
	AdjustForWeekend    bool
	StartDate           time.Time
	EndDate             *time.Time
	CategoryID          *uuid.UUID
	SupplierID          *uuid.UUID
	InstallmentCount    int // defaults to 1
	AutoValidate        bool
	PartnerSplitEnabled bool
	CreatedBy           *uuid.UUID
}

// NewRecurringDefinition creates an active definition whose first occurrence is
// the first scheduled date on or after the start date
func NewRecurringDefinition(p RecurringDefinitionParams) (*RecurringDefinition, error) {
	if !p.Kind.IsValid() {
		return nil, newValidationError(CodeInvalidKind, fmt.Sprintf("unknown entry kind %q", p.Kind))
	}
	if err := validateDescription(p.Description); err != nil {
		return nil, err
	}
	if p.Amount.IsNegative() {
		return nil, newValidationError(CodeInvalidAmount, "amount cannot be negative")
	}
	if p.StartDate.IsZero() {
		return nil, newValidationError(CodeInvalidDate, "start date is required")
	}
	if p.InstallmentCount == 0 {
		p.InstallmentCount = 1
	}
	if p.InstallmentCount < 1 {
		return nil, newValidationError(CodeInvalidInstallmentCount,
			fmt.Sprintf("installment count must be at least 1, got %d", p.InstallmentCount))
	}

	start := DateOf(p.StartDate)
	first, err := OccurrenceOnOrAfter(start, p.Frequency, p.DueDayOfMonth, start)
	if err != nil {
		return nil, err
	}

	def := &RecurringDefinition{
		BaseAggregateRoot:   shared.NewBaseAggregateRoot(),
		Kind:                p.Kind,
		Description:         p.Description,
		Amount:              p.Amount,
		Frequency:           p.Frequency,
		DueDayOfMonth:       p.DueDayOfMonth,
		AdjustForWeekend:    p.AdjustForWeekend,
		StartDate:           start,
		Active:              true,
		NextOccurrenceDate:  first,
		CategoryID:          p.CategoryID,
		SupplierID:          p.SupplierID,
		InstallmentCount:    p.InstallmentCount,
		AutoValidate:        p.AutoValidate,
		PartnerSplitEnabled: p.PartnerSplitEnabled,
	}
	def.CreatedBy = p.CreatedBy
	if p.EndDate != nil {
		end := DateOf(*p.EndDate)
		if end.Before(start) {
			return nil, newValidationError(CodeInvalidDate, "end date cannot be before start date")
		}
		def.EndDate = &end
	}

	def.AddDomainEvent(NewRecurringDefinitionCreatedEvent(def))

	return def, nil
}

// SetActive pauses or resumes generation. It reports whether the flag changed.
func (d *RecurringDefinition) SetActive(active bool) bool {
	if d.Active == active {
		return false
	}
	d.Active = active
	d.Touch()

	d.AddDomainEvent(NewRecurringDefinitionToggledEvent(d))

	return true
}

// Exhausted returns true once the next occurrence lies beyond the end date
func (d *RecurringDefinition) Exhausted() bool {
	return d.EndDate != nil && d.NextOccurrenceDate.After(*d.EndDate)
}

// IsDue reports whether an occurrence should be materialized as of now
func (d *RecurringDefinition) IsDue(now time.Time) bool {
	return d.Active && !d.Exhausted() && !d.NextOccurrenceDate.After(DateOf(now))
}

// Materialize creates the pre-entry for the pending occurrence and advances
// NextOccurrenceDate to the following period. The due date is moved off
// weekends when AdjustForWeekend is set; the issue and accrual dates keep the
// scheduled occurrence.
func (d *RecurringDefinition) Materialize(now time.Time) (*Entry, error) {
	if !d.IsDue(now) {
		return nil, shared.NewConflictError(CodeDefinitionNotDue,
			fmt.Sprintf("recurring definition %s has nothing due on %s", d.ID, DateOf(now).Format(time.DateOnly)))
	}

	occurrence := d.NextOccurrenceDate
	due := AdjustForWeekend(occurrence, d.AdjustForWeekend)
	defID := d.ID

	entry, err := NewPreEntry(NewEntryParams{
		Kind:                  d.Kind,
		Description:           d.Description,
		IssueDate:             occurrence,
		AccrualDate:           occurrence,
		DueDate:               &due,
		Amount:                d.Amount,
		InstallmentCount:      d.InstallmentCount,
		PartnerSplitEnabled:   d.PartnerSplitEnabled,
		Origin:                EntryOriginRecurring,
		SupplierID:            d.SupplierID,
		CategoryID:            d.CategoryID,
		RecurringDefinitionID: &defID,
		CreatedBy:             d.CreatedBy,
	})
	if err != nil {
		return nil, err
	}

	next, err := OccurrenceAfter(d.StartDate, d.Frequency, d.DueDayOfMonth, occurrence)
	if err != nil {
		return nil, err
	}
	d.NextOccurrenceDate = next
	d.Touch()

	d.AddDomainEvent(NewRecurringEntryMaterializedEvent(d, entry, occurrence))

	return entry, nil
}
