package ledger

import (
	"time"

	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/clinic-ledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Aggregate and event type names
const (
	AggregateTypeEntry = "Entry"

	EventTypeEntryCreated    = "EntryCreated"
	EventTypeEntryEdited     = "EntryEdited"
	EventTypeEntryValidated  = "EntryValidated"
	EventTypeEntryCanceled   = "EntryCanceled"
	EventTypeInstallmentPaid = "InstallmentPaid"
)

// EntryCreatedEvent is raised when a pre-entry is created
type EntryCreatedEvent struct {
	shared.BaseDomainEvent
	EntryID     uuid.UUID         `json:"entry_id"`
	Kind        EntryKind         `json:"kind"`
	Origin      EntryOrigin       `json:"origin"`
	AmountTotal valueobject.Money `json:"amount_total"`
	IssueDate   time.Time         `json:"issue_date"`
}

// NewEntryCreatedEvent creates a new EntryCreatedEvent
func NewEntryCreatedEvent(e *Entry) *EntryCreatedEvent {
	return &EntryCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEntryCreated, AggregateTypeEntry, e.ID),
		EntryID:         e.ID,
		Kind:            e.Kind,
		Origin:          e.Origin,
		AmountTotal:     e.AmountTotal,
		IssueDate:       e.IssueDate,
	}
}

// EntryEditedEvent is raised when reviewer corrections are saved on a pre-entry
type EntryEditedEvent struct {
	shared.BaseDomainEvent
	EntryID uuid.UUID  `json:"entry_id"`
	Edits   EntryEdits `json:"edits"`
}

// NewEntryEditedEvent creates a new EntryEditedEvent
func NewEntryEditedEvent(e *Entry, edits EntryEdits) *EntryEditedEvent {
	return &EntryEditedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEntryEdited, AggregateTypeEntry, e.ID),
		EntryID:         e.ID,
		Edits:           edits,
	}
}

// EntryValidatedEvent is raised when an entry is approved
type EntryValidatedEvent struct {
	shared.BaseDomainEvent
	EntryID          uuid.UUID         `json:"entry_id"`
	Kind             EntryKind         `json:"kind"`
	Origin           EntryOrigin       `json:"origin"`
	AmountTotal      valueobject.Money `json:"amount_total"`
	InstallmentCount int               `json:"installment_count"`
	SplitCount       int               `json:"split_count"`
	AlreadyPaid      bool              `json:"already_paid"`
	ValidatedBy      uuid.UUID         `json:"validated_by"`
	ValidatedAt      time.Time         `json:"validated_at"`
}

// NewEntryValidatedEvent creates a new EntryValidatedEvent
func NewEntryValidatedEvent(e *Entry, installmentCount, splitCount int) *EntryValidatedEvent {
	evt := &EntryValidatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeEntryValidated, AggregateTypeEntry, e.ID),
		EntryID:          e.ID,
		Kind:             e.Kind,
		Origin:           e.Origin,
		AmountTotal:      e.AmountTotal,
		InstallmentCount: installmentCount,
		SplitCount:       splitCount,
		AlreadyPaid:      e.AlreadyPaid,
	}
	if e.ValidatedBy != nil {
		evt.ValidatedBy = *e.ValidatedBy
	}
	if e.ValidatedAt != nil {
		evt.ValidatedAt = *e.ValidatedAt
	}
	return evt
}

// EntryCanceledEvent is raised when a pre-entry is canceled
type EntryCanceledEvent struct {
	shared.BaseDomainEvent
	EntryID    uuid.UUID `json:"entry_id"`
	Kind       EntryKind `json:"kind"`
	CanceledBy uuid.UUID `json:"canceled_by"`
}

// NewEntryCanceledEvent creates a new EntryCanceledEvent
func NewEntryCanceledEvent(e *Entry) *EntryCanceledEvent {
	evt := &EntryCanceledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEntryCanceled, AggregateTypeEntry, e.ID),
		EntryID:         e.ID,
		Kind:            e.Kind,
	}
	if e.CanceledBy != nil {
		evt.CanceledBy = *e.CanceledBy
	}
	return evt
}

// InstallmentPaidEvent is raised when an installment is settled after validation
type InstallmentPaidEvent struct {
	shared.BaseDomainEvent
	EntryID        uuid.UUID         `json:"entry_id"`
	InstallmentID  uuid.UUID         `json:"installment_id"`
	SequenceNumber int               `json:"sequence_number"`
	PaidAmount     valueobject.Money `json:"paid_amount"`
	PaidDate       time.Time         `json:"paid_date"`
}

// NewInstallmentPaidEvent creates a new InstallmentPaidEvent
func NewInstallmentPaidEvent(i *Installment) *InstallmentPaidEvent {
	evt := &InstallmentPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInstallmentPaid, AggregateTypeEntry, i.EntryID),
		EntryID:         i.EntryID,
		InstallmentID:   i.ID,
		SequenceNumber:  i.SequenceNumber,
	}
	if i.PaidAmount != nil {
		evt.PaidAmount = *i.PaidAmount
	}
	if i.PaidDate != nil {
		evt.PaidDate = *i.PaidDate
	}
	return evt
}
