package ledger

import (
	"context"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EntryFilter defines filtering options for entry queries
type EntryFilter struct {
	shared.Filter
	Status                *EntryStatus
	Kind                  *EntryKind
	Origin                *EntryOrigin
	RecurringDefinitionID *uuid.UUID
	IssueFrom             *time.Time
	IssueTo               *time.Time
}

// EntryRepository defines the interface for entry persistence
type EntryRepository interface {
	// FindByID finds an entry by ID; a missing entry is a not-found error
	FindByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// FindAll finds entries matching the filter and the total count before paging
	FindAll(ctx context.Context, filter EntryFilter) ([]Entry, int64, error)

	// FindByRecurringDefinition lists entries materialized from a definition, newest first
	FindByRecurringDefinition(ctx context.Context, definitionID uuid.UUID) ([]Entry, error)

	// Create inserts a new entry
	Create(ctx context.Context, entry *Entry) error

	// SaveWithLock updates an entry if its stored version still equals entry.Version,
	// then increments entry.Version. A lost race is a conflict error.
	SaveWithLock(ctx context.Context, entry *Entry) error
}

// EntryItemRepository persists materialized entry items. At most one item exists per entry.
type EntryItemRepository interface {
	// ExistsForEntry reports whether an item was already materialized for the entry
	ExistsForEntry(ctx context.Context, entryID uuid.UUID) (bool, error)

	// CreateOnce inserts the item unless one already exists for its entry.
	// It reports whether the item was inserted.
	CreateOnce(ctx context.Context, item *EntryItem) (bool, error)

	// FindByEntry lists the items of an entry
	FindByEntry(ctx context.Context, entryID uuid.UUID) ([]EntryItem, error)
}

// InstallmentRepository persists installments
type InstallmentRepository interface {
	// CreateBatch inserts all installments of an entry
	CreateBatch(ctx context.Context, installments []Installment) error

	// FindByEntry lists installments ordered by sequence number
	FindByEntry(ctx context.Context, entryID uuid.UUID) ([]Installment, error)

	// FindByID finds an installment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Installment, error)

	// Save updates an installment
	Save(ctx context.Context, installment *Installment) error
}

// PartnerSplitRepository persists partner splits
type PartnerSplitRepository interface {
	// CreateBatch inserts all splits of an entry
	CreateBatch(ctx context.Context, splits []PartnerSplit) error

	// FindByEntry lists the splits of an entry
	FindByEntry(ctx context.Context, entryID uuid.UUID) ([]PartnerSplit, error)
}

// RecurringDefinitionFilter defines filtering options for recurring definition queries
type RecurringDefinitionFilter struct {
	shared.Filter
	Active *bool
	Kind   *EntryKind
}

// RecurringDefinitionRepository defines the interface for recurring definition persistence
type RecurringDefinitionRepository interface {
	// FindByID finds a definition by ID; a missing definition is a not-found error
	FindByID(ctx context.Context, id uuid.UUID) (*RecurringDefinition, error)

	// FindDue lists active definitions whose next occurrence is on or before asOf
	FindDue(ctx context.Context, asOf time.Time, limit int) ([]RecurringDefinition, error)

	// FindAll lists definitions matching the filter and the total count before paging
	FindAll(ctx context.Context, filter RecurringDefinitionFilter) ([]RecurringDefinition, int64, error)

	// Create inserts a new definition
	Create(ctx context.Context, def *RecurringDefinition) error

	// SaveWithLock updates a definition with an optimistic version check
	SaveWithLock(ctx context.Context, def *RecurringDefinition) error
}
