package ledger

import (
	"context"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/domain/shared"
)

// TransactionScope provides transactional access to ledger repositories.
// All repository operations made through fn share one database transaction and
// are committed or rolled back together. Events published through
// EventPublisher are written to the outbox in the same transaction.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories within a transaction.
type TransactionalRepositories interface {
	EntryRepo() ledger.EntryRepository
	ItemRepo() ledger.EntryItemRepository
	InstallmentRepo() ledger.InstallmentRepository
	SplitRepo() ledger.PartnerSplitRepository
	DefinitionRepo() ledger.RecurringDefinitionRepository
	// EventPublisher writes domain events to the transactional outbox
	EventPublisher() shared.EventPublisher
	// Lookups rebinds the catalog and split config reads of c onto the
	// transaction where the implementation can; the rest come back unchanged
	Lookups(c Collaborators) Collaborators
}

// NoOpTransactionScope runs the function against plain repositories without a transaction.
// This is useful for testing.
type NoOpTransactionScope struct {
	entryRepo       ledger.EntryRepository
	itemRepo        ledger.EntryItemRepository
	installmentRepo ledger.InstallmentRepository
	splitRepo       ledger.PartnerSplitRepository
	definitionRepo  ledger.RecurringDefinitionRepository
	publisher       shared.EventPublisher
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	entryRepo ledger.EntryRepository,
	itemRepo ledger.EntryItemRepository,
	installmentRepo ledger.InstallmentRepository,
	splitRepo ledger.PartnerSplitRepository,
	definitionRepo ledger.RecurringDefinitionRepository,
	publisher shared.EventPublisher,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		entryRepo:       entryRepo,
		itemRepo:        itemRepo,
		installmentRepo: installmentRepo,
		splitRepo:       splitRepo,
		definitionRepo:  definitionRepo,
		publisher:       publisher,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// EntryRepo returns the entry repository.
func (s *NoOpTransactionScope) EntryRepo() ledger.EntryRepository { return s.entryRepo }

// ItemRepo returns the entry item repository.
func (s *NoOpTransactionScope) ItemRepo() ledger.EntryItemRepository { return s.itemRepo }

// InstallmentRepo returns the installment repository.
func (s *NoOpTransactionScope) InstallmentRepo() ledger.InstallmentRepository {
	return s.installmentRepo
}

// SplitRepo returns the partner split repository.
func (s *NoOpTransactionScope) SplitRepo() ledger.PartnerSplitRepository { return s.splitRepo }

// DefinitionRepo returns the recurring definition repository.
func (s *NoOpTransactionScope) DefinitionRepo() ledger.RecurringDefinitionRepository {
	return s.definitionRepo
}

// EventPublisher returns the event publisher.
func (s *NoOpTransactionScope) EventPublisher() shared.EventPublisher { return s.publisher }

// Lookups returns c as is; there is no transaction to follow
func (s *NoOpTransactionScope) Lookups(c Collaborators) Collaborators { return c }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
