package persistence

import (
	"context"

	appledger "github.com/clinic-ledger/backend/internal/application/ledger"
	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxWriter writes domain events to the outbox using the caller's transaction
type OutboxWriter interface {
	PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error
}

// GormTransactionScope implements TransactionScope using GORM transactions.
// Repository writes and outbox inserts made inside Execute commit together.
type GormTransactionScope struct {
	db     *gorm.DB
	outbox OutboxWriter
}

// NewGormTransactionScope creates a new GormTransactionScope.
// A nil outbox drops published events.
func NewGormTransactionScope(db *gorm.DB, outbox OutboxWriter) *GormTransactionScope {
	return &GormTransactionScope{db: db, outbox: outbox}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, outbox: s.outbox})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx     *gorm.DB
	outbox OutboxWriter
}

// EntryRepo returns the entry repository scoped to the current transaction.
func (r *gormTransactionalRepositories) EntryRepo() ledger.EntryRepository {
	return NewGormEntryRepository(r.tx)
}

// ItemRepo returns the entry item repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ItemRepo() ledger.EntryItemRepository {
	return NewGormEntryItemRepository(r.tx)
}

// InstallmentRepo returns the installment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) InstallmentRepo() ledger.InstallmentRepository {
	return NewGormInstallmentRepository(r.tx)
}

// SplitRepo returns the partner split repository scoped to the current transaction.
func (r *gormTransactionalRepositories) SplitRepo() ledger.PartnerSplitRepository {
	return NewGormPartnerSplitRepository(r.tx)
}

// DefinitionRepo returns the recurring definition repository scoped to the current transaction.
func (r *gormTransactionalRepositories) DefinitionRepo() ledger.RecurringDefinitionRepository {
	return NewGormRecurringDefinitionRepository(r.tx)
}

// EventPublisher returns a publisher that writes to the outbox inside the transaction.
func (r *gormTransactionalRepositories) EventPublisher() shared.EventPublisher {
	return &txOutboxPublisher{tx: r.tx, outbox: r.outbox}
}

// Lookups points the gorm-backed catalog and split config providers of c at
// the transaction. Other implementations are left untouched.
func (r *gormTransactionalRepositories) Lookups(c appledger.Collaborators) appledger.Collaborators {
	if catalog, ok := c.Categories.(*GormCatalog); ok {
		c.Categories = catalog.WithTx(r.tx)
	}
	if catalog, ok := c.Suppliers.(*GormCatalog); ok {
		c.Suppliers = catalog.WithTx(r.tx)
	}
	if provider, ok := c.SplitConfigs.(*GormPartnerSplitConfigProvider); ok {
		c.SplitConfigs = provider.WithTx(r.tx)
	}
	return c
}

type txOutboxPublisher struct {
	tx     *gorm.DB
	outbox OutboxWriter
}

func (p *txOutboxPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if p.outbox == nil || len(events) == 0 {
		return nil
	}
	if err := p.outbox.PublishWithTx(ctx, p.tx, events...); err != nil {
		return ledger.ErrRepository("write outbox", err)
	}
	return nil
}

var (
	_ appledger.TransactionScope          = (*GormTransactionScope)(nil)
	_ appledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
