package ledger

import (
	"context"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Collaborators groups the lookups the ledger services consult outside their
// own repositories. Products and Attachments are optional.
type Collaborators struct {
	Categories   ledger.CategoryCatalog
	Suppliers    ledger.SupplierCatalog
	SplitConfigs ledger.PartnerSplitConfigProvider
	Products     ledger.ProductMatcher
	Attachments  ledger.AttachmentStore
}

// approver runs the persistence half of an approval inside a caller-owned transaction
type approver struct {
	collab Collaborators
	policy ledger.RemainderPolicy
	logger *zap.Logger
}

// approve validates entry with edits applied and writes every record the
// validation produced. The caller owns the transaction: any error here must
// roll it back.
func (a *approver) approve(
	ctx context.Context,
	repos TransactionalRepositories,
	entry *ledger.Entry,
	validatorID uuid.UUID,
	edits ledger.EntryEdits,
	at time.Time,
) (*ledger.ApprovalOutcome, error) {
	if !entry.Status.CanApprove() {
		return nil, ledger.ErrAlreadyFinalized(entry.ID, entry.Status)
	}

	// Reads must use the transaction's connection: a second pool connection
	// per approval starves the pool under concurrent approvals.
	collab := repos.Lookups(a.collab)

	categoryID, supplierID := entry.CategoryID, entry.SupplierID
	if edits.CategoryID != nil {
		categoryID = edits.CategoryID
	}
	if edits.SupplierID != nil {
		supplierID = edits.SupplierID
	}
	if err := checkCatalogRefs(ctx, collab, categoryID, supplierID); err != nil {
		return nil, err
	}

	materialized, err := repos.ItemRepo().ExistsForEntry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}

	var configs []ledger.PartnerSplitConfig
	if entry.PartnerSplitEnabled {
		if collab.SplitConfigs == nil {
			return nil, ledger.ErrCollaborator("partner split configs", errNotConfigured)
		}
		configs, err = collab.SplitConfigs.Snapshot(ctx, entry.IssueDate)
		if err != nil {
			return nil, ledger.ErrCollaborator("partner split configs", err)
		}
	}

	outcome, err := entry.Approve(ledger.ApprovalInput{
		ValidatorID:      validatorID,
		Edits:            edits,
		ItemMaterialized: materialized,
		SplitConfigs:     configs,
		RemainderPolicy:  a.policy,
		At:               at,
	})
	if err != nil {
		return nil, err
	}

	// The status flip goes first so a concurrent approval loses on the version check
	if err := repos.EntryRepo().SaveWithLock(ctx, entry); err != nil {
		return nil, err
	}

	if outcome.Item != nil {
		inserted, err := repos.ItemRepo().CreateOnce(ctx, outcome.Item)
		if err != nil {
			return nil, err
		}
		if !inserted {
			a.logger.Info("Entry item already materialized, skipping",
				zap.String("entry_id", entry.ID.String()))
			outcome.Item = nil
		}
	}

	if err := repos.InstallmentRepo().CreateBatch(ctx, outcome.Installments); err != nil {
		return nil, err
	}

	if len(outcome.Splits) > 0 {
		if err := repos.SplitRepo().CreateBatch(ctx, outcome.Splits); err != nil {
			return nil, err
		}
	}

	return outcome, nil
}

// checkCatalogRefs verifies that referenced categories and suppliers exist
func checkCatalogRefs(ctx context.Context, collab Collaborators, categoryID, supplierID *uuid.UUID) error {
	if categoryID != nil {
		if collab.Categories == nil {
			return ledger.ErrCollaborator("category catalog", errNotConfigured)
		}
		ok, err := collab.Categories.CategoryExists(ctx, *categoryID)
		if err != nil {
			return ledger.ErrCollaborator("category catalog", err)
		}
		if !ok {
			return ledger.ErrUnknownCategory(*categoryID)
		}
	}
	if supplierID != nil {
		if collab.Suppliers == nil {
			return ledger.ErrCollaborator("supplier catalog", errNotConfigured)
		}
		ok, err := collab.Suppliers.SupplierExists(ctx, *supplierID)
		if err != nil {
			return ledger.ErrCollaborator("supplier catalog", err)
		}
		if !ok {
			return ledger.ErrUnknownSupplier(*supplierID)
		}
	}
	return nil
}

// publishEntryEvents writes the entry's pending events through the transaction's publisher
func publishEntryEvents(ctx context.Context, repos TransactionalRepositories, entry *ledger.Entry) error {
	events := entry.GetDomainEvents()
	if len(events) == 0 {
		return nil
	}
	if err := repos.EventPublisher().Publish(ctx, events...); err != nil {
		return err
	}
	entry.ClearDomainEvents()
	return nil
}
