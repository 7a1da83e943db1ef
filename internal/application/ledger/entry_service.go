package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/clinic-ledger/backend/internal/domain/shared/valueobject"
	"github.com/clinic-ledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errNotConfigured = errors.New("not configured")

// DefaultSuggestionLimit is the number of product suggestions returned when none is requested
const DefaultSuggestionLimit = 5

// Options tunes the ledger services. Zero values fall back to defaults.
type Options struct {
	RemainderPolicy ledger.RemainderPolicy
	MaxCatchUp      int
	Clock           func() time.Time
}

func (o Options) withDefaults() Options {
	if o.RemainderPolicy == "" {
		o.RemainderPolicy = ledger.DefaultRemainderPolicy
	}
	if o.MaxCatchUp <= 0 {
		o.MaxCatchUp = DefaultMaxCatchUp
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// EntryService drives entries through review: creation, edits, approval and cancellation
type EntryService struct {
	entryRepo       ledger.EntryRepository
	itemRepo        ledger.EntryItemRepository
	installmentRepo ledger.InstallmentRepository
	splitRepo       ledger.PartnerSplitRepository
	txScope         TransactionScope
	collab          Collaborators
	approver        *approver
	opts            Options
	logger          *zap.Logger
}

// NewEntryService creates a new EntryService
func NewEntryService(
	entryRepo ledger.EntryRepository,
	itemRepo ledger.EntryItemRepository,
	installmentRepo ledger.InstallmentRepository,
	splitRepo ledger.PartnerSplitRepository,
	txScope TransactionScope,
	collab Collaborators,
	opts Options,
	logger *zap.Logger,
) *EntryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &EntryService{
		entryRepo:       entryRepo,
		itemRepo:        itemRepo,
		installmentRepo: installmentRepo,
		splitRepo:       splitRepo,
		txScope:         txScope,
		collab:          collab,
		approver:        &approver{collab: collab, policy: opts.RemainderPolicy, logger: logger},
		opts:            opts,
		logger:          logger,
	}
}

// CreatePreEntry registers a new entry awaiting review
func (s *EntryService) CreatePreEntry(ctx context.Context, req CreateEntryRequest) (*EntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_pre_entry")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryKind, req.Kind,
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	if err := checkCatalogRefs(ctx, s.collab, req.CategoryID, req.SupplierID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	params := ledger.NewEntryParams{
		Kind:                ledger.EntryKind(req.Kind),
		Description:         req.Description,
		IssueDate:           req.IssueDate,
		DueDate:             req.DueDate,
		Amount:              toMoney(req.Amount),
		InstallmentCount:    req.InstallmentCount,
		PartnerSplitEnabled: req.PartnerSplitEnabled,
		AlreadyPaid:         req.AlreadyPaid,
		Origin:              ledger.EntryOrigin(req.Origin),
		SupplierID:          req.SupplierID,
		CategoryID:          req.CategoryID,
		ProductRef:          req.ProductRef,
		CreatedBy:           req.CreatedBy,
	}
	if req.AccrualDate != nil {
		params.AccrualDate = *req.AccrualDate
	}
	if params.ProductRef == "" {
		params.ProductRef = s.autoSuggestProduct(ctx, req.Description)
	}

	entry, err := ledger.NewPreEntry(params)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.EntryRepo().Create(ctx, entry); err != nil {
			return err
		}
		return publishEntryEvents(ctx, repos, entry)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrEntryID, entry.ID.String())
	s.logger.Info("Pre-entry created",
		zap.String("entry_id", entry.ID.String()),
		zap.String("kind", entry.Kind.String()),
		zap.String("amount", entry.AmountTotal.StringFixed()),
	)

	resp := toEntryResponse(entry)
	return &resp, nil
}

// autoSuggestProduct returns the best catalog match when it is strong enough to
// link without review. Matcher failures only cost the suggestion.
func (s *EntryService) autoSuggestProduct(ctx context.Context, description string) string {
	if s.collab.Products == nil {
		return ""
	}
	matches, err := s.collab.Products.FindSimilar(ctx, description, 1)
	if err != nil {
		s.logger.Warn("Product suggestion failed", zap.Error(err))
		return ""
	}
	if len(matches) == 0 || !matches[0].IsAutoSuggested() {
		return ""
	}
	return matches[0].ProductRef
}

// GetEntry returns an entry with its items, installments and splits
func (s *EntryService) GetEntry(ctx context.Context, id uuid.UUID) (*EntryDetailResponse, error) {
	entry, err := s.entryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := s.itemRepo.FindByEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	installments, err := s.installmentRepo.FindByEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	splits, err := s.splitRepo.FindByEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &EntryDetailResponse{
		EntryResponse: toEntryResponse(entry),
		Items:         make([]EntryItemResponse, len(items)),
		Installments:  toInstallmentResponses(installments),
		Splits:        make([]PartnerSplitResponse, len(splits)),
	}
	for i := range items {
		resp.Items[i] = toEntryItemResponse(&items[i])
	}
	for i := range splits {
		resp.Splits[i] = toPartnerSplitResponse(&splits[i])
	}
	return resp, nil
}

// ListEntries lists entries matching the filter
func (s *EntryService) ListEntries(ctx context.Context, filter EntryListFilter) ([]EntryResponse, int64, error) {
	domainFilter := ledger.EntryFilter{
		Filter:                shared.NewFilter(filter.Page, filter.PageSize, "issue_date", "desc"),
		RecurringDefinitionID: filter.RecurringDefinitionID,
		IssueFrom:             filter.IssueFrom,
		IssueTo:               filter.IssueTo,
	}
	domainFilter.Search = filter.Search
	if filter.Status != "" {
		status := ledger.EntryStatus(filter.Status)
		domainFilter.Status = &status
	}
	if filter.Kind != "" {
		kind := ledger.EntryKind(filter.Kind)
		domainFilter.Kind = &kind
	}
	if filter.Origin != "" {
		origin := ledger.EntryOrigin(filter.Origin)
		domainFilter.Origin = &origin
	}

	entries, total, err := s.entryRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return toEntryResponses(entries), total, nil
}

// SaveEdits applies reviewer corrections to a pre-entry without validating it
func (s *EntryService) SaveEdits(ctx context.Context, id uuid.UUID, req EntryEditsRequest) (*EntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "save_edits")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrEntryID, id.String())

	edits := req.ToDomain()
	if err := checkCatalogRefs(ctx, s.collab, edits.CategoryID, edits.SupplierID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var entry *ledger.Entry
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entry, err = repos.EntryRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := entry.SaveEdits(edits); err != nil {
			return err
		}
		if err := repos.EntryRepo().SaveWithLock(ctx, entry); err != nil {
			return err
		}
		return publishEntryEvents(ctx, repos, entry)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := toEntryResponse(entry)
	return &resp, nil
}

// Approve validates a pre-entry. Edits, item, installments, splits and the
// status change are committed together or not at all.
func (s *EntryService) Approve(ctx context.Context, id uuid.UUID, req ApproveEntryRequest) (*EntryDetailResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "approve_entry")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryID, id.String(),
		telemetry.SpanAttrUserID, req.ValidatorID.String(),
	)

	var (
		entry   *ledger.Entry
		outcome *ledger.ApprovalOutcome
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entry, err = repos.EntryRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		outcome, err = s.approver.approve(ctx, repos, entry, req.ValidatorID, req.Edits.ToDomain(), s.opts.Clock())
		if err != nil {
			return err
		}
		return publishEntryEvents(ctx, repos, entry)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Entry approval failed",
			zap.String("entry_id", id.String()),
			zap.Error(err),
		)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInstallmentCount, len(outcome.Installments),
		telemetry.SpanAttrSplitCount, len(outcome.Splits),
	)
	s.logger.Info("Entry validated",
		zap.String("entry_id", entry.ID.String()),
		zap.String("validated_by", req.ValidatorID.String()),
		zap.Int("installments", len(outcome.Installments)),
		zap.Int("splits", len(outcome.Splits)),
	)

	resp := &EntryDetailResponse{
		EntryResponse: toEntryResponse(entry),
		Items:         []EntryItemResponse{},
		Installments:  toInstallmentResponses(outcome.Installments),
		Splits:        make([]PartnerSplitResponse, len(outcome.Splits)),
	}
	if outcome.Item != nil {
		resp.Items = append(resp.Items, toEntryItemResponse(outcome.Item))
	}
	for i := range outcome.Splits {
		resp.Splits[i] = toPartnerSplitResponse(&outcome.Splits[i])
	}
	return resp, nil
}

// Cancel soft-deletes a pre-entry
func (s *EntryService) Cancel(ctx context.Context, id, actorID uuid.UUID) (*EntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "cancel_entry")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrEntryID, id.String())

	var entry *ledger.Entry
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entry, err = repos.EntryRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := entry.Cancel(actorID); err != nil {
			return err
		}
		if err := repos.EntryRepo().SaveWithLock(ctx, entry); err != nil {
			return err
		}
		return publishEntryEvents(ctx, repos, entry)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Entry canceled",
		zap.String("entry_id", id.String()),
		zap.String("canceled_by", actorID.String()),
	)

	resp := toEntryResponse(entry)
	return &resp, nil
}

// ListInstallments lists the installments of an entry in sequence order
func (s *EntryService) ListInstallments(ctx context.Context, entryID uuid.UUID) ([]InstallmentResponse, error) {
	if _, err := s.entryRepo.FindByID(ctx, entryID); err != nil {
		return nil, err
	}
	installments, err := s.installmentRepo.FindByEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	return toInstallmentResponses(installments), nil
}

// MarkInstallmentPaid records a payment against one installment of a validated entry.
// Missing date and amount default to today and the installment amount.
func (s *EntryService) MarkInstallmentPaid(ctx context.Context, installmentID uuid.UUID, req MarkInstallmentPaidRequest) (*InstallmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "mark_installment_paid")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrInstallmentID, installmentID.String())

	var installment *ledger.Installment
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		installment, err = repos.InstallmentRepo().FindByID(ctx, installmentID)
		if err != nil {
			return err
		}
		entry, err := repos.EntryRepo().FindByID(ctx, installment.EntryID)
		if err != nil {
			return err
		}
		if !entry.IsValidated() {
			return shared.NewConflictError(ledger.CodeEntryNotValidated,
				fmt.Sprintf("entry %s is %s, installments can only be paid on validated entries", entry.ID, entry.Status))
		}

		paidDate := s.opts.Clock()
		if req.PaidDate != nil {
			paidDate = *req.PaidDate
		}
		paidAmount := installment.Amount
		if req.PaidAmount != nil {
			paidAmount = valueobject.NewMoney(*req.PaidAmount)
		}
		if err := installment.MarkPaid(paidDate, paidAmount); err != nil {
			return err
		}
		if err := repos.InstallmentRepo().Save(ctx, installment); err != nil {
			return err
		}
		return repos.EventPublisher().Publish(ctx, ledger.NewInstallmentPaidEvent(installment))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := toInstallmentResponse(installment)
	return &resp, nil
}

// AttachDocument uploads a document and records its reference on the entry
func (s *EntryService) AttachDocument(
	ctx context.Context,
	entryID uuid.UUID,
	filename, contentType string,
	body io.Reader,
	size int64,
) (*EntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "attach_document")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrEntryID, entryID.String())

	if s.collab.Attachments == nil {
		return nil, ledger.ErrCollaborator("attachment store", errNotConfigured)
	}

	// Fail fast before uploading anything for an entry that cannot take it
	current, err := s.entryRepo.FindByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if !current.IsPreEntry() {
		return nil, ledger.ErrAlreadyFinalized(current.ID, current.Status)
	}

	key := path.Join("entries", entryID.String(), uuid.NewString()+"-"+path.Base(filename))
	ref, err := s.collab.Attachments.Put(ctx, key, contentType, body, size)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, ledger.ErrCollaborator("attachment store", err)
	}

	var entry *ledger.Entry
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entry, err = repos.EntryRepo().FindByID(ctx, entryID)
		if err != nil {
			return err
		}
		if err := entry.AttachDocument(ref); err != nil {
			return err
		}
		return repos.EntryRepo().SaveWithLock(ctx, entry)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Document attached",
		zap.String("entry_id", entryID.String()),
		zap.String("ref", ref),
	)

	resp := toEntryResponse(entry)
	return &resp, nil
}

// SuggestProducts returns catalog products resembling the description, best first.
// Matches below the no-match threshold are dropped.
func (s *EntryService) SuggestProducts(ctx context.Context, description string, limit int) ([]ledger.ProductMatch, error) {
	if s.collab.Products == nil {
		return nil, ledger.ErrCollaborator("product matcher", errNotConfigured)
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	matches, err := s.collab.Products.FindSimilar(ctx, description, limit)
	if err != nil {
		return nil, ledger.ErrCollaborator("product matcher", err)
	}
	result := make([]ledger.ProductMatch, 0, len(matches))
	for _, m := range matches {
		if !m.IsNoMatch() {
			result = append(result, m)
		}
	}
	return result, nil
}
