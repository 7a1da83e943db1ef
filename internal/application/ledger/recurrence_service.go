package ledger

import (
	"context"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/clinic-ledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultMaxCatchUp bounds how many missed occurrences one tick materializes per definition
	DefaultMaxCatchUp = 12
	// DefaultTickBatchSize bounds how many due definitions one tick loads
	DefaultTickBatchSize = 100
)

// RecurrenceService manages recurring definitions and materializes their occurrences
type RecurrenceService struct {
	definitionRepo ledger.RecurringDefinitionRepository
	entryRepo      ledger.EntryRepository
	txScope        TransactionScope
	collab         Collaborators
	approver       *approver
	opts           Options
	logger         *zap.Logger
}

// NewRecurrenceService creates a new RecurrenceService
func NewRecurrenceService(
	definitionRepo ledger.RecurringDefinitionRepository,
	entryRepo ledger.EntryRepository,
	txScope TransactionScope,
	collab Collaborators,
	opts Options,
	logger *zap.Logger,
) *RecurrenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &RecurrenceService{
		definitionRepo: definitionRepo,
		entryRepo:      entryRepo,
		txScope:        txScope,
		collab:         collab,
		approver:       &approver{collab: collab, policy: opts.RemainderPolicy, logger: logger},
		opts:           opts,
		logger:         logger,
	}
}

// CreateRecurringDefinition registers a new active recurring definition
func (s *RecurrenceService) CreateRecurringDefinition(ctx context.Context, req CreateRecurringDefinitionRequest) (*RecurringDefinitionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_recurring_definition")
	defer span.End()

	if err := checkCatalogRefs(ctx, s.collab, req.CategoryID, req.SupplierID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	def, err := ledger.NewRecurringDefinition(ledger.RecurringDefinitionParams{
		Kind:                ledger.EntryKind(req.Kind),
		Description:         req.Description,
		Amount:              toMoney(req.Amount),
		Frequency:           ledger.Frequency(req.Frequency),
		DueDayOfMonth:       req.DueDayOfMonth,
		AdjustForWeekend:    req.AdjustForWeekend,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		CategoryID:          req.CategoryID,
		SupplierID:          req.SupplierID,
		InstallmentCount:    req.InstallmentCount,
		AutoValidate:        req.AutoValidate,
		PartnerSplitEnabled: req.PartnerSplitEnabled,
		CreatedBy:           req.CreatedBy,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.DefinitionRepo().Create(ctx, def); err != nil {
			return err
		}
		return publishDefinitionEvents(ctx, repos, def)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrDefinitionID, def.ID.String())
	s.logger.Info("Recurring definition created",
		zap.String("definition_id", def.ID.String()),
		zap.String("frequency", def.Frequency.String()),
		zap.Time("next_occurrence", def.NextOccurrenceDate),
	)

	resp := toRecurringDefinitionResponse(def)
	return &resp, nil
}

// GetRecurringDefinition returns one definition
func (s *RecurrenceService) GetRecurringDefinition(ctx context.Context, id uuid.UUID) (*RecurringDefinitionResponse, error) {
	def, err := s.definitionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toRecurringDefinitionResponse(def)
	return &resp, nil
}

// ListRecurringDefinitions lists definitions matching the filter
func (s *RecurrenceService) ListRecurringDefinitions(ctx context.Context, filter RecurringDefinitionListFilter) ([]RecurringDefinitionResponse, int64, error) {
	domainFilter := ledger.RecurringDefinitionFilter{
		Filter: shared.NewFilter(filter.Page, filter.PageSize, "next_occurrence_date", "asc"),
		Active: filter.Active,
	}
	if filter.Kind != "" {
		kind := ledger.EntryKind(filter.Kind)
		domainFilter.Kind = &kind
	}

	defs, total, err := s.definitionRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]RecurringDefinitionResponse, len(defs))
	for i := range defs {
		responses[i] = toRecurringDefinitionResponse(&defs[i])
	}
	return responses, total, nil
}

// ToggleRecurringDefinition pauses or resumes a definition. Entries already
// materialized are not touched.
func (s *RecurrenceService) ToggleRecurringDefinition(ctx context.Context, id uuid.UUID, active bool) (*RecurringDefinitionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "toggle_recurring_definition")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrDefinitionID, id.String())

	var def *ledger.RecurringDefinition
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		def, err = repos.DefinitionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !def.SetActive(active) {
			return nil
		}
		if err := repos.DefinitionRepo().SaveWithLock(ctx, def); err != nil {
			return err
		}
		return publishDefinitionEvents(ctx, repos, def)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Recurring definition toggled",
		zap.String("definition_id", id.String()),
		zap.Bool("active", def.Active),
	)

	resp := toRecurringDefinitionResponse(def)
	return &resp, nil
}

// ListHistory lists the entries a definition has materialized, newest first
func (s *RecurrenceService) ListHistory(ctx context.Context, definitionID uuid.UUID) ([]EntryResponse, error) {
	if _, err := s.definitionRepo.FindByID(ctx, definitionID); err != nil {
		return nil, err
	}
	entries, err := s.entryRepo.FindByRecurringDefinition(ctx, definitionID)
	if err != nil {
		return nil, err
	}
	return toEntryResponses(entries), nil
}

// Tick materializes every occurrence due as of now. Each definition is
// processed in its own transaction, so one failing definition does not hold
// back the others. A definition that fell behind catches up at most
// MaxCatchUp occurrences per tick.
func (s *RecurrenceService) Tick(ctx context.Context, now time.Time) (*TickResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "recurrence_tick")
	defer span.End()

	if now.IsZero() {
		now = s.opts.Clock()
	}

	due, err := s.definitionRepo.FindDue(ctx, now, DefaultTickBatchSize)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &TickResult{
		RunAt:        now,
		Materialized: []MaterializedEntry{},
	}
	for i := range due {
		defID := due[i].ID
		produced, err := s.materializeDue(ctx, defID, now)
		result.Processed++
		if err != nil {
			if shared.IsConflict(err) {
				// Another runner advanced the definition first
				s.logger.Info("Recurring definition already advanced, skipping",
					zap.String("definition_id", defID.String()))
				continue
			}
			s.logger.Error("Failed to materialize recurring definition",
				zap.String("definition_id", defID.String()),
				zap.Error(err),
			)
			result.Failures = append(result.Failures, TickFailure{DefinitionID: defID, Error: err.Error()})
			continue
		}
		for _, m := range produced {
			telemetry.AddEvent(span, "occurrence_materialized",
				telemetry.SpanAttrDefinitionID, m.DefinitionID.String(),
				telemetry.SpanAttrEntryID, m.EntryID.String(),
				"occurrence", m.OccurrenceDate.Format(time.DateOnly),
			)
		}
		result.Materialized = append(result.Materialized, produced...)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrDefinitionCount, result.Processed,
		telemetry.SpanAttrEntryCount, len(result.Materialized),
	)
	if len(result.Materialized) > 0 || len(result.Failures) > 0 {
		s.logger.Info("Recurrence tick completed",
			zap.Int("definitions", result.Processed),
			zap.Int("materialized", len(result.Materialized)),
			zap.Int("failures", len(result.Failures)),
		)
	}

	return result, nil
}

// materializeDue creates the pending entries of one definition inside a single
// transaction and advances its next occurrence date with a version check
func (s *RecurrenceService) materializeDue(ctx context.Context, definitionID uuid.UUID, now time.Time) ([]MaterializedEntry, error) {
	var produced []MaterializedEntry
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		produced = nil

		def, err := repos.DefinitionRepo().FindByID(ctx, definitionID)
		if err != nil {
			return err
		}

		for n := 0; n < s.opts.MaxCatchUp && def.IsDue(now); n++ {
			occurrence := def.NextOccurrenceDate
			entry, err := def.Materialize(now)
			if err != nil {
				return err
			}
			if err := repos.EntryRepo().Create(ctx, entry); err != nil {
				return err
			}
			if def.AutoValidate {
				if err := s.autoValidate(ctx, repos, entry, now); err != nil {
					return err
				}
			}
			if err := publishEntryEvents(ctx, repos, entry); err != nil {
				return err
			}
			produced = append(produced, MaterializedEntry{
				DefinitionID:   def.ID,
				EntryID:        entry.ID,
				OccurrenceDate: occurrence,
				Status:         entry.Status.String(),
			})
		}

		if len(produced) == 0 {
			return nil
		}
		if err := repos.DefinitionRepo().SaveWithLock(ctx, def); err != nil {
			return err
		}
		return publishDefinitionEvents(ctx, repos, def)
	})
	if err != nil {
		return nil, err
	}
	return produced, nil
}

// autoValidate approves a freshly materialized entry as the system user. An
// entry the approval rejects stays a pre-entry for manual review; the
// rejection happens before any write, so the transaction stays usable.
func (s *RecurrenceService) autoValidate(ctx context.Context, repos TransactionalRepositories, entry *ledger.Entry, now time.Time) error {
	_, err := s.approver.approve(ctx, repos, entry, ledger.SystemUserID, ledger.EntryEdits{}, now)
	if err == nil {
		return nil
	}
	if shared.IsValidation(err) {
		s.logger.Warn("Auto-validation rejected, entry left for review",
			zap.String("entry_id", entry.ID.String()),
			zap.Error(err),
		)
		return nil
	}
	return err
}

// publishDefinitionEvents writes the definition's pending events through the transaction's publisher
func publishDefinitionEvents(ctx context.Context, repos TransactionalRepositories, def *ledger.RecurringDefinition) error {
	events := def.GetDomainEvents()
	if len(events) == 0 {
		return nil
	}
	if err := repos.EventPublisher().Publish(ctx, events...); err != nil {
		return err
	}
	def.ClearDomainEvents()
	return nil
}
