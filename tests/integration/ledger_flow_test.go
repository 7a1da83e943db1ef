//go:build integration

package integration

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	appledger "github.com/clinic-ledger/backend/internal/application/ledger"
	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/clinic-ledger/backend/internal/infrastructure/event"
	"github.com/clinic-ledger/backend/internal/infrastructure/persistence"
	"github.com/clinic-ledger/backend/internal/infrastructure/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

// recordingHandler collects the events the outbox processor delivers
type recordingHandler struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (h *recordingHandler) EventTypes() []string { return nil }

func (h *recordingHandler) Handle(_ context.Context, e shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func (h *recordingHandler) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.events))
	for i, e := range h.events {
		out[i] = e.EventType()
	}
	return out
}

type ledgerStack struct {
	db          *TestDB
	entries     *appledger.EntryService
	definitions *appledger.RecurrenceService
	processor   *event.OutboxProcessor
	delivered   *recordingHandler
	attachments *storage.MemoryStore
}

func newLedgerStack(t *testing.T) *ledgerStack {
	t.Helper()
	tdb := NewTestDB(t)
	log := zap.NewNop()

	serializer := event.NewEventSerializer()
	event.RegisterLedgerEvents(serializer)

	bus := event.NewInMemoryEventBus(log)
	delivered := &recordingHandler{}
	bus.Subscribe(delivered)

	attachments := storage.NewMemoryStore()
	catalog := persistence.NewGormCatalog(tdb.DB)
	collab := appledger.Collaborators{
		Categories:   catalog,
		Suppliers:    catalog,
		SplitConfigs: persistence.NewGormPartnerSplitConfigProvider(tdb.DB),
		Products:     persistence.NewGormProductMatcher(tdb.DB),
		Attachments:  attachments,
	}
	txScope := persistence.NewGormTransactionScope(tdb.DB, event.NewOutboxPublisher(serializer))
	entryRepo := persistence.NewGormEntryRepository(tdb.DB)

	return &ledgerStack{
		db: tdb,
		entries: appledger.NewEntryService(
			entryRepo,
			persistence.NewGormEntryItemRepository(tdb.DB),
			persistence.NewGormInstallmentRepository(tdb.DB),
			persistence.NewGormPartnerSplitRepository(tdb.DB),
			txScope, collab, appledger.Options{}, log,
		),
		definitions: appledger.NewRecurrenceService(
			persistence.NewGormRecurringDefinitionRepository(tdb.DB),
			entryRepo, txScope, collab, appledger.Options{}, log,
		),
		processor: event.NewOutboxProcessor(
			event.NewGormOutboxRepository(tdb.DB), bus, serializer,
			event.DefaultOutboxProcessorConfig(), log,
		),
		delivered:   delivered,
		attachments: attachments,
	}
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLedger_ApproveFlow(t *testing.T) {
	s := newLedgerStack(t)
	ctx := context.Background()

	categoryID := s.db.SeedCategory("Aluguel", "expense")
	supplierID := s.db.SeedSupplier("Imobiliaria Central")
	partnerA := s.db.SeedPartnerSplitConfig("60", day("2024-01-01"))
	partnerB := s.db.SeedPartnerSplitConfig("40", day("2024-01-01"))
	userID := uuid.New()
	dueDate := day("2024-05-10")

	created, err := s.entries.CreatePreEntry(ctx, appledger.CreateEntryRequest{
		Kind:                "expense",
		Description:         "Aluguel sala 2",
		Amount:              decimal.RequireFromString("100.00"),
		IssueDate:           day("2024-05-01"),
		DueDate:             &dueDate,
		InstallmentCount:    3,
		PartnerSplitEnabled: true,
		Origin:              "manual",
		CategoryID:          &categoryID,
		SupplierID:          &supplierID,
		CreatedBy:           &userID,
	})
	require.NoError(t, err)
	assert.Equal(t, "pre_entry", created.Status)

	t.Run("edits are saved on the pre-entry", func(t *testing.T) {
		desc := "Aluguel sala 2 - maio"
		edited, err := s.entries.SaveEdits(ctx, created.ID, appledger.EntryEditsRequest{Description: &desc})
		require.NoError(t, err)
		assert.Equal(t, desc, edited.Description)
		assert.Equal(t, "pre_entry", edited.Status)
	})

	t.Run("approve writes item, installments and splits", func(t *testing.T) {
		detail, err := s.entries.Approve(ctx, created.ID, appledger.ApproveEntryRequest{ValidatorID: userID})
		require.NoError(t, err)
		assert.Equal(t, "validated", detail.Status)
		require.Len(t, detail.Items, 1)
		assert.Equal(t, "100", decimal.RequireFromString(detail.Items[0].LineTotal).String())

		require.Len(t, detail.Installments, 3)
		sum := decimal.Zero
		for i, inst := range detail.Installments {
			assert.Equal(t, i+1, inst.SequenceNumber)
			assert.Equal(t, "pending", inst.PaymentStatus)
			sum = sum.Add(decimal.RequireFromString(inst.Amount))
		}
		assert.True(t, sum.Equal(decimal.RequireFromString("100.00")), "installments sum to %s", sum)
		assert.Equal(t, "33.34", detail.Installments[0].Amount)
		assert.Equal(t, "33.33", detail.Installments[2].Amount)

		require.Len(t, detail.Splits, 2)
		byPartner := map[uuid.UUID]string{}
		for _, sp := range detail.Splits {
			byPartner[sp.PartnerID] = sp.Amount
		}
		assert.Equal(t, "60.00", byPartner[partnerA])
		assert.Equal(t, "40.00", byPartner[partnerB])

		assert.EqualValues(t, 1, s.db.Count("entry_items", "entry_id = ?", created.ID))
		assert.EqualValues(t, 3, s.db.Count("installments", "entry_id = ?", created.ID))
		assert.EqualValues(t, 2, s.db.Count("partner_splits", "entry_id = ?", created.ID))
	})

	t.Run("second approve conflicts and writes nothing", func(t *testing.T) {
		_, err := s.entries.Approve(ctx, created.ID, appledger.ApproveEntryRequest{ValidatorID: userID})
		require.Error(t, err)
		assert.True(t, shared.IsConflict(err))
		assert.EqualValues(t, 3, s.db.Count("installments", "entry_id = ?", created.ID))
	})

	t.Run("cancel after approve conflicts", func(t *testing.T) {
		_, err := s.entries.Cancel(ctx, created.ID, userID)
		require.Error(t, err)
		assert.True(t, shared.IsConflict(err))
	})

	t.Run("installment payment", func(t *testing.T) {
		installments, err := s.entries.ListInstallments(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, installments, 3)

		paid, err := s.entries.MarkInstallmentPaid(ctx, installments[0].ID, appledger.MarkInstallmentPaidRequest{})
		require.NoError(t, err)
		assert.Equal(t, "paid", paid.PaymentStatus)

		_, err = s.entries.MarkInstallmentPaid(ctx, installments[0].ID, appledger.MarkInstallmentPaidRequest{})
		require.Error(t, err)
		assert.True(t, shared.IsConflict(err))
	})

	t.Run("outbox delivers committed events", func(t *testing.T) {
		delivered := s.processor.ProcessOnce(ctx)
		assert.Positive(t, delivered)
		assert.Subset(t, s.delivered.types(), []string{
			ledger.EventTypeEntryCreated,
			ledger.EventTypeEntryEdited,
			ledger.EventTypeEntryValidated,
			ledger.EventTypeInstallmentPaid,
		})
	})
}

func TestLedger_ConcurrentApproveWritesOnce(t *testing.T) {
	s := newLedgerStack(t)
	ctx := context.Background()
	userID := uuid.New()

	created, err := s.entries.CreatePreEntry(ctx, appledger.CreateEntryRequest{
		Kind:             "revenue",
		Description:      "Consulta particular",
		Amount:           decimal.RequireFromString("250.00"),
		IssueDate:        day("2024-06-03"),
		InstallmentCount: 2,
		Origin:           "api",
		CreatedBy:        &userID,
	})
	require.NoError(t, err)

	const racers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.entries.Approve(ctx, created.ID, appledger.ApproveEntryRequest{ValidatorID: uuid.New()})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case shared.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, racers-1, conflicts)
	assert.EqualValues(t, 1, s.db.Count("entry_items", "entry_id = ?", created.ID))
	assert.EqualValues(t, 2, s.db.Count("installments", "entry_id = ?", created.ID))
}

func TestLedger_CancelAndAttach(t *testing.T) {
	s := newLedgerStack(t)
	ctx := context.Background()
	userID := uuid.New()

	created, err := s.entries.CreatePreEntry(ctx, appledger.CreateEntryRequest{
		Kind:        "expense",
		Description: "Material de escritorio",
		Amount:      decimal.RequireFromString("42.90"),
		IssueDate:   day("2024-07-01"),
		Origin:      "manual",
		CreatedBy:   &userID,
	})
	require.NoError(t, err)

	withDoc, err := s.entries.AttachDocument(ctx, created.ID, "nota.pdf", "application/pdf", strings.NewReader("%PDF-1.4"), 8)
	require.NoError(t, err)
	assert.NotEmpty(t, withDoc.AttachmentRef)

	canceled, err := s.entries.Cancel(ctx, created.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, "canceled", canceled.Status)

	_, err = s.entries.Approve(ctx, created.ID, appledger.ApproveEntryRequest{ValidatorID: userID})
	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
	assert.EqualValues(t, 0, s.db.Count("installments", "entry_id = ?", created.ID))

	_, err = s.entries.GetEntry(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestLedger_UnknownCategoryRejected(t *testing.T) {
	s := newLedgerStack(t)
	missing := uuid.New()

	_, err := s.entries.CreatePreEntry(context.Background(), appledger.CreateEntryRequest{
		Kind:        "expense",
		Description: "Energia",
		Amount:      decimal.RequireFromString("310.00"),
		IssueDate:   day("2024-07-01"),
		Origin:      "manual",
		CategoryID:  &missing,
	})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	assert.EqualValues(t, 0, s.db.Count("entries", ""))
}

func TestLedger_RecurrenceTick(t *testing.T) {
	s := newLedgerStack(t)
	ctx := context.Background()
	categoryID := s.db.SeedCategory("Software", "expense")

	def, err := s.definitions.CreateRecurringDefinition(ctx, appledger.CreateRecurringDefinitionRequest{
		Kind:          "expense",
		Description:   "Assinatura prontuario eletronico",
		Amount:        decimal.RequireFromString("189.90"),
		Frequency:     "monthly",
		DueDayOfMonth: 10,
		StartDate:     day("2024-01-01"),
		CategoryID:    &categoryID,
		AutoValidate:  true,
	})
	require.NoError(t, err)
	assert.True(t, def.Active)

	t.Run("catches up every missed month", func(t *testing.T) {
		result, err := s.definitions.Tick(ctx, day("2024-03-15"))
		require.NoError(t, err)
		assert.Empty(t, result.Failures)
		require.Len(t, result.Materialized, 3)
		for _, m := range result.Materialized {
			assert.Equal(t, "validated", m.Status)
		}

		history, err := s.definitions.ListHistory(ctx, def.ID)
		require.NoError(t, err)
		assert.Len(t, history, 3)
		assert.EqualValues(t, 3, s.db.Count("installments", ""))
	})

	t.Run("a repeated tick is idempotent", func(t *testing.T) {
		result, err := s.definitions.Tick(ctx, day("2024-03-15"))
		require.NoError(t, err)
		assert.Empty(t, result.Materialized)
		assert.EqualValues(t, 3, s.db.Count("entries", "recurring_definition_id = ?", def.ID))
	})

	t.Run("inactive definitions are skipped", func(t *testing.T) {
		toggled, err := s.definitions.ToggleRecurringDefinition(ctx, def.ID, false)
		require.NoError(t, err)
		assert.False(t, toggled.Active)

		result, err := s.definitions.Tick(ctx, day("2024-06-15"))
		require.NoError(t, err)
		assert.Empty(t, result.Materialized)
	})
}
